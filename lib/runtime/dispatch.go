package runtime

import "errors"

// ErrDeadHandle indicates a dispatch attempt through a nil or
// already-dropped strong handle.
var ErrDeadHandle = errors.New("dispatch on a dead or nil handle")

// Dispatcher routes method invocations through the class registry.
// Dispatch itself never mutates the registry or the reference graph;
// the user callables it invokes may.
type Dispatcher struct {
	reg *Registry
	g   *ReferenceGraph
}

// NewDispatcher creates a dispatcher over a registry and a graph
func NewDispatcher(reg *Registry, g *ReferenceGraph) *Dispatcher {
	return &Dispatcher{reg: reg, g: g}
}

// Invoke dispatches a method call on the object behind the handle.
// The resolution order of the object's class is scanned for the first
// ordinary method with the selector; failing that, for the first class
// defining a fallback handler, which is invoked with the requested
// selector as an explicit argument. A handler that declines with
// ErrMethodNotProvided counts as absent and the scan continues. When
// both scans come up empty the result is NoSuchMethodError.
func (d *Dispatcher) Invoke(h *StrongHandle, selector string, args []Value) (Value, error) {
	if h == nil || h.dropped || h.cell == nil || h.cell.released {
		return NilValue(), ErrDeadHandle
	}

	order, err := d.reg.ResolutionOrder(h.Class())
	if err != nil {
		return NilValue(), err
	}

	if m := d.reg.scanMethod(order, selector); m != nil {
		return m.Impl(h, args), nil
	}
	return d.tryFallbacks(h, order, 0, selector, args)
}

// InvokeSuper performs parent-relative dispatch for a call made from
// inside a method body: it resolves the order of the class the calling
// method was defined in and resumes the scan after that class. The
// anchor is the definition site, not the receiver's runtime class; a
// method entry copied into another class still resolves against the
// order of the class it was authored in.
func (d *Dispatcher) InvokeSuper(h *StrongHandle, from *MethodEntry, selector string, args []Value) (Value, error) {
	if h == nil || h.dropped || h.cell == nil || h.cell.released {
		return NilValue(), ErrDeadHandle
	}
	if from == nil {
		return NilValue(), errors.New("parent-relative dispatch without a defining method")
	}

	order, err := d.reg.ResolutionOrder(from.DefinedIn)
	if err != nil {
		return NilValue(), err
	}

	// Resume after the definition site. The defining class is the head
	// of its own order, but guard against exotic hierarchies anyway.
	start := 1
	for i, name := range order {
		if name == from.DefinedIn {
			start = i + 1
			break
		}
	}
	if start > len(order) {
		start = len(order)
	}

	if m := d.reg.scanMethod(order[start:], selector); m != nil {
		return m.Impl(h, args), nil
	}
	return d.tryFallbacks(h, order, start, selector, args)
}

// tryFallbacks runs the fallback protocol along order[from:].
func (d *Dispatcher) tryFallbacks(h *StrongHandle, order []string, from int, selector string, args []Value) (Value, error) {
	for _, cls := range d.reg.scanFallback(order, from) {
		result, err := cls.Fallback(h, selector, args)
		if err != nil {
			if errors.Is(err, ErrMethodNotProvided) {
				continue
			}
			return NilValue(), err
		}
		return result, nil
	}
	return NilValue(), &NoSuchMethodError{Class: h.Class(), Selector: selector}
}

// Send dispatches by cell ID. The transient strong handle taken for
// the call is dropped before returning.
func (d *Dispatcher) Send(id, selector string, args []Value) (Value, error) {
	h := d.g.Find(id)
	if h == nil {
		return NilValue(), ErrDeadHandle
	}
	defer d.g.DropStrong(h)
	return d.Invoke(h, selector, args)
}
