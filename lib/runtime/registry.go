package runtime

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ResolutionMode selects the linearization algorithm for a class
type ResolutionMode int

const (
	// DepthFirst exhausts each parent's full ancestry before the next
	// sibling. Ties are impossible: the first-listed parent wins.
	DepthFirst ResolutionMode = iota
	// C3 merges parent linearizations with the standard C3 rules,
	// guaranteeing local precedence and monotonicity.
	C3
)

// String returns the canonical mode name
func (m ResolutionMode) String() string {
	if m == C3 {
		return "c3"
	}
	return "dfs"
}

// ParseResolutionMode parses a mode name as written in module files
func ParseResolutionMode(s string) (ResolutionMode, error) {
	switch strings.ToLower(s) {
	case "", "dfs", "depth-first":
		return DepthFirst, nil
	case "c3":
		return C3, nil
	default:
		return DepthFirst, fmt.Errorf("unknown resolution mode: %q", s)
	}
}

// MethodFunc is the signature for native method implementations
type MethodFunc func(self *StrongHandle, args []Value) Value

// FallbackFunc is the signature for a class's fallback handler. It
// receives the originally requested selector as an explicit argument
// and may decline by returning ErrMethodNotProvided.
type FallbackFunc func(self *StrongHandle, selector string, args []Value) (Value, error)

// MethodEntry describes a single registered method. DefinedIn is the
// class name the method was registered under; parent-relative dispatch
// resolves against that class's order, not the receiver's runtime
// class, even if the entry is later copied into another class.
type MethodEntry struct {
	Selector  string
	Impl      MethodFunc
	DefinedIn string
}

// Class is a registered class record: ordered parent list, method
// table, optional fallback handler, resolution mode, and a declared
// version. Records live for the whole process; later registrations
// mutate them field by field.
type Class struct {
	Name     string
	Parents  []string
	Methods  map[string]*MethodEntry
	Fallback FallbackFunc
	Mode     ResolutionMode
	Version  string
}

// Selectors returns the class's own method selectors in sorted order
func (c *Class) Selectors() []string {
	sels := make([]string, 0, len(c.Methods))
	for s := range c.Methods {
		sels = append(sels, s)
	}
	sort.Strings(sels)
	return sels
}

// HasFallback reports whether the class defines a fallback handler
func (c *Class) HasFallback() bool {
	return c.Fallback != nil
}

// ClassDef carries the fields of a registration. Omitted fields keep
// their prior values: nil Parents keeps the parent list (an empty
// non-nil slice clears it), Methods merge into the existing table, nil
// Fallback and Mode keep the current ones, empty Version keeps the
// declared version.
type ClassDef struct {
	Parents  []string
	Methods  map[string]MethodFunc
	Fallback FallbackFunc
	Mode     *ResolutionMode
	Version  string
}

// Registry maps class names to class records. Parent names need not be
// registered at registration time; hierarchies are built incrementally
// and resolution copes with whatever is known when it runs.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

// NewRegistry creates a new empty class registry
func NewRegistry() *Registry {
	return &Registry{
		classes: make(map[string]*Class),
	}
}

// Register creates the named class record or merges the definition
// into the existing one. Registration always succeeds: unknown parent
// names are accepted and hierarchy problems surface lazily when a
// resolution order is requested.
func (r *Registry) Register(name string, def ClassDef) *Class {
	r.mu.Lock()
	defer r.mu.Unlock()

	cls, ok := r.classes[name]
	if !ok {
		cls = &Class{
			Name:    name,
			Methods: make(map[string]*MethodEntry),
			Mode:    DepthFirst,
		}
		r.classes[name] = cls
	}

	if def.Parents != nil {
		cls.Parents = append([]string(nil), def.Parents...)
	}
	for selector, impl := range def.Methods {
		cls.Methods[selector] = &MethodEntry{
			Selector:  selector,
			Impl:      impl,
			DefinedIn: name,
		}
	}
	if def.Fallback != nil {
		cls.Fallback = def.Fallback
	}
	if def.Mode != nil {
		cls.Mode = *def.Mode
	}
	if def.Version != "" {
		cls.Version = def.Version
	}
	return cls
}

// AddMethod registers a single method on a class, creating the class
// record if needed
func (r *Registry) AddMethod(className, selector string, impl MethodFunc) *MethodEntry {
	cls := r.Register(className, ClassDef{
		Methods: map[string]MethodFunc{selector: impl},
	})

	r.mu.RLock()
	defer r.mu.RUnlock()
	return cls.Methods[selector]
}

// SetFallback registers a class's fallback handler, creating the class
// record if needed
func (r *Registry) SetFallback(className string, fn FallbackFunc) {
	r.Register(className, ClassDef{Fallback: fn})
}

// Lookup returns the class record, or nil if the name was never
// registered. Absence is not an error; callers decide.
func (r *Registry) Lookup(name string) *Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.classes[name]
}

// Has reports whether the class name is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.classes[name]
	return ok
}

// ClassNames returns all registered class names in sorted order
func (r *Registry) ClassNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClassCount returns the number of registered classes
func (r *Registry) ClassCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.classes)
}

// scanMethod finds the first class along the order whose own method
// table contains the selector
func (r *Registry) scanMethod(order []string, selector string) *MethodEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range order {
		if cls := r.classes[name]; cls != nil {
			if m := cls.Methods[selector]; m != nil {
				return m
			}
		}
	}
	return nil
}

// scanFallback collects the classes along the order that define a
// fallback handler, starting at the given offset, in order
func (r *Registry) scanFallback(order []string, from int) []*Class {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found []*Class
	for _, name := range order[from:] {
		if cls := r.classes[name]; cls != nil && cls.Fallback != nil {
			found = append(found, cls)
		}
	}
	return found
}
