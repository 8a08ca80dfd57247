package runtime

// Reflector is the read-only introspection surface over the registry
// and the module ledger. It reads the same live state the dispatcher
// and registry maintain; there is no separate copy.
type Reflector struct {
	reg    *Registry
	ledger *ModuleLedger
}

// NewReflector creates a reflector over a registry and a ledger
func NewReflector(reg *Registry, ledger *ModuleLedger) *Reflector {
	return &Reflector{reg: reg, ledger: ledger}
}

// ClassExists reports whether the class name is registered. It never
// fails, whatever the input string.
func (rf *Reflector) ClassExists(name string) bool {
	return rf.reg.Has(name)
}

// Can returns the method entry that an ordinary dispatch of the
// selector on the class would call, or nil. Only the ordinary method
// scan runs: a class whose methods exist solely through its fallback
// handler reports nil here. That false negative is part of the
// contract, not something to paper over.
func (rf *Reflector) Can(class, selector string) *MethodEntry {
	order, err := rf.reg.ResolutionOrder(class)
	if err != nil {
		return nil
	}
	return rf.reg.scanMethod(order, selector)
}

// CanHandle is Can keyed by a live object instead of a class name
func (rf *Reflector) CanHandle(h *StrongHandle, selector string) *MethodEntry {
	if h == nil || h.cell == nil {
		return nil
	}
	return rf.Can(h.Class(), selector)
}

// ModuleLoaded reports whether the module path (hierarchical name or
// literal path) has completed its load sequence according to the
// process-wide ledger.
func (rf *Reflector) ModuleLoaded(path string) bool {
	return rf.ledger.Loaded(path)
}

// Version returns the class's declared version. A missing class and a
// class without a declared version are indistinguishable: both return
// ("", false).
func (rf *Reflector) Version(class string) (string, bool) {
	cls := rf.reg.Lookup(class)
	if cls == nil || cls.Version == "" {
		return "", false
	}
	return cls.Version, true
}

// Isa reports whether ancestor appears in the class's resolution
// order. Resolution failures report false.
func (rf *Reflector) Isa(class, ancestor string) bool {
	order, err := rf.reg.ResolutionOrder(class)
	if err != nil {
		return false
	}
	for _, name := range order {
		if name == ancestor {
			return true
		}
	}
	return false
}
