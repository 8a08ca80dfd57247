package runtime

import (
	"sort"
	"strings"
	"sync"
)

// ModuleSuffix is the fixed suffix canonical module paths carry.
const ModuleSuffix = ".maple"

// CanonicalModulePath maps a hierarchical module name to its canonical
// slash-separated path: "Data::Dumper" becomes "Data/Dumper.maple".
// Inputs that already look like paths (containing a slash or a dot)
// pass through unchanged, so literal paths recorded by collaborators
// can be queried back verbatim.
func CanonicalModulePath(name string) string {
	if strings.ContainsAny(name, "/.") {
		return name
	}
	return strings.ReplaceAll(name, "::", "/") + ModuleSuffix
}

// ModuleLedger is the process-wide record of which module paths have
// completed their load sequence. An entry means "this process believes
// the module loaded", nothing more: any collaborator may insert,
// remove, or forge entries. Entries never expire.
type ModuleLedger struct {
	mu      sync.RWMutex
	entries map[string]string // canonical path -> resolved location
}

// NewModuleLedger creates a new empty ledger
func NewModuleLedger() *ModuleLedger {
	return &ModuleLedger{
		entries: make(map[string]string),
	}
}

// Record marks a module path as loaded from the given location
func (l *ModuleLedger) Record(path, location string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[CanonicalModulePath(path)] = location
}

// Forget removes a module path from the ledger
func (l *ModuleLedger) Forget(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, CanonicalModulePath(path))
}

// Loaded reports whether the module path has a ledger entry
func (l *ModuleLedger) Loaded(path string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[CanonicalModulePath(path)]
	return ok
}

// Location returns the resolved on-disk location recorded for a path
func (l *ModuleLedger) Location(path string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	loc, ok := l.entries[CanonicalModulePath(path)]
	return loc, ok
}

// Paths returns all recorded module paths in sorted order
func (l *ModuleLedger) Paths() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	paths := make([]string, 0, len(l.entries))
	for p := range l.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Entries returns a copy of the whole ledger
func (l *ModuleLedger) Entries() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]string, len(l.entries))
	for p, loc := range l.entries {
		out[p] = loc
	}
	return out
}
