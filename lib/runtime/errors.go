package runtime

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMethodNotProvided is returned by a fallback handler to decline a
// selector. The dispatcher treats a decline exactly like an absent
// fallback and converts it to NoSuchMethodError at the boundary.
var ErrMethodNotProvided = errors.New("method not provided")

// UnknownClassError indicates resolution was requested for a class that
// was never registered.
type UnknownClassError struct {
	Name string
}

func (e *UnknownClassError) Error() string {
	return fmt.Sprintf("unknown class: %s", e.Name)
}

// InconsistentHierarchyError indicates the C3 merge could not produce a
// valid linearization because the registered parent lists impose
// contradictory precedence constraints. It is surfaced when resolution
// is requested, never at registration time.
type InconsistentHierarchyError struct {
	Name   string
	Detail string
}

func (e *InconsistentHierarchyError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("inconsistent hierarchy for %s", e.Name)
	}
	return fmt.Sprintf("inconsistent hierarchy for %s: %s", e.Name, e.Detail)
}

// NoSuchMethodError indicates dispatch exhausted both the ordinary
// method scan and the fallback protocol.
type NoSuchMethodError struct {
	Class    string
	Selector string
}

func (e *NoSuchMethodError) Error() string {
	return fmt.Sprintf("no such method: %s %s", e.Class, e.Selector)
}

// IncompleteHierarchy is an advisory diagnostic, not an error. It lists
// ancestor names that were referenced in a parent list but never
// registered; resolution proceeds with whatever is known.
type IncompleteHierarchy struct {
	Class   string
	Missing []string
}

func (d *IncompleteHierarchy) String() string {
	return fmt.Sprintf("incomplete hierarchy for %s: missing %s",
		d.Class, strings.Join(d.Missing, ", "))
}

// add records a missing ancestor, deduplicating repeats.
func (d *IncompleteHierarchy) add(name string) {
	for _, m := range d.Missing {
		if m == name {
			return
		}
	}
	d.Missing = append(d.Missing, name)
}
