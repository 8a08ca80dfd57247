package runtime

import "strings"

// ResolutionOrder computes the linearization of the named class under
// its configured mode. It fails with UnknownClassError only if the
// class itself was never registered; unregistered ancestors are
// skipped and resolution proceeds with whatever is known.
func (r *Registry) ResolutionOrder(name string) ([]string, error) {
	order, _, err := r.ResolutionOrderWithDiag(name)
	return order, err
}

// ResolutionOrderWithDiag is ResolutionOrder plus the advisory
// IncompleteHierarchy diagnostic: nil when every named ancestor
// resolved, otherwise the list of ancestor names that were referenced
// but never registered.
func (r *Registry) ResolutionOrderWithDiag(name string) ([]string, *IncompleteHierarchy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cls := r.classes[name]
	if cls == nil {
		return nil, nil, &UnknownClassError{Name: name}
	}

	diag := &IncompleteHierarchy{Class: name}
	var order []string
	var err error

	switch cls.Mode {
	case C3:
		order, err = r.c3Locked(name, make(map[string][]string), make(map[string]bool), diag)
	default:
		seen := make(map[string]bool)
		r.dfsLocked(name, seen, &order, diag)
	}
	if err != nil {
		return nil, nil, err
	}
	if len(diag.Missing) == 0 {
		diag = nil
	}
	return order, diag, nil
}

// dfsLocked emits the depth-first linearization: the class itself,
// then the full chain of its first parent before any sibling, skipping
// anything already emitted.
func (r *Registry) dfsLocked(name string, seen map[string]bool, out *[]string, diag *IncompleteHierarchy) {
	if seen[name] {
		return
	}
	seen[name] = true
	*out = append(*out, name)

	for _, parent := range r.classes[name].Parents {
		if r.classes[parent] == nil {
			diag.add(parent)
			continue
		}
		r.dfsLocked(parent, seen, out, diag)
	}
}

// c3Locked computes the C3 linearization of name by merging the
// parents' linearizations in listed order plus the parent list itself.
// A parent cycle or a contradictory precedence constraint is a hard
// InconsistentHierarchyError.
func (r *Registry) c3Locked(name string, memo map[string][]string, visiting map[string]bool, diag *IncompleteHierarchy) ([]string, error) {
	if lin, ok := memo[name]; ok {
		return lin, nil
	}
	if visiting[name] {
		return nil, &InconsistentHierarchyError{Name: name, Detail: "cycle in parent lists"}
	}
	visiting[name] = true
	defer delete(visiting, name)

	var parents []string
	for _, parent := range r.classes[name].Parents {
		if r.classes[parent] == nil {
			diag.add(parent)
			continue
		}
		parents = append(parents, parent)
	}

	var seqs [][]string
	for _, parent := range parents {
		lin, err := r.c3Locked(parent, memo, visiting, diag)
		if err != nil {
			return nil, err
		}
		seqs = append(seqs, lin)
	}
	if len(parents) > 0 {
		seqs = append(seqs, parents)
	}

	merged, err := c3Merge(name, seqs)
	if err != nil {
		return nil, err
	}

	lin := append([]string{name}, merged...)
	memo[name] = lin
	return lin, nil
}

// c3Merge repeatedly selects the head of the first sequence that does
// not appear in the tail of any other sequence.
func c3Merge(name string, seqs [][]string) ([]string, error) {
	work := make([][]string, 0, len(seqs))
	for _, s := range seqs {
		if len(s) > 0 {
			work = append(work, append([]string(nil), s...))
		}
	}

	var out []string
	for len(work) > 0 {
		head, ok := selectHead(work)
		if !ok {
			return nil, &InconsistentHierarchyError{
				Name:   name,
				Detail: "no valid merge head among " + strings.Join(heads(work), ", "),
			}
		}
		out = append(out, head)

		next := work[:0]
		for _, s := range work {
			if s[0] == head {
				s = s[1:]
			}
			if len(s) > 0 {
				next = append(next, s)
			}
		}
		work = next
	}
	return out, nil
}

func selectHead(work [][]string) (string, bool) {
	for _, s := range work {
		if !inAnyTail(s[0], work) {
			return s[0], true
		}
	}
	return "", false
}

func inAnyTail(cand string, work [][]string) bool {
	for _, s := range work {
		for _, x := range s[1:] {
			if x == cand {
				return true
			}
		}
	}
	return false
}

func heads(work [][]string) []string {
	out := make([]string, 0, len(work))
	for _, s := range work {
		out = append(out, s[0])
	}
	return out
}
