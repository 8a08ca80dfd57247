package runtime

import (
	"errors"
	"testing"
)

func modePtr(m ResolutionMode) *ResolutionMode {
	return &m
}

func assertOrder(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected order %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected order %v, got %v", want, got)
		}
	}
}

// TestResolutionOrderRootOnly verifies that a parentless class
// linearizes to itself under both modes.
func TestResolutionOrderRootOnly(t *testing.T) {
	for _, mode := range []ResolutionMode{DepthFirst, C3} {
		reg := NewRegistry()
		reg.Register("Root", ClassDef{Mode: modePtr(mode)})

		order, err := reg.ResolutionOrder("Root")
		if err != nil {
			t.Fatalf("ResolutionOrder failed under %s: %v", mode, err)
		}
		assertOrder(t, order, "Root")
	}
}

// TestResolutionOrderLinearChain verifies that an unbranched chain
// produces the same order under both modes.
func TestResolutionOrderLinearChain(t *testing.T) {
	for _, mode := range []ResolutionMode{DepthFirst, C3} {
		reg := NewRegistry()
		reg.Register("C", ClassDef{Mode: modePtr(mode)})
		reg.Register("B", ClassDef{Parents: []string{"C"}, Mode: modePtr(mode)})
		reg.Register("A", ClassDef{Parents: []string{"B"}, Mode: modePtr(mode)})
		reg.Register("X", ClassDef{Parents: []string{"A"}, Mode: modePtr(mode)})

		order, err := reg.ResolutionOrder("X")
		if err != nil {
			t.Fatalf("ResolutionOrder failed under %s: %v", mode, err)
		}
		assertOrder(t, order, "X", "A", "B", "C")
	}
}

// TestResolutionOrderDiamond verifies the documented split between the
// two algorithms on the diamond: depth-first visits the first parent's
// whole chain before the sibling, C3 keeps the shared ancestor last.
func TestResolutionOrderDiamond(t *testing.T) {
	build := func(mode ResolutionMode) *Registry {
		reg := NewRegistry()
		reg.Register("C", ClassDef{Mode: modePtr(mode)})
		reg.Register("A", ClassDef{Parents: []string{"C"}, Mode: modePtr(mode)})
		reg.Register("B", ClassDef{Parents: []string{"C"}, Mode: modePtr(mode)})
		reg.Register("X", ClassDef{Parents: []string{"A", "B"}, Mode: modePtr(mode)})
		return reg
	}

	order, err := build(DepthFirst).ResolutionOrder("X")
	if err != nil {
		t.Fatalf("DepthFirst resolution failed: %v", err)
	}
	assertOrder(t, order, "X", "A", "C", "B")

	order, err = build(C3).ResolutionOrder("X")
	if err != nil {
		t.Fatalf("C3 resolution failed: %v", err)
	}
	assertOrder(t, order, "X", "A", "B", "C")
}

// TestResolutionOrderUnknownClass verifies that resolution fails only
// when the requested class itself is unregistered.
func TestResolutionOrderUnknownClass(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.ResolutionOrder("Ghost")
	var unknown *UnknownClassError
	if !errors.As(err, &unknown) {
		t.Fatalf("Expected UnknownClassError, got %v", err)
	}
	if unknown.Name != "Ghost" {
		t.Errorf("Expected Ghost in error, got %s", unknown.Name)
	}
}

// TestResolutionOrderMissingAncestor verifies the graceful-degradation
// rule: unregistered ancestors are skipped, resolution proceeds, and
// the advisory diagnostic is available on request.
func TestResolutionOrderMissingAncestor(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Base", ClassDef{})
	reg.Register("X", ClassDef{Parents: []string{"NotYet", "Base"}})

	order, diag, err := reg.ResolutionOrderWithDiag("X")
	if err != nil {
		t.Fatalf("ResolutionOrder failed: %v", err)
	}
	assertOrder(t, order, "X", "Base")
	if diag == nil {
		t.Fatal("Expected an IncompleteHierarchy diagnostic")
	}
	if len(diag.Missing) != 1 || diag.Missing[0] != "NotYet" {
		t.Errorf("Expected missing [NotYet], got %v", diag.Missing)
	}

	// The plain call never surfaces the diagnostic.
	if _, err := reg.ResolutionOrder("X"); err != nil {
		t.Fatalf("Plain resolution should still succeed: %v", err)
	}

	// Registering the forward-declared parent later completes the order.
	reg.Register("NotYet", ClassDef{})
	order, diag, err = reg.ResolutionOrderWithDiag("X")
	if err != nil {
		t.Fatalf("ResolutionOrder failed after completion: %v", err)
	}
	assertOrder(t, order, "X", "NotYet", "Base")
	if diag != nil {
		t.Errorf("Expected no diagnostic, got %v", diag.Missing)
	}
}

// TestResolutionOrderC3Inconsistent builds the classic contradictory
// precedence pair: X wants A before B, Y wants B before A, and Z
// extends both. C3 must refuse with a hard error.
func TestResolutionOrderC3Inconsistent(t *testing.T) {
	reg := NewRegistry()
	c3 := modePtr(C3)
	reg.Register("O", ClassDef{Mode: c3})
	reg.Register("A", ClassDef{Parents: []string{"O"}, Mode: c3})
	reg.Register("B", ClassDef{Parents: []string{"O"}, Mode: c3})
	reg.Register("X", ClassDef{Parents: []string{"A", "B"}, Mode: c3})
	reg.Register("Y", ClassDef{Parents: []string{"B", "A"}, Mode: c3})
	reg.Register("Z", ClassDef{Parents: []string{"X", "Y"}, Mode: c3})

	_, err := reg.ResolutionOrder("Z")
	var inconsistent *InconsistentHierarchyError
	if !errors.As(err, &inconsistent) {
		t.Fatalf("Expected InconsistentHierarchyError, got %v", err)
	}

	// X and Y themselves are still fine.
	for _, name := range []string{"X", "Y"} {
		if _, err := reg.ResolutionOrder(name); err != nil {
			t.Errorf("Resolution of %s should succeed: %v", name, err)
		}
	}
}

// TestResolutionOrderParentCycle verifies that a parent cycle is a
// hard error under C3 but terminates quietly under depth-first.
func TestResolutionOrderParentCycle(t *testing.T) {
	reg := NewRegistry()
	c3 := modePtr(C3)
	reg.Register("A", ClassDef{Parents: []string{"B"}, Mode: c3})
	reg.Register("B", ClassDef{Parents: []string{"A"}, Mode: c3})

	_, err := reg.ResolutionOrder("A")
	var inconsistent *InconsistentHierarchyError
	if !errors.As(err, &inconsistent) {
		t.Fatalf("Expected InconsistentHierarchyError, got %v", err)
	}

	dfs := modePtr(DepthFirst)
	reg.Register("A", ClassDef{Mode: dfs})
	reg.Register("B", ClassDef{Mode: dfs})
	order, err := reg.ResolutionOrder("A")
	if err != nil {
		t.Fatalf("DepthFirst resolution failed on cycle: %v", err)
	}
	assertOrder(t, order, "A", "B")
}

// TestResolutionOrderFirstParentWins verifies the depth-first
// tie-break: the first-listed parent's entire chain precedes siblings.
func TestResolutionOrderFirstParentWins(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Deep", ClassDef{})
	reg.Register("Left", ClassDef{Parents: []string{"Deep"}})
	reg.Register("Right", ClassDef{})
	reg.Register("X", ClassDef{Parents: []string{"Left", "Right"}})

	order, err := reg.ResolutionOrder("X")
	if err != nil {
		t.Fatalf("ResolutionOrder failed: %v", err)
	}
	assertOrder(t, order, "X", "Left", "Deep", "Right")
}
