package runtime

import "testing"

// TestStrongCountRoundTrip verifies that cloning and dropping a handle
// leaves the cell alive with its original count, and that dropping is
// idempotent per handle.
func TestStrongCountRoundTrip(t *testing.T) {
	g := NewReferenceGraph()

	h := g.Create("Box", IntValue(42))
	if got := g.StrongCount(h); got != 1 {
		t.Fatalf("Expected count 1 after create, got %d", got)
	}

	clone := g.CloneStrong(h)
	if got := g.StrongCount(h); got != 2 {
		t.Fatalf("Expected count 2 after clone, got %d", got)
	}

	g.DropStrong(clone)
	if got := g.StrongCount(h); got != 1 {
		t.Fatalf("Expected count 1 after dropping clone, got %d", got)
	}

	// Double-drop of the same handle must not decrement twice.
	g.DropStrong(clone)
	if got := g.StrongCount(h); got != 1 {
		t.Fatalf("Expected count 1 after redundant drop, got %d", got)
	}

	g.DropStrong(h)
	if g.CellCount() != 0 {
		t.Errorf("Expected empty graph, got %d cells", g.CellCount())
	}
}

// TestWeakInvalidation verifies that dropping the last strong handle
// invalidates every weak observer taken before that point.
func TestWeakInvalidation(t *testing.T) {
	g := NewReferenceGraph()

	h := g.Create("Box", StringValue("contents"))
	w1 := g.Weaken(h)
	w2 := g.Weaken(h)
	if got := g.WeakCount(h); got != 2 {
		t.Fatalf("Expected 2 weak observers, got %d", got)
	}

	// Upgrading while alive yields a real strong handle.
	up := g.Upgrade(w1)
	if up == nil {
		t.Fatal("Upgrade of a live cell should succeed")
	}
	if up.Payload().AsString() != "contents" {
		t.Errorf("Upgraded handle sees wrong payload")
	}
	g.DropStrong(up)

	g.DropStrong(h)
	if g.Upgrade(w1) != nil {
		t.Error("Upgrade after death should report gone")
	}
	if g.Upgrade(w2) != nil {
		t.Error("Every weak observer should be invalidated")
	}
}

// TestRecursiveRelease verifies that a dying cell drops the strong
// handles its payload owns, cascading destruction.
func TestRecursiveRelease(t *testing.T) {
	g := NewReferenceGraph()

	child := g.Create("Child", StringValue("leaf"))
	childWeak := g.Weaken(child)

	payload := NewTable()
	payload.Put("child", RefValue(g.CloneStrong(child)))
	parent := g.Create("Parent", TableValue(payload))

	// The external child handle goes away; the parent's payload still
	// owns the child.
	g.DropStrong(child)
	up := g.Upgrade(childWeak)
	if up == nil {
		t.Fatal("Child should stay alive while the parent owns it")
	}
	g.DropStrong(up)

	g.DropStrong(parent)
	if g.Upgrade(childWeak) != nil {
		t.Error("Child should die with its owning parent")
	}
	if g.CellCount() != 0 {
		t.Errorf("Expected empty graph, got %d cells", g.CellCount())
	}
}

// TestCyclePersistence verifies the documented correctness gap: a
// strong cycle is never collected automatically, and breaking one edge
// with a weak observer lets the whole cycle drain.
func TestCyclePersistence(t *testing.T) {
	g := NewReferenceGraph()

	parentPayload := NewTable()
	childPayload := NewTable()
	parent := g.Create("Parent", TableValue(parentPayload))
	child := g.Create("Child", TableValue(childPayload))

	parentPayload.Put("child", RefValue(g.CloneStrong(child)))
	childToParent := g.CloneStrong(parent)
	childPayload.Put("parent", RefValue(childToParent))

	g.DropStrong(parent)
	g.DropStrong(child)

	// Both external handles are gone, but the mutual strong edges keep
	// the pair alive.
	if g.CellCount() != 2 {
		t.Fatalf("Expected the cycle to persist, got %d cells", g.CellCount())
	}

	// Break the cycle: the child keeps only a weak observer of the
	// parent and drops its strong edge.
	weakParent := g.Weaken(childToParent)
	childPayload.Put("parent", StringValue(childToParent.ID()))
	g.DropStrong(childToParent)

	if g.CellCount() != 0 {
		t.Errorf("Expected the cycle to drain, got %d cells", g.CellCount())
	}
	if g.Upgrade(weakParent) != nil {
		t.Error("Weak observer should report the parent gone")
	}
}

// TestSelfReferenceRelease verifies a cell owning a handle to itself
// releases exactly once.
func TestSelfReferenceRelease(t *testing.T) {
	g := NewReferenceGraph()

	payload := NewTable()
	h := g.Create("Ouroboros", TableValue(payload))
	payload.Put("me", RefValue(g.CloneStrong(h)))

	g.DropStrong(h)
	// Count is still 1 (the payload's own edge): a self-cycle leaks
	// like any other strong cycle.
	if g.CellCount() != 1 {
		t.Fatalf("Expected self-cycle to persist, got %d cells", g.CellCount())
	}

	// Dropping the payload edge after fetching it drains the cell.
	rescued := g.Find(g.CellIDs()[0])
	inner := rescued.Payload().TableVal.Get("me").RefVal
	g.DropStrong(inner)
	g.DropStrong(rescued)
	if g.CellCount() != 0 {
		t.Errorf("Expected empty graph, got %d cells", g.CellCount())
	}
}

// TestUpgradeOfDeadWeakenedHandle verifies weakening a dead handle
// yields an observer that reports gone.
func TestUpgradeOfDeadWeakenedHandle(t *testing.T) {
	g := NewReferenceGraph()

	h := g.Create("Box", NilValue())
	g.DropStrong(h)

	w := g.Weaken(h)
	if g.Upgrade(w) != nil {
		t.Error("Weakening a dead handle should yield a dead observer")
	}
}
