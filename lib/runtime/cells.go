package runtime

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Cell is a class-tagged, reference-counted aggregate cell. A cell is
// reachable for dispatch only while its strong count is above zero.
type Cell struct {
	id        string
	className string
	payload   Value
	strong    int
	weaks     map[*WeakHandle]struct{}
	released  bool
}

// StrongHandle is an owning reference to a cell. Every strong handle
// contributes one to the cell's strong count and must be dropped
// exactly once; dropping is idempotent per handle.
type StrongHandle struct {
	g       *ReferenceGraph
	cell    *Cell
	dropped bool
}

// ID returns the cell's unique ID
func (h *StrongHandle) ID() string {
	if h == nil || h.cell == nil {
		return ""
	}
	return h.cell.id
}

// Class returns the cell's class tag
func (h *StrongHandle) Class() string {
	if h == nil || h.cell == nil {
		return ""
	}
	return h.cell.className
}

// Payload returns the cell's payload value
func (h *StrongHandle) Payload() Value {
	h.g.mu.RLock()
	defer h.g.mu.RUnlock()
	return h.cell.payload
}

// SetPayload replaces the cell's payload value. The caller is
// responsible for dropping strong handles held by the old payload if
// they are no longer owned elsewhere.
func (h *StrongHandle) SetPayload(v Value) {
	h.g.mu.Lock()
	defer h.g.mu.Unlock()
	h.cell.payload = v
}

// Graph returns the graph that owns the cell
func (h *StrongHandle) Graph() *ReferenceGraph {
	return h.g
}

// WeakHandle is a non-owning observer of a cell. It never contributes
// to the strong count; Upgrade is the only safe way to follow it.
type WeakHandle struct {
	g    *ReferenceGraph
	cell *Cell // nil once the cell has died
}

// ReferenceGraph owns all cells and their strong/weak edge bookkeeping.
// Destruction is deterministic: the cell dies in the same call that
// drops its last strong handle. A cycle of strong handles is never
// collected; breaking it with Weaken is the object author's job.
type ReferenceGraph struct {
	mu    sync.RWMutex
	cells map[string]*Cell
}

// NewReferenceGraph creates a new empty reference graph
func NewReferenceGraph() *ReferenceGraph {
	return &ReferenceGraph{
		cells: make(map[string]*Cell),
	}
}

// Create makes a new cell with the given class tag and payload and
// returns its first strong handle (count = 1).
func (g *ReferenceGraph) Create(className string, payload Value) *StrongHandle {
	g.mu.Lock()
	defer g.mu.Unlock()

	cell := &Cell{
		id:        GenerateID(className),
		className: className,
		payload:   payload,
		strong:    1,
		weaks:     make(map[*WeakHandle]struct{}),
	}
	g.cells[cell.id] = cell
	return &StrongHandle{g: g, cell: cell}
}

// CloneStrong increments the cell's strong count and returns a new
// independent strong handle. O(1).
func (g *ReferenceGraph) CloneStrong(h *StrongHandle) *StrongHandle {
	g.mu.Lock()
	defer g.mu.Unlock()

	if h == nil || h.dropped || h.cell.released {
		return nil
	}
	h.cell.strong++
	return &StrongHandle{g: g, cell: h.cell}
}

// DropStrong decrements the cell's strong count. When the count reaches
// zero the payload's owned strong handles are dropped recursively, the
// cell leaves the graph, and every weak observer is invalidated.
// Dropping an already-dropped handle is a no-op.
func (g *ReferenceGraph) DropStrong(h *StrongHandle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dropLocked(h)
}

func (g *ReferenceGraph) dropLocked(h *StrongHandle) {
	if h == nil || h.dropped {
		return
	}
	h.dropped = true

	cell := h.cell
	if cell == nil || cell.released {
		return
	}
	cell.strong--
	if cell.strong > 0 {
		return
	}

	// The released flag guards against re-entry when a payload holds a
	// handle back to its own cell.
	cell.released = true
	delete(g.cells, cell.id)

	payload := cell.payload
	cell.payload = NilValue()
	g.releaseLocked(payload)

	for wk := range cell.weaks {
		wk.cell = nil
	}
	cell.weaks = nil
}

// releaseLocked drops every strong handle reachable through a payload value.
func (g *ReferenceGraph) releaseLocked(v Value) {
	switch v.Type {
	case TypeRef:
		g.dropLocked(v.RefVal)
	case TypeArray:
		if v.ArrayVal != nil {
			for _, elem := range v.ArrayVal.Elements {
				g.releaseLocked(elem)
			}
		}
	case TypeTable:
		if v.TableVal != nil {
			for _, entry := range v.TableVal.Entries {
				g.releaseLocked(entry)
			}
		}
	}
}

// Weaken creates a non-owning observer of the handle's cell. The strong
// count is unchanged.
func (g *ReferenceGraph) Weaken(h *StrongHandle) *WeakHandle {
	g.mu.Lock()
	defer g.mu.Unlock()

	if h == nil || h.dropped || h.cell.released {
		return &WeakHandle{g: g}
	}
	wk := &WeakHandle{g: g, cell: h.cell}
	h.cell.weaks[wk] = struct{}{}
	return wk
}

// Upgrade returns a new strong handle if the observed cell is still
// alive, or nil if it is gone. It never returns a dangling handle.
func (g *ReferenceGraph) Upgrade(w *WeakHandle) *StrongHandle {
	g.mu.Lock()
	defer g.mu.Unlock()

	if w == nil || w.cell == nil || w.cell.released {
		return nil
	}
	w.cell.strong++
	return &StrongHandle{g: g, cell: w.cell}
}

// Find returns a new strong handle to the live cell with the given ID,
// or nil if no such cell is alive.
func (g *ReferenceGraph) Find(id string) *StrongHandle {
	g.mu.Lock()
	defer g.mu.Unlock()

	cell, ok := g.cells[id]
	if !ok {
		return nil
	}
	cell.strong++
	return &StrongHandle{g: g, cell: cell}
}

// adopt re-enters a cell under a known ID with strong count 1. Used by
// the persistence layer when reloading stored cells.
func (g *ReferenceGraph) adopt(id, className string, payload Value) *StrongHandle {
	g.mu.Lock()
	defer g.mu.Unlock()

	cell := &Cell{
		id:        id,
		className: className,
		payload:   payload,
		strong:    1,
		weaks:     make(map[*WeakHandle]struct{}),
	}
	g.cells[id] = cell
	return &StrongHandle{g: g, cell: cell}
}

// StrongCount returns the current strong count of the handle's cell,
// or 0 if the cell is gone.
func (g *ReferenceGraph) StrongCount(h *StrongHandle) int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if h == nil || h.cell == nil || h.cell.released {
		return 0
	}
	return h.cell.strong
}

// WeakCount returns the number of live weak observers of the handle's cell
func (g *ReferenceGraph) WeakCount(h *StrongHandle) int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if h == nil || h.cell == nil || h.cell.released {
		return 0
	}
	return len(h.cell.weaks)
}

// CellCount returns the number of live cells in the graph
func (g *ReferenceGraph) CellCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.cells)
}

// CellIDs returns the IDs of all live cells
func (g *ReferenceGraph) CellIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]string, 0, len(g.cells))
	for id := range g.cells {
		ids = append(ids, id)
	}
	return ids
}

// CellStat describes one live cell for introspection and snapshots.
type CellStat struct {
	ID     string
	Class  string
	Strong int
	Weak   int
}

// Census returns a snapshot of every live cell's counts
func (g *ReferenceGraph) Census() []CellStat {
	g.mu.RLock()
	defer g.mu.RUnlock()

	stats := make([]CellStat, 0, len(g.cells))
	for _, cell := range g.cells {
		stats = append(stats, CellStat{
			ID:     cell.id,
			Class:  cell.className,
			Strong: cell.strong,
			Weak:   len(cell.weaks),
		})
	}
	return stats
}

// GenerateID creates a new unique cell ID tagged with the class name
func GenerateID(className string) string {
	idPrefix := strings.ToLower(strings.ReplaceAll(className, "::", "_"))
	return idPrefix + "_" + uuid.New().String()
}
