// Package image captures and restores snapshots of a runtime's class
// hierarchy and module ledger. A snapshot records hierarchy shape:
// class names, parent lists, resolution modes, versions, and declared
// selectors. Method bodies are native Go callables and are never
// serialized; restoring an image rebuilds the skeleton and leaves the
// embedding program to re-attach implementations. Cell payloads live
// in the SQLite store, so the image carries only a census of live
// cells for inspection.
package image

import (
	"fmt"
	"os"
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/mkrall/maple/lib/runtime"
)

// FormatVersion identifies the snapshot layout. Bump on any
// incompatible change to the Snapshot struct.
const FormatVersion = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// ClassImage is one class's shape as recorded in a snapshot.
type ClassImage struct {
	Name        string   `cbor:"name"`
	Parents     []string `cbor:"parents"`
	Mode        string   `cbor:"mode"`
	Version     string   `cbor:"version,omitempty"`
	Selectors   []string `cbor:"selectors,omitempty"`
	HasFallback bool     `cbor:"has_fallback,omitempty"`
}

// CellImage is one live cell's census entry.
type CellImage struct {
	ID     string `cbor:"id"`
	Class  string `cbor:"class"`
	Strong int    `cbor:"strong"`
	Weak   int    `cbor:"weak"`
}

// Snapshot is a point-in-time image of a runtime.
type Snapshot struct {
	Version int               `cbor:"version"`
	Classes []ClassImage      `cbor:"classes"`
	Modules map[string]string `cbor:"modules,omitempty"`
	Cells   []CellImage       `cbor:"cells,omitempty"`
}

// Capture builds a snapshot from a live runtime. Classes and cells
// are recorded in sorted order so identical runtimes produce
// identical images.
func Capture(rt *runtime.Runtime) *Snapshot {
	snap := &Snapshot{
		Version: FormatVersion,
		Modules: rt.Ledger.Entries(),
	}

	for _, name := range rt.Registry.ClassNames() {
		cls := rt.Registry.Lookup(name)
		if cls == nil {
			continue
		}
		snap.Classes = append(snap.Classes, ClassImage{
			Name:        cls.Name,
			Parents:     append([]string(nil), cls.Parents...),
			Mode:        cls.Mode.String(),
			Version:     cls.Version,
			Selectors:   cls.Selectors(),
			HasFallback: cls.HasFallback(),
		})
	}

	census := rt.Graph.Census()
	sort.Slice(census, func(i, j int) bool { return census[i].ID < census[j].ID })
	for _, stat := range census {
		snap.Cells = append(snap.Cells, CellImage{
			ID:     stat.ID,
			Class:  stat.Class,
			Strong: stat.Strong,
			Weak:   stat.Weak,
		})
	}
	return snap
}

// Marshal serializes a snapshot to canonical CBOR bytes.
func Marshal(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// Unmarshal deserializes a snapshot from CBOR bytes.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("image: unmarshal snapshot: %w", err)
	}
	if s.Version > FormatVersion {
		return nil, fmt.Errorf("image: snapshot format v%d is newer than supported v%d", s.Version, FormatVersion)
	}
	return &s, nil
}

// Restore replays a snapshot's class hierarchy and module ledger into
// a runtime. Classes are registered shape-only; method bodies must be
// re-attached by the embedding program. Existing registrations merge
// under the registry's usual rules.
func Restore(s *Snapshot, rt *runtime.Runtime) error {
	for _, ci := range s.Classes {
		mode, err := runtime.ParseResolutionMode(ci.Mode)
		if err != nil {
			return fmt.Errorf("image: class %s: %w", ci.Name, err)
		}
		parents := append([]string(nil), ci.Parents...)
		rt.Registry.Register(ci.Name, runtime.ClassDef{
			Parents: parents,
			Mode:    &mode,
			Version: ci.Version,
		})
	}
	for path, loc := range s.Modules {
		rt.Ledger.Record(path, loc)
	}
	return nil
}

// WriteFile captures a runtime and writes the snapshot to path.
func WriteFile(rt *runtime.Runtime, path string) error {
	data, err := Marshal(Capture(rt))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadFile loads a snapshot from path and restores it into a runtime.
func ReadFile(rt *runtime.Runtime, path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if err := Restore(s, rt); err != nil {
		return nil, err
	}
	return s, nil
}
