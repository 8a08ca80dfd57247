package image

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/mkrall/maple/lib/runtime"
)

func newWorld(t *testing.T) *runtime.Runtime {
	t.Helper()
	rt, err := runtime.New(&runtime.Config{})
	if err != nil {
		t.Fatalf("runtime.New failed: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return rt
}

func populate(rt *runtime.Runtime) {
	c3 := runtime.C3
	rt.RegisterClass("Animal", runtime.ClassDef{
		Version: "1.2.0",
		Methods: map[string]runtime.MethodFunc{
			"speak": func(self *runtime.StrongHandle, args []runtime.Value) runtime.Value {
				return runtime.StringValue("...")
			},
		},
	})
	rt.RegisterClass("Dog", runtime.ClassDef{
		Parents: []string{"Animal"},
		Mode:    &c3,
	})
	rt.Registry.SetFallback("Dog", func(self *runtime.StrongHandle, selector string, args []runtime.Value) (runtime.Value, error) {
		return runtime.StringValue("woof"), nil
	})
	rt.Ledger.Record("Animal::Farm", "/lib/Animal/Farm.maple")
}

func TestCaptureRecordsShape(t *testing.T) {
	rt := newWorld(t)
	populate(rt)
	h := rt.Create("Dog", runtime.NilValue())
	defer rt.Graph.DropStrong(h)

	snap := Capture(rt)
	if snap.Version != FormatVersion {
		t.Errorf("snapshot version = %d, want %d", snap.Version, FormatVersion)
	}

	byName := make(map[string]ClassImage)
	for _, ci := range snap.Classes {
		byName[ci.Name] = ci
	}
	dog, ok := byName["Dog"]
	if !ok {
		t.Fatal("Dog missing from snapshot")
	}
	if len(dog.Parents) != 1 || dog.Parents[0] != "Animal" {
		t.Errorf("Dog parents = %v", dog.Parents)
	}
	if dog.Mode != "c3" {
		t.Errorf("Dog mode = %q, want c3", dog.Mode)
	}
	if !dog.HasFallback {
		t.Error("Dog fallback not recorded")
	}
	animal := byName["Animal"]
	if animal.Version != "1.2.0" {
		t.Errorf("Animal version = %q", animal.Version)
	}
	if len(animal.Selectors) != 1 || animal.Selectors[0] != "speak" {
		t.Errorf("Animal selectors = %v", animal.Selectors)
	}
	if _, ok := byName["Object"]; !ok {
		t.Error("root class should appear in the snapshot")
	}

	if loc := snap.Modules["Animal/Farm.maple"]; loc != "/lib/Animal/Farm.maple" {
		t.Errorf("module entry = %q", loc)
	}
	if len(snap.Cells) != 1 || snap.Cells[0].Class != "Dog" || snap.Cells[0].Strong != 1 {
		t.Errorf("cell census = %+v", snap.Cells)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	rt := newWorld(t)
	populate(rt)

	a, err := Marshal(Capture(rt))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	b, err := Marshal(Capture(rt))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical runtimes should produce identical images")
	}
}

func TestRoundTripRestore(t *testing.T) {
	src := newWorld(t)
	populate(src)

	data, err := Marshal(Capture(src))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	snap, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	dst := newWorld(t)
	if err := Restore(snap, dst); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	dog := dst.Registry.Lookup("Dog")
	if dog == nil {
		t.Fatal("Dog not restored")
	}
	if dog.Mode != runtime.C3 {
		t.Errorf("Dog mode = %v, want C3", dog.Mode)
	}
	order, err := dst.Registry.ResolutionOrder("Dog")
	if err != nil {
		t.Fatalf("ResolutionOrder after restore: %v", err)
	}
	if len(order) != 2 || order[0] != "Dog" || order[1] != "Animal" {
		t.Errorf("restored order = %v", order)
	}
	if !dst.Ledger.Loaded("Animal::Farm") {
		t.Error("ledger entry not restored")
	}

	// Shape only: method bodies do not survive the image.
	if dst.Registry.Lookup("Animal").Methods["speak"] != nil {
		t.Error("restored image must not carry method implementations")
	}
}

func TestUnmarshalRejectsNewerFormat(t *testing.T) {
	data, err := cborEncMode.Marshal(&Snapshot{Version: FormatVersion + 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Unmarshal(data); err == nil {
		t.Error("snapshot from a newer format should be rejected")
	}
}

func TestWriteAndReadFile(t *testing.T) {
	src := newWorld(t)
	populate(src)

	path := filepath.Join(t.TempDir(), "world.image")
	if err := WriteFile(src, path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	dst := newWorld(t)
	snap, err := ReadFile(dst, path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(snap.Classes) == 0 {
		t.Error("snapshot read back empty")
	}
	if !dst.Reflect.ClassExists("Dog") {
		t.Error("Dog not present after ReadFile")
	}
}
