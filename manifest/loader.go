package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"

	"github.com/mkrall/maple/lib/runtime"
)

var log = commonlog.GetLogger("maple.manifest")

// Loader finds module files under a project's module directories,
// registers their class declarations, and records completed loads in
// the shared module ledger. It writes to the same registry and ledger
// the dispatcher and reflector read; there is no private copy.
type Loader struct {
	manifest *Manifest
	reg      *runtime.Registry
	ledger   *runtime.ModuleLedger
}

// NewLoader creates a loader bound to a manifest and a runtime's
// registry and ledger.
func NewLoader(m *Manifest, reg *runtime.Registry, ledger *runtime.ModuleLedger) *Loader {
	return &Loader{
		manifest: m,
		reg:      reg,
		ledger:   ledger,
	}
}

// Load resolves a hierarchical module name (or literal path) to its
// canonical path, locates the file under the manifest's module
// directories, registers the declared classes, and records the load.
// Loading is idempotent per canonical path: a second call returns the
// recorded location without re-reading the file.
func (l *Loader) Load(name string) (string, error) {
	if l.manifest == nil {
		return "", fmt.Errorf("loading %s: no manifest", name)
	}
	canonical := runtime.CanonicalModulePath(name)
	if loc, ok := l.ledger.Location(canonical); ok {
		return loc, nil
	}

	path, err := l.locate(canonical)
	if err != nil {
		return "", err
	}

	mf, err := ParseModuleFile(path)
	if err != nil {
		return "", err
	}

	ns := mf.Namespace()
	if IsReservedNamespace(ns) {
		return "", fmt.Errorf("module %s resolves to reserved namespace %q; declare namespace = \"...\" in [module]", name, ns)
	}

	if err := l.register(mf, ns); err != nil {
		return "", err
	}

	l.ledger.Record(canonical, path)
	log.Infof("loaded module %s from %s (%d classes)", canonical, path, len(mf.Classes))
	return path, nil
}

// Preload loads every module named in the manifest's preload list. A
// loader over a nil manifest (no maple.toml found) has nothing to
// preload and succeeds trivially.
func (l *Loader) Preload() error {
	if l.manifest == nil {
		return nil
	}
	for _, name := range l.manifest.Source.Preload {
		if _, err := l.Load(name); err != nil {
			return fmt.Errorf("preloading %s: %w", name, err)
		}
	}
	return nil
}

// locate searches the configured module directories for the canonical path.
func (l *Loader) locate(canonical string) (string, error) {
	for _, dir := range l.manifest.SourceDirPaths() {
		path := filepath.Join(dir, filepath.FromSlash(canonical))
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("module %s not found under %v", canonical, l.manifest.Source.Dirs)
}

// register merges every class declaration into the registry. Parent
// names declared in the same file are qualified with the module
// namespace; everything else is taken verbatim.
func (l *Loader) register(mf *ModuleFile, ns string) error {
	declared := make(map[string]bool, len(mf.Classes))
	for _, decl := range mf.Classes {
		declared[decl.Name] = true
	}

	for _, decl := range mf.Classes {
		mode, err := runtime.ParseResolutionMode(decl.Mode)
		if err != nil {
			return fmt.Errorf("%s: class %s: %w", mf.Path, decl.Name, err)
		}

		parents := make([]string, 0, len(decl.Parents))
		for _, p := range decl.Parents {
			if declared[p] {
				p = QualifyClassName(ns, p)
			}
			parents = append(parents, p)
		}

		version := decl.Version
		if version == "" {
			version = mf.Module.Version
		}

		l.reg.Register(QualifyClassName(ns, decl.Name), runtime.ClassDef{
			Parents: parents,
			Mode:    &mode,
			Version: version,
		})
	}
	return nil
}
