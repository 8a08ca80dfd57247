package manifest

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ModuleFile represents a single .maple module file: TOML declarations
// of the classes a module provides. Method bodies are native Go
// callables registered by the embedding program; module files declare
// shape only.
type ModuleFile struct {
	Module  ModuleInfo  `toml:"module"`
	Classes []ClassDecl `toml:"classes"`

	// Path is the on-disk location the file was read from (set at load time).
	Path string `toml:"-"`
}

// ModuleInfo contains module metadata.
type ModuleInfo struct {
	Name      string `toml:"name"`
	Namespace string `toml:"namespace"`
	Version   string `toml:"version"`
}

// ClassDecl declares one class: name, ordered parent list, resolution
// mode ("dfs" or "c3") and an optional declared version.
type ClassDecl struct {
	Name    string   `toml:"name"`
	Parents []string `toml:"parents"`
	Mode    string   `toml:"mode"`
	Version string   `toml:"version"`
}

// ParseModuleFile reads and parses a module file from disk.
func ParseModuleFile(path string) (*ModuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var mf ModuleFile
	if err := toml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if mf.Module.Name == "" {
		return nil, fmt.Errorf("%s: module file missing [module] name", path)
	}
	mf.Path = path
	return &mf, nil
}

// Namespace resolves the module's effective class namespace:
// the declared namespace if present, else the PascalCase of the
// module name.
func (mf *ModuleFile) Namespace() string {
	if mf.Module.Namespace != "" {
		return mf.Module.Namespace
	}
	return ToPascalCase(mf.Module.Name)
}
