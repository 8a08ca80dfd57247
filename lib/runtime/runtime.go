package runtime

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("maple.runtime")

// Runtime is the main entry point for the Maple object runtime core.
// It wires the class registry, the reference graph, the dispatcher,
// the module ledger, and the reflection surface around one shared set
// of process state. Nothing here is ambient: tests construct isolated
// runtimes per case.
type Runtime struct {
	Registry    *Registry
	Graph       *ReferenceGraph
	Dispatcher  *Dispatcher
	Ledger      *ModuleLedger
	Reflect     *Reflector
	Persistence *Persistence

	mapleDir string
	mu       sync.Mutex
}

// Config holds runtime configuration
type Config struct {
	MapleDir string // Path to ~/.maple (defaults from env/home)
	DBPath   string // Path to cells.db (defaults from MapleDir)
	Debug    bool   // Enable debug logging
	Persist  bool   // Enable the SQLite cell store
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	mapleDir := os.Getenv("MAPLE_ROOT")
	if mapleDir == "" {
		home, _ := os.UserHomeDir()
		mapleDir = filepath.Join(home, ".maple")
	}

	dbPath := os.Getenv("MAPLE_DB")
	if dbPath == "" {
		dbPath = filepath.Join(mapleDir, "cells.db")
	}

	return &Config{
		MapleDir: mapleDir,
		DBPath:   dbPath,
		Debug:    os.Getenv("MAPLE_DEBUG") != "",
	}
}

// New creates a new runtime with the given configuration
func New(cfg *Config) (*Runtime, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	r := &Runtime{
		mapleDir: cfg.MapleDir,
	}

	r.Registry = NewRegistry()
	r.Graph = NewReferenceGraph()
	r.Dispatcher = NewDispatcher(r.Registry, r.Graph)
	r.Ledger = NewModuleLedger()
	r.Reflect = NewReflector(r.Registry, r.Ledger)

	RegisterObjectClass(r)

	if cfg.Persist {
		p, err := NewPersistence(cfg.DBPath, r.Graph)
		if err != nil {
			return nil, err
		}
		r.Persistence = p
	}

	if cfg.Debug {
		log.Debugf("runtime initialized (dir=%s persist=%v)", cfg.MapleDir, cfg.Persist)
	}
	return r, nil
}

// Close releases runtime resources
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Persistence != nil {
		return r.Persistence.Close()
	}
	return nil
}

// Create makes a new object cell through the reference graph
func (r *Runtime) Create(className string, payload Value) *StrongHandle {
	return r.Graph.Create(className, payload)
}

// RegisterClass registers or extends a class record
func (r *Runtime) RegisterClass(name string, def ClassDef) *Class {
	return r.Registry.Register(name, def)
}

// Invoke dispatches a method call on the object behind the handle
func (r *Runtime) Invoke(h *StrongHandle, selector string, args []Value) (Value, error) {
	return r.Dispatcher.Invoke(h, selector, args)
}

// InvokeSuper performs parent-relative dispatch anchored at the
// calling method's definition site
func (r *Runtime) InvokeSuper(h *StrongHandle, from *MethodEntry, selector string, args []Value) (Value, error) {
	return r.Dispatcher.InvokeSuper(h, from, selector, args)
}

// Send dispatches by cell ID
func (r *Runtime) Send(id, selector string, args []Value) (Value, error) {
	return r.Dispatcher.Send(id, selector, args)
}
