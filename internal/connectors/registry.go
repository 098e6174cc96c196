package connectors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	errNilFactory  = errors.New("connectors: nil factory")
	errEmptyPlugin = errors.New("connectors: plugin name is required")
)

// Registry maps plugin names to connector factories. It is populated once at
// process start from an enumerated list of constructors and is safe for
// concurrent lookups. Registration is idempotent: re-registering a name
// overwrites the previous factory.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry constructs an empty connector registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the given plugin name.
func (r *Registry) Register(name string, factory Factory) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errEmptyPlugin
	}
	if factory == nil {
		return errNilFactory
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
	return nil
}

// MustRegister wraps Register and panics on error for boot-time declarations.
func (r *Registry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Resolve returns the factory for a plugin name. An empty name yields
// ErrPluginUnset, an unknown name ErrPluginNotFound; the two require
// different remediation by the source owner.
func (r *Registry) Resolve(name string) (Factory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrPluginUnset
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPluginNotFound, name)
	}
	return factory, nil
}

// Names returns the registered plugin names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterBuiltins populates the registry with every connector implementation
// shipped in this package.
func RegisterBuiltins(r *Registry) {
	r.MustRegister("rest", NewRest)
	r.MustRegister("catalogue", NewCatalogue)
	r.MustRegister("dataset", NewDataset)
	r.MustRegister("table", NewTable)
	r.MustRegister("document", NewDocument)
	r.MustRegister("file", NewFile)
	r.MustRegister("csv", NewCSV)
}
