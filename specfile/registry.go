// Package specfile loads declarative pipeline topologies from TOML
// files, resolving element kinds through a builder registry.
package specfile

import (
	"fmt"
	"sync"

	"github.com/hedisam/flowgraph/element"
)

// Builder constructs an element config from the options declared in a
// spec file.
type Builder func(options map[string]interface{}) (element.Config, error)

// Registry maps element kinds to builders. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns an empty builder registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register adds a builder under the given kind. Overwrites any existing
// registration.
func (r *Registry) Register(kind string, b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.builders == nil {
		r.builders = make(map[string]Builder)
	}
	r.builders[kind] = b
}

// Get returns the builder for kind, or nil and false if not found.
func (r *Registry) Get(kind string) (Builder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.builders[kind]
	return b, ok
}

// MustGet returns the builder for kind, or panics if not found.
func (r *Registry) MustGet(kind string) Builder {
	b, ok := r.Get(kind)
	if !ok {
		panic(fmt.Sprintf("specfile: kind %q not registered", kind))
	}
	return b
}

// Kinds returns all registered kinds (unordered).
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.builders))
	for k := range r.builders {
		kinds = append(kinds, k)
	}
	return kinds
}
