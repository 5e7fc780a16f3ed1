package pipeline

import "sort"

// NameRegistry tracks the live child names of one pipeline. It is owned
// and mutated only by the pipeline goroutine and needs no locking.
type NameRegistry struct {
	names map[string]struct{}
}

// NewNameRegistry returns an empty registry.
func NewNameRegistry() *NameRegistry {
	return &NameRegistry{names: make(map[string]struct{})}
}

// Register adds a name, rejecting duplicates.
func (r *NameRegistry) Register(name string) error {
	if _, exists := r.names[name]; exists {
		return &DuplicateNamesError{Names: []string{name}}
	}
	r.names[name] = struct{}{}
	return nil
}

// Contains reports whether name is registered.
func (r *NameRegistry) Contains(name string) bool {
	_, exists := r.names[name]
	return exists
}

// Unregister removes a name; removing an absent name is a no-op.
func (r *NameRegistry) Unregister(name string) {
	delete(r.names, name)
}

// Names returns all registered names, sorted.
func (r *NameRegistry) Names() []string {
	names := make([]string, 0, len(r.names))
	for n := range r.names {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered names.
func (r *NameRegistry) Len() int {
	return len(r.names)
}
