// Package tools provides the tool capability registry consulted during
// plan binding. Tool names are slash-namespaced ("ehr/search_person") so
// permission grants can match whole namespaces with glob patterns.
package tools

import (
	"fmt"
	"sort"
	"sync"
)

// Descriptor describes a tool available for step binding.
type Descriptor struct {
	// Name is the slash-namespaced tool identifier, e.g. "ehr/search_person".
	Name string `json:"name"`

	// Description explains what the tool does, surfaced in binding prompts.
	Description string `json:"description"`

	// Parameters is a JSON-schema-like map describing accepted parameters.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Registry holds the tool catalog for a deployment. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Descriptor
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Descriptor),
	}
}

// NewRegistryFromDescriptors creates a registry pre-populated with descriptors.
func NewRegistryFromDescriptors(descriptors []Descriptor) (*Registry, error) {
	r := NewRegistry()
	for _, d := range descriptors {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool descriptor to the registry.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("tool name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[d.Name] = d
	return nil
}

// Has reports whether a tool with the given name exists.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Get returns the descriptor for a tool name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.tools[name]
	return d, ok
}

// List returns all descriptors sorted by name.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.tools))
	for _, d := range r.tools {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Names returns all tool names sorted.
func (r *Registry) Names() []string {
	descriptors := r.List()
	names := make([]string, len(descriptors))
	for i, d := range descriptors {
		names[i] = d.Name
	}
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
