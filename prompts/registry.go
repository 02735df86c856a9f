// Package prompts holds the generation templates used during plan
// development, keyed by (module, domain, mode, step). Deployments can
// override or disable individual keys through configuration; a disabled
// binding key sends the develop loop down its deterministic fallback path.
package prompts

import (
	"fmt"
	"sync"
)

// Steps with built-in templates.
const (
	// StepBind is the main plan-binding turn.
	StepBind = "bind"

	// StepTiebreak is the tool-ambiguity resolution round.
	StepTiebreak = "tiebreak"

	// StepExtract is structured field extraction from user messages.
	StepExtract = "extract"
)

// Key identifies one template.
type Key struct {
	Module string
	Domain string
	Mode   string
	Step   string
}

// String formats a key for logging and config files: module/domain/mode/step.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.Module, k.Domain, k.Mode, k.Step)
}

// Registry maps keys to system-prompt templates. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	templates map[Key]string
	disabled  map[Key]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		templates: make(map[Key]string),
		disabled:  make(map[Key]bool),
	}
}

// DefaultRegistry returns a registry populated with the built-in templates
// for every mode the develop loop knows about.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, mode := range []string{"standard", "guided"} {
		r.Register(Key{Module: "planbind", Domain: "workflow", Mode: mode, Step: StepBind}, BindSystemPrompt())
		r.Register(Key{Module: "planbind", Domain: "workflow", Mode: mode, Step: StepTiebreak}, TiebreakSystemPrompt())
		r.Register(Key{Module: "planbind", Domain: "workflow", Mode: mode, Step: StepExtract}, ExtractSystemPrompt())
	}
	return r
}

// Register sets the template for a key, replacing any existing one.
func (r *Registry) Register(key Key, template string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[key] = template
}

// Lookup returns the template for a key. Returns false when the key has no
// template or has been disabled.
func (r *Registry) Lookup(key Key) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.disabled[key] {
		return "", false
	}
	template, ok := r.templates[key]
	return template, ok
}

// Disable marks a key unavailable without removing its template.
func (r *Registry) Disable(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disabled[key] = true
}

// Enable clears a key's disabled mark.
func (r *Registry) Enable(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.disabled, key)
}

// SetOverrides replaces templates in bulk, used by config hot-reload.
// Keys absent from the map keep their current template.
func (r *Registry) SetOverrides(overrides map[Key]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, template := range overrides {
		r.templates[key] = template
	}
}
