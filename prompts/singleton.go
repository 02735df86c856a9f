package prompts

import "sync"

var (
	globalRegistry *Registry
	globalOnce     sync.Once
	globalMu       sync.Mutex
)

// Global returns the process-wide template registry, creating it with the
// built-in templates on first use.
func Global() *Registry {
	globalMu.Lock()
	defer globalMu.Unlock()

	globalOnce.Do(func() {
		globalRegistry = DefaultRegistry()
	})
	return globalRegistry
}

// InitGlobal replaces the global registry, typically during startup before
// any component resolves templates.
func InitGlobal(registry *Registry) {
	globalMu.Lock()
	defer globalMu.Unlock()

	globalOnce.Do(func() {})
	globalRegistry = registry
}

// ResetGlobal clears the global registry so the next Global call rebuilds
// the defaults. Intended for tests.
func ResetGlobal() {
	globalMu.Lock()
	defer globalMu.Unlock()

	globalOnce = sync.Once{}
	globalRegistry = nil
}
