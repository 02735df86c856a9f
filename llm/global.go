package llm

import (
	"context"
	"sync"

	"github.com/c360studio/semstreams/natsclient"
)

var (
	globalCallStore   *CallStore
	globalCallStoreMu sync.RWMutex
)

// InitGlobalCallStore initializes the process-wide call store used by
// clients that don't configure one explicitly. Call once during startup
// after NATS is connected.
func InitGlobalCallStore(ctx context.Context, nc *natsclient.Client, opts ...CallStoreOption) error {
	store, err := NewCallStore(ctx, nc, opts...)
	if err != nil {
		return err
	}

	globalCallStoreMu.Lock()
	globalCallStore = store
	globalCallStoreMu.Unlock()
	return nil
}

// GlobalCallStore returns the process-wide call store, or nil if turn
// auditing is not initialized.
func GlobalCallStore() *CallStore {
	globalCallStoreMu.RLock()
	defer globalCallStoreMu.RUnlock()
	return globalCallStore
}

// ResetGlobalCallStore clears the global call store. Intended for tests.
func ResetGlobalCallStore() {
	globalCallStoreMu.Lock()
	globalCallStore = nil
	globalCallStoreMu.Unlock()
}
