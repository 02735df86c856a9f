package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/c360studio/semstreams/natsclient"
	"github.com/nats-io/nats.go/jetstream"
)

// SessionsBucket is the KV bucket name for storing session state.
const SessionsBucket = "PLAN_SESSIONS"

// ErrNotFound is returned when a session id has no stored state.
var ErrNotFound = errors.New("session not found")

// ErrRevisionConflict is returned when a persist loses a compare-and-swap
// race: another writer updated the session since it was loaded. Callers
// should reload and re-apply their changes.
var ErrRevisionConflict = errors.New("session revision conflict")

// Store provides session state persistence over a JetStream KV bucket.
type Store struct {
	nc     *natsclient.Client
	bucket jetstream.KeyValue
}

// NewStore creates a session store, creating the bucket if needed.
func NewStore(ctx context.Context, nc *natsclient.Client) (*Store, error) {
	if nc == nil {
		return nil, fmt.Errorf("NATS client required")
	}

	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("get jetstream: %w", err)
	}

	// CreateOrUpdateKeyValue is idempotent and handles race conditions
	bucket, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      SessionsBucket,
		Description: "Plan development session state",
		History:     5,
	})
	if err != nil {
		return nil, fmt.Errorf("create/update kv bucket: %w", err)
	}

	return &Store{
		nc:     nc,
		bucket: bucket,
	}, nil
}

// Create stores a new session with the given initial known fields and
// returns the state plus its KV revision.
func (s *Store) Create(ctx context.Context, sessionID string, initialFields map[string]any) (*State, uint64, error) {
	state := NewState(sessionID)
	state.MergeFields(initialFields)

	data, err := json.Marshal(state)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal session: %w", err)
	}

	// Create fails if the key exists, so a session id is never silently reused
	rev, err := s.bucket.Create(ctx, state.SessionID, data)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return nil, 0, fmt.Errorf("session %s already exists: %w", state.SessionID, err)
		}
		return nil, 0, fmt.Errorf("create session: %w", err)
	}

	return state, rev, nil
}

// Load retrieves a session's state and its current KV revision. The revision
// must be passed back to Persist for conflict detection.
func (s *Store) Load(ctx context.Context, sessionID string) (*State, uint64, error) {
	entry, err := s.bucket.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("get session: %w", err)
	}

	var state State
	if err := json.Unmarshal(entry.Value(), &state); err != nil {
		return nil, 0, fmt.Errorf("unmarshal session: %w", err)
	}

	return &state, entry.Revision(), nil
}

// Persist writes a session's state using compare-and-swap on the revision
// returned by Load or a previous Persist. Returns the new revision.
// A concurrent write since that revision yields ErrRevisionConflict.
func (s *Store) Persist(ctx context.Context, state *State, revision uint64) (uint64, error) {
	if state.SessionID == "" {
		return 0, fmt.Errorf("session_id is required")
	}

	state.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(state)
	if err != nil {
		return 0, fmt.Errorf("marshal session: %w", err)
	}

	rev, err := s.bucket.Update(ctx, state.SessionID, data, revision)
	if err != nil {
		var apiErr *jetstream.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence {
			return 0, ErrRevisionConflict
		}
		return 0, fmt.Errorf("update session: %w", err)
	}

	return rev, nil
}

// Delete removes a session from the store.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.bucket.Delete(ctx, sessionID)
}

// List returns all stored session ids.
func (s *Store) List(ctx context.Context) ([]string, error) {
	keys, err := s.bucket.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}
