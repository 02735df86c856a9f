package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/c360studio/semstreams/natsclient"
	"github.com/nats-io/nats.go/jetstream"
)

// CallsBucket is the KV bucket name for storing generation call records.
const CallsBucket = "GENERATION_CALLS"

// DefaultCallsTTL is the default TTL for call records (7 days).
const DefaultCallsTTL = 7 * 24 * time.Hour

// CallRecord captures a single generation call with timing, token usage, and
// fallback behavior for turn auditing.
type CallRecord struct {
	// RequestID uniquely identifies this call.
	RequestID string `json:"request_id"`

	// TraceID correlates this call with other messages in the same flow.
	TraceID string `json:"trace_id,omitempty"`

	// SessionID is the develop session that initiated this call (if any).
	SessionID string `json:"session_id,omitempty"`

	// Capability is the semantic capability requested ("binding", "tiebreak").
	Capability string `json:"capability"`

	// Model is the model that produced the response (empty if all failed).
	Model string `json:"model,omitempty"`

	// Provider is the provider that served the call.
	Provider string `json:"provider,omitempty"`

	// Messages is the chat history that was sent.
	Messages []Message `json:"messages"`

	// Response is the generated content (empty on failure).
	Response string `json:"response,omitempty"`

	// Error contains the failure description if the call failed.
	Error string `json:"error,omitempty"`

	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
	TotalTokens      int    `json:"total_tokens,omitempty"`
	FinishReason     string `json:"finish_reason,omitempty"`

	// StartedAt is when the call began.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the call finished.
	CompletedAt time.Time `json:"completed_at"`

	// DurationMs is the call duration in milliseconds.
	DurationMs int64 `json:"duration_ms"`

	// Retries is how many retry attempts were made across endpoints.
	Retries int `json:"retries,omitempty"`

	// FallbacksUsed lists models that failed before the call resolved.
	FallbacksUsed []string `json:"fallbacks_used,omitempty"`
}

// CallStore persists generation call records to a KV bucket for turn auditing.
type CallStore struct {
	nc     *natsclient.Client
	bucket jetstream.KeyValue
	ttl    time.Duration
	logger *slog.Logger
}

// CallStoreOption configures a CallStore.
type CallStoreOption func(*CallStore)

// WithCallsTTL sets the TTL for call records.
func WithCallsTTL(ttl time.Duration) CallStoreOption {
	return func(s *CallStore) {
		s.ttl = ttl
	}
}

// WithCallStoreLogger sets the logger for the call store.
func WithCallStoreLogger(logger *slog.Logger) CallStoreOption {
	return func(s *CallStore) {
		s.logger = logger
	}
}

// NewCallStore creates a new call store. The context is used for the initial
// bucket creation/update operation.
func NewCallStore(ctx context.Context, nc *natsclient.Client, opts ...CallStoreOption) (*CallStore, error) {
	if nc == nil {
		return nil, fmt.Errorf("NATS client required")
	}

	s := &CallStore{
		nc:     nc,
		ttl:    DefaultCallsTTL,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("get jetstream: %w", err)
	}

	// CreateOrUpdateKeyValue is idempotent and handles race conditions
	bucket, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      CallsBucket,
		Description: "Generation call records for turn auditing",
		TTL:         s.ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("create/update kv bucket: %w", err)
	}

	s.bucket = bucket
	return s, nil
}

// Store saves a call record to the KV bucket.
// Key format: {session_id}.{request_id} to enable prefix queries by session.
func (s *CallStore) Store(ctx context.Context, record *CallRecord) error {
	if record.RequestID == "" {
		return fmt.Errorf("request_id is required")
	}

	key := record.RequestID
	if record.SessionID != "" {
		key = fmt.Sprintf("%s.%s", record.SessionID, record.RequestID)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	_, err = s.bucket.Put(ctx, key, data)
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}

	return nil
}

// Get retrieves a call record by its key (session_id.request_id or just
// request_id).
func (s *CallStore) Get(ctx context.Context, key string) (*CallRecord, error) {
	entry, err := s.bucket.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}

	var record CallRecord
	if err := json.Unmarshal(entry.Value(), &record); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}

	return &record, nil
}

// GetBySessionID retrieves all call records for a given session in
// chronological order (oldest first).
func (s *CallStore) GetBySessionID(ctx context.Context, sessionID string) ([]*CallRecord, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}

	keys, err := s.bucket.Keys(ctx)
	if err != nil {
		// No keys is not an error - return empty slice
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []*CallRecord{}, nil
		}
		return nil, fmt.Errorf("list keys: %w", err)
	}

	prefix := sessionID + "."
	var records []*CallRecord

	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}

		entry, err := s.bucket.Get(ctx, key)
		if err != nil {
			// ErrKeyDeleted is expected during concurrent access
			if !errors.Is(err, jetstream.ErrKeyDeleted) && !errors.Is(err, jetstream.ErrKeyNotFound) {
				s.logger.Warn("Failed to get key", "key", key, "error", err)
			}
			continue
		}

		var record CallRecord
		if err := json.Unmarshal(entry.Value(), &record); err != nil {
			s.logger.Warn("Failed to unmarshal record", "key", key, "error", err)
			continue
		}

		records = append(records, &record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.Before(records[j].StartedAt)
	})

	return records, nil
}
