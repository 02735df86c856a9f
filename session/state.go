// Package session holds per-session development state: the fields the user
// has already provided, granted permissions, and the last produced plan.
// State lives in a JetStream KV bucket keyed by session id.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/planbind/planspec"
)

// State is the full development state for one session. Mutated every turn
// by field extraction, enrichment, and plan development.
type State struct {
	// SessionID uniquely identifies this session (format: sess-{uuid}).
	SessionID string `json:"session_id"`

	// KnownFields is the set of field names the user has already provided.
	// Stored as a sorted-on-write slice; membership is what matters, not order.
	KnownFields []string `json:"known_fields"`

	// Context maps field names to their extracted or enriched values.
	Context map[string]any `json:"context"`

	// Preferences holds optional user preferences keyed by name.
	Preferences map[string]string `json:"preferences,omitempty"`

	// Permissions is the set of granted tool-permission patterns,
	// e.g. "ehr/**" or "directory/search_person".
	Permissions []string `json:"permissions"`

	// Timeline holds optional escalation metadata for time-sensitive plans.
	Timeline *Timeline `json:"timeline,omitempty"`

	// LastSpec is the spec produced by the previous develop turn.
	LastSpec *planspec.BoundPlanSpec `json:"last_spec,omitempty"`

	// LastRequest is the next-input-request from the previous turn. Field
	// extraction targets its WritesTo names on the next user message.
	LastRequest *planspec.NextInputRequest `json:"last_request,omitempty"`

	// Workflow is the workflow name this session is developing a plan for.
	Workflow string `json:"workflow,omitempty"`

	// Strategy is the active strategy/mode for prompt selection.
	Strategy string `json:"strategy,omitempty"`

	// CreatedAt is when the session started.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is bumped on every persist.
	UpdatedAt time.Time `json:"updated_at"`
}

// Timeline carries escalation metadata for time-sensitive sessions.
type Timeline struct {
	Deadline    *time.Time `json:"deadline,omitempty"`
	Escalated   bool       `json:"escalated"`
	EscalatedTo string     `json:"escalated_to,omitempty"`
}

// NewState creates session state with empty collections.
func NewState(sessionID string) *State {
	if sessionID == "" {
		sessionID = fmt.Sprintf("sess-%s", uuid.New().String()[:8])
	}
	now := time.Now().UTC()
	return &State{
		SessionID:   sessionID,
		KnownFields: []string{},
		Context:     map[string]any{},
		Permissions: []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HasField reports whether a field name is in the known set.
func (s *State) HasField(name string) bool {
	for _, f := range s.KnownFields {
		if f == name {
			return true
		}
	}
	return false
}

// AddField adds a field name to the known set and records its value in
// context. Adding an existing field overwrites the value only.
func (s *State) AddField(name string, value any) {
	if !s.HasField(name) {
		s.KnownFields = append(s.KnownFields, name)
	}
	if s.Context == nil {
		s.Context = map[string]any{}
	}
	s.Context[name] = value
}

// MergeFields adds every entry of the given map via AddField.
func (s *State) MergeFields(fields map[string]any) {
	for name, value := range fields {
		s.AddField(name, value)
	}
}

// HasPermission reports whether a permission pattern has been granted
// verbatim. Glob evaluation against tool names happens in the tools package.
func (s *State) HasPermission(pattern string) bool {
	for _, p := range s.Permissions {
		if p == pattern {
			return true
		}
	}
	return false
}

// GrantPermission adds a permission pattern if not already present.
func (s *State) GrantPermission(pattern string) {
	if !s.HasPermission(pattern) {
		s.Permissions = append(s.Permissions, pattern)
	}
}
