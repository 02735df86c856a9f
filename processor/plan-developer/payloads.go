package plandeveloper

import (
	"encoding/json"
	"fmt"

	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/payloadregistry"

	"github.com/c360studio/planbind/planspec"
)

// RegisterPayloads registers the develop trigger and result payload types
// with the supplied registry.
func RegisterPayloads(reg *payloadregistry.Registry) error {
	if err := reg.Register(&payloadregistry.Registration{
		Domain:      "plan",
		Category:    "develop-trigger",
		Version:     "v1",
		Description: "Plan develop turn trigger",
		Factory:     func() any { return &TurnTrigger{} },
	}); err != nil {
		return fmt.Errorf("failed to register develop trigger payload: %w", err)
	}
	if err := reg.Register(&payloadregistry.Registration{
		Domain:      "plan",
		Category:    "develop-result",
		Version:     "v1",
		Description: "Plan develop turn result",
		Factory:     func() any { return &TurnResultPayload{} },
	}); err != nil {
		return fmt.Errorf("failed to register develop result payload: %w", err)
	}
	return nil
}

// CallbackFields provides workflow-processor callback support. When a
// dispatcher routes a trigger via publish_async it injects these fields so
// the component can publish an async result back to the callback subject.
type CallbackFields struct {
	// CallbackSubject is where to publish the async result when done.
	CallbackSubject string `json:"callback_subject,omitempty"`

	// TaskID correlates this request with the pending dispatcher step.
	TaskID string `json:"task_id,omitempty"`

	// ExecutionID identifies the dispatcher execution this belongs to.
	ExecutionID string `json:"execution_id,omitempty"`
}

// HasCallback returns true if callback fields were injected.
func (c *CallbackFields) HasCallback() bool {
	return c.CallbackSubject != "" && c.TaskID != ""
}

// TurnTriggerType is the message type for develop triggers.
var TurnTriggerType = message.Type{Domain: "plan", Category: "develop-trigger", Version: "v1"}

// TurnTrigger is the payload that starts one develop turn.
type TurnTrigger struct {
	CallbackFields

	// RequestID uniquely identifies this trigger.
	RequestID string `json:"request_id"`

	// SessionID selects or creates the session to develop.
	SessionID string `json:"session_id"`

	// Message is the user's latest message, empty on the first turn.
	Message string `json:"message,omitempty"`

	// Draft is the draft plan to converge.
	Draft *planspec.DraftPlan `json:"draft,omitempty"`

	// TaskCatalog is passed through to generation requests opaquely.
	TaskCatalog map[string]any `json:"task_catalog,omitempty"`

	// TraceID correlates this turn with other messages in the same flow.
	TraceID string `json:"trace_id,omitempty"`
}

// Schema implements message.Payload.
func (t *TurnTrigger) Schema() message.Type {
	return TurnTriggerType
}

// Validate implements message.Payload.
func (t *TurnTrigger) Validate() error {
	if t.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	return nil
}

// TurnResultType is the message type for develop results.
var TurnResultType = message.Type{Domain: "plan", Category: "develop-result", Version: "v1"}

// TurnResultPayload is published when a develop turn completes.
type TurnResultPayload struct {
	CallbackFields

	RequestID   string                     `json:"request_id"`
	SessionID   string                     `json:"session_id"`
	Spec        *planspec.BoundPlanSpec    `json:"spec"`
	Readiness   planspec.Readiness         `json:"plan_readiness"`
	NextRequest *planspec.NextInputRequest `json:"next_input_request"`
	Status      string                     `json:"status"`
}

// Schema implements message.Payload.
func (r *TurnResultPayload) Schema() message.Type {
	return TurnResultType
}

// Validate implements message.Payload.
func (r *TurnResultPayload) Validate() error {
	return nil
}

// parseTrigger decodes a trigger from NATS message data. Handles both
// envelope-wrapped messages ({"payload": {...}}) and raw trigger JSON, so
// triggers work whether they come through a dispatcher or a direct publish.
func parseTrigger(data []byte) (*TurnTrigger, error) {
	var envelope struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && len(envelope.Payload) > 0 {
		data = envelope.Payload
	}

	var trigger TurnTrigger
	if err := json.Unmarshal(data, &trigger); err != nil {
		return nil, fmt.Errorf("unmarshal trigger: %w", err)
	}
	if err := trigger.Validate(); err != nil {
		return nil, err
	}
	return &trigger, nil
}
