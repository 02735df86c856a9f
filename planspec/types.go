// Package planspec defines the Bound Plan Spec data contract: the plan
// structure a convergence turn produces, the blocker taxonomy, and the
// readiness state machine. Downstream consumers parse this contract
// bit-exactly, so field names and constants here are frozen.
package planspec

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SchemaVersion is the canonical schema version for every BoundPlanSpec.
// Validation coerces any other value back to this constant.
const SchemaVersion = "BoundPlanSpec_v1"

// PhaseBound is the phase tag for a bound plan.
const PhaseBound = "BOUND"

// Readiness is the ternary convergence state of a bound plan.
type Readiness string

const (
	// ReadinessBlocked indicates a hard stop requiring external resolution.
	ReadinessBlocked Readiness = "BLOCKED"

	// ReadinessNeedsInput indicates the plan is waiting on user input.
	ReadinessNeedsInput Readiness = "NEEDS_INPUT"

	// ReadinessReady indicates the plan is ready for compilation.
	ReadinessReady Readiness = "READY_FOR_COMPILATION"
)

// String returns the string representation of the readiness state.
func (r Readiness) String() string {
	return string(r)
}

// IsValid returns true if the readiness value is a known state.
func (r Readiness) IsValid() bool {
	switch r {
	case ReadinessBlocked, ReadinessNeedsInput, ReadinessReady:
		return true
	default:
		return false
	}
}

// BlockerType classifies why a plan cannot yet proceed.
type BlockerType string

const (
	BlockerMissingPreference  BlockerType = "missing_preference"
	BlockerMissingPermission  BlockerType = "missing_permission"
	BlockerToolGap            BlockerType = "tool_gap"
	BlockerToolAmbiguity      BlockerType = "tool_ambiguity"
	BlockerMissingInformation BlockerType = "missing_information"
	BlockerTimelineRisk       BlockerType = "timeline_risk"
	BlockerHumanRequired      BlockerType = "human_required"
	BlockerOther              BlockerType = "other"

	// BlockerPolicyConflict is not part of the closed tag set the generation
	// provider emits, but participates in readiness classification as a hard
	// stop alongside tool_gap.
	BlockerPolicyConflict BlockerType = "policy_conflict"
)

// IsValid returns true if the blocker type is drawn from the closed set.
func (t BlockerType) IsValid() bool {
	switch t {
	case BlockerMissingPreference, BlockerMissingPermission, BlockerToolGap,
		BlockerToolAmbiguity, BlockerMissingInformation, BlockerTimelineRisk,
		BlockerHumanRequired, BlockerOther:
		return true
	default:
		return false
	}
}

// Normalize maps unknown blocker tags to BlockerOther so a creative provider
// response cannot widen the taxonomy.
func (t BlockerType) Normalize() BlockerType {
	if t.IsValid() || t == BlockerPolicyConflict {
		return t
	}
	return BlockerOther
}

// Meta carries plan identity for a BoundPlanSpec.
type Meta struct {
	// PlanID uniquely identifies this plan.
	PlanID string `json:"plan_id"`

	// Workflow is the workflow name this plan belongs to.
	Workflow string `json:"workflow"`

	// Phase is always PhaseBound for a bound plan.
	Phase string `json:"phase"`

	// SchemaVersion must equal SchemaVersion; validation coerces mismatches.
	SchemaVersion string `json:"schema_version"`
}

// Step is one ordered unit of work in a bound plan.
type Step struct {
	// ID uniquely identifies the step within the plan.
	ID string `json:"id"`

	// Description is what the step does.
	Description string `json:"description"`

	// SelectedTool names the tool bound to this step, or nil when unbound.
	// Non-nil values must name an entry in the tool catalog; validation nulls
	// dangling references.
	SelectedTool *string `json:"selected_tool"`

	// ToolParameters holds the parameter values for the selected tool.
	ToolParameters map[string]any `json:"tool_parameters"`

	// DependsOn lists step IDs that must complete before this step.
	DependsOn []string `json:"depends_on"`
}

// Blocker is a typed, prioritized reason the plan cannot yet proceed.
type Blocker struct {
	// Type is the blocker tag from the closed set.
	Type BlockerType `json:"type"`

	// StepID is the implicated step, or nil for plan-level blockers.
	StepID *string `json:"step_id"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Priority is the numeric selection priority (lower asks first).
	Priority int `json:"priority"`

	// WritesTo lists the field names that would resolve this blocker.
	WritesTo []string `json:"writes_to"`
}

// NextInputRequest is the single question surfaced to the user, derived from
// the highest-priority blocker. It is never stored independently of the
// owning spec.
type NextInputRequest struct {
	BlockerType BlockerType `json:"blocker_type"`
	StepID      *string     `json:"step_id"`
	Message     string      `json:"message"`
	WritesTo    []string    `json:"writes_to"`
}

// BoundPlanSpec is the full convergence-turn output contract.
type BoundPlanSpec struct {
	Meta             Meta              `json:"meta"`
	Steps            []Step            `json:"steps"`
	Blockers         []Blocker         `json:"blockers"`
	PlanReadiness    Readiness         `json:"plan_readiness"`
	NextInputRequest *NextInputRequest `json:"next_input_request"`
}

// NewPlanID generates a fresh plan identifier (format: bps-{uuid}).
func NewPlanID() string {
	return fmt.Sprintf("bps-%s", uuid.New().String()[:8])
}

// NewSpec creates an empty bound plan spec with a fresh plan ID.
func NewSpec(workflow string) *BoundPlanSpec {
	return &BoundPlanSpec{
		Meta: Meta{
			PlanID:        NewPlanID(),
			Workflow:      workflow,
			Phase:         PhaseBound,
			SchemaVersion: SchemaVersion,
		},
		Steps:    []Step{},
		Blockers: []Blocker{},
	}
}

// DegradedSpec returns the canonical spec used when a provider response
// cannot be recovered at all: BLOCKED with a single missing_information
// blocker and no next input request.
func DegradedSpec() *BoundPlanSpec {
	return &BoundPlanSpec{
		Meta: Meta{
			Phase:         PhaseBound,
			SchemaVersion: SchemaVersion,
		},
		Steps: []Step{},
		Blockers: []Blocker{{
			Type:     BlockerMissingInformation,
			StepID:   nil,
			Message:  "Failed to parse response",
			Priority: 5,
			WritesTo: []string{},
		}},
		PlanReadiness:    ReadinessBlocked,
		NextInputRequest: nil,
	}
}

// Step returns the step with the given ID, or nil.
func (s *BoundPlanSpec) Step(id string) *Step {
	for i := range s.Steps {
		if s.Steps[i].ID == id {
			return &s.Steps[i]
		}
	}
	return nil
}

// BlockersOfType returns all blockers matching the given type.
func (s *BoundPlanSpec) BlockersOfType(t BlockerType) []Blocker {
	var out []Blocker
	for _, b := range s.Blockers {
		if b.Type == t {
			out = append(out, b)
		}
	}
	return out
}

// Clone returns a deep copy via JSON round trip. Used when a turn needs to
// mutate a spec without touching the session's last persisted copy.
func (s *BoundPlanSpec) Clone() (*BoundPlanSpec, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal spec: %w", err)
	}
	var out BoundPlanSpec
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal spec: %w", err)
	}
	return &out, nil
}
