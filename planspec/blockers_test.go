package planspec

import "testing"

func TestPriorityOf(t *testing.T) {
	tests := []struct {
		blockerType BlockerType
		want        int
	}{
		{BlockerMissingPreference, 1},
		{BlockerMissingPermission, 2},
		{BlockerToolGap, 3},
		{BlockerToolAmbiguity, 4},
		{BlockerMissingInformation, 5},
		{BlockerTimelineRisk, 6},
		{BlockerHumanRequired, 7},
		{BlockerOther, 8},
		{BlockerType("made_up"), unknownBlockerPriority},
	}

	for _, tt := range tests {
		if got := PriorityOf(tt.blockerType); got != tt.want {
			t.Errorf("PriorityOf(%s) = %d, want %d", tt.blockerType, got, tt.want)
		}
	}
}

func TestComputeReadiness_NoBlockers(t *testing.T) {
	if got := ComputeReadiness(nil); got != ReadinessReady {
		t.Errorf("expected READY_FOR_COMPILATION for empty blockers, got %s", got)
	}
	if got := ComputeReadiness([]Blocker{}); got != ReadinessReady {
		t.Errorf("expected READY_FOR_COMPILATION for empty slice, got %s", got)
	}
}

func TestComputeReadiness_HardStops(t *testing.T) {
	// tool_gap blocks even when lower-priority blockers are also present
	blockers := []Blocker{
		{Type: BlockerMissingPreference, Message: "pick a pharmacy"},
		{Type: BlockerToolGap, Message: "no tool can send faxes"},
	}
	if got := ComputeReadiness(blockers); got != ReadinessBlocked {
		t.Errorf("expected BLOCKED with tool_gap present, got %s", got)
	}

	// policy_conflict is a hard stop despite not being in the emitted set
	blockers = []Blocker{{Type: BlockerPolicyConflict, Message: "consent missing"}}
	if got := ComputeReadiness(blockers); got != ReadinessBlocked {
		t.Errorf("expected BLOCKED with policy_conflict present, got %s", got)
	}
}

func TestComputeReadiness_NeedsInput(t *testing.T) {
	blockers := []Blocker{
		{Type: BlockerMissingInformation, Message: "need date of birth"},
	}
	if got := ComputeReadiness(blockers); got != ReadinessNeedsInput {
		t.Errorf("expected NEEDS_INPUT, got %s", got)
	}
}

func TestDeriveNextInputRequest_Empty(t *testing.T) {
	if req := DeriveNextInputRequest(nil); req != nil {
		t.Errorf("expected nil request for empty blockers, got %+v", req)
	}
}

func TestDeriveNextInputRequest_PicksHighestPriority(t *testing.T) {
	// One instance of every blocker type in the closed set, shuffled:
	// missing_preference must win
	stepID := "step-2"
	blockers := []Blocker{
		{Type: BlockerMissingInformation, Message: "need member id"},
		{Type: BlockerHumanRequired, Message: "nurse review"},
		{Type: BlockerToolAmbiguity, Message: "two search tools match"},
		{Type: BlockerOther, Message: "something else"},
		{Type: BlockerMissingPreference, StepID: &stepID, Message: "which pharmacy?", WritesTo: []string{"pharmacy"}},
		{Type: BlockerToolGap, Message: "no tool can send faxes"},
		{Type: BlockerTimelineRisk, Message: "refill due tomorrow"},
		{Type: BlockerMissingPermission, Message: "need ehr grant"},
	}

	req := DeriveNextInputRequest(blockers)
	if req == nil {
		t.Fatal("expected a request")
	}
	if req.BlockerType != BlockerMissingPreference {
		t.Errorf("expected missing_preference selected, got %s", req.BlockerType)
	}
	if req.StepID == nil || *req.StepID != "step-2" {
		t.Errorf("expected step_id step-2, got %v", req.StepID)
	}
	if req.Message != "which pharmacy?" {
		t.Errorf("unexpected message: %s", req.Message)
	}
	if len(req.WritesTo) != 1 || req.WritesTo[0] != "pharmacy" {
		t.Errorf("unexpected writes_to: %v", req.WritesTo)
	}
}

func TestDeriveNextInputRequest_StableTieBreak(t *testing.T) {
	// Two blockers of equal priority resolve in list order
	blockers := []Blocker{
		{Type: BlockerMissingInformation, Message: "first"},
		{Type: BlockerMissingInformation, Message: "second"},
	}

	req := DeriveNextInputRequest(blockers)
	if req == nil {
		t.Fatal("expected a request")
	}
	if req.Message != "first" {
		t.Errorf("expected stable tie-break to pick first blocker, got %q", req.Message)
	}
}

func TestDeriveNextInputRequest_Defaults(t *testing.T) {
	req := DeriveNextInputRequest([]Blocker{{Type: BlockerOther}})
	if req == nil {
		t.Fatal("expected a request")
	}
	if req.Message != defaultRequestMessage {
		t.Errorf("expected default message, got %q", req.Message)
	}
	if req.WritesTo == nil {
		t.Error("expected writes_to to be non-nil")
	}
}

func TestFinalize(t *testing.T) {
	spec := NewSpec("prescription-refill")
	spec.Blockers = []Blocker{
		{Type: BlockerMissingPermission, Message: "need ehr/read grant", WritesTo: []string{"ehr_grant"}},
	}

	Finalize(spec)

	if spec.PlanReadiness != ReadinessNeedsInput {
		t.Errorf("expected NEEDS_INPUT, got %s", spec.PlanReadiness)
	}
	if spec.NextInputRequest == nil {
		t.Fatal("expected next_input_request to be set")
	}
	if spec.NextInputRequest.BlockerType != BlockerMissingPermission {
		t.Errorf("unexpected blocker type: %s", spec.NextInputRequest.BlockerType)
	}
}

func TestFinalize_CleanSpec(t *testing.T) {
	spec := NewSpec("prescription-refill")
	Finalize(spec)

	if spec.PlanReadiness != ReadinessReady {
		t.Errorf("expected READY_FOR_COMPILATION, got %s", spec.PlanReadiness)
	}
	if spec.NextInputRequest != nil {
		t.Errorf("expected nil next_input_request, got %+v", spec.NextInputRequest)
	}
}
