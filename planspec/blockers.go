package planspec

import "sort"

// blockerPriorities is the fixed selection order for next-input-request
// derivation. Lower values are asked first.
var blockerPriorities = map[BlockerType]int{
	BlockerMissingPreference:  1,
	BlockerMissingPermission:  2,
	BlockerToolGap:            3,
	BlockerToolAmbiguity:      4,
	BlockerMissingInformation: 5,
	BlockerTimelineRisk:       6,
	BlockerHumanRequired:      7,
	BlockerOther:              8,
}

// unknownBlockerPriority sorts blockers with unmapped types after every
// known type.
const unknownBlockerPriority = 99

// defaultRequestMessage is used when the selected blocker carries no message.
const defaultRequestMessage = "Please provide additional information"

// PriorityOf returns the selection priority for a blocker type.
func PriorityOf(t BlockerType) int {
	if p, ok := blockerPriorities[t]; ok {
		return p
	}
	return unknownBlockerPriority
}

// isHardStop reports whether a blocker type requires external resolution
// rather than user input.
func isHardStop(t BlockerType) bool {
	return t == BlockerToolGap || t == BlockerPolicyConflict
}

// ComputeReadiness classifies a blocker set, evaluated in this exact order:
// no blockers is READY_FOR_COMPILATION; any hard-stop type is BLOCKED; a
// derivable next-input-request means NEEDS_INPUT; otherwise ready.
func ComputeReadiness(blockers []Blocker) Readiness {
	if len(blockers) == 0 {
		return ReadinessReady
	}
	for _, b := range blockers {
		if isHardStop(b.Type) {
			return ReadinessBlocked
		}
	}
	if DeriveNextInputRequest(blockers) != nil {
		return ReadinessNeedsInput
	}
	return ReadinessReady
}

// DeriveNextInputRequest builds the single question to surface to the user
// from the highest-priority blocker. Returns nil for an empty blocker list.
// The sort is stable so ties resolve in blocker order.
func DeriveNextInputRequest(blockers []Blocker) *NextInputRequest {
	if len(blockers) == 0 {
		return nil
	}

	sorted := make([]Blocker, len(blockers))
	copy(sorted, blockers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return PriorityOf(sorted[i].Type) < PriorityOf(sorted[j].Type)
	})

	top := sorted[0]
	msg := top.Message
	if msg == "" {
		msg = defaultRequestMessage
	}
	writesTo := top.WritesTo
	if writesTo == nil {
		writesTo = []string{}
	}

	return &NextInputRequest{
		BlockerType: top.Type,
		StepID:      top.StepID,
		Message:     msg,
		WritesTo:    writesTo,
	}
}

// Finalize stamps readiness and next_input_request onto a spec from its
// blocker list. The empty-blockers invariant (never BLOCKED/NEEDS_INPUT)
// holds by construction.
func Finalize(spec *BoundPlanSpec) {
	spec.PlanReadiness = ComputeReadiness(spec.Blockers)
	spec.NextInputRequest = DeriveNextInputRequest(spec.Blockers)
}
