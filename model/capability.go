// Package model provides capability-based model selection for plan
// development tasks. Instead of hardcoding model names, callers specify
// capabilities (binding, tiebreak, extraction) and the registry resolves
// them to available models with fallback chains.
package model

// Capability represents a semantic capability for model selection.
// Instead of specifying "claude-sonnet", callers specify "binding" or "tiebreak".
type Capability string

const (
	// CapabilityBinding is for plan convergence turns: blocker detection,
	// tool selection, parameter binding.
	CapabilityBinding Capability = "binding"

	// CapabilityTiebreak is for resolving ambiguous tool selections.
	CapabilityTiebreak Capability = "tiebreak"

	// CapabilityExtraction is for pulling structured fields out of free-form
	// user messages.
	CapabilityExtraction Capability = "extraction"

	// CapabilityFast is for quick responses, simple tasks.
	CapabilityFast Capability = "fast"
)

// StepCapabilities maps develop-loop steps to their default capability.
// Used when no explicit capability or model is specified.
var StepCapabilities = map[string]Capability{
	"plan-developer":     CapabilityBinding,
	"ambiguity-resolver": CapabilityTiebreak,
	"field-extractor":    CapabilityExtraction,
}

// CapabilityForStep returns the default capability for a develop-loop step.
// Returns CapabilityBinding as fallback for unknown steps.
func CapabilityForStep(step string) Capability {
	if cap, ok := StepCapabilities[step]; ok {
		return cap
	}
	return CapabilityBinding
}

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityBinding, CapabilityTiebreak, CapabilityExtraction, CapabilityFast:
		return true
	}
	return false
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for invalid values.
func ParseCapability(s string) Capability {
	cap := Capability(s)
	if cap.IsValid() {
		return cap
	}
	return ""
}
