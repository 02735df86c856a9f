package planspec

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/c360studio/planbind/llm"
)

// Extractor recovers a BoundPlanSpec from raw generation-provider text.
// Providers wrap JSON in prose, code fences, comments, and trailing commas;
// the extractor tries progressively looser recovery strategies and never
// returns an error.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an extractor. A nil logger uses slog.Default.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Parse extracts a BoundPlanSpec from raw provider output. Three tiers,
// tried in order:
//
//  1. A fenced code block: parse its content directly, then fall back to
//     balanced-delimiter extraction within the block.
//  2. Balanced-delimiter extraction over the entire raw text.
//  3. The entire trimmed text parsed directly.
//
// If every tier fails, the canonical degraded spec is returned with ok
// false: BLOCKED with a single missing_information blocker and no next
// input request. Parse never fails the turn.
func (e *Extractor) Parse(raw string) (*BoundPlanSpec, bool) {
	if block, ok := llm.FencedBlock(raw); ok {
		if spec := tryUnmarshal(llm.CleanArtifacts(block)); spec != nil {
			return spec, true
		}
		if candidate, ok := llm.ExtractBalanced(block); ok {
			if spec := tryUnmarshal(llm.CleanArtifacts(candidate)); spec != nil {
				return spec, true
			}
		}
	}

	if candidate, ok := llm.ExtractBalanced(raw); ok {
		if spec := tryUnmarshal(llm.CleanArtifacts(candidate)); spec != nil {
			return spec, true
		}
	}

	if spec := tryUnmarshal(strings.TrimSpace(raw)); spec != nil {
		return spec, true
	}

	e.logger.Warn("all extraction tiers failed, returning degraded spec",
		"raw_length", len(raw))

	return DegradedSpec(), false
}

// tryUnmarshal attempts to decode a candidate string into a BoundPlanSpec.
// Returns nil when the candidate is empty or not valid JSON for the type.
func tryUnmarshal(candidate string) *BoundPlanSpec {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return nil
	}

	var spec BoundPlanSpec
	if err := json.Unmarshal([]byte(candidate), &spec); err != nil {
		return nil
	}
	return &spec
}
