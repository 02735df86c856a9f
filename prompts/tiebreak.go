package prompts

import (
	"strings"

	"github.com/c360studio/planbind/planspec"
	"github.com/c360studio/planbind/tools"
)

// TiebreakSystemPrompt returns the system prompt for the tool-ambiguity
// resolution round.
func TiebreakSystemPrompt() string {
	return `You are resolving ambiguous tool selections in a bound plan.

Some steps have more than one plausible tool match. For each ambiguous step,
pick the single best tool from the catalog based on the step description and
its parameters.

## Rules

- Choose only from the provided tool catalog
- One selection per ambiguous step
- If you truly cannot decide, omit that step from your answer

## Output Format

Respond with only a JSON object containing your selections:

` + "```json" + `
{
  "selections": [
    { "step_id": "step-1", "selected_tool": "namespace/tool_name" }
  ]
}
` + "```"
}

// TiebreakUserPrompt builds the scoped user prompt for a tie-break round:
// only the current spec, the ambiguous blockers, and the tool catalog.
func TiebreakUserPrompt(spec *planspec.BoundPlanSpec, ambiguous []planspec.Blocker, catalog []tools.Descriptor) string {
	var b strings.Builder

	b.WriteString("Resolve the tool ambiguity in this plan:\n\n")
	writeJSONSection(&b, "Current Plan", spec)
	writeJSONSection(&b, "Ambiguous Steps", ambiguous)
	writeJSONSection(&b, "Tool Catalog", catalog)
	b.WriteString("Produce the selections JSON now.")

	return b.String()
}
