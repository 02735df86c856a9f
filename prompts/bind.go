package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/c360studio/planbind/planspec"
	"github.com/c360studio/planbind/session"
	"github.com/c360studio/planbind/tools"
)

// BindSystemPrompt returns the system prompt for the main plan-binding turn.
func BindSystemPrompt() string {
	return `You are binding a draft workflow plan to concrete tools.

## Your Objective

Take the draft plan and produce a complete bound plan: select one tool for
each step, fill in tool parameters from the known context, and report every
obstacle as a blocker.

## Blocker Types

Use exactly these types:

- missing_preference: a user preference is needed to choose between options
- missing_permission: the selected tool is not covered by granted permissions
- tool_gap: no available tool can perform the step
- tool_ambiguity: more than one tool plausibly matches the step
- missing_information: a required input field is not in the known context
- timeline_risk: the plan may not meet its deadline
- human_required: a human must act before this step can run
- other: anything else

For every blocker set "writes_to" to the field names that, if provided,
would resolve it. Reference the step with "step_id" where one applies.

## Rules

- selected_tool must be a name from the tool catalog, or null
- Do not invent tools, steps, or fields
- Keep step ids and ordering from the draft plan
- If a step's tool choice is genuinely ambiguous, select null and emit a
  tool_ambiguity blocker rather than guessing

## Output Format

Respond with only this JSON structure:

` + "```json" + `
{
  "meta": {
    "plan_id": "from the prior spec, or omit",
    "workflow": "the workflow name",
    "phase": "BOUND",
    "schema_version": "BoundPlanSpec_v1"
  },
  "steps": [
    {
      "id": "step-1",
      "description": "what the step does",
      "selected_tool": "namespace/tool_name or null",
      "tool_parameters": {},
      "depends_on": []
    }
  ],
  "blockers": [
    {
      "type": "missing_information",
      "step_id": "step-1",
      "message": "question to surface to the user",
      "priority": 5,
      "writes_to": ["field_name"]
    }
  ]
}
` + "```" + `

Leave "plan_readiness" and "next_input_request" out - they are computed
downstream.`
}

// BindInput collects everything the binding turn needs to see.
type BindInput struct {
	Draft       *planspec.DraftPlan
	TaskCatalog map[string]any
	Tools       []tools.Descriptor
	State       *session.State
}

// BindUserPrompt builds the user prompt for a binding turn. The prior
// turn's spec and request are included so the provider can see what changed.
func BindUserPrompt(in BindInput) string {
	var b strings.Builder

	b.WriteString("Bind this draft plan:\n\n")
	writeJSONSection(&b, "Draft Plan", in.Draft)
	writeJSONSection(&b, "Task Catalog", in.TaskCatalog)
	writeJSONSection(&b, "Tool Catalog", in.Tools)

	fmt.Fprintf(&b, "**Known Fields:** %s\n\n", joinOrNone(in.State.KnownFields))
	writeJSONSection(&b, "Context", in.State.Context)

	if len(in.State.Preferences) > 0 {
		writeJSONSection(&b, "Preferences", in.State.Preferences)
	}
	fmt.Fprintf(&b, "**Granted Permissions:** %s\n\n", joinOrNone(in.State.Permissions))

	if in.State.LastSpec != nil {
		writeJSONSection(&b, "Previous Bound Plan", in.State.LastSpec)
	}
	if in.State.LastRequest != nil {
		writeJSONSection(&b, "Previous Input Request", in.State.LastRequest)
	}

	b.WriteString("Produce the bound plan JSON now.")
	return b.String()
}

// writeJSONSection appends a titled fenced JSON block. Marshal failures
// degrade to a placeholder so prompt building never fails a turn.
func writeJSONSection(b *strings.Builder, title string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		data = []byte("{}")
	}
	fmt.Fprintf(b, "**%s:**\n```json\n%s\n```\n\n", title, data)
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}
