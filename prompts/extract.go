package prompts

import (
	"strings"
)

// ExtractSystemPrompt returns the system prompt for structured field
// extraction from free-form user messages. The deterministic pattern
// matcher in the turn handler runs first; this template exists so
// deployments can route extraction through a model instead.
func ExtractSystemPrompt() string {
	return `You are extracting structured fields from a user message.

Given a list of target field names and the user's message, return the
values the message provides for those fields. Do not invent values; omit
fields the message does not answer.

## Output Format

Respond with only a JSON object mapping field names to values:

` + "```json" + `
{ "field_name": "value" }
` + "```"
}

// ExtractUserPrompt builds the user prompt for a field-extraction call.
func ExtractUserPrompt(targets []string, message string) string {
	var b strings.Builder

	b.WriteString("Target fields: ")
	b.WriteString(strings.Join(targets, ", "))
	b.WriteString("\n\nUser message:\n")
	b.WriteString(message)
	b.WriteString("\n\nProduce the field JSON now.")

	return b.String()
}
