package develop

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/c360studio/planbind/llm"
	"github.com/c360studio/planbind/profile"
	"github.com/c360studio/planbind/prompts"
	"github.com/c360studio/planbind/session"
)

// FieldEnricher is the profile lookup surface the turn handler needs.
type FieldEnricher interface {
	Fetch(ctx context.Context, identifier string) (*profile.Result, error)
}

// identifierFields are extracted field names that signal a person is being
// identified, triggering profile enrichment.
var identifierFields = map[string]bool{
	"name":         true,
	"patient":      true,
	"patient_name": true,
	"member":       true,
	"member_name":  true,
	"person":       true,
}

// Enrichment summary flags recorded in session context.
const (
	FlagHasClinicalData = "has_clinical_data"
	FlagHasSystemData   = "has_system_data"
	FlagHasCoverageData = "has_coverage_data"
)

// ApplyUserMessage folds a user message into session state before the next
// develop turn: targeted field extraction against the prior turn's
// next-input-request, with a model-backed extraction round when the pattern
// matcher captures nothing, then opportunistic profile enrichment when the
// message looks like it identifies a person. Extraction and enrichment
// failures never fail the turn.
func (d *Developer) ApplyUserMessage(ctx context.Context, state *session.State, message string) {
	targets := targetFields(state)
	extracted := extractFields(targets, message)
	if len(extracted) == 0 && len(targets) > 0 {
		extracted = d.extractWithModel(ctx, state, targets, message)
	}
	state.MergeFields(extracted)

	if d.enricher == nil {
		return
	}

	identifier, ok := personSignal(extracted, message)
	if !ok {
		return
	}

	result, err := d.enricher.Fetch(ctx, identifier)
	if err != nil {
		d.logger.Warn("profile enrichment failed",
			"session_id", state.SessionID,
			"error", err)
		return
	}
	if result == nil {
		d.logger.Debug("profile search found no match",
			"session_id", state.SessionID)
		return
	}

	state.MergeFields(result.Fields)
	state.AddField(FlagHasClinicalData, result.HasClinical)
	state.AddField(FlagHasSystemData, result.HasSystem)
	state.AddField(FlagHasCoverageData, result.HasCoverage)

	d.logger.Info("profile enrichment merged",
		"session_id", state.SessionID,
		"identifier", result.Identifier,
		"fields", len(result.Fields))
}

// extractWithModel runs the extraction template against the message when
// pattern matching found nothing for the target fields. Only targeted
// fields are taken from the response. Any failure in this path degrades to
// no extraction.
func (d *Developer) extractWithModel(ctx context.Context, state *session.State, targets []string, message string) map[string]any {
	mode := state.Strategy
	if mode == "" {
		mode = "standard"
	}

	key := prompts.Key{Module: d.module, Domain: d.domain, Mode: mode, Step: prompts.StepExtract}
	template, ok := d.prompts.Lookup(key)
	if !ok {
		return nil
	}

	resp, err := d.gen.Complete(ctx, llm.Request{
		Capability: capabilityForStep(prompts.StepExtract),
		Messages: []llm.Message{
			{Role: "system", Content: template},
			{Role: "user", Content: prompts.ExtractUserPrompt(targets, message)},
		},
	})
	if err != nil {
		d.logger.Warn("field extraction generation failed",
			"session_id", state.SessionID,
			"error", err)
		return nil
	}

	candidate := llm.ExtractJSON(resp.Content)
	if candidate == "" {
		return nil
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		d.logger.Warn("field extraction response unusable",
			"session_id", state.SessionID)
		return nil
	}

	fields := make(map[string]any)
	for _, target := range targets {
		if value, ok := raw[target]; ok && value != nil {
			fields[target] = value
		}
	}
	return fields
}

// targetFields returns the field names the prior turn asked for.
func targetFields(state *session.State) []string {
	if state.LastRequest == nil {
		return nil
	}
	return state.LastRequest.WritesTo
}

// extractFields pulls values for the target field names out of a message.
// A field named in the message with a "name: value" or "name=value" pattern
// contributes the captured value; a field merely mentioned contributes the
// whole message.
func extractFields(targets []string, message string) map[string]any {
	fields := make(map[string]any)
	lower := strings.ToLower(message)

	for _, target := range targets {
		if target == "" || !strings.Contains(lower, strings.ToLower(target)) {
			continue
		}

		if value, ok := matchFieldValue(target, message); ok {
			fields[target] = value
		} else {
			fields[target] = strings.TrimSpace(message)
		}
	}

	return fields
}

// matchFieldValue captures the value of a "name: value" / "name=value" pair.
// The value runs to the next comma, semicolon, newline, or end of message.
func matchFieldValue(name, message string) (string, bool) {
	pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(name) + `\s*[:=]\s*([^,;\n]+)`)
	if m := pattern.FindStringSubmatch(message); len(m) > 1 {
		value := strings.TrimSpace(m[1])
		if value != "" {
			return value, true
		}
	}
	return "", false
}

// personSignal decides whether the message identifies a person and picks
// the lookup string: an identifier-like extracted field's value, or the
// whole message when it is short enough to plausibly be a name.
func personSignal(extracted map[string]any, message string) (string, bool) {
	for name, value := range extracted {
		if identifierFields[strings.ToLower(name)] {
			if s, ok := value.(string); ok && s != "" {
				return s, true
			}
		}
	}

	trimmed := strings.TrimSpace(message)
	if trimmed != "" && len(strings.Fields(trimmed)) <= 3 {
		return trimmed, true
	}

	return "", false
}
