package develop

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/c360studio/planbind/llm"
	"github.com/c360studio/planbind/planspec"
	"github.com/c360studio/planbind/prompts"
	"github.com/c360studio/planbind/session"
)

// toolSelection is one tie-break answer: which tool a step should use.
type toolSelection struct {
	StepID       string `json:"step_id"`
	SelectedTool string `json:"selected_tool"`
}

// resolveAmbiguity runs the tie-break round for tool_ambiguity blockers,
// patching selected_tool on the implicated steps in place. A step's
// ambiguity blocker is removed once the step is bound; unmatched ambiguity
// stays for the next turn. Nothing in this path propagates: a missing
// template, a provider failure, or an unusable response all leave the
// ambiguity in place.
func (d *Developer) resolveAmbiguity(ctx context.Context, state *session.State, spec *planspec.BoundPlanSpec, ambiguous []planspec.Blocker) {
	mode := state.Strategy
	if mode == "" {
		mode = "standard"
	}

	key := prompts.Key{Module: d.module, Domain: d.domain, Mode: mode, Step: prompts.StepTiebreak}
	template, ok := d.prompts.Lookup(key)
	if !ok {
		d.logger.Debug("no tiebreak template configured, leaving ambiguity",
			"key", key.String(),
			"session_id", state.SessionID)
		return
	}

	resp, err := d.gen.Complete(ctx, llm.Request{
		Capability: capabilityForStep(prompts.StepTiebreak),
		Messages: []llm.Message{
			{Role: "system", Content: template},
			{Role: "user", Content: prompts.TiebreakUserPrompt(spec, ambiguous, d.visibleTools(state))},
		},
	})
	if err != nil {
		d.logger.Warn("tiebreak generation failed, leaving ambiguity",
			"session_id", state.SessionID,
			"error", err)
		return
	}

	selections := parseSelections(resp.Content)
	if len(selections) == 0 {
		d.logger.Warn("tiebreak response yielded no selections",
			"session_id", state.SessionID)
		return
	}

	patched := make(map[string]bool)
	for _, sel := range selections {
		if sel.StepID == "" || sel.SelectedTool == "" {
			continue
		}
		// Never bind a tool the catalog doesn't know
		if !d.tools.Has(sel.SelectedTool) {
			d.logger.Warn("tiebreak selected unknown tool, ignoring",
				"step_id", sel.StepID,
				"tool", sel.SelectedTool)
			continue
		}

		step := spec.Step(sel.StepID)
		if step == nil {
			continue
		}

		tool := sel.SelectedTool
		step.SelectedTool = &tool
		patched[sel.StepID] = true
	}

	// A bound step's ambiguity is resolved; drop its blocker so readiness
	// reflects the new binding.
	if len(patched) > 0 {
		kept := spec.Blockers[:0]
		for _, b := range spec.Blockers {
			if b.Type == planspec.BlockerToolAmbiguity && b.StepID != nil && patched[*b.StepID] {
				continue
			}
			kept = append(kept, b)
		}
		spec.Blockers = kept
	}

	d.logger.Info("ambiguity resolution complete",
		"session_id", state.SessionID,
		"ambiguous", len(ambiguous),
		"patched", len(patched))
}

// parseSelections recovers tie-break selections from provider text. Accepts
// either {"selections": [...]} or a bare array, with the same artifact
// tolerance as the main extractor.
func parseSelections(raw string) []toolSelection {
	var wrapper struct {
		Selections []toolSelection `json:"selections"`
	}

	if candidate := llm.ExtractJSON(raw); candidate != "" {
		if err := json.Unmarshal([]byte(candidate), &wrapper); err == nil && len(wrapper.Selections) > 0 {
			return wrapper.Selections
		}
	}

	if candidate := llm.ExtractJSONArray(raw); candidate != "" {
		var list []toolSelection
		if err := json.Unmarshal([]byte(candidate), &list); err == nil {
			return list
		}
	}

	trimmed := strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(trimmed), &wrapper); err == nil {
		return wrapper.Selections
	}

	return nil
}
