// Package develop runs the per-turn plan convergence loop: one generation
// call binds the draft plan, the result is validated and classified, and
// the highest-priority blocker becomes the next question for the user.
package develop

import (
	"context"
	"log/slog"

	"github.com/c360studio/planbind/llm"
	"github.com/c360studio/planbind/planspec"
	"github.com/c360studio/planbind/prompts"
	"github.com/c360studio/planbind/session"
	"github.com/c360studio/planbind/tools"
)

// Generator is the generation client surface the developer needs.
type Generator interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// TurnResult is what one develop turn produces.
type TurnResult struct {
	// Spec is the bound plan after validation, ambiguity resolution, and
	// readiness stamping.
	Spec *planspec.BoundPlanSpec

	// Readiness mirrors Spec.PlanReadiness for convenience.
	Readiness planspec.Readiness

	// NextRequest mirrors Spec.NextInputRequest. Nil when no user input is
	// needed.
	NextRequest *planspec.NextInputRequest
}

// Developer orchestrates plan convergence turns.
type Developer struct {
	gen       Generator
	extractor *planspec.Extractor
	prompts   *prompts.Registry
	tools     *tools.Registry
	enricher  FieldEnricher
	module    string
	domain    string
	logger    *slog.Logger
}

// Option configures a Developer.
type Option func(*Developer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Developer) {
		d.logger = logger
	}
}

// WithStrategy sets the module/domain half of the prompt key. Defaults to
// planbind/workflow.
func WithStrategy(module, domain string) Option {
	return func(d *Developer) {
		d.module = module
		d.domain = domain
	}
}

// WithEnricher sets the profile enricher used by ApplyUserMessage.
func WithEnricher(enricher FieldEnricher) Option {
	return func(d *Developer) {
		d.enricher = enricher
	}
}

// NewDeveloper creates a Developer.
func NewDeveloper(gen Generator, promptReg *prompts.Registry, toolReg *tools.Registry, opts ...Option) *Developer {
	d := &Developer{
		gen:       gen,
		extractor: planspec.NewExtractor(nil),
		prompts:   promptReg,
		tools:     toolReg,
		module:    "planbind",
		domain:    "workflow",
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	d.extractor = planspec.NewExtractor(d.logger)
	return d
}

// DevelopTurn runs one plan convergence turn.
//
// A generation-provider error is the only error this returns: it propagates
// uncaught so the caller decides whether to retry the whole turn. Parsing,
// validation, and ambiguity-resolution failures all degrade internally.
// On success the state's LastSpec and LastRequest are updated in place; the
// caller persists.
func (d *Developer) DevelopTurn(ctx context.Context, state *session.State, draft *planspec.DraftPlan, taskCatalog map[string]any) (*TurnResult, error) {
	mode := state.Strategy
	if mode == "" {
		mode = "standard"
	}

	key := prompts.Key{Module: d.module, Domain: d.domain, Mode: mode, Step: prompts.StepBind}
	template, ok := d.prompts.Lookup(key)

	var spec *planspec.BoundPlanSpec
	if !ok {
		d.logger.Info("no binding template configured, using deterministic fallback",
			"key", key.String(),
			"session_id", state.SessionID)
		spec = d.fallbackSpec(state, draft)
	} else {
		resp, err := d.gen.Complete(ctx, llm.Request{
			Capability: capabilityForStep(prompts.StepBind),
			Messages: []llm.Message{
				{Role: "system", Content: template},
				{Role: "user", Content: prompts.BindUserPrompt(prompts.BindInput{
					Draft:       draft,
					TaskCatalog: taskCatalog,
					Tools:       d.visibleTools(state),
					State:       state,
				})},
			},
		})
		if err != nil {
			// Provider failure is the caller's to handle
			return nil, err
		}

		var recovered bool
		spec, recovered = d.extractor.Parse(resp.Content)
		if !recovered {
			// The degraded spec is already final: BLOCKED, no question
			state.LastSpec = spec
			state.LastRequest = nil
			return &TurnResult{Spec: spec, Readiness: spec.PlanReadiness}, nil
		}
		planspec.Validate(spec, d.tools)

		if spec.Meta.Workflow == "" && draft != nil {
			spec.Meta.Workflow = draft.Workflow
		}
		if spec.Meta.PlanID == "" {
			if state.LastSpec != nil && state.LastSpec.Meta.PlanID != "" {
				spec.Meta.PlanID = state.LastSpec.Meta.PlanID
			} else {
				spec.Meta.PlanID = planspec.NewPlanID()
			}
		}
	}

	if ambiguous := spec.BlockersOfType(planspec.BlockerToolAmbiguity); len(ambiguous) > 0 {
		d.resolveAmbiguity(ctx, state, spec, ambiguous)
	}

	planspec.Finalize(spec)

	state.LastSpec = spec
	state.LastRequest = spec.NextInputRequest

	return &TurnResult{
		Spec:        spec,
		Readiness:   spec.PlanReadiness,
		NextRequest: spec.NextInputRequest,
	}, nil
}

// fallbackSpec builds a bound plan deterministically from the draft plan's
// structure: steps carry over unbound, and every required input missing from
// known fields becomes a missing_information blocker targeting its step.
func (d *Developer) fallbackSpec(state *session.State, draft *planspec.DraftPlan) *planspec.BoundPlanSpec {
	workflow := ""
	if draft != nil {
		workflow = draft.Workflow
	}

	spec := planspec.NewSpec(workflow)
	if state.LastSpec != nil && state.LastSpec.Meta.PlanID != "" {
		spec.Meta.PlanID = state.LastSpec.Meta.PlanID
	}

	if draft == nil {
		return spec
	}

	for _, ds := range draft.Steps {
		step := planspec.Step{
			ID:             ds.ID,
			Description:    ds.Description,
			ToolParameters: map[string]any{},
			DependsOn:      append([]string{}, ds.DependsOn...),
		}
		spec.Steps = append(spec.Steps, step)

		missing := ds.MissingInputs(state.HasField)
		if len(missing) == 0 {
			continue
		}

		stepID := ds.ID
		spec.Blockers = append(spec.Blockers, planspec.Blocker{
			Type:     planspec.BlockerMissingInformation,
			StepID:   &stepID,
			Message:  "Missing required inputs for step " + ds.ID,
			Priority: planspec.PriorityOf(planspec.BlockerMissingInformation),
			WritesTo: missing,
		})
	}

	return spec
}

// visibleTools returns the catalog a session may bind against. Granted
// permission patterns gate exposure; a session with no grants sees the
// whole catalog.
func (d *Developer) visibleTools(state *session.State) []tools.Descriptor {
	catalog := d.tools.List()
	if len(state.Permissions) == 0 {
		return catalog
	}
	return tools.FilterAllowed(catalog, state.Permissions)
}

// capabilityForStep maps a prompt step to the generation capability it uses.
func capabilityForStep(step string) string {
	switch step {
	case prompts.StepTiebreak:
		return "tiebreak"
	case prompts.StepExtract:
		return "extraction"
	default:
		return "binding"
	}
}
