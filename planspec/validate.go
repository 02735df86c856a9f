package planspec

// ToolCatalog is the subset of the tool registry validation needs: existence
// checks by name.
type ToolCatalog interface {
	Has(name string) bool
}

// Validate silently corrects a spec in place. It never fails: the schema
// version is coerced to the canonical constant, the phase tag is coerced to
// BOUND, blocker types outside the closed set collapse to "other", and any
// step whose selected tool does not name a catalog entry is unbound.
func Validate(spec *BoundPlanSpec, catalog ToolCatalog) {
	spec.Meta.SchemaVersion = SchemaVersion
	if spec.Meta.Phase != PhaseBound {
		spec.Meta.Phase = PhaseBound
	}

	if spec.Steps == nil {
		spec.Steps = []Step{}
	}
	if spec.Blockers == nil {
		spec.Blockers = []Blocker{}
	}

	for i := range spec.Steps {
		step := &spec.Steps[i]
		if step.ToolParameters == nil {
			step.ToolParameters = map[string]any{}
		}
		if step.DependsOn == nil {
			step.DependsOn = []string{}
		}
		if step.SelectedTool != nil {
			if catalog == nil || !catalog.Has(*step.SelectedTool) {
				step.SelectedTool = nil
			}
		}
	}

	for i := range spec.Blockers {
		b := &spec.Blockers[i]
		b.Type = b.Type.Normalize()
		if b.Priority == 0 {
			b.Priority = PriorityOf(b.Type)
		}
		if b.WritesTo == nil {
			b.WritesTo = []string{}
		}
	}
}
