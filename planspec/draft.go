package planspec

// DraftPlan is the unbound workflow plan a session converges from. It names
// steps and their required inputs but carries no tool bindings.
type DraftPlan struct {
	// Workflow is the workflow name this draft belongs to.
	Workflow string `json:"workflow"`

	// Steps is the ordered list of draft steps.
	Steps []DraftStep `json:"steps"`
}

// DraftStep is one unbound step in a draft plan.
type DraftStep struct {
	// ID uniquely identifies the step within the plan.
	ID string `json:"id"`

	// Description says what the step should accomplish.
	Description string `json:"description"`

	// RequiredInputs names the fields the step needs before it can run.
	RequiredInputs []string `json:"required_inputs,omitempty"`

	// DependsOn lists ids of steps that must complete first.
	DependsOn []string `json:"depends_on,omitempty"`
}

// Step returns the draft step with the given id, or nil.
func (d *DraftPlan) Step(id string) *DraftStep {
	for i := range d.Steps {
		if d.Steps[i].ID == id {
			return &d.Steps[i]
		}
	}
	return nil
}

// MissingInputs returns the step's required inputs absent from the known
// set. The known function reports field membership.
func (s *DraftStep) MissingInputs(known func(string) bool) []string {
	var missing []string
	for _, input := range s.RequiredInputs {
		if !known(input) {
			missing = append(missing, input)
		}
	}
	return missing
}
