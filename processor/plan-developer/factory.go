package plandeveloper

import (
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// RegistryInterface defines the minimal interface needed for registration.
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the plan-developer component with the given registry.
func Register(registry RegistryInterface) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "plan-developer",
		Factory:     NewComponent,
		Schema:      planDeveloperSchema,
		Type:        "processor",
		Protocol:    "workflow",
		Domain:      "planbind",
		Description: "Converges draft workflow plans into tool-bound plans",
		Version:     "0.1.0",
	})
}
