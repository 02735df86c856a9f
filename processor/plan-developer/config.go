package plandeveloper

import (
	"fmt"
	"reflect"
	"time"

	"github.com/c360studio/semstreams/component"

	"github.com/c360studio/planbind/tools"
)

// planDeveloperSchema defines the configuration schema.
var planDeveloperSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the plan-developer processor component.
type Config struct {
	// StreamName is the JetStream stream for consuming triggers.
	StreamName string `json:"stream_name" schema:"type:string,description:JetStream stream for plan triggers,category:basic,default:PLANS"`

	// ConsumerName is the durable consumer name for trigger consumption.
	ConsumerName string `json:"consumer_name" schema:"type:string,description:Durable consumer name for trigger consumption,category:basic,default:plan-developer"`

	// TriggerSubject is the subject pattern for develop triggers.
	TriggerSubject string `json:"trigger_subject" schema:"type:string,description:Subject pattern for develop triggers,category:basic,default:plan.trigger.develop"`

	// ResultSubjectPrefix is the prefix for turn result subjects.
	ResultSubjectPrefix string `json:"result_subject_prefix" schema:"type:string,description:Prefix for turn result subjects,category:basic,default:plan.result.develop"`

	// Module is the module half of the prompt template key.
	Module string `json:"module" schema:"type:string,description:Module for prompt template resolution,category:basic,default:planbind"`

	// Domain is the domain half of the prompt template key.
	Domain string `json:"domain" schema:"type:string,description:Domain for prompt template resolution,category:basic,default:workflow"`

	// ProfileDirectoryURL enables profile enrichment when set.
	ProfileDirectoryURL string `json:"profile_directory_url,omitempty" schema:"type:string,description:Base URL of the profile directory service,category:basic"`

	// ProfileTimeout is the per-request timeout for directory calls.
	// Zero keeps the directory client's default.
	ProfileTimeout time.Duration `json:"profile_timeout,omitempty" schema:"type:number,description:Per-request timeout for profile directory calls in nanoseconds,category:advanced"`

	// Tools is the tool catalog for this deployment.
	Tools []tools.Descriptor `json:"tools,omitempty" schema:"type:object,description:Tool descriptors available for binding,category:basic"`

	// DefaultPermissions are permission glob patterns granted to every
	// session this component creates.
	DefaultPermissions []string `json:"default_permissions,omitempty" schema:"type:object,description:Permission patterns granted to new sessions,category:basic"`

	// Ports contains input/output port definitions.
	Ports *component.PortConfig `json:"ports,omitempty" schema:"type:ports,description:Input/output port definitions,category:basic"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		StreamName:          "PLANS",
		ConsumerName:        "plan-developer",
		TriggerSubject:      "plan.trigger.develop",
		ResultSubjectPrefix: "plan.result.develop",
		Module:              "planbind",
		Domain:              "workflow",
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "develop-triggers",
					Type:        "jetstream",
					Subject:     "plan.trigger.develop",
					StreamName:  "PLANS",
					Description: "Receive plan develop triggers",
					Required:    true,
				},
			},
			Outputs: []component.PortDefinition{
				{
					Name:        "develop-results",
					Type:        "nats",
					Subject:     "plan.result.develop.>",
					Description: "Publish turn results",
					Required:    false,
				},
			},
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.StreamName == "" {
		return fmt.Errorf("stream_name is required")
	}
	if c.ConsumerName == "" {
		return fmt.Errorf("consumer_name is required")
	}
	if c.TriggerSubject == "" {
		return fmt.Errorf("trigger_subject is required")
	}
	return nil
}
