// Package config provides configuration loading and management for planbind.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/planbind/model"
	"github.com/c360studio/planbind/tools"
)

// Config represents the complete planbind configuration
type Config struct {
	Models    ModelsConfig    `yaml:"models"`
	Retry     RetryConfig     `yaml:"retry"`
	NATS      NATSConfig      `yaml:"nats"`
	Profile   ProfileConfig   `yaml:"profile"`
	Strategy  StrategyConfig  `yaml:"strategy"`
	Tools     ToolsConfig     `yaml:"tools"`
	Templates TemplatesConfig `yaml:"templates"`
}

// ModelsConfig configures capability-to-model resolution.
type ModelsConfig struct {
	// Capabilities maps capability names to preferred/fallback model lists.
	Capabilities map[string]*model.CapabilityConfig `yaml:"capabilities"`
	// Endpoints maps model names to provider endpoints.
	Endpoints map[string]*model.EndpointConfig `yaml:"endpoints"`
	// Default is the model used when no capability matches.
	Default string `yaml:"default"`
}

// RetryConfig configures generation retry behavior. MaxAttempts of 1
// disables retries.
type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	BackoffBase       time.Duration `yaml:"backoff_base"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = use embedded server)
	URL string `yaml:"url"`
	// Embedded indicates whether to use embedded NATS
	Embedded bool `yaml:"embedded"`
}

// ProfileConfig configures the profile directory service.
type ProfileConfig struct {
	// DirectoryURL is the base URL of the profile directory (empty disables
	// enrichment).
	DirectoryURL string `yaml:"directory_url"`
	// Timeout is the per-request timeout for directory calls.
	Timeout time.Duration `yaml:"timeout"`
}

// StrategyConfig selects the prompt template key halves.
type StrategyConfig struct {
	Module string `yaml:"module"`
	Domain string `yaml:"domain"`
	// Mode is the default mode for sessions that don't set one.
	Mode string `yaml:"mode"`
}

// ToolsConfig configures the tool catalog and permission defaults.
type ToolsConfig struct {
	// Descriptors is the tool catalog available for binding.
	Descriptors []tools.Descriptor `yaml:"descriptors"`
	// DefaultPermissions are permission glob patterns granted to every new
	// session (e.g. "directory/**").
	DefaultPermissions []string `yaml:"default_permissions"`
}

// TemplatesConfig configures prompt template overrides.
type TemplatesConfig struct {
	// OverridesDir is a directory of template override files, watched for
	// changes (one file per key: module_domain_mode_step.txt).
	OverridesDir string `yaml:"overrides_dir"`
	// Disabled lists template keys (module/domain/mode/step) to disable;
	// a disabled bind key sends sessions down the deterministic fallback.
	Disabled []string `yaml:"disabled"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Retry: RetryConfig{
			MaxAttempts:       3,
			BackoffBase:       2 * time.Second,
			BackoffMultiplier: 2.0,
			MaxBackoff:        30 * time.Second,
		},
		NATS: NATSConfig{
			URL:      "",
			Embedded: true,
		},
		Profile: ProfileConfig{
			Timeout: 15 * time.Second,
		},
		Strategy: StrategyConfig{
			Module: "planbind",
			Domain: "workflow",
			Mode:   "standard",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.BackoffMultiplier < 1 {
		return fmt.Errorf("retry.backoff_multiplier must be at least 1")
	}
	if c.Strategy.Module == "" {
		return fmt.Errorf("strategy.module is required")
	}
	if c.Strategy.Domain == "" {
		return fmt.Errorf("strategy.domain is required")
	}
	for _, d := range c.Tools.Descriptors {
		if d.Name == "" {
			return fmt.Errorf("tools.descriptors entries require a name")
		}
	}
	return nil
}

// ModelRegistry builds a model.Registry from the models section, falling
// back to the built-in defaults when the section is empty.
func (c *Config) ModelRegistry() *model.Registry {
	if len(c.Models.Capabilities) == 0 && len(c.Models.Endpoints) == 0 {
		return model.NewDefaultRegistry()
	}

	registry := model.NewDefaultRegistry()
	registry.MergeFromConfig(&model.RegistryConfig{
		Capabilities: c.Models.Capabilities,
		Endpoints:    c.Models.Endpoints,
	})
	if c.Models.Default != "" {
		registry.SetDefault(c.Models.Default)
	}
	return registry
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Models
	if len(other.Models.Capabilities) > 0 {
		if c.Models.Capabilities == nil {
			c.Models.Capabilities = make(map[string]*model.CapabilityConfig)
		}
		for k, v := range other.Models.Capabilities {
			c.Models.Capabilities[k] = v
		}
	}
	if len(other.Models.Endpoints) > 0 {
		if c.Models.Endpoints == nil {
			c.Models.Endpoints = make(map[string]*model.EndpointConfig)
		}
		for k, v := range other.Models.Endpoints {
			c.Models.Endpoints[k] = v
		}
	}
	if other.Models.Default != "" {
		c.Models.Default = other.Models.Default
	}

	// Retry
	if other.Retry.MaxAttempts != 0 {
		c.Retry.MaxAttempts = other.Retry.MaxAttempts
	}
	if other.Retry.BackoffBase != 0 {
		c.Retry.BackoffBase = other.Retry.BackoffBase
	}
	if other.Retry.BackoffMultiplier != 0 {
		c.Retry.BackoffMultiplier = other.Retry.BackoffMultiplier
	}
	if other.Retry.MaxBackoff != 0 {
		c.Retry.MaxBackoff = other.Retry.MaxBackoff
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		c.NATS.Embedded = false
	}

	// Profile
	if other.Profile.DirectoryURL != "" {
		c.Profile.DirectoryURL = other.Profile.DirectoryURL
	}
	if other.Profile.Timeout != 0 {
		c.Profile.Timeout = other.Profile.Timeout
	}

	// Strategy
	if other.Strategy.Module != "" {
		c.Strategy.Module = other.Strategy.Module
	}
	if other.Strategy.Domain != "" {
		c.Strategy.Domain = other.Strategy.Domain
	}
	if other.Strategy.Mode != "" {
		c.Strategy.Mode = other.Strategy.Mode
	}

	// Tools
	if len(other.Tools.Descriptors) > 0 {
		c.Tools.Descriptors = other.Tools.Descriptors
	}
	if len(other.Tools.DefaultPermissions) > 0 {
		c.Tools.DefaultPermissions = other.Tools.DefaultPermissions
	}

	// Templates
	if other.Templates.OverridesDir != "" {
		c.Templates.OverridesDir = other.Templates.OverridesDir
	}
	if len(other.Templates.Disabled) > 0 {
		c.Templates.Disabled = other.Templates.Disabled
	}
}
