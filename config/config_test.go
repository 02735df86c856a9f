package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/planbind/model"
	"github.com/c360studio/planbind/tools"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.BackoffBase)
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxBackoff)
	assert.True(t, cfg.NATS.Embedded)
	assert.Equal(t, "planbind", cfg.Strategy.Module)
	assert.Equal(t, "workflow", cfg.Strategy.Domain)
	assert.Equal(t, "standard", cfg.Strategy.Mode)
	assert.Equal(t, 15*time.Second, cfg.Profile.Timeout)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero retry attempts",
			mutate:  func(c *Config) { c.Retry.MaxAttempts = 0 },
			wantErr: "max_attempts",
		},
		{
			name:    "backoff multiplier below one",
			mutate:  func(c *Config) { c.Retry.BackoffMultiplier = 0.5 },
			wantErr: "backoff_multiplier",
		},
		{
			name:    "missing strategy module",
			mutate:  func(c *Config) { c.Strategy.Module = "" },
			wantErr: "strategy.module",
		},
		{
			name:    "missing strategy domain",
			mutate:  func(c *Config) { c.Strategy.Domain = "" },
			wantErr: "strategy.domain",
		},
		{
			name: "nameless tool descriptor",
			mutate: func(c *Config) {
				c.Tools.Descriptors = []tools.Descriptor{{Description: "no name"}}
			},
			wantErr: "descriptors",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Merge(&Config{
		Retry:    RetryConfig{MaxAttempts: 5},
		NATS:     NATSConfig{URL: "nats://remote:4222"},
		Strategy: StrategyConfig{Mode: "guided"},
		Profile:  ProfileConfig{DirectoryURL: "http://directory:8080"},
	})

	assert.Equal(t, 5, base.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, base.Retry.BackoffBase, "zero values must not clobber")
	assert.Equal(t, "nats://remote:4222", base.NATS.URL)
	assert.False(t, base.NATS.Embedded, "explicit URL disables embedded server")
	assert.Equal(t, "guided", base.Strategy.Mode)
	assert.Equal(t, "planbind", base.Strategy.Module)
	assert.Equal(t, "http://directory:8080", base.Profile.DirectoryURL)
}

func TestMerge_NilIsNoop(t *testing.T) {
	base := DefaultConfig()
	base.Merge(nil)
	assert.Equal(t, 3, base.Retry.MaxAttempts)
}

func TestMerge_ToolsReplaceWholesale(t *testing.T) {
	base := DefaultConfig()
	base.Tools.Descriptors = []tools.Descriptor{{Name: "a/one"}}

	base.Merge(&Config{Tools: ToolsConfig{
		Descriptors:        []tools.Descriptor{{Name: "b/two"}},
		DefaultPermissions: []string{"b/**"},
	}})

	require.Len(t, base.Tools.Descriptors, 1)
	assert.Equal(t, "b/two", base.Tools.Descriptors[0].Name)
	assert.Equal(t, []string{"b/**"}, base.Tools.DefaultPermissions)
}

func TestModelRegistry_EmptyUsesDefaults(t *testing.T) {
	cfg := DefaultConfig()
	registry := cfg.ModelRegistry()
	require.NotNil(t, registry)

	name := registry.Resolve("binding")
	assert.NotEmpty(t, name)
}

func TestModelRegistry_MergesCapabilities(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Models.Capabilities = map[string]*model.CapabilityConfig{
		"binding": {Preferred: []string{"custom-model"}},
	}
	cfg.Models.Endpoints = map[string]*model.EndpointConfig{
		"custom-model": {Provider: "ollama", URL: "http://localhost:11434", Model: "custom-model"},
	}

	registry := cfg.ModelRegistry()

	name := registry.Resolve("binding")
	assert.Equal(t, "custom-model", name)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "planbind.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
retry:
  max_attempts: 7
strategy:
  mode: guided
tools:
  descriptors:
    - name: ehr/search_person
      description: Search the EHR
  default_permissions:
    - "ehr/**"
`), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
	assert.Equal(t, "guided", cfg.Strategy.Mode)
	assert.Equal(t, "planbind", cfg.Strategy.Module, "defaults survive partial files")
	require.Len(t, cfg.Tools.Descriptors, 1)
	assert.Equal(t, "ehr/search_person", cfg.Tools.Descriptors[0].Name)
	assert.Equal(t, []string{"ehr/**"}, cfg.Tools.DefaultPermissions)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retry: [not, a, map]"), 0644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Strategy.Mode = "guided"
	cfg.Profile.DirectoryURL = "http://directory:8080"
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "guided", loaded.Strategy.Mode)
	assert.Equal(t, "http://directory:8080", loaded.Profile.DirectoryURL)
}
