package plandeveloper

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/planbind/session"
)

func newTestComponent(t *testing.T, rawConfig json.RawMessage) *Component {
	t.Helper()

	disc, err := NewComponent(rawConfig, component.Dependencies{Logger: slog.Default()})
	require.NoError(t, err)

	comp, ok := disc.(*Component)
	require.True(t, ok)
	return comp
}

func TestNewComponent_Defaults(t *testing.T) {
	comp := newTestComponent(t, json.RawMessage(`{}`))

	assert.Equal(t, "PLANS", comp.config.StreamName)
	assert.Equal(t, "plan-developer", comp.config.ConsumerName)
	assert.Equal(t, "plan.trigger.develop", comp.config.TriggerSubject)
	assert.Equal(t, "plan.result.develop", comp.config.ResultSubjectPrefix)
	assert.Equal(t, "planbind", comp.config.Module)
	assert.Equal(t, "workflow", comp.config.Domain)
	assert.NotNil(t, comp.developer)
}

func TestNewComponent_ConfigOverrides(t *testing.T) {
	raw := json.RawMessage(`{
		"stream_name": "CUSTOM",
		"consumer_name": "dev-2",
		"profile_timeout": 5000000000,
		"tools": [
			{"name": "ehr/search_person", "description": "Search the EHR"}
		],
		"default_permissions": ["ehr/**"]
	}`)
	comp := newTestComponent(t, raw)

	assert.Equal(t, "CUSTOM", comp.config.StreamName)
	assert.Equal(t, "dev-2", comp.config.ConsumerName)
	assert.Equal(t, 5*time.Second, comp.config.ProfileTimeout)
	assert.Equal(t, []string{"ehr/**"}, comp.config.DefaultPermissions)
	assert.Equal(t, 1, comp.toolReg.Len())
}

func TestGrantDefaultPermissions(t *testing.T) {
	raw := json.RawMessage(`{"default_permissions": ["ehr/**", "pharmacy/submit_refill"]}`)
	comp := newTestComponent(t, raw)

	state := session.NewState("sess-1")
	comp.grantDefaultPermissions(state)

	assert.True(t, state.HasPermission("ehr/**"))
	assert.True(t, state.HasPermission("pharmacy/submit_refill"))

	// Granting again does not duplicate
	comp.grantDefaultPermissions(state)
	assert.Len(t, state.Permissions, 2)
}

func TestNewComponent_InvalidJSON(t *testing.T) {
	_, err := NewComponent(json.RawMessage(`{not json`), component.Dependencies{Logger: slog.Default()})
	require.Error(t, err)
}

func TestNewComponent_InvalidTool(t *testing.T) {
	raw := json.RawMessage(`{"tools": [{"description": "nameless"}]}`)
	_, err := NewComponent(raw, component.Dependencies{Logger: slog.Default()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool registry")
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.StreamName = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ConsumerName = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.TriggerSubject = ""
	assert.Error(t, cfg.Validate())
}

func TestComponent_Meta(t *testing.T) {
	comp := newTestComponent(t, json.RawMessage(`{}`))

	meta := comp.Meta()
	assert.Equal(t, "plan-developer", meta.Name)
	assert.Equal(t, "processor", meta.Type)
}

func TestComponent_Ports(t *testing.T) {
	comp := newTestComponent(t, json.RawMessage(`{}`))

	inputs := comp.InputPorts()
	require.Len(t, inputs, 1)
	assert.Equal(t, "develop-triggers", inputs[0].Name)
	assert.Equal(t, component.DirectionInput, inputs[0].Direction)

	outputs := comp.OutputPorts()
	require.Len(t, outputs, 1)
	assert.Equal(t, "develop-results", outputs[0].Name)
}

func TestComponent_StartWithoutNATS(t *testing.T) {
	comp := newTestComponent(t, json.RawMessage(`{}`))

	err := comp.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NATS client required")

	// A failed start leaves the component stoppable
	require.NoError(t, comp.Stop(time.Second))
}

func TestComponent_Health(t *testing.T) {
	comp := newTestComponent(t, json.RawMessage(`{}`))

	health := comp.Health()
	assert.False(t, health.Healthy)
	assert.Equal(t, "stopped", health.Status)
}
