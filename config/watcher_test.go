package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/planbind/prompts"
)

func TestParseTemplateFileName(t *testing.T) {
	tests := []struct {
		name string
		file string
		want prompts.Key
		ok   bool
	}{
		{
			name: "valid",
			file: "planbind_workflow_standard_bind.txt",
			want: prompts.Key{Module: "planbind", Domain: "workflow", Mode: "standard", Step: "bind"},
			ok:   true,
		},
		{
			name: "valid markdown extension",
			file: "planbind_workflow_guided_tiebreak.md",
			want: prompts.Key{Module: "planbind", Domain: "workflow", Mode: "guided", Step: "tiebreak"},
			ok:   true,
		},
		{
			name: "too few parts",
			file: "workflow_standard_bind.txt",
			ok:   false,
		},
		{
			name: "too many parts",
			file: "a_b_c_d_e.txt",
			ok:   false,
		},
		{
			name: "empty part",
			file: "planbind__standard_bind.txt",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseTemplateFileName(tt.file)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestApplyDisabledKeys(t *testing.T) {
	registry := prompts.DefaultRegistry()
	bind := prompts.Key{Module: "planbind", Domain: "workflow", Mode: "standard", Step: prompts.StepBind}

	ApplyDisabledKeys(registry, []string{
		"planbind/workflow/standard/bind",
		"not-a-key",
		"too/few/parts",
	})

	_, ok := registry.Lookup(bind)
	assert.False(t, ok, "listed key must be disabled")

	tiebreak := prompts.Key{Module: "planbind", Domain: "workflow", Mode: "standard", Step: prompts.StepTiebreak}
	_, ok = registry.Lookup(tiebreak)
	assert.True(t, ok, "unlisted key stays enabled")
}

func TestTemplateWatcher_LoadAll(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "planbind_workflow_standard_bind.txt"),
		[]byte("override template body"), 0644))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "README.txt"),
		[]byte("not a template"), 0644))

	registry := prompts.DefaultRegistry()
	w, err := NewTemplateWatcher(dir, registry, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.loadAll())

	tmpl, ok := registry.Lookup(prompts.Key{Module: "planbind", Domain: "workflow", Mode: "standard", Step: prompts.StepBind})
	require.True(t, ok)
	assert.Equal(t, "override template body", tmpl)
}

func TestTemplateWatcher_MissingDir(t *testing.T) {
	registry := prompts.DefaultRegistry()
	w, err := NewTemplateWatcher(filepath.Join(t.TempDir(), "absent"), registry, nil)
	require.NoError(t, err)
	defer w.Close()

	require.Error(t, w.loadAll())
}
