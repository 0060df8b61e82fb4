package env_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-k8s/chartctl/internal/env"
)

func TestOverlay(t *testing.T) {
	declared := map[string]any{
		"replicas": 1,
		"image":    map[string]any{"repository": "blog", "tag": "v1"},
	}

	out := env.Overlay(declared,
		map[string]any{"replicas": 2},
		env.Vars{"image.tag": "v2", "server.port": "8080"})

	assert.Equal(t, map[string]any{
		"replicas": 2,
		"image":    map[string]any{"repository": "blog", "tag": "v2"},
		"server":   map[string]any{"port": "8080"},
	}, out)

	// The declared values were not mutated.
	assert.Equal(t, map[string]any{
		"replicas": 1,
		"image":    map[string]any{"repository": "blog", "tag": "v1"},
	}, declared)
}

func TestOverlayNilValues(t *testing.T) {
	out := env.Overlay(nil, nil, env.Vars{"a.b": "1"})
	assert.Equal(t, map[string]any{"a": map[string]any{"b": "1"}}, out)
}

func TestOverlayReplacesScalarOnPath(t *testing.T) {
	out := env.Overlay(map[string]any{"server": "legacy"}, nil, env.Vars{"server.port": "8080"})
	assert.Equal(t, map[string]any{"server": map[string]any{"port": "8080"}}, out)
}

func TestMerge(t *testing.T) {
	got := env.Merge(
		env.Vars{"A": "1", "B": "1"},
		env.Vars{"B": "2", "C": "2"},
	)
	assert.Equal(t, env.Vars{"A": "1", "B": "2", "C": "2"}, got)
}

func TestParseInlineVars(t *testing.T) {
	got, err := env.ParseInlineVars("image.tag=v2, replicas=3")
	require.NoError(t, err)
	assert.Equal(t, env.Vars{"image.tag": "v2", "replicas": "3"}, got)

	got, err = env.ParseInlineVars("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = env.ParseInlineVars("novalue")
	require.Error(t, err)

	_, err = env.ParseInlineVars("=v")
	require.Error(t, err)
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.env"), []byte("A=1\nB=1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "override.env"), []byte("B=2\n"), 0o644))

	got, err := env.LoadEnvFiles(dir, []string{"base.env", "override.env"})
	require.NoError(t, err)
	assert.Equal(t, env.Vars{"A": "1", "B": "2"}, got)

	_, err = env.LoadEnvFiles(dir, []string{"missing.env"})
	require.Error(t, err)
}

func TestLoadValuesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.yaml")
	require.NoError(t, os.WriteFile(path, []byte("replicas: 2\nimage:\n  tag: v2\n"), 0o644))

	got, err := env.LoadValuesFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"replicas": 2,
		"image":    map[string]any{"tag": "v2"},
	}, got)
}
