package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-k8s/chartctl/internal/env"
)

func TestBuildOverrides(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "overrides.env")
	require.NoError(t, os.WriteFile(envFile, []byte("image.tag=v2\nreplicas=2\n"), 0o644))
	valuesFile := filepath.Join(dir, "values.yaml")
	require.NoError(t, os.WriteFile(valuesFile, []byte("global:\n  env: staging\n"), 0o644))

	values, vars, err := buildOverrides("replicas=3", valuesFile, []string{envFile})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"global": map[string]any{"env": "staging"}}, values)
	// Inline vars override what the env file provided.
	assert.Equal(t, env.Vars{"image.tag": "v2", "replicas": "3"}, vars)
}

func TestBuildOverridesNoSources(t *testing.T) {
	values, vars, err := buildOverrides("", "", nil)
	require.NoError(t, err)
	assert.Nil(t, values)
	assert.Empty(t, vars)
}

func TestBuildOverridesMissingEnvFile(t *testing.T) {
	_, _, err := buildOverrides("", "", []string{filepath.Join(t.TempDir(), "missing.env")})
	require.Error(t, err)
}
