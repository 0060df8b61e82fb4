package helm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/codex-k8s/chartctl/internal/diff"
	"github.com/codex-k8s/chartctl/internal/engine"
	"github.com/codex-k8s/chartctl/internal/source"
)

// call is one recorded helm invocation.
type call struct {
	name string
	args []string
}

func testClient(run runFunc) (*Client, *[]call) {
	calls := &[]call{}
	c := NewClient("", "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, call{name: name, args: args})
		return run(ctx, name, args...)
	}
	return c, calls
}

func TestInspectAbsentRelease(t *testing.T) {
	c, _ := testClient(func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New(`helm get failed: release: not found`)
	})

	state, err := c.Inspect(t.Context(), "armada-blog-1", "blog")
	require.NoError(t, err)
	assert.False(t, state.Present)
}

func TestInspectPresentRelease(t *testing.T) {
	c, calls := testClient(func(context.Context, string, ...string) ([]byte, error) {
		return []byte("chartctlFingerprint: abc123\nreplicas: 2\n"), nil
	})

	state, err := c.Inspect(t.Context(), "armada-blog-1", "blog")
	require.NoError(t, err)
	assert.True(t, state.Present)
	assert.Equal(t, "abc123", state.Fingerprint)

	require.Len(t, *calls, 1)
	assert.Equal(t, "helm", (*calls)[0].name)
	assert.Equal(t, []string{"get", "values", "armada-blog-1", "--namespace", "blog", "--output", "yaml"}, (*calls)[0].args)
}

func TestInspectError(t *testing.T) {
	c, _ := testClient(func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("connection refused")
	})

	_, err := c.Inspect(t.Context(), "armada-blog-1", "blog")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestInstallStampsFingerprint(t *testing.T) {
	var valuesFile string
	c, calls := testClient(func(_ context.Context, _ string, args ...string) ([]byte, error) {
		for i, arg := range args {
			if arg == "--values" {
				valuesFile = args[i+1]
			}
		}
		// Read the values file before apply removes it.
		if valuesFile != "" {
			raw, err := os.ReadFile(valuesFile)
			require.NoError(t, err)
			var values map[string]any
			require.NoError(t, yaml.Unmarshal(raw, &values))
			want, err := diff.Fingerprint([]byte("chart content"), map[string]any{"replicas": 2})
			require.NoError(t, err)
			assert.Equal(t, want, values[FingerprintKey])
			assert.Equal(t, 2, values["replicas"])
		}
		return nil, nil
	})

	rendered := source.Rendered{Content: []byte("chart content"), Path: "/tmp/chart"}
	err := c.Install(t.Context(), "armada-blog-1", "blog", rendered, map[string]any{"replicas": 2}, engine.ApplyOptions{})
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	args := (*calls)[0].args
	assert.Equal(t, "install", args[0])
	assert.Equal(t, "armada-blog-1", args[1])
	assert.Equal(t, "/tmp/chart", args[2])
	assert.Contains(t, args, "--create-namespace")
	assert.NotContains(t, args, "--wait")

	// The temp values file is cleaned up after the run.
	_, statErr := os.Stat(valuesFile)
	assert.True(t, os.IsNotExist(statErr))
}

func TestUpgradeWaitFlags(t *testing.T) {
	c, calls := testClient(func(context.Context, string, ...string) ([]byte, error) {
		return nil, nil
	})

	rendered := source.Rendered{Content: []byte("chart content"), Path: "/tmp/chart"}
	err := c.Upgrade(t.Context(), "armada-blog-1", "blog", rendered, nil, engine.ApplyOptions{
		Wait:    true,
		Timeout: 900 * time.Second,
	})
	require.NoError(t, err)

	args := (*calls)[0].args
	assert.Equal(t, "upgrade", args[0])
	assert.Contains(t, args, "--wait")
	require.Contains(t, args, "--timeout")
	for i, arg := range args {
		if arg == "--timeout" {
			assert.Equal(t, "15m0s", args[i+1])
		}
	}
}

func TestInstallNoHooksFlag(t *testing.T) {
	c, calls := testClient(func(context.Context, string, ...string) ([]byte, error) {
		return nil, nil
	})

	rendered := source.Rendered{Content: []byte("chart content"), Path: "/tmp/chart"}
	err := c.Install(t.Context(), "armada-blog-1", "blog", rendered, nil, engine.ApplyOptions{NoHooks: true})
	require.NoError(t, err)

	assert.Contains(t, (*calls)[0].args, "--no-hooks")
}

func TestGlobalArgs(t *testing.T) {
	c, calls := testClient(func(context.Context, string, ...string) ([]byte, error) {
		return []byte("{}\n"), nil
	})
	c.Kubeconfig = "/home/op/kubeconfig"
	c.Context = "staging"

	_, err := c.Inspect(t.Context(), "r", "ns")
	require.NoError(t, err)

	args := (*calls)[0].args
	assert.Contains(t, args, "--kube-context")
	assert.Contains(t, args, "--kubeconfig")
}
