package diff_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-k8s/chartctl/internal/diff"
	"github.com/codex-k8s/chartctl/internal/release"
)

// fakeInspector returns scripted states and counts calls per release.
type fakeInspector struct {
	mu     sync.Mutex
	states map[string]release.State
	calls  map[string]int
	err    error
}

func (f *fakeInspector) Inspect(_ context.Context, releaseName, namespace string) (release.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	key := namespace + "/" + releaseName
	f.calls[key]++
	if f.err != nil {
		return release.State{}, f.err
	}
	return f.states[key], nil
}

func TestClassify(t *testing.T) {
	inspector := &fakeInspector{states: map[string]release.State{
		"blog/armada-blog-1": {Present: true, Fingerprint: "abc"},
	}}
	engine := diff.NewEngine(inspector)
	ctx := t.Context()

	got, err := engine.Classify(ctx, "armada-blog-2", "blog", "abc")
	require.NoError(t, err)
	assert.Equal(t, diff.Absent, got)

	got, err = engine.Classify(ctx, "armada-blog-1", "blog", "abc")
	require.NoError(t, err)
	assert.Equal(t, diff.Unchanged, got)

	got, err = engine.Classify(ctx, "armada-blog-1", "blog", "other")
	require.NoError(t, err)
	assert.Equal(t, diff.Changed, got)
}

func TestClassifyMemoizesInspection(t *testing.T) {
	inspector := &fakeInspector{states: map[string]release.State{
		"blog/r": {Present: true, Fingerprint: "abc"},
	}}
	engine := diff.NewEngine(inspector)
	ctx := t.Context()

	for range 5 {
		_, err := engine.Classify(ctx, "r", "blog", "abc")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, inspector.calls["blog/r"])
}

func TestClassifyInspectorError(t *testing.T) {
	inspector := &fakeInspector{err: assert.AnError}
	engine := diff.NewEngine(inspector)

	_, err := engine.Classify(t.Context(), "r", "ns", "abc")
	require.ErrorIs(t, err, assert.AnError)
}

func TestFingerprintStability(t *testing.T) {
	content := []byte("rendered chart bytes")

	a, err := diff.Fingerprint(content, map[string]any{
		"replicas": 2,
		"image":    map[string]any{"tag": "v1", "repository": "blog"},
	})
	require.NoError(t, err)

	// Same mapping built in a different insertion order.
	b, err := diff.Fingerprint(content, map[string]any{
		"image":    map[string]any{"repository": "blog", "tag": "v1"},
		"replicas": 2,
	})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFingerprintSensitivity(t *testing.T) {
	base, err := diff.Fingerprint([]byte("content"), map[string]any{"replicas": 2})
	require.NoError(t, err)

	changedContent, err := diff.Fingerprint([]byte("content2"), map[string]any{"replicas": 2})
	require.NoError(t, err)
	assert.NotEqual(t, base, changedContent)

	changedValues, err := diff.Fingerprint([]byte("content"), map[string]any{"replicas": 3})
	require.NoError(t, err)
	assert.NotEqual(t, base, changedValues)

	noValues, err := diff.Fingerprint([]byte("content"), nil)
	require.NoError(t, err)
	assert.NotEqual(t, base, noValues)
}

func TestValuesDiff(t *testing.T) {
	declared := map[string]any{"replicas": 2}
	effective := map[string]any{"replicas": 3}

	out, err := diff.ValuesDiff(declared, effective)
	require.NoError(t, err)
	assert.Contains(t, out, "-replicas: 2")
	assert.Contains(t, out, "+replicas: 3")

	same, err := diff.ValuesDiff(declared, map[string]any{"replicas": 2})
	require.NoError(t, err)
	assert.Empty(t, same)
}
