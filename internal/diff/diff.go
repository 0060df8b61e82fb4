// Package diff classifies a chart's desired state against its installed state.
package diff

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/codex-k8s/chartctl/internal/release"
)

// Classification is the result of comparing desired and installed state.
type Classification int

const (
	// Absent means no release exists under the chart's release name.
	Absent Classification = iota
	// Unchanged means the installed release matches the desired state exactly.
	Unchanged
	// Changed means a release exists but its content differs from the
	// desired state.
	Changed
)

// String returns the classification name for logs and reports.
func (c Classification) String() string {
	switch c {
	case Absent:
		return "absent"
	case Unchanged:
		return "unchanged"
	case Changed:
		return "changed"
	default:
		return fmt.Sprintf("classification(%d)", int(c))
	}
}

// Engine classifies charts by comparing fingerprints. Inspector results are
// memoized per (release, namespace) so each release is inspected at most
// once per run, since inspection may be a remote call.
type Engine struct {
	inspector release.Inspector

	mu    sync.Mutex
	cache map[cacheKey]release.State
}

type cacheKey struct {
	release   string
	namespace string
}

// NewEngine constructs a diff Engine backed by the given inspector.
func NewEngine(inspector release.Inspector) *Engine {
	return &Engine{
		inspector: inspector,
		cache:     make(map[cacheKey]release.State),
	}
}

// Classify compares the desired fingerprint of a chart against the
// installed state of the named release.
func (e *Engine) Classify(ctx context.Context, releaseName, namespace, desiredFingerprint string) (Classification, error) {
	state, err := e.inspect(ctx, releaseName, namespace)
	if err != nil {
		return Absent, fmt.Errorf("inspect release %q in namespace %q: %w", releaseName, namespace, err)
	}
	if !state.Present {
		return Absent, nil
	}
	if state.Fingerprint == desiredFingerprint {
		return Unchanged, nil
	}
	return Changed, nil
}

// inspect returns the memoized installed state for a release, querying the
// inspector on first access.
func (e *Engine) inspect(ctx context.Context, releaseName, namespace string) (release.State, error) {
	key := cacheKey{release: releaseName, namespace: namespace}

	e.mu.Lock()
	state, ok := e.cache[key]
	e.mu.Unlock()
	if ok {
		return state, nil
	}

	state, err := e.inspector.Inspect(ctx, releaseName, namespace)
	if err != nil {
		return release.State{}, err
	}

	e.mu.Lock()
	e.cache[key] = state
	e.mu.Unlock()
	return state, nil
}

// Fingerprint computes the stable content hash of a chart's desired state:
// the rendered chart content plus its effective values. Two calls with equal
// content and values always yield equal fingerprints regardless of map
// iteration order.
func Fingerprint(rendered []byte, values map[string]any) (string, error) {
	h := sha256.New()
	h.Write(rendered)
	if len(values) > 0 {
		// yaml.Marshal emits map keys in sorted order at every nesting
		// level, which makes the serialized form canonical.
		canonical, err := yaml.Marshal(values)
		if err != nil {
			return "", fmt.Errorf("serialize values: %w", err)
		}
		h.Write(canonical)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
