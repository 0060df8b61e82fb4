package engine

import (
	"context"
	"time"

	"github.com/codex-k8s/chartctl/internal/actions"
	"github.com/codex-k8s/chartctl/internal/document"
	"github.com/codex-k8s/chartctl/internal/source"
)

// ApplyOptions mirrors a chart's wait and hook settings for install/upgrade calls.
type ApplyOptions struct {
	// Wait requests blocking until the release reports ready.
	Wait bool
	// Timeout bounds the wait. Zero means the applier's default.
	Timeout time.Duration
	// NoHooks disables the package manager's own chart hooks for the call.
	NoHooks bool
}

// Applier is the cluster apply boundary: it installs and upgrades releases
// from rendered chart content. Backing implementations (the cluster package
// manager client) live outside the core.
type Applier interface {
	// Install creates a new release from the rendered chart content.
	Install(ctx context.Context, releaseName, namespace string, rendered source.Rendered, values map[string]any, opts ApplyOptions) error
	// Upgrade replaces an existing release with the rendered chart content.
	Upgrade(ctx context.Context, releaseName, namespace string, rendered source.Rendered, values map[string]any, opts ApplyOptions) error
}

// ActionRunner runs one phase of a chart's declared maintenance actions.
// The actions package provides the default implementation.
type ActionRunner interface {
	// Run executes the action set for the given phase in declared order.
	Run(ctx context.Context, namespace string, set document.ActionSet, phase actions.Phase) error
}
