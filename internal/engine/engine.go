// Package engine contains the high-level orchestration logic for deploying a resolved plan.
//
// The engine walks the plan's unit graph with a bounded number of workers.
// Each unit waits for its graph predecessors to reach a terminal state
// before it starts, classifies its chart against the installed release, and
// dispatches install, upgrade or skip. Failures stay contained to the
// failing chart's subtree; the run always ends with a complete report.
package engine

import (
	"log/slog"
	"time"

	"github.com/codex-k8s/chartctl/internal/env"
	"github.com/codex-k8s/chartctl/internal/release"
	"github.com/codex-k8s/chartctl/internal/source"
)

// DefaultConcurrency bounds simultaneously active units when no explicit
// concurrency is configured.
const DefaultConcurrency = 4

// Options carries the external collaborators and tuning for an Engine.
type Options struct {
	// Inspector queries installed release state.
	Inspector release.Inspector
	// Fetcher retrieves chart content.
	Fetcher source.Fetcher
	// Applier installs and upgrades releases.
	Applier Applier
	// Actions runs pre/post maintenance actions.
	Actions ActionRunner
	// Logger receives structured progress logs.
	Logger *slog.Logger
	// Concurrency bounds simultaneously active units. Zero or negative
	// falls back to DefaultConcurrency.
	Concurrency int
	// Clock overrides time.Now for tests.
	Clock func() time.Time
}

// DeployOptions tunes a single Deploy call.
type DeployOptions struct {
	// Values is an extra values mapping merged over every chart's values.
	Values map[string]any
	// Vars are dot-path value overrides applied after Values.
	Vars env.Vars
}

// Engine coordinates plan deployment against the injected collaborators.
type Engine struct {
	inspector   release.Inspector
	fetcher     source.Fetcher
	applier     Applier
	actions     ActionRunner
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
}

// New constructs an Engine from the given options.
func New(opts Options) *Engine {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Engine{
		inspector:   opts.Inspector,
		fetcher:     opts.Fetcher,
		applier:     opts.Applier,
		actions:     opts.Actions,
		logger:      logger,
		concurrency: concurrency,
		now:         now,
	}
}
