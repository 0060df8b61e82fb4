package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/codex-k8s/chartctl/internal/actions"
	"github.com/codex-k8s/chartctl/internal/diff"
	"github.com/codex-k8s/chartctl/internal/env"
	"github.com/codex-k8s/chartctl/internal/report"
	"github.com/codex-k8s/chartctl/internal/resolve"
)

// Deploy executes the resolved plan and returns the full per-chart report.
// Chart-local failures never abort the run; only their dependents and, in
// sequenced groups, their later siblings end up not-started.
func (e *Engine) Deploy(ctx context.Context, plan *resolve.Plan, opts DeployOptions) *report.Report {
	startedAt := e.now()
	e.logger.Info("deploying manifest",
		"manifest", plan.Manifest, "charts", len(plan.Units), "concurrency", e.concurrency)

	r := &run{
		engine:  e,
		plan:    plan,
		opts:    opts,
		diff:    diff.NewEngine(e.inspector),
		sem:     semaphore.NewWeighted(int64(e.concurrency)),
		results: make([]unitResult, len(plan.Units)),
		done:    make([]chan struct{}, len(plan.Units)),
	}
	for i := range r.done {
		r.done[i] = make(chan struct{})
	}

	var g errgroup.Group
	for _, i := range plan.Order {
		g.Go(func() error {
			r.runUnit(ctx, i)
			return nil
		})
	}
	_ = g.Wait()

	rep := &report.Report{
		Manifest:  plan.Manifest,
		StartedAt: startedAt,
	}
	for _, u := range plan.Units {
		res := r.results[u.Index]
		rep.Entries = append(rep.Entries, report.Entry{
			Chart:      u.Name,
			Release:    u.Release,
			Namespace:  u.Namespace,
			Outcome:    res.state.outcome(),
			Reason:     res.reason,
			StartedAt:  res.startedAt,
			FinishedAt: res.finishedAt,
		})
	}
	rep.FinishedAt = e.now()

	e.logger.Info("deployment finished", "manifest", plan.Manifest, "failed", rep.Failed())
	return rep
}

// unitResult is the per-unit execution record. It is written only by the
// unit's own goroutine before its completion gate closes, so readers that
// wait on the gate observe it without extra locking.
type unitResult struct {
	state      unitState
	reason     string
	startedAt  time.Time
	finishedAt time.Time
}

// run is the mutable state of one Deploy call.
type run struct {
	engine  *Engine
	plan    *resolve.Plan
	opts    DeployOptions
	diff    *diff.Engine
	sem     *semaphore.Weighted
	results []unitResult
	done    []chan struct{}
}

// runUnit drives a single unit from pending to a terminal state. The unit's
// completion gate closes on return, releasing graph successors.
func (r *run) runUnit(ctx context.Context, i int) {
	defer close(r.done[i])

	u := r.plan.Units[i]
	log := r.engine.logger.With("chart", u.Name, "release", u.Release, "namespace", u.Namespace)

	// The sequenced-group gate: the preceding sibling must terminate
	// successfully, otherwise the rest of the group aborts.
	if u.After >= 0 {
		if !r.await(ctx, u.After) {
			r.finish(i, stateNotStarted, "run cancelled")
			return
		}
		if !r.results[u.After].state.terminalSuccess() {
			r.finish(i, stateNotStarted,
				fmt.Sprintf("sequenced group aborted: %q did not complete", r.plan.Units[u.After].Name))
			log.Warn("chart not started", "reason", "sequenced group aborted")
			return
		}
	}

	// Dependency gates: every dependency must terminate successfully.
	for _, d := range u.DependsOn {
		if !r.await(ctx, d) {
			r.finish(i, stateNotStarted, "run cancelled")
			return
		}
		if !r.results[d].state.terminalSuccess() {
			r.finish(i, stateNotStarted,
				fmt.Sprintf("dependency %q did not complete", r.plan.Units[d].Name))
			log.Warn("chart not started", "reason", "dependency failed", "dependency", r.plan.Units[d].Name)
			return
		}
	}

	// Bound active units only after the gates released, so waiting charts
	// do not hold worker slots.
	if err := r.sem.Acquire(ctx, 1); err != nil {
		r.finish(i, stateNotStarted, "run cancelled")
		return
	}
	defer r.sem.Release(1)

	r.results[i].startedAt = r.engine.now()
	r.setState(i, stateClassifying, log)

	rendered, err := r.engine.fetcher.Fetch(ctx, u.Chart.Source)
	if err != nil {
		r.fail(i, log, fmt.Errorf("fetch source: %w", err))
		return
	}
	defer func() { _ = rendered.Discard() }()

	values := env.Overlay(u.Chart.Values, r.opts.Values, r.opts.Vars)
	fingerprint, err := diff.Fingerprint(rendered.Content, values)
	if err != nil {
		r.fail(i, log, fmt.Errorf("fingerprint chart: %w", err))
		return
	}

	classification, err := r.diff.Classify(ctx, u.Release, u.Namespace, fingerprint)
	if err != nil {
		r.fail(i, log, err)
		return
	}
	log.Debug("chart classified", "classification", classification.String())

	applyOpts := ApplyOptions{
		Wait:    u.Chart.Wait,
		Timeout: time.Duration(u.Chart.Timeout) * time.Second,
	}

	switch classification {
	case diff.Unchanged:
		r.finish(i, stateSkipped, "")
		log.Info("chart unchanged, skipping")

	case diff.Absent:
		installOpts := applyOpts
		installOpts.NoHooks = u.Chart.Install.NoHook
		r.setState(i, stateInstalling, log)
		if err := r.withDeadline(ctx, installOpts, func(ctx context.Context) error {
			return r.engine.applier.Install(ctx, u.Release, u.Namespace, rendered, values, installOpts)
		}); err != nil {
			r.fail(i, log, fmt.Errorf("install: %w", err))
			return
		}
		r.finish(i, stateInstalled, "")
		log.Info("chart installed")

	case diff.Changed:
		hooked := !u.Chart.Upgrade.NoHook
		upgradeOpts := applyOpts
		upgradeOpts.NoHooks = u.Chart.Upgrade.NoHook

		if hooked {
			r.setState(i, statePreActions, log)
			if err := r.engine.actions.Run(ctx, u.Namespace, u.Chart.Upgrade.Pre, actions.PhasePre); err != nil {
				r.fail(i, log, fmt.Errorf("pre-upgrade actions: %w", err))
				return
			}
		}

		r.setState(i, stateUpgrading, log)
		if err := r.withDeadline(ctx, upgradeOpts, func(ctx context.Context) error {
			return r.engine.applier.Upgrade(ctx, u.Release, u.Namespace, rendered, values, upgradeOpts)
		}); err != nil {
			r.fail(i, log, fmt.Errorf("upgrade: %w", err))
			return
		}

		if hooked {
			r.setState(i, statePostActions, log)
			if err := r.engine.actions.Run(ctx, u.Namespace, u.Chart.Upgrade.Post, actions.PhasePost); err != nil {
				r.fail(i, log, fmt.Errorf("post-upgrade actions: %w", err))
				return
			}
		}

		r.finish(i, stateUpgraded, "")
		log.Info("chart upgraded", "hooked", hooked)
	}
}

// await blocks until unit p's completion gate closes. It returns false when
// the run context is cancelled first.
func (r *run) await(ctx context.Context, p int) bool {
	select {
	case <-r.done[p]:
		return true
	case <-ctx.Done():
		return false
	}
}

// withDeadline runs fn under the chart's wait deadline when one applies.
// The deadline holds for hooked and hookless paths alike.
func (r *run) withDeadline(ctx context.Context, opts ApplyOptions, fn func(context.Context) error) error {
	if opts.Wait && opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	return fn(ctx)
}

// setState records a non-terminal state transition.
func (r *run) setState(i int, s unitState, log *slog.Logger) {
	r.results[i].state = s
	log.Debug("chart state", "state", s.String())
}

// fail records a failed terminal state with the error as reason.
func (r *run) fail(i int, log *slog.Logger, err error) {
	r.results[i].state = stateFailed
	r.results[i].reason = err.Error()
	r.results[i].finishedAt = r.engine.now()
	log.Error("chart failed", "error", err)
}

// finish records a terminal state.
func (r *run) finish(i int, s unitState, reason string) {
	r.results[i].state = s
	r.results[i].reason = reason
	if !r.results[i].startedAt.IsZero() {
		r.results[i].finishedAt = r.engine.now()
	}
}
