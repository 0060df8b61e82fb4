package engine

import (
	"context"
	"fmt"

	"github.com/codex-k8s/chartctl/internal/diff"
	"github.com/codex-k8s/chartctl/internal/env"
	"github.com/codex-k8s/chartctl/internal/resolve"
)

// PlannedAction is what Deploy would do for a chart, derived from its
// classification without mutating the cluster.
type PlannedAction string

const (
	// PlanInstall means the release is absent and would be installed.
	PlanInstall PlannedAction = "install"
	// PlanUpgrade means the release differs and would be upgraded.
	PlanUpgrade PlannedAction = "upgrade"
	// PlanSkip means the release already matches the desired state.
	PlanSkip PlannedAction = "skip"
)

// UnitStatus is the dry-run result for one unit of a plan.
type UnitStatus struct {
	// Unit is the classified plan unit.
	Unit *resolve.Unit
	// Classification is the diff result against the installed release.
	Classification diff.Classification
	// Action is the deployment action the classification implies.
	Action PlannedAction
	// ValuesDiff shows what the override layer changes, empty when nothing.
	ValuesDiff string
	// Err is set when classification itself failed for this chart.
	Err error
}

// Classify computes every unit's classification and planned action without
// touching cluster state. It backs the plan command and apply --dry-run.
func (e *Engine) Classify(ctx context.Context, plan *resolve.Plan, opts DeployOptions) []UnitStatus {
	d := diff.NewEngine(e.inspector)
	statuses := make([]UnitStatus, 0, len(plan.Units))

	for _, i := range plan.Order {
		u := plan.Units[i]
		status := UnitStatus{Unit: u}

		rendered, err := e.fetcher.Fetch(ctx, u.Chart.Source)
		if err != nil {
			status.Err = fmt.Errorf("fetch source: %w", err)
			statuses = append(statuses, status)
			continue
		}

		values := env.Overlay(u.Chart.Values, opts.Values, opts.Vars)
		fingerprint, err := diff.Fingerprint(rendered.Content, values)
		_ = rendered.Discard()
		if err != nil {
			status.Err = fmt.Errorf("fingerprint chart: %w", err)
			statuses = append(statuses, status)
			continue
		}

		classification, err := d.Classify(ctx, u.Release, u.Namespace, fingerprint)
		if err != nil {
			status.Err = err
			statuses = append(statuses, status)
			continue
		}
		status.Classification = classification

		switch classification {
		case diff.Absent:
			status.Action = PlanInstall
		case diff.Changed:
			status.Action = PlanUpgrade
		case diff.Unchanged:
			status.Action = PlanSkip
		}

		if valuesDiff, err := diff.ValuesDiff(u.Chart.Values, values); err == nil {
			status.ValuesDiff = valuesDiff
		}

		statuses = append(statuses, status)
	}

	return statuses
}
