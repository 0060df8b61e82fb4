// Package actions runs declared maintenance actions around chart upgrades.
//
// An action targets cluster resources of a fixed kind by label selector.
// Current policy restricts update actions to daemonsets (a rolling restart)
// and delete actions to jobs, matching what the upgrade hooks are for:
// nudging node agents and clearing completed one-shot jobs so the upgrade
// can recreate them.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"k8s.io/apimachinery/pkg/labels"

	"github.com/codex-k8s/chartctl/internal/document"
)

// ErrUnsupportedActionType marks an action whose type is outside the
// current policy for its verb.
var ErrUnsupportedActionType = errors.New("unsupported action type")

// Kinds accepted by the current action policy.
const (
	// KindDaemonSet is the only kind update actions may target.
	KindDaemonSet = "daemonset"
	// KindJob is the only kind delete actions may target.
	KindJob = "job"
)

// Phase identifies whether an action set runs before or after the upgrade.
type Phase string

const (
	// PhasePre runs before the upgrade is applied.
	PhasePre Phase = "pre"
	// PhasePost runs after the upgrade is applied.
	PhasePost Phase = "post"
)

// Ref is an opaque handle to a matched cluster resource.
type Ref struct {
	// Kind is the resource kind ("daemonset" or "job").
	Kind string
	// Namespace is the resource namespace.
	Namespace string
	// Name is the resource name.
	Name string
}

// ResourceClient selects and mutates cluster resources for actions.
type ResourceClient interface {
	// Find returns resources of the given kind in the namespace whose
	// labels are a superset of the selector. An empty result is not an error.
	Find(ctx context.Context, kind, namespace string, selector labels.Selector) ([]Ref, error)
	// Restart requests a rolling restart of the given resources.
	Restart(ctx context.Context, refs []Ref) error
	// Delete requests deletion of the given resources.
	Delete(ctx context.Context, refs []Ref) error
}

// Executor runs action sets in declared order against a resource client.
type Executor struct {
	client ResourceClient
	logger *slog.Logger
}

// NewExecutor constructs an Executor backed by the given resource client.
func NewExecutor(client ResourceClient, logger *slog.Logger) *Executor {
	return &Executor{client: client, logger: logger}
}

// Run executes an action set for one phase: every update action in declared
// order, then every delete action in declared order. The first failing
// action aborts the remaining actions in the phase. Actions already applied
// are not rolled back. The whole set is validated against the action policy
// before any mutation happens.
func (e *Executor) Run(ctx context.Context, namespace string, set document.ActionSet, phase Phase) error {
	if err := validateSet(set); err != nil {
		return err
	}

	for _, action := range set.Update {
		if err := e.runUpdate(ctx, namespace, action, phase); err != nil {
			return fmt.Errorf("%s action %q: %w", phase, action.Name, err)
		}
	}
	for _, action := range set.Delete {
		if err := e.runDelete(ctx, namespace, action, phase); err != nil {
			return fmt.Errorf("%s action %q: %w", phase, action.Name, err)
		}
	}
	return nil
}

// validateSet checks every action against the verb/kind policy.
func validateSet(set document.ActionSet) error {
	for _, action := range set.Update {
		if action.Type != KindDaemonSet {
			return fmt.Errorf("%w: update action %q targets %q, only %q is supported",
				ErrUnsupportedActionType, action.Name, action.Type, KindDaemonSet)
		}
	}
	for _, action := range set.Delete {
		if action.Type != KindJob {
			return fmt.Errorf("%w: delete action %q targets %q, only %q is supported",
				ErrUnsupportedActionType, action.Name, action.Type, KindJob)
		}
	}
	return nil
}

// runUpdate rolls the daemonsets matched by the action's labels.
func (e *Executor) runUpdate(ctx context.Context, namespace string, action document.Action, phase Phase) error {
	selector := labels.Set(action.Labels).AsSelector()
	refs, err := e.client.Find(ctx, KindDaemonSet, namespace, selector)
	if err != nil {
		return fmt.Errorf("find daemonsets: %w", err)
	}
	if len(refs) == 0 {
		e.logger.Debug("action matched no resources", "phase", phase, "action", action.Name, "selector", selector.String())
		return nil
	}
	e.logger.Info("restarting daemonsets", "phase", phase, "action", action.Name, "count", len(refs))
	if err := e.client.Restart(ctx, refs); err != nil {
		return fmt.Errorf("restart daemonsets: %w", err)
	}
	return nil
}

// runDelete deletes the jobs matched by the action's labels. An empty match
// is success: a delete re-run against an already-cleared selector set is a
// no-op.
func (e *Executor) runDelete(ctx context.Context, namespace string, action document.Action, phase Phase) error {
	selector := labels.Set(action.Labels).AsSelector()
	refs, err := e.client.Find(ctx, KindJob, namespace, selector)
	if err != nil {
		return fmt.Errorf("find jobs: %w", err)
	}
	if len(refs) == 0 {
		e.logger.Debug("action matched no resources", "phase", phase, "action", action.Name, "selector", selector.String())
		return nil
	}
	e.logger.Info("deleting jobs", "phase", phase, "action", action.Name, "count", len(refs))
	if err := e.client.Delete(ctx, refs); err != nil {
		return fmt.Errorf("delete jobs: %w", err)
	}
	return nil
}
