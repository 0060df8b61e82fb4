package engine

import "github.com/codex-k8s/chartctl/internal/report"

// unitState tracks a unit through its deployment state machine:
//
//	pending → classifying → installing → installed
//	                      → skipped
//	                      → pre-actions → upgrading → post-actions → upgraded
//
// Any non-terminal state may transition to failed. Units whose predecessors
// fail go straight from pending to not-started.
type unitState int

const (
	statePending unitState = iota
	stateClassifying
	stateInstalling
	statePreActions
	stateUpgrading
	statePostActions
	stateInstalled
	stateUpgraded
	stateSkipped
	stateFailed
	stateNotStarted
)

// String returns the state name used in logs.
func (s unitState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateClassifying:
		return "classifying"
	case stateInstalling:
		return "installing"
	case statePreActions:
		return "pre-actions"
	case stateUpgrading:
		return "upgrading"
	case statePostActions:
		return "post-actions"
	case stateInstalled:
		return "installed"
	case stateUpgraded:
		return "upgraded"
	case stateSkipped:
		return "skipped"
	case stateFailed:
		return "failed"
	case stateNotStarted:
		return "not-started"
	default:
		return "unknown"
	}
}

// terminalSuccess reports whether the state releases dependents to run.
func (s unitState) terminalSuccess() bool {
	switch s {
	case stateInstalled, stateUpgraded, stateSkipped:
		return true
	default:
		return false
	}
}

// outcome maps a terminal state to its report outcome.
func (s unitState) outcome() report.Outcome {
	switch s {
	case stateInstalled:
		return report.OutcomeInstalled
	case stateUpgraded:
		return report.OutcomeUpgraded
	case stateSkipped:
		return report.OutcomeSkipped
	case stateNotStarted:
		return report.OutcomeNotStarted
	default:
		return report.OutcomeFailed
	}
}
