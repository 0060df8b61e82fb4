// Package release defines the contract for querying installed release state.
//
// The inspector is backed by the cluster's package manager and injected into
// the diff engine, so the orchestrator can run against a deterministic fake
// in tests. The fingerprint an inspector reports is the one stamped onto the
// release at install/upgrade time, a stable function of rendered chart
// content and effective values.
package release

import "context"

// State is the installed state of a release as reported by an Inspector.
type State struct {
	// Present reports whether a release exists under the queried name.
	Present bool
	// Fingerprint is the stable content hash of the installed release.
	// Empty when Present is false.
	Fingerprint string
}

// Inspector queries the cluster for the current state of a release.
type Inspector interface {
	// Inspect returns the installed state of the named release in the given
	// namespace. Absence of the release is not an error.
	Inspect(ctx context.Context, releaseName, namespace string) (State, error)
}
