// Package source fetches chart content from git, local and tarball sources.
//
// The orchestrator consumes the Fetcher boundary only; the implementations
// here are the default backing. Rendering semantics of the fetched chart
// material are owned by the cluster package manager, not by chartctl: the
// fetched tree is treated as opaque content bytes that feed the fingerprint
// and the install/upgrade calls.
package source

import (
	"context"
	"errors"

	"github.com/codex-k8s/chartctl/internal/document"
)

// ErrSourceUnreachable marks a source location that could not be fetched.
var ErrSourceUnreachable = errors.New("chart source unreachable")

// ErrSubpathNotFound marks a fetched source missing the requested subpath.
var ErrSubpathNotFound = errors.New("chart source subpath not found")

// Rendered is the fetched chart material for a single chart.
type Rendered struct {
	// Content is a deterministic byte serialization of the chart tree,
	// consumed by the fingerprint.
	Content []byte
	// Path is the on-disk location of the chart tree, consumed by the
	// apply backend. Valid until Discard is called.
	Path string

	cleanup func() error
}

// Discard releases any temporary storage backing the rendered chart.
// Safe to call on a zero Rendered.
func (r *Rendered) Discard() error {
	if r.cleanup == nil {
		return nil
	}
	cleanup := r.cleanup
	r.cleanup = nil
	return cleanup()
}

// Fetcher retrieves chart content described by a document source.
type Fetcher interface {
	// Fetch returns the chart content for the given source. Failures map to
	// ErrSourceUnreachable or ErrSubpathNotFound.
	Fetch(ctx context.Context, src document.Source) (Rendered, error)
}
