package resolve

import (
	"fmt"
	"strings"

	"github.com/codex-k8s/chartctl/internal/document"
)

// UnresolvedReferenceError reports a named reference that does not resolve
// to a document of the expected kind.
type UnresolvedReferenceError struct {
	// Kind is the document kind the reference expected.
	Kind document.Kind
	// Name is the unresolved reference name.
	Name string
	// ReferencedBy names the document that held the reference.
	ReferencedBy string
}

// Error implements the error interface.
func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved reference: no %s named %q (referenced by %q)", e.Kind, e.Name, e.ReferencedBy)
}

// CycleError reports a dependency cycle found during topological ordering.
type CycleError struct {
	// Members lists the chart names participating in the cycle.
	Members []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic dependency between charts: %s", strings.Join(e.Members, ", "))
}

// DuplicateDocumentError reports two documents sharing a (kind, name) pair.
type DuplicateDocumentError struct {
	// Kind is the duplicated document kind.
	Kind document.Kind
	// Name is the duplicated document name.
	Name string
}

// Error implements the error interface.
func (e *DuplicateDocumentError) Error() string {
	return fmt.Sprintf("duplicate document: more than one %s named %q", e.Kind, e.Name)
}

// DuplicateReleaseError reports two charts resolving to the same
// (release, namespace) pair within one plan.
type DuplicateReleaseError struct {
	// Release is the effective (prefixed) release name.
	Release string
	// Namespace is the target namespace.
	Namespace string
	// Charts names the colliding chart documents.
	Charts []string
}

// Error implements the error interface.
func (e *DuplicateReleaseError) Error() string {
	return fmt.Sprintf("duplicate release: charts %s all target release %q in namespace %q",
		strings.Join(e.Charts, ", "), e.Release, e.Namespace)
}

// ManifestSelectionError reports that no single target manifest could be
// selected from the document set.
type ManifestSelectionError struct {
	// Target is the requested manifest name, empty when none was given.
	Target string
	// Found is the number of candidate manifests in the set.
	Found int
}

// Error implements the error interface.
func (e *ManifestSelectionError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("no manifest named %q in document set", e.Target)
	}
	if e.Found == 0 {
		return "document set contains no manifest"
	}
	return fmt.Sprintf("document set contains %d manifests; select one with a target manifest name", e.Found)
}
