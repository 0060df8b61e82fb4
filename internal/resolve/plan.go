package resolve

import "github.com/codex-k8s/chartctl/internal/document"

// Unit is a single deployable chart inside a Plan. Units are stored in a
// flat arena on the Plan and reference each other by index.
type Unit struct {
	// Index is the unit's position in the plan arena.
	Index int
	// Name is the chart document name.
	Name string
	// Chart is the resolved chart payload.
	Chart *document.Chart
	// Release is the effective release name including the manifest prefix.
	Release string
	// Namespace is the target namespace for the release.
	Namespace string
	// Group is the index of the owning chart group, -1 for charts pulled in
	// purely as dependencies of another group's chart.
	Group int
	// DependsOn lists arena indices of charts that must reach a successful
	// terminal state before this unit may start.
	DependsOn []int
	// After is the arena index of the preceding sibling in a sequenced
	// group, or -1. It gates start like a dependency but additionally
	// carries the sequenced-group abort rule.
	After int
}

// Group describes one chart group of the plan.
type Group struct {
	// Name is the chart group document name.
	Name string
	// Description is the group's human-readable summary.
	Description string
	// Sequenced reports whether the group executes in strict list order.
	Sequenced bool
	// Units lists arena indices of the group's charts in declaration order.
	Units []int
}

// Plan is the resolved deployment plan for one manifest: a directed acyclic
// graph of chart units plus a valid topological order. A Plan is built once
// per run and must be treated as read-only afterwards.
type Plan struct {
	// Manifest is the selected manifest document name.
	Manifest string
	// ReleasePrefix is the manifest's release prefix.
	ReleasePrefix string
	// Groups lists the manifest's chart groups in declaration order.
	Groups []Group
	// Units is the flat arena of chart units.
	Units []*Unit
	// Order is a topological order over Units honoring dependency and
	// sequencing edges, deterministic for a given document set.
	Order []int
}

// Predecessors returns the arena indices gating the given unit's start:
// its dependency edges plus, in a sequenced group, the preceding sibling.
func (p *Plan) Predecessors(i int) []int {
	u := p.Units[i]
	if u.After < 0 {
		return u.DependsOn
	}
	out := make([]int, 0, len(u.DependsOn)+1)
	out = append(out, u.DependsOn...)
	out = append(out, u.After)
	return out
}
