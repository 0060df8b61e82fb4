// Package resolve turns a loaded document set into an ordered deployment plan.
//
// References between documents are plain names: a Manifest names ChartGroups,
// a ChartGroup names Charts, a Chart names its dependency Charts. The
// resolver expands those names exactly once into a flat arena of units with
// index edges, then computes a deterministic topological order. It performs
// no I/O and never mutates the documents it is given.
package resolve

import (
	"fmt"

	"github.com/codex-k8s/chartctl/internal/document"
)

// Resolve builds the deployment plan for the given document set.
//
// targetManifest selects the manifest to resolve when the set contains more
// than one Manifest document; with an empty targetManifest the set must
// contain exactly one.
func Resolve(docs []*document.Document, targetManifest string) (*Plan, error) {
	idx, err := indexDocuments(docs)
	if err != nil {
		return nil, err
	}

	manifest, err := idx.selectManifest(targetManifest)
	if err != nil {
		return nil, err
	}

	b := &builder{
		idx:    idx,
		byName: make(map[string]int),
		prefix: manifest.Manifest.ReleasePrefix,
	}

	plan := &Plan{
		Manifest:      manifest.Name(),
		ReleasePrefix: manifest.Manifest.ReleasePrefix,
	}

	for gi, groupName := range manifest.Manifest.ChartGroups {
		groupDoc, ok := idx.groups[groupName]
		if !ok {
			return nil, &UnresolvedReferenceError{
				Kind:         document.KindChartGroup,
				Name:         groupName,
				ReferencedBy: manifest.Name(),
			}
		}
		group := Group{
			Name:        groupName,
			Description: groupDoc.ChartGroup.Description,
			Sequenced:   groupDoc.ChartGroup.Sequenced,
		}
		for _, chartName := range groupDoc.ChartGroup.ChartGroupList {
			ui, err := b.ensureUnit(chartName, groupName)
			if err != nil {
				return nil, err
			}
			if b.units[ui].Group < 0 {
				b.units[ui].Group = gi
			}
			group.Units = append(group.Units, ui)
		}
		if group.Sequenced {
			chainSequence(b.units, group.Units, gi)
		}
		plan.Groups = append(plan.Groups, group)
	}

	plan.Units = b.units

	if err := checkReleaseCollisions(plan); err != nil {
		return nil, err
	}

	order, err := topologicalOrder(plan)
	if err != nil {
		return nil, err
	}
	plan.Order = order

	return plan, nil
}

// documentIndex holds the per-kind name lookup tables for a document set.
type documentIndex struct {
	manifests map[string]*document.Document
	groups    map[string]*document.Document
	charts    map[string]*document.Document
}

// indexDocuments builds the (kind, name) lookup tables, rejecting duplicates.
func indexDocuments(docs []*document.Document) (*documentIndex, error) {
	idx := &documentIndex{
		manifests: make(map[string]*document.Document),
		groups:    make(map[string]*document.Document),
		charts:    make(map[string]*document.Document),
	}
	for _, doc := range docs {
		var table map[string]*document.Document
		switch doc.Kind {
		case document.KindManifest:
			table = idx.manifests
		case document.KindChartGroup:
			table = idx.groups
		case document.KindChart:
			table = idx.charts
		default:
			continue
		}
		if _, exists := table[doc.Name()]; exists {
			return nil, &DuplicateDocumentError{Kind: doc.Kind, Name: doc.Name()}
		}
		table[doc.Name()] = doc
	}
	return idx, nil
}

// selectManifest picks the target manifest from the set.
func (idx *documentIndex) selectManifest(target string) (*document.Document, error) {
	if target != "" {
		m, ok := idx.manifests[target]
		if !ok {
			return nil, &ManifestSelectionError{Target: target}
		}
		return m, nil
	}
	if len(idx.manifests) != 1 {
		return nil, &ManifestSelectionError{Found: len(idx.manifests)}
	}
	for _, m := range idx.manifests {
		return m, nil
	}
	return nil, &ManifestSelectionError{}
}

// builder accumulates the unit arena while expanding references.
type builder struct {
	idx    *documentIndex
	units  []*Unit
	byName map[string]int
	prefix string
}

// ensureUnit returns the arena index for the named chart, creating the unit
// and expanding its dependency references on first sight. Charts reached
// only through dependencies carry Group == -1 until a group claims them.
func (b *builder) ensureUnit(chartName, referencedBy string) (int, error) {
	if ui, ok := b.byName[chartName]; ok {
		return ui, nil
	}
	doc, ok := b.idx.charts[chartName]
	if !ok {
		return 0, &UnresolvedReferenceError{
			Kind:         document.KindChart,
			Name:         chartName,
			ReferencedBy: referencedBy,
		}
	}

	chart := doc.Chart
	u := &Unit{
		Index:     len(b.units),
		Name:      chartName,
		Chart:     chart,
		Release:   EffectiveRelease(b.prefix, chart.ReleaseName),
		Namespace: chart.Namespace,
		Group:     -1,
		After:     -1,
	}
	b.units = append(b.units, u)
	b.byName[chartName] = u.Index

	// The unit is registered before its dependencies are expanded, so a
	// self-referencing chain terminates here and surfaces later as a cycle.
	for _, dep := range chart.Dependencies {
		di, err := b.ensureUnit(dep, chartName)
		if err != nil {
			return 0, err
		}
		u.DependsOn = append(u.DependsOn, di)
	}

	return u.Index, nil
}

// chainSequence links each group member to its predecessor in list order.
// Members first claimed by an earlier group keep their original gate.
func chainSequence(units []*Unit, members []int, group int) {
	for i := 1; i < len(members); i++ {
		u := units[members[i]]
		if u.After == -1 && u.Group == group {
			u.After = members[i-1]
		}
	}
}

// checkReleaseCollisions rejects plans where two charts target the same
// (release, namespace) pair.
func checkReleaseCollisions(plan *Plan) error {
	type key struct{ release, namespace string }
	seen := make(map[key][]string, len(plan.Units))
	for _, u := range plan.Units {
		k := key{u.Release, u.Namespace}
		seen[k] = append(seen[k], u.Name)
		if len(seen[k]) > 1 {
			return &DuplicateReleaseError{
				Release:   u.Release,
				Namespace: u.Namespace,
				Charts:    seen[k],
			}
		}
	}
	return nil
}

// topologicalOrder runs Kahn's algorithm over dependency and sequencing
// edges. Ties break on arena index, so the order is deterministic for a
// given document set.
func topologicalOrder(plan *Plan) ([]int, error) {
	n := len(plan.Units)
	indegree := make([]int, n)
	for i := range plan.Units {
		indegree[i] = len(plan.Predecessors(i))
	}

	successors := make([][]int, n)
	for i := range plan.Units {
		for _, p := range plan.Predecessors(i) {
			successors[p] = append(successors[p], i)
		}
	}

	order := make([]int, 0, n)
	emitted := make([]bool, n)
	for len(order) < n {
		next := -1
		for i := 0; i < n; i++ {
			if !emitted[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next == -1 {
			return nil, &CycleError{Members: cycleMembers(plan, emitted)}
		}
		emitted[next] = true
		order = append(order, next)
		for _, s := range successors[next] {
			indegree[s]--
		}
	}

	return order, nil
}

// cycleMembers narrows the unemitted remainder down to the charts actually
// on a cycle by repeatedly stripping nodes without remaining successors.
func cycleMembers(plan *Plan, emitted []bool) []string {
	remaining := make(map[int]bool)
	for i := range plan.Units {
		if !emitted[i] {
			remaining[i] = true
		}
	}

	for {
		stripped := false
		for i := range remaining {
			hasSuccessor := false
			for j := range remaining {
				if j == i {
					continue
				}
				for _, p := range plan.Predecessors(j) {
					if p == i {
						hasSuccessor = true
						break
					}
				}
				if hasSuccessor {
					break
				}
			}
			if !hasSuccessor {
				delete(remaining, i)
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}

	members := make([]string, 0, len(remaining))
	for i := range plan.Units {
		if remaining[i] {
			members = append(members, plan.Units[i].Name)
		}
	}
	return members
}

// EffectiveRelease joins the manifest release prefix with a chart's release
// name. An empty prefix leaves the release name untouched.
func EffectiveRelease(prefix, releaseName string) string {
	if prefix == "" {
		return releaseName
	}
	return fmt.Sprintf("%s-%s", prefix, releaseName)
}
