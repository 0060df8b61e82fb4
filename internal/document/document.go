// Package document contains the loader and strongly typed model for chartctl documents.
//
// A chartctl document set is a multi-document YAML stream of Manifest,
// ChartGroup and Chart documents that reference each other by name. The
// loader decodes the stream into typed documents; resolving the references
// into a deployment plan is the job of the resolve package.
package document

// Kind identifies the schema family of a document.
type Kind string

const (
	// KindManifest is the document kind for Manifest documents.
	KindManifest Kind = "Manifest"
	// KindChartGroup is the document kind for ChartGroup documents.
	KindChartGroup Kind = "ChartGroup"
	// KindChart is the document kind for Chart documents.
	KindChart Kind = "Chart"
)

const (
	// SchemaManifest is the schema string for Manifest documents.
	SchemaManifest = "chartctl/Manifest/v1"
	// SchemaChartGroup is the schema string for ChartGroup documents.
	SchemaChartGroup = "chartctl/ChartGroup/v1"
	// SchemaChart is the schema string for Chart documents.
	SchemaChart = "chartctl/Chart/v1"
)

// KindForSchema maps a schema string to its document kind.
// Unknown schemas return an empty Kind.
func KindForSchema(schema string) Kind {
	switch schema {
	case SchemaManifest:
		return KindManifest
	case SchemaChartGroup:
		return KindChartGroup
	case SchemaChart:
		return KindChart
	default:
		return ""
	}
}

// Metadata carries the identifying metadata of a document.
type Metadata struct {
	// Name is the document name other documents reference.
	Name string `yaml:"name"`
}

// Document is the decoded envelope of a single YAML document.
// Exactly one of Manifest, ChartGroup or Chart is non-nil, matching Kind.
type Document struct {
	// Schema is the raw schema string (e.g. "chartctl/Chart/v1").
	Schema string
	// Kind is the schema family derived from Schema.
	Kind Kind
	// Metadata holds the document name.
	Metadata Metadata
	// Manifest is the typed payload for Manifest documents.
	Manifest *Manifest
	// ChartGroup is the typed payload for ChartGroup documents.
	ChartGroup *ChartGroup
	// Chart is the typed payload for Chart documents.
	Chart *Chart
}

// Name returns the document's metadata name.
func (d *Document) Name() string {
	return d.Metadata.Name
}

// Manifest names the chart groups to deploy and the release prefix to apply.
type Manifest struct {
	// ReleasePrefix is prepended to every chart's release name.
	ReleasePrefix string `yaml:"release_prefix"`
	// ChartGroups lists ChartGroup document names in declaration order.
	ChartGroups []string `yaml:"chart_groups"`
}

// ChartGroup is a named collection of charts deployed together.
type ChartGroup struct {
	// Description is a human-readable summary of the group.
	Description string `yaml:"description,omitempty"`
	// Sequenced enforces strict list-order execution when true.
	Sequenced bool `yaml:"sequenced,omitempty"`
	// ChartGroupList lists Chart document names in declaration order.
	ChartGroupList []string `yaml:"chart_group"`
}

// Chart describes a single deployable unit.
type Chart struct {
	// ChartName is the packaged chart name inside the source.
	ChartName string `yaml:"chart_name"`
	// ReleaseName is the release name without the manifest prefix.
	ReleaseName string `yaml:"release_name"`
	// Namespace is the target namespace for the release.
	Namespace string `yaml:"namespace"`
	// Timeout bounds install/upgrade waiting, in seconds.
	Timeout int `yaml:"timeout,omitempty"`
	// Wait requests blocking on release readiness up to Timeout.
	Wait bool `yaml:"wait,omitempty"`
	// Install holds install-time settings.
	Install InstallSpec `yaml:"install,omitempty"`
	// Upgrade holds upgrade-time settings and pre/post actions.
	Upgrade UpgradeSpec `yaml:"upgrade,omitempty"`
	// Values is the chart's value override layer.
	Values map[string]any `yaml:"values,omitempty"`
	// Source describes where the chart content comes from.
	Source Source `yaml:"source"`
	// Dependencies lists Chart document names that must deploy first.
	Dependencies []string `yaml:"dependencies,omitempty"`
}

// InstallSpec holds settings applied on first-time installs.
type InstallSpec struct {
	// NoHook disables the package manager's chart hooks during install.
	NoHook bool `yaml:"no_hook,omitempty"`
}

// UpgradeSpec holds settings and maintenance actions applied on upgrades.
type UpgradeSpec struct {
	// NoHook disables pre/post action processing and the package manager's
	// chart hooks during upgrade.
	NoHook bool `yaml:"no_hook,omitempty"`
	// Pre runs before the upgrade is applied.
	Pre ActionSet `yaml:"pre,omitempty"`
	// Post runs after the upgrade is applied.
	Post ActionSet `yaml:"post,omitempty"`
}

// ActionSet groups declared maintenance actions by verb.
type ActionSet struct {
	// Update lists actions that roll/restart matched resources.
	Update []Action `yaml:"update,omitempty"`
	// Delete lists actions that delete matched resources.
	Delete []Action `yaml:"delete,omitempty"`
}

// Empty reports whether the set declares no actions at all.
func (s ActionSet) Empty() bool {
	return len(s.Update) == 0 && len(s.Delete) == 0
}

// Action is a declared maintenance operation targeting resources by label.
type Action struct {
	// Name identifies the action in logs and reports.
	Name string `yaml:"name"`
	// Type is the resource kind the action targets (e.g. "daemonset", "job").
	Type string `yaml:"type"`
	// Labels selects target resources whose labels are a superset of this map.
	Labels map[string]string `yaml:"labels,omitempty"`
}

// Source type values accepted in Chart.Source.
const (
	// SourceGit fetches chart content from a git repository.
	SourceGit = "git"
	// SourceLocal reads chart content from a local path.
	SourceLocal = "local"
	// SourceTar fetches chart content from a tarball URL.
	SourceTar = "tar"
)

// Source describes where and how to fetch a chart's content.
type Source struct {
	// Type is one of "git", "local" or "tar".
	Type string `yaml:"type"`
	// Location is a URL or path depending on Type.
	Location string `yaml:"location"`
	// Subpath selects a directory inside the fetched tree. Defaults to ".".
	Subpath string `yaml:"subpath,omitempty"`
	// Reference is the git ref to check out. Defaults to "master". Git only.
	Reference string `yaml:"reference,omitempty"`
}

// applyDefaults fills in defaulted source fields after decoding.
func (s *Source) applyDefaults() {
	if s.Subpath == "" {
		s.Subpath = "."
	}
	if s.Type == SourceGit && s.Reference == "" {
		s.Reference = "master"
	}
}
