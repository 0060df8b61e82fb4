// Package report models the per-chart outcome record emitted after a deployment run.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"
)

// Outcome is the terminal result of one chart in a run.
type Outcome string

const (
	// OutcomeInstalled means the chart was installed fresh.
	OutcomeInstalled Outcome = "installed"
	// OutcomeUpgraded means an existing release was upgraded.
	OutcomeUpgraded Outcome = "upgraded"
	// OutcomeSkipped means the installed release already matched.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means the chart's deployment failed.
	OutcomeFailed Outcome = "failed"
	// OutcomeNotStarted means the chart was never attempted because a
	// predecessor failed.
	OutcomeNotStarted Outcome = "not-started"
)

// Entry is the outcome record for a single chart.
type Entry struct {
	// Chart is the chart document name.
	Chart string `yaml:"chart"`
	// Release is the effective release name.
	Release string `yaml:"release"`
	// Namespace is the target namespace.
	Namespace string `yaml:"namespace"`
	// Outcome is the chart's terminal outcome.
	Outcome Outcome `yaml:"outcome"`
	// Reason carries error detail for failed/not-started charts.
	Reason string `yaml:"reason,omitempty"`
	// StartedAt is when the chart's unit began executing; zero when the
	// unit never started.
	StartedAt time.Time `yaml:"started_at,omitempty"`
	// FinishedAt is when the chart's unit reached a terminal state.
	FinishedAt time.Time `yaml:"finished_at,omitempty"`
}

// Report aggregates every chart's terminal outcome for one deployment run.
type Report struct {
	// Manifest is the deployed manifest name.
	Manifest string `yaml:"manifest"`
	// StartedAt is the start of the run window.
	StartedAt time.Time `yaml:"started_at"`
	// FinishedAt is the end of the run window.
	FinishedAt time.Time `yaml:"finished_at"`
	// Entries lists per-chart outcomes in plan order.
	Entries []Entry `yaml:"charts"`
}

// Failed reports whether any chart failed or was never started.
func (r *Report) Failed() bool {
	for _, e := range r.Entries {
		if e.Outcome == OutcomeFailed || e.Outcome == OutcomeNotStarted {
			return true
		}
	}
	return false
}

// WriteYAML emits the report as a YAML document.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		_ = enc.Close()
		return fmt.Errorf("encode report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize report: %w", err)
	}
	return nil
}

// WriteText emits the report as an aligned human-readable table.
func (r *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "CHART\tRELEASE\tNAMESPACE\tOUTCOME\tDURATION\tREASON\n")
	for _, e := range r.Entries {
		duration := ""
		if !e.StartedAt.IsZero() && !e.FinishedAt.IsZero() {
			duration = e.FinishedAt.Sub(e.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Chart, e.Release, e.Namespace, e.Outcome, duration, e.Reason)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
