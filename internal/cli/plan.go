package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/codex-k8s/chartctl/internal/engine"
	"github.com/codex-k8s/chartctl/internal/helm"
	"github.com/codex-k8s/chartctl/internal/resolve"
	"github.com/codex-k8s/chartctl/internal/source"
)

// newPlanCommand creates the "plan" subcommand that shows the resolved
// deployment order and what apply would do for each chart.
func newPlanCommand(opts *Options) *cobra.Command {
	var (
		inlineSet  string
		valuesFile string
		envFiles   []string
		showDiffs  bool
	)

	cmd := &cobra.Command{
		Use:   "plan <documents.yaml>",
		Short: "Resolve a manifest and show the per-chart deployment plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := LoggerFromContext(cmd.Context())

			plan, err := loadPlan(args[0], opts.TargetManifest)
			if err != nil {
				return err
			}

			values, vars, err := buildOverrides(inlineSet, valuesFile, envFiles)
			if err != nil {
				return err
			}

			eng := engine.New(engine.Options{
				Inspector: helm.NewClient(opts.Kubeconfig, opts.KubeContext, logger),
				Fetcher:   source.NewFetcher(logger),
				Logger:    logger,
			})

			statuses := eng.Classify(cmd.Context(), plan, engine.DeployOptions{Values: values, Vars: vars})
			return writePlanStatuses(os.Stdout, plan, statuses, showDiffs)
		},
	}

	deployEnv := parseDeployEnv()
	cmd.Flags().StringVar(&inlineSet, "set", deployEnv.Values, "Value overrides in dotted key=value,key2=value2 format")
	cmd.Flags().StringVar(&valuesFile, "values-file", deployEnv.ValuesFile, "Path to a YAML file with value overrides")
	cmd.Flags().StringSliceVar(&envFiles, "env-file", deployEnv.EnvFiles, "Paths to .env-style files with dotted-key value overrides")
	cmd.Flags().BoolVar(&showDiffs, "show-values-diff", false, "Print what the override layer changes per chart")

	return cmd
}

// writePlanStatuses renders classification results as an aligned table,
// optionally followed by per-chart values diffs.
func writePlanStatuses(w io.Writer, plan *resolve.Plan, statuses []engine.UnitStatus, showDiffs bool) error {
	fmt.Fprintf(w, "manifest: %s\n\n", plan.Manifest)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ORDER\tCHART\tRELEASE\tNAMESPACE\tCLASSIFICATION\tACTION\n")
	for n, status := range statuses {
		u := status.Unit
		if status.Err != nil {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\terror\t%v\n", n+1, u.Name, u.Release, u.Namespace, status.Err)
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			n+1, u.Name, u.Release, u.Namespace, status.Classification, status.Action)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}

	if showDiffs {
		for _, status := range statuses {
			if status.ValuesDiff == "" {
				continue
			}
			fmt.Fprintf(w, "\noverrides for %s:\n%s", status.Unit.Name, status.ValuesDiff)
		}
	}
	return nil
}
