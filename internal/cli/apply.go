package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codex-k8s/chartctl/internal/actions"
	"github.com/codex-k8s/chartctl/internal/engine"
	"github.com/codex-k8s/chartctl/internal/helm"
	"github.com/codex-k8s/chartctl/internal/kube"
	"github.com/codex-k8s/chartctl/internal/source"
)

// newApplyCommand creates the "apply" subcommand that deploys a manifest to a cluster.
func newApplyCommand(opts *Options) *cobra.Command {
	var (
		concurrency int
		inlineSet   string
		valuesFile  string
		envFiles    []string
		output      string
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "apply <documents.yaml>",
		Short: "Deploy the charts of a manifest, installing, upgrading or skipping each",
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
			deployOpts := engine.DeployOptions{Values: values, Vars: vars}

			helmClient := helm.NewClient(opts.Kubeconfig, opts.KubeContext, logger)
			fetcher := source.NewFetcher(logger)

			if dryRun {
				eng := engine.New(engine.Options{
					Inspector: helmClient,
					Fetcher:   fetcher,
					Logger:    logger,
				})
				statuses := eng.Classify(cmd.Context(), plan, deployOpts)
				return writePlanStatuses(os.Stdout, plan, statuses, false)
			}

			kubeClient, err := kube.NewClient(opts.Kubeconfig, opts.KubeContext)
			if err != nil {
				return err
			}

			eng := engine.New(engine.Options{
				Inspector:   helmClient,
				Fetcher:     fetcher,
				Applier:     helmClient,
				Actions:     actions.NewExecutor(kubeClient, logger),
				Logger:      logger,
				Concurrency: concurrency,
			})

			rep := eng.Deploy(cmd.Context(), plan, deployOpts)

			if output == "yaml" {
				if err := rep.WriteYAML(os.Stdout); err != nil {
					return err
				}
			} else {
				if err := rep.WriteText(os.Stdout); err != nil {
					return err
				}
			}

			if rep.Failed() {
				return fmt.Errorf("deployment of manifest %q finished with failures", plan.Manifest)
			}
			return nil
		},
	}

	deployEnv := parseDeployEnv()
	cmd.Flags().IntVar(&concurrency, "concurrency", deployEnv.Concurrency, "Maximum number of charts deploying at once (0 = default)")
	cmd.Flags().StringVar(&inlineSet, "set", deployEnv.Values, "Value overrides in dotted key=value,key2=value2 format")
	cmd.Flags().StringVar(&valuesFile, "values-file", deployEnv.ValuesFile, "Path to a YAML file with value overrides")
	cmd.Flags().StringSliceVar(&envFiles, "env-file", deployEnv.EnvFiles, "Paths to .env-style files with dotted-key value overrides")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Report format (text, yaml)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Classify charts without mutating the cluster")

	return cmd
}
