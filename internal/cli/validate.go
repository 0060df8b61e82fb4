package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newValidateCommand creates the "validate" subcommand that resolves a
// document set without touching the cluster.
func newValidateCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <documents.yaml>",
		Short: "Resolve a document set and report reference or ordering problems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := loadPlan(args[0], opts.TargetManifest)
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stdout, "manifest %q resolves: %d groups, %d charts\n",
				plan.Manifest, len(plan.Groups), len(plan.Units))
			for _, g := range plan.Groups {
				mode := "concurrent"
				if g.Sequenced {
					mode = "sequenced"
				}
				fmt.Fprintf(os.Stdout, "  group %s (%s): %d charts\n", g.Name, mode, len(g.Units))
			}
			return nil
		},
	}
}
