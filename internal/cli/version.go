package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time via -ldflags.
var version = "dev"

// newVersionCommand creates the "version" subcommand.
func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the chartctl version",
		Run: func(*cobra.Command, []string) {
			fmt.Fprintln(os.Stdout, version)
		},
	}
}
