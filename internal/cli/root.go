// Package cli defines the command-line interface for chartctl.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/codex-k8s/chartctl/internal/logging"
)

// Options stores global CLI options shared between commands.
type Options struct {
	TargetManifest string
	Kubeconfig     string
	KubeContext    string
	LogLevel       logging.Level
}

// Execute builds the root command, runs it with the provided args and logger, and returns any error.
func Execute(args []string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}

	rootOpts := &Options{
		LogLevel: logging.LevelInfo,
	}
	applyEnvDefaults(rootOpts)

	rootCmd := newRootCommand(rootOpts, logger)
	rootCmd.SetArgs(args)

	return rootCmd.Execute()
}

// newRootCommand constructs the root cobra.Command with global flags and subcommands.
func newRootCommand(opts *Options, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chartctl",
		Short: "chartctl is a declarative chart deployment orchestrator",
		Long: "chartctl deploys groups of packaged charts onto a cluster from a manifest of " +
			"cross-referencing documents, deciding per chart whether to install, upgrade or skip.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := logging.ParseLevel(cmd.Flag("log-level").Value.String())
			opts.LogLevel = level
			logger = logging.NewLogger(os.Stderr, level)
			cmd.SetContext(context.WithValue(cmd.Context(), loggerKey{}, logger))
			logger.Debug("logger initialized", "level", level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.TargetManifest, "target-manifest", opts.TargetManifest, "Manifest name to deploy when the document set contains several")
	cmd.PersistentFlags().StringVar(&opts.Kubeconfig, "kubeconfig", opts.Kubeconfig, "Path to the kubeconfig file")
	cmd.PersistentFlags().StringVar(&opts.KubeContext, "kube-context", opts.KubeContext, "Kubeconfig context to use")
	cmd.PersistentFlags().String("log-level", levelFlagDefault(opts.LogLevel), "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newApplyCommand(opts),
		newPlanCommand(opts),
		newValidateCommand(opts),
		newVersionCommand(),
	)

	return cmd
}

// levelFlagDefault renders a Level back to its flag spelling.
func levelFlagDefault(level logging.Level) string {
	switch level {
	case logging.LevelDebug:
		return "debug"
	case logging.LevelWarn:
		return "warn"
	case logging.LevelError:
		return "error"
	default:
		return "info"
	}
}

// loggerKey is a private context key used to store a logger in command contexts.
type loggerKey struct{}

// LoggerFromContext extracts a logger from the context or falls back to a default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return logging.NewLogger(os.Stderr, logging.LevelInfo)
}
