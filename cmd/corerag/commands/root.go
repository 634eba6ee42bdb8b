// Package commands defines the Cobra CLI commands for the corerag binary.
package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd constructs the root Cobra command that all subcommands
// attach to (grounded on 54b3r-tfai-go's cmd/tfai/commands layout).
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "corerag",
		Short:         "corerag runs the ingestion pipeline and query API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
			slog.SetDefault(logger)
		},
	}

	root.AddCommand(
		NewServeCmd(),
		NewWorkerCmd(),
		NewMigrateCmd(),
		NewVerifyDBCmd(),
	)

	return root
}
