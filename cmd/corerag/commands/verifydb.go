package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jharjadi/pro-rag/core-api-go/internal/config"
	"github.com/jharjadi/pro-rag/core-api-go/internal/db"
)

// NewVerifyDBCmd constructs `corerag verify-db`, a standalone check
// that the configured database has every table the service expects
// (useful in deploy pipelines, ahead of starting serve/run-worker).
func NewVerifyDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-db",
		Short: "Verify the database schema is present and reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			pool, err := db.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			if err := db.StartupChecks(ctx, pool); err != nil {
				return fmt.Errorf("startup checks: %w", err)
			}

			slog.Info("database schema verified")
			return nil
		},
	}
}
