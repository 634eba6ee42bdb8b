package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/jharjadi/pro-rag/core-api-go/internal/config"
	"github.com/jharjadi/pro-rag/core-api-go/internal/db"
	"github.com/jharjadi/pro-rag/core-api-go/migrations"
)

// NewMigrateCmd constructs `corerag migrate up|down`, applying the
// embedded schema migrations against DATABASE_URL.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database schema migrations",
	}
	cmd.AddCommand(newMigrateUpCmd(), newMigrateDownCmd())
	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := newMigrator(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("apply migrations: %w", err)
			}
			slog.Info("migrations applied")
			return nil
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := newMigrator(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("roll back migration: %w", err)
			}
			slog.Info("migration rolled back")
			return nil
		},
	}
}

// newMigrator opens a dedicated pgxpool for the migration run (separate
// from the application pool) and wraps it via stdlib so golang-migrate's
// database/sql-based pgx driver can drive it.
func newMigrator(ctx context.Context) (*migrate.Migrate, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	conn := stdlib.OpenDBFromPool(pool)
	closeFn := func() {
		conn.Close()
		pool.Close()
	}

	var driver database.Driver
	driver, err = pgxmigrate.WithInstance(conn, &pgxmigrate.Config{})
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("build migrate driver: %w", err)
	}

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("open embedded migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx", driver)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("build migrator: %w", err)
	}

	return m, closeFn, nil
}
