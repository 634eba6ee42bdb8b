package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jharjadi/pro-rag/core-api-go/internal/chunker"
	"github.com/jharjadi/pro-rag/core-api-go/internal/config"
	"github.com/jharjadi/pro-rag/core-api-go/internal/coordinator"
	"github.com/jharjadi/pro-rag/core-api-go/internal/db"
	"github.com/jharjadi/pro-rag/core-api-go/internal/embedding"
	"github.com/jharjadi/pro-rag/core-api-go/internal/objectstore"
	"github.com/jharjadi/pro-rag/core-api-go/internal/outbox"
	"github.com/jharjadi/pro-rag/core-api-go/internal/repository"
)

const (
	pollInterval                  = 2 * time.Second
	crashGuardQueuedTTLHours      = 6
	crashGuardRunningStaleMinutes = 30
)

// NewWorkerCmd constructs `corerag run-worker`, the ingestion worker
// pool that leases document.ingestion_requested events and runs the
// Coordinator over each.
func NewWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-worker",
		Short: "Run the ingestion worker pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context())
		},
	}
}

func runWorker(ctx context.Context) error {
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

	if err := db.RunCrashGuard(ctx, pool, crashGuardQueuedTTLHours, crashGuardRunningStaleMinutes); err != nil {
		return fmt.Errorf("crash guard: %w", err)
	}

	store, err := objectstore.NewGateway(ctx, objectstore.Config{
		Endpoint:     cfg.ObjectStoreEndpoint,
		AccessKey:    cfg.ObjectStoreAccessKey,
		SecretKey:    cfg.ObjectStoreSecret,
		Bucket:       cfg.ObjectStoreBucket,
		Region:       cfg.ObjectStoreRegion,
		UsePathStyle: cfg.ObjectStoreEndpoint != "",
	})
	if err != nil {
		return fmt.Errorf("build object store gateway: %w", err)
	}

	embedder := embedding.NewClient(cfg.EmbedEndpoint, cfg.EmbeddingsModel, cfg.EmbeddingsAPIKey)
	dispatcher := outbox.NewDispatcher(pool)

	c := &coordinator.Coordinator{
		Store:    store,
		Docs:     repository.NewDocumentRepository(pool),
		Versions: repository.NewVersionRepository(pool),
		Jobs:     repository.NewJobRepository(pool),
		Content:  repository.NewContentRepository(pool),
		Embedder: embedder,
		ChunkCfg: chunker.DefaultConfig(),
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting ingestion worker pool", "concurrency", cfg.WorkerConcurrency())
	if err := c.RunWorkerPool(shutdownCtx, dispatcher, cfg.WorkerConcurrency(), pollInterval); err != nil {
		return fmt.Errorf("worker pool: %w", err)
	}

	slog.Info("ingestion worker pool stopped")
	return nil
}
