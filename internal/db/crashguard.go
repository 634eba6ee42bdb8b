package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunCrashGuard marks stale ingestion jobs as failed and reclaims stuck
// outbox leases on startup, recovering from a worker process that died
// mid-job: at-most-once dispatch needs a way back to at-least-once
// after a crash.
//
// Three passes:
// 1. Jobs stuck in "queued" past queuedTTLHours (never leased by a worker).
// 2. Jobs stuck in "processing" past runningStaleMin with no update (worker crashed mid-run).
// 3. Outbox rows whose lease (leased_until) expired without being marked processed: requeue for redelivery.
func RunCrashGuard(ctx context.Context, pool *pgxpool.Pool, queuedTTLHours, runningStaleMin int) error {
	tag, err := pool.Exec(ctx,
		`UPDATE ingestion_jobs
		 SET status = 'failed',
		     error_code = 'internal',
		     last_error = 'job was never leased before the queued TTL elapsed (service restarted)',
		     completed_at = now(),
		     updated_at = now()
		 WHERE status = 'queued'
		   AND created_at < now() - make_interval(hours => $1)`,
		queuedTTLHours,
	)
	if err != nil {
		return fmt.Errorf("crash guard (queued jobs): %w", err)
	}
	if tag.RowsAffected() > 0 {
		slog.Warn("crash guard: marked stale queued jobs as failed",
			"count", tag.RowsAffected(),
			"ttl_hours", queuedTTLHours,
		)
	}

	tag, err = pool.Exec(ctx,
		`UPDATE ingestion_jobs
		 SET status = 'failed',
		     error_code = 'internal',
		     last_error = 'worker stopped responding while processing (no heartbeat)',
		     completed_at = now(),
		     updated_at = now()
		 WHERE status = 'processing'
		   AND updated_at < now() - make_interval(mins => $1)`,
		runningStaleMin,
	)
	if err != nil {
		return fmt.Errorf("crash guard (processing jobs): %w", err)
	}
	if tag.RowsAffected() > 0 {
		slog.Warn("crash guard: marked stale processing jobs as failed",
			"count", tag.RowsAffected(),
			"stale_minutes", runningStaleMin,
		)
	}

	tag, err = pool.Exec(ctx,
		`UPDATE event_outbox
		 SET leased_until = NULL
		 WHERE processed_at IS NULL
		   AND leased_until IS NOT NULL
		   AND leased_until < now()`,
	)
	if err != nil {
		return fmt.Errorf("crash guard (outbox leases): %w", err)
	}
	if tag.RowsAffected() > 0 {
		slog.Warn("crash guard: reclaimed expired outbox leases", "count", tag.RowsAffected())
	}

	slog.Info("crash guard complete")
	return nil
}
