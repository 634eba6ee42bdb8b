// Package outbox implements the durable FIFO-ish event queue that
// decouples upload completion from ingestion dispatch.
package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
)

const (
	defaultVisibilityTimeout = 2 * time.Minute
	defaultMaxAttempts       = 5
)

// Dispatcher leases and completes outbox rows against Postgres.
type Dispatcher struct {
	pool              *pgxpool.Pool
	visibilityTimeout time.Duration
}

// NewDispatcher creates a Dispatcher bound to pool.
func NewDispatcher(pool *pgxpool.Pool) *Dispatcher {
	return &Dispatcher{pool: pool, visibilityTimeout: defaultVisibilityTimeout}
}

// Enqueue inserts a new outbox row for tenantID/eventType with the
// given JSON payload.
func (d *Dispatcher) Enqueue(ctx context.Context, eventID, tenantID, eventType string, payload []byte) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO event_outbox (event_id, tenant_id, event_type, payload, created_at, attempts, max_attempts, next_retry_at)
		VALUES ($1, $2, $3, $4, now(), 0, $5, now())
	`, eventID, tenantID, eventType, payload, defaultMaxAttempts)
	if err != nil {
		return fmt.Errorf("enqueue outbox event: %w", err)
	}
	return nil
}

// Lease atomically claims up to limit unprocessed, visible, non-poison
// rows ordered by created_at, by writing a lease expiry that hides
// them from other pollers until it elapses.
func (d *Dispatcher) Lease(ctx context.Context, limit int) ([]model.EventOutbox, error) {
	leaseUntil := time.Now().Add(d.visibilityTimeout)
	rows, err := d.pool.Query(ctx, `
		UPDATE event_outbox
		SET leased_until = $1
		WHERE event_id IN (
			SELECT event_id FROM event_outbox
			WHERE processed_at IS NULL
			  AND next_retry_at <= now()
			  AND attempts < max_attempts
			  AND (leased_until IS NULL OR leased_until < now())
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING event_id, tenant_id, event_type, payload, created_at, processed_at,
		          attempts, max_attempts, last_error, next_retry_at, leased_until
	`, leaseUntil, limit)
	if err != nil {
		return nil, fmt.Errorf("lease outbox rows: %w", err)
	}
	defer rows.Close()

	var leased []model.EventOutbox
	for rows.Next() {
		var e model.EventOutbox
		if err := rows.Scan(&e.EventID, &e.TenantID, &e.EventType, &e.Payload, &e.CreatedAt,
			&e.ProcessedAt, &e.Attempts, &e.MaxAttempts, &e.LastError, &e.NextRetryAt, &e.LeasedUntil); err != nil {
			return nil, fmt.Errorf("scan leased outbox row: %w", err)
		}
		leased = append(leased, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leased outbox rows: %w", err)
	}
	return leased, nil
}

// Complete marks a row permanently processed.
func (d *Dispatcher) Complete(ctx context.Context, eventID string) error {
	_, err := d.pool.Exec(ctx, `UPDATE event_outbox SET processed_at = now() WHERE event_id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("complete outbox event: %w", err)
	}
	return nil
}

// Fail increments attempts and schedules a retry, or leaves the row
// as a poison message (attempts >= max_attempts, processed_at still
// NULL, no longer polled) once exhausted.
func (d *Dispatcher) Fail(ctx context.Context, eventID string, retryAt time.Time, errMsg string) error {
	_, err := d.pool.Exec(ctx, `
		UPDATE event_outbox
		SET attempts = attempts + 1, next_retry_at = $2, last_error = $3, leased_until = NULL
		WHERE event_id = $1
	`, eventID, retryAt, errMsg)
	if err != nil {
		return fmt.Errorf("fail outbox event: %w", err)
	}
	return nil
}

// PollOnce leases up to limit rows and invokes handle for each,
// completing or failing based on the returned error. It returns the
// number of rows leased.
func (d *Dispatcher) PollOnce(ctx context.Context, limit int, handle func(context.Context, model.EventOutbox) error) (int, error) {
	leased, err := d.Lease(ctx, limit)
	if err != nil {
		return 0, err
	}

	for _, e := range leased {
		if err := handle(ctx, e); err != nil {
			slog.Warn("outbox handler failed", "event_id", e.EventID, "event_type", e.EventType, "error", err)
			retryAt := time.Now().Add(backoffForAttempt(e.Attempts + 1))
			if failErr := d.Fail(ctx, e.EventID, retryAt, err.Error()); failErr != nil {
				slog.Error("failed to record outbox failure", "event_id", e.EventID, "error", failErr)
			}
			continue
		}
		if err := d.Complete(ctx, e.EventID); err != nil {
			slog.Error("failed to mark outbox event complete", "event_id", e.EventID, "error", err)
		}
	}

	return len(leased), nil
}

func backoffForAttempt(attempt int) time.Duration {
	interval := 30 * time.Second
	for i := 1; i < attempt; i++ {
		interval *= 2
		if interval > 30*time.Minute {
			return 30 * time.Minute
		}
	}
	return interval
}

// Run polls in a loop at interval until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration, batchSize int, handle func(context.Context, model.EventOutbox) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.PollOnce(ctx, batchSize, handle); err != nil {
				slog.Error("outbox poll failed", "error", err)
			}
		}
	}
}
