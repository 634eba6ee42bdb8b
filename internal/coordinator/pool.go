package coordinator

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jharjadi/pro-rag/core-api-go/internal/jobs"
	"github.com/jharjadi/pro-rag/core-api-go/internal/outbox"
)

const retryPollBatchSize = 20

// RunWorkerPool starts concurrency independent polling loops against
// dispatcher, each leasing and processing one outbox event at a time,
// bounding in-flight outbox-driven work to concurrency. It also
// starts a single retry poller, which runs Process outside that bound,
// that resumes jobs parked in retry_ready once their backoff window
// elapses:
// the outbox dispatcher only ever sees the original
// document.ingestion_requested event once, so nothing else re-drives
// a job that failed mid-pipeline with a retryable error.
// It blocks until ctx is cancelled.
func (c *Coordinator) RunWorkerPool(ctx context.Context, dispatcher *outbox.Dispatcher, concurrency int, pollInterval time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < concurrency; i++ {
		workerID := i
		g.Go(func() error {
			slog.Info("ingestion worker started", "worker_id", workerID)
			dispatcher.Run(gctx, pollInterval, 1, c.HandleOutboxEvent)
			slog.Info("ingestion worker stopped", "worker_id", workerID)
			return nil
		})
	}

	g.Go(func() error {
		slog.Info("retry poller started")
		c.runRetryPoller(gctx, pollInterval)
		slog.Info("retry poller stopped")
		return nil
	})

	return g.Wait()
}

// runRetryPoller ticks at interval, advancing every retry_ready job
// whose backoff window has elapsed back to processing via
// EventRetryWindowReached and re-invoking Process, the same way
// HandleOutboxEvent re-invokes Process after EventDispatcherLease.
func (c *Coordinator) runRetryPoller(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.pollRetryReady(ctx); err != nil {
				slog.Error("retry poll failed", "error", err)
			}
		}
	}
}

func (c *Coordinator) pollRetryReady(ctx context.Context) error {
	ready, err := c.Jobs.ListRetryReady(ctx, retryPollBatchSize)
	if err != nil {
		return err
	}

	for _, job := range ready {
		next, intent := jobs.Advance(job, jobs.EventRetryWindowReached, time.Now(), "", "")
		if intent.Kind != jobs.IntentDispatch {
			continue
		}
		if err := c.Jobs.Save(ctx, next); err != nil {
			slog.Error("save retried job failed", "job_id", next.JobID, "error", err)
			continue
		}
		if err := c.Process(ctx, next); err != nil {
			slog.Warn("retried job processing failed", "job_id", next.JobID, "error", err)
		}
	}

	return nil
}
