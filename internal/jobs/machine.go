// Package jobs implements the ingestion job state machine as a pure
// function over (row, event) -> (row, intent); all persistence and
// timing side effects live outside the package.
package jobs

import (
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
)

// Event is an input to Advance.
type Event string

const (
	EventUploadComplete       Event = "upload_complete"
	EventDispatcherLease      Event = "dispatcher_lease"
	EventParseOK              Event = "parse_ok"
	EventChunkOK              Event = "chunk_ok"
	EventEmbeddingsCommitted  Event = "embeddings_committed"
	EventRetryableError       Event = "retryable_error"
	EventTerminalError        Event = "terminal_error"
	EventRetryWindowReached   Event = "retry_window_reached"
	EventDocumentDeleted      Event = "document_deleted"
)

// IntentKind tells the caller what side effect Advance decided on;
// Advance itself performs no I/O.
type IntentKind string

const (
	IntentNone          IntentKind = "none"
	IntentScheduleRetry IntentKind = "schedule_retry"
	IntentDispatch      IntentKind = "dispatch" // retry window reached, re-lease immediately
)

// Intent describes the side effect the caller should perform after
// persisting the returned row.
type Intent struct {
	Kind IntentKind
}

const (
	backoffBase    = 30 * time.Second
	backoffMaxIval = 30 * time.Minute
)

// Advance computes the next job row and side-effect intent for one
// event. now is injected so the function stays pure and testable. errorCode/errorMsg are only
// consulted for error events.
func Advance(row model.IngestionJob, event Event, now time.Time, errorCode model.ErrorCode, errorMsg string) (model.IngestionJob, Intent) {
	next := row
	next.UpdatedAt = now

	switch event {
	case EventUploadComplete:
		if next.Status == model.JobStatusQueued && next.Stage == model.StagePendingUpload {
			next.Stage = model.StageUploaded
		}
		return next, Intent{Kind: IntentNone}

	case EventDispatcherLease:
		next.Attempts++
		if next.StartedAt == nil {
			next.StartedAt = &now
		}
		next.Status = model.JobStatusProcessing
		next.Stage = model.StageParsing
		return next, Intent{Kind: IntentNone}

	case EventParseOK:
		if next.Status == model.JobStatusProcessing && next.Stage == model.StageParsing {
			next.Stage = model.StageChunking
		}
		return next, Intent{Kind: IntentNone}

	case EventChunkOK:
		if next.Status == model.JobStatusProcessing && next.Stage == model.StageChunking {
			next.Stage = model.StageEmbedding
		}
		return next, Intent{Kind: IntentNone}

	case EventEmbeddingsCommitted:
		next.Status = model.JobStatusDone
		next.CompletedAt = &now
		return next, Intent{Kind: IntentNone}

	case EventRetryableError:
		next.LastError = errorMsg
		next.ErrorCode = errorCode
		if next.Attempts < next.MaxAttempts {
			next.Status = model.JobStatusRetryReady
			retryAt := nextRetryAt(next.Attempts, now)
			next.NextRetryAt = &retryAt
			return next, Intent{Kind: IntentScheduleRetry}
		}
		next.Status = model.JobStatusFailed
		next.CompletedAt = &now
		return next, Intent{Kind: IntentNone}

	case EventTerminalError:
		next.Status = model.JobStatusFailed
		next.ErrorCode = errorCode
		next.LastError = errorMsg
		next.CompletedAt = &now
		return next, Intent{Kind: IntentNone}

	case EventRetryWindowReached:
		if next.Status == model.JobStatusRetryReady {
			// Re-entry after backoff is a lease like any other, so it
			// counts against max_attempts.
			next.Attempts++
			next.Status = model.JobStatusProcessing
			next.NextRetryAt = nil
			return next, Intent{Kind: IntentDispatch}
		}
		return next, Intent{Kind: IntentNone}

	case EventDocumentDeleted:
		next.Status = model.JobStatusFailed
		next.ErrorCode = model.ErrDocumentDeleted
		next.CompletedAt = &now
		return next, Intent{Kind: IntentNone}
	}

	return next, Intent{Kind: IntentNone}
}

// nextRetryAt drives cenkalti/backoff's exponential policy forward to
// the given attempt count to get base*2^(attempts-1) capped at
// backoffMaxIval, then adds a small jitter on top to avoid a
// thundering herd when a provider recovers.
func nextRetryAt(attempts int, now time.Time) time.Time {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = backoffBase
	b.Multiplier = 2
	b.MaxInterval = backoffMaxIval
	b.RandomizationFactor = 0
	b.Reset()

	interval := backoffBase
	for i := 0; i < attempts; i++ {
		interval = b.NextBackOff()
	}

	jitter := time.Duration(rand.Int63n(int64(5 * time.Second)))
	return now.Add(interval + jitter)
}
