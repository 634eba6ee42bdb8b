// Package coordinator implements the ingestion orchestration invoked
// by the outbox dispatcher for one leased job at a time.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jharjadi/pro-rag/core-api-go/internal/chunker"
	"github.com/jharjadi/pro-rag/core-api-go/internal/jobs"
	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
	"github.com/jharjadi/pro-rag/core-api-go/internal/parser"
	"github.com/jharjadi/pro-rag/core-api-go/internal/quality"
)

// objectDownloader is the subset of objectstore.Gateway Process needs.
type objectDownloader interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// documentStore is the subset of repository.DocumentRepository Process needs.
type documentStore interface {
	Get(ctx context.Context, tenantID, docID string) (model.Document, error)
}

// versionStore is the subset of repository.VersionRepository Process needs.
type versionStore interface {
	Get(ctx context.Context, tenantID, docVersionID string) (model.DocumentVersion, error)
	Activate(ctx context.Context, tenantID, docID, docVersionID string) error
}

// jobStore is the subset of repository.JobRepository the coordinator needs.
type jobStore interface {
	Get(ctx context.Context, tenantID, jobID string) (model.IngestionJob, error)
	Save(ctx context.Context, j model.IngestionJob) error
	ListRetryReady(ctx context.Context, limit int) ([]model.IngestionJob, error)
}

// contentStore is the subset of repository.ContentRepository Process needs.
type contentStore interface {
	ReplacePages(ctx context.Context, docVersionID string, pages []model.DocumentPage) error
	ReplaceChunks(ctx context.Context, docVersionID string, chunks []model.DocumentChunk, newChunkID func() string) ([]model.DocumentChunk, error)
	ReplaceEmbeddings(ctx context.Context, chunkIDs []string, embeddings []model.ChunkEmbedding) error
}

// embedder is the subset of embedding.Client Process needs.
type embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]model.ChunkEmbedding, error)
}

// Coordinator wires the object store, parsers, quality gates,
// chunker, embedder, state machine, and repositories together for one
// job. Its
// dependencies are declared as interfaces so Process can be exercised
// with fakes in tests.
type Coordinator struct {
	Store    objectDownloader
	Docs     documentStore
	Versions versionStore
	Jobs     jobStore
	Content  contentStore
	Embedder embedder
	ChunkCfg chunker.Config
}

// HandleOutboxEvent decodes a document.ingestion_requested payload,
// leases the referenced job via the state machine, and runs Process.
// It is the handler passed to outbox.Dispatcher.Run.
func (c *Coordinator) HandleOutboxEvent(ctx context.Context, e model.EventOutbox) error {
	var payload model.IngestionRequestedPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return fmt.Errorf("decode ingestion_requested payload: %w", err)
	}

	job, err := c.Jobs.Get(ctx, payload.Payload.TenantID, payload.Payload.JobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", payload.Payload.JobID, err)
	}

	job, _ = jobs.Advance(job, jobs.EventDispatcherLease, time.Now(), "", "")
	if err := c.Jobs.Save(ctx, job); err != nil {
		return fmt.Errorf("save leased job: %w", err)
	}

	return c.Process(ctx, job)
}

// Process runs the full parse -> gate -> chunk -> embed sequence for
// one leased job, advancing and persisting the state machine at each
// boundary.
func (c *Coordinator) Process(ctx context.Context, job model.IngestionJob) error {
	version, err := c.Versions.Get(ctx, job.TenantID, job.DocVersionID)
	if err != nil {
		return c.terminalFail(ctx, job, model.ErrInternal, fmt.Sprintf("load version: %v", err))
	}

	doc, err := c.Docs.Get(ctx, job.TenantID, version.DocID)
	if err != nil {
		return c.terminalFail(ctx, job, model.ErrInternal, fmt.Sprintf("load document: %v", err))
	}
	if doc.Status != model.DocumentStatusActive {
		return c.documentDeleted(ctx, job)
	}

	data, err := c.Store.Download(ctx, version.ObjectKey)
	if err != nil {
		return c.classifiedFail(ctx, job, err)
	}

	p, err := parser.Route(version.MimeType, string(job.SourceType))
	if err != nil {
		return c.terminalFail(ctx, job, model.ErrUnsupportedFormat, err.Error())
	}

	result, err := p.Parse(data)
	if err != nil {
		return c.classifiedFail(ctx, job, err)
	}

	qualityPages := make([]quality.Page, len(result.Pages))
	pages := make([]model.DocumentPage, len(result.Pages))
	for i, pg := range result.Pages {
		qualityPages[i] = quality.Page{Text: pg.Text}
		pages[i] = model.DocumentPage{
			DocVersionID: job.DocVersionID,
			PageNumber:   pg.PageNumber,
			Text:         pg.Text,
			CharCount:    len(pg.Text),
		}
	}

	verdict := quality.Evaluate(qualityPages)
	if !verdict.Pass {
		return c.terminalFail(ctx, job, verdict.ErrorCode, "quality gate failed")
	}

	if err := c.Content.ReplacePages(ctx, job.DocVersionID, pages); err != nil {
		return c.classifiedFail(ctx, job, err)
	}

	job, err = c.advance(ctx, job, jobs.EventParseOK)
	if err != nil {
		return err
	}

	if deleted, err := c.checkDocumentDeleted(ctx, job, version.DocID); err != nil {
		return err
	} else if deleted {
		return nil
	}

	chunks := chunker.Chunk(job.TenantID, job.DocVersionID, pages, c.ChunkCfg)
	persistedChunks, err := c.Content.ReplaceChunks(ctx, job.DocVersionID, chunks, uuid.NewString)
	if err != nil {
		return c.classifiedFail(ctx, job, err)
	}

	job, err = c.advance(ctx, job, jobs.EventChunkOK)
	if err != nil {
		return err
	}

	if deleted, err := c.checkDocumentDeleted(ctx, job, version.DocID); err != nil {
		return err
	} else if deleted {
		return nil
	}

	texts := make([]string, len(persistedChunks))
	chunkIDs := make([]string, len(persistedChunks))
	for i, ch := range persistedChunks {
		texts[i] = ch.Text
		chunkIDs[i] = ch.ChunkID
	}

	embeddings, err := c.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return c.classifiedFail(ctx, job, err)
	}

	if err := c.Content.ReplaceEmbeddings(ctx, chunkIDs, embeddings); err != nil {
		return c.classifiedFail(ctx, job, err)
	}

	job, err = c.advance(ctx, job, jobs.EventEmbeddingsCommitted)
	if err != nil {
		return err
	}

	if err := c.Versions.Activate(ctx, job.TenantID, version.DocID, job.DocVersionID); err != nil {
		return fmt.Errorf("activate version %s: %w", job.DocVersionID, err)
	}

	job.Metrics = map[string]interface{}{
		"page_count":  len(pages),
		"chunk_count": len(persistedChunks),
		"total_words": result.WordCount,
		"parser_used": result.ParserName,
	}
	return c.Jobs.Save(ctx, job)
}

func (c *Coordinator) advance(ctx context.Context, job model.IngestionJob, event jobs.Event) (model.IngestionJob, error) {
	next, _ := jobs.Advance(job, event, time.Now(), "", "")
	if err := c.Jobs.Save(ctx, next); err != nil {
		return next, fmt.Errorf("save job after %s: %w", event, err)
	}
	return next, nil
}

// classifiedFail runs the raw error through the quality classifier
// and routes to retry-or-fail depending on the resulting code's
// retryability and the job's remaining attempts. An error that
// reports its own retryability (an objectstore.Error) overrides the
// classifier's verdict; a retryable one the classifier maps to a
// terminal code is recorded as internal.
func (c *Coordinator) classifiedFail(ctx context.Context, job model.IngestionJob, cause error) error {
	code := quality.Classify(cause.Error())
	retryable := code.Retryable()
	var kinded interface{ Retryable() bool }
	if errors.As(cause, &kinded) {
		retryable = kinded.Retryable()
		if retryable && !code.Retryable() {
			code = model.ErrInternal
		}
	}
	event := jobs.EventTerminalError
	if retryable {
		event = jobs.EventRetryableError
	}
	next, _ := jobs.Advance(job, event, time.Now(), code, cause.Error())
	if err := c.Jobs.Save(ctx, next); err != nil {
		return fmt.Errorf("save job after classified failure: %w", err)
	}
	if event == jobs.EventRetryableError && next.Status == model.JobStatusRetryReady {
		slog.Info("job scheduled for retry", "job_id", job.JobID, "error_code", code, "next_retry_at", next.NextRetryAt)
		return nil
	}
	return fmt.Errorf("job %s failed: %s: %w", job.JobID, code, cause)
}

func (c *Coordinator) terminalFail(ctx context.Context, job model.IngestionJob, code model.ErrorCode, msg string) error {
	next, _ := jobs.Advance(job, jobs.EventTerminalError, time.Now(), code, msg)
	if err := c.Jobs.Save(ctx, next); err != nil {
		return fmt.Errorf("save job after terminal failure: %w", err)
	}
	return fmt.Errorf("job %s failed: %s: %s", job.JobID, code, msg)
}

func (c *Coordinator) documentDeleted(ctx context.Context, job model.IngestionJob) error {
	next, _ := jobs.Advance(job, jobs.EventDocumentDeleted, time.Now(), "", "")
	return c.Jobs.Save(ctx, next)
}

// checkDocumentDeleted re-reads document status at a stage boundary
// so an in-flight job observes deletion promptly rather than only at
// the start.
func (c *Coordinator) checkDocumentDeleted(ctx context.Context, job model.IngestionJob, docID string) (bool, error) {
	doc, err := c.Docs.Get(ctx, job.TenantID, docID)
	if err != nil {
		return false, fmt.Errorf("recheck document status: %w", err)
	}
	if doc.Status != model.DocumentStatusActive {
		return true, c.documentDeleted(ctx, job)
	}
	return false, nil
}
