package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
)

// JobRepository persists IngestionJob rows.
type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, j model.IngestionJob) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ingestion_jobs (job_id, tenant_id, doc_version_id, source_type, status, stage, attempts, max_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, now(), now())
	`, j.JobID, j.TenantID, j.DocVersionID, j.SourceType, j.Status, j.Stage, j.MaxAttempts)
	if err != nil {
		return fmt.Errorf("create ingestion job: %w", err)
	}
	return nil
}

func (r *JobRepository) Get(ctx context.Context, tenantID, jobID string) (model.IngestionJob, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT job_id, tenant_id, doc_version_id, source_type, status, stage, attempts, max_attempts,
		       last_error, error_code, started_at, completed_at, next_retry_at, created_at, updated_at
		FROM ingestion_jobs WHERE tenant_id = $1 AND job_id = $2
	`, tenantID, jobID)
	return scanJob(row)
}

// GetByVersion looks up the single job created for a document version
// (jobs are created 1:1 with a version at Init Upload time).
func (r *JobRepository) GetByVersion(ctx context.Context, tenantID, docVersionID string) (model.IngestionJob, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT job_id, tenant_id, doc_version_id, source_type, status, stage, attempts, max_attempts,
		       last_error, error_code, started_at, completed_at, next_retry_at, created_at, updated_at
		FROM ingestion_jobs WHERE tenant_id = $1 AND doc_version_id = $2
	`, tenantID, docVersionID)
	return scanJob(row)
}

func scanJob(row pgx.Row) (model.IngestionJob, error) {
	var j model.IngestionJob
	if err := row.Scan(&j.JobID, &j.TenantID, &j.DocVersionID, &j.SourceType, &j.Status, &j.Stage,
		&j.Attempts, &j.MaxAttempts, &j.LastError, &j.ErrorCode, &j.StartedAt, &j.CompletedAt,
		&j.NextRetryAt, &j.CreatedAt, &j.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.IngestionJob{}, ErrNotFound
		}
		return model.IngestionJob{}, fmt.Errorf("scan ingestion job: %w", err)
	}
	return j, nil
}

// Save persists the full row produced by jobs.Advance, used as the
// single write point after every state transition.
func (r *JobRepository) Save(ctx context.Context, j model.IngestionJob) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ingestion_jobs SET
			status = $2, stage = $3, attempts = $4, last_error = $5, error_code = $6,
			started_at = $7, completed_at = $8, next_retry_at = $9, updated_at = now()
		WHERE job_id = $1
	`, j.JobID, j.Status, j.Stage, j.Attempts, j.LastError, j.ErrorCode,
		j.StartedAt, j.CompletedAt, j.NextRetryAt)
	if err != nil {
		return fmt.Errorf("save ingestion job: %w", err)
	}
	return nil
}

// CancelNonTerminalForDocument fails every non-terminal job belonging
// to any version of docID, the way jobs.Advance's EventDocumentDeleted
// transition would for a single row, so a delete takes effect even if
// the coordinator never gets a chance to lazily observe it.
func (r *JobRepository) CancelNonTerminalForDocument(ctx context.Context, tenantID, docID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ingestion_jobs SET
			status = $3, error_code = $4, last_error = $5, completed_at = now(), updated_at = now()
		WHERE tenant_id = $1
		  AND doc_version_id IN (SELECT doc_version_id FROM document_versions WHERE doc_id = $2 AND tenant_id = $1)
		  AND status NOT IN ($6, $3, $7)
	`, tenantID, docID, model.JobStatusFailed, model.ErrDocumentDeleted,
		"document deleted", model.JobStatusDone, model.JobStatusCancelled)
	if err != nil {
		return fmt.Errorf("cancel non-terminal jobs for document: %w", err)
	}
	return nil
}

// ListRetryReady finds retry_ready rows whose retry window has
// elapsed, for the dispatcher to re-queue.
func (r *JobRepository) ListRetryReady(ctx context.Context, limit int) ([]model.IngestionJob, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT job_id, tenant_id, doc_version_id, source_type, status, stage, attempts, max_attempts,
		       last_error, error_code, started_at, completed_at, next_retry_at, created_at, updated_at
		FROM ingestion_jobs
		WHERE status = $1 AND next_retry_at <= now()
		ORDER BY next_retry_at
		LIMIT $2
	`, model.JobStatusRetryReady, limit)
	if err != nil {
		return nil, fmt.Errorf("list retry-ready jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.IngestionJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
