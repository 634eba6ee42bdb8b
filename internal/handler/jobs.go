package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	authmw "github.com/jharjadi/pro-rag/core-api-go/internal/middleware"
	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
	"github.com/jharjadi/pro-rag/core-api-go/internal/repository"
)

// JobHandler exposes ingestion job status.
type JobHandler struct {
	jobs *repository.JobRepository
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(pool *pgxpool.Pool) *JobHandler {
	return &JobHandler{jobs: repository.NewJobRepository(pool)}
}

// Get handles GET /v1/jobs/:id
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := authmw.TenantIDFromContext(ctx)
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "tenant_id is required")
		return
	}
	jobID := chi.URLParam(r, "id")

	job, err := h.jobs.Get(ctx, tenantID, jobID)
	if err != nil {
		if err == repository.ErrNotFound {
			writeError(w, http.StatusNotFound, "not_found", "ingestion job not found")
			return
		}
		slog.Error("get ingestion job failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to get ingestion job")
		return
	}

	writeJSON(w, http.StatusOK, model.JobDetailResponse{
		JobID:       job.JobID,
		Status:      string(job.Status),
		Stage:       string(job.Stage),
		Attempts:    job.Attempts,
		MaxAttempts: job.MaxAttempts,
		ErrorCode:   string(job.ErrorCode),
		LastError:   job.LastError,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		NextRetryAt: job.NextRetryAt,
	})
}
