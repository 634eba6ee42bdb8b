package handler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jharjadi/pro-rag/core-api-go/internal/config"
	"github.com/jharjadi/pro-rag/core-api-go/internal/jobs"
	authmw "github.com/jharjadi/pro-rag/core-api-go/internal/middleware"
	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
	"github.com/jharjadi/pro-rag/core-api-go/internal/objectstore"
	"github.com/jharjadi/pro-rag/core-api-go/internal/outbox"
	"github.com/jharjadi/pro-rag/core-api-go/internal/repository"
)

const presignedUploadTTL = 15 * time.Minute

var sourceTypeByMime = map[string]model.SourceType{
	"application/pdf": model.SourcePDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": model.SourceDOCX,
	"application/msword": model.SourceDOC,
	"text/plain":         model.SourceTXT,
	"text/csv":           model.SourceCSV,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": model.SourceXLSX,
	"application/vnd.ms-excel":                                          model.SourceXLS,
	"text/html":                                                         model.SourceHTML,
}

var sourceTypeByExtension = map[string]model.SourceType{
	".pdf":  model.SourcePDF,
	".docx": model.SourceDOCX,
	".doc":  model.SourceDOC,
	".txt":  model.SourceTXT,
	".csv":  model.SourceCSV,
	".xlsx": model.SourceXLSX,
	".xls":  model.SourceXLS,
	".html": model.SourceHTML,
	".htm":  model.SourceHTML,
}

// inferSourceType resolves the document's format family from the
// declared content type, falling back to the filename extension when
// the declared type is missing or generic (e.g. a browser sending
// application/octet-stream for a .csv).
func inferSourceType(contentType, filename string) (model.SourceType, bool) {
	if st, ok := sourceTypeByMime[contentType]; ok {
		return st, true
	}
	st, ok := sourceTypeByExtension[strings.ToLower(path.Ext(filename))]
	return st, ok
}

// sniffAgainstDeclared maps a content-sniffed MIME type onto the
// supported source-type set, walking the detected type's parent chain
// (a .txt that happens to look tabular sniffs as text/csv with parent
// text/plain, which still matches a declared txt). It returns the most
// specific supported type found, and false only when the chain holds
// a supported type but never the declared one; content whose chain
// holds no supported type at all passes with an empty type.
func sniffAgainstDeclared(detected *mimetype.MIME, declared model.SourceType) (model.SourceType, bool) {
	var sniffed model.SourceType
	found := false
	for m := detected; m != nil; m = m.Parent() {
		st, ok := sourceTypeByMime[m.String()]
		if !ok {
			continue
		}
		if !found {
			sniffed = st
			found = true
		}
		if st == declared {
			return sniffed, true
		}
	}
	return sniffed, !found
}

// UploadHandler implements the presigned-URL upload protocol: Init
// Upload reserves a document/version/job and hands back a presigned
// PUT URL; Complete Upload materializes the version and enqueues the
// ingestion event.
type UploadHandler struct {
	cfg        *config.Config
	store      *objectstore.Gateway
	docs       *repository.DocumentRepository
	versions   *repository.VersionRepository
	jobs       *repository.JobRepository
	dispatcher *outbox.Dispatcher
}

// NewUploadHandler creates an UploadHandler.
func NewUploadHandler(cfg *config.Config, pool *pgxpool.Pool, store *objectstore.Gateway) *UploadHandler {
	return &UploadHandler{
		cfg:        cfg,
		store:      store,
		docs:       repository.NewDocumentRepository(pool),
		versions:   repository.NewVersionRepository(pool),
		jobs:       repository.NewJobRepository(pool),
		dispatcher: outbox.NewDispatcher(pool),
	}
}

type initUploadRequest struct {
	Title       string `json:"title"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

type initUploadResponse struct {
	DocumentID string `json:"documentId"`
	VersionID  string `json:"versionId"`
	JobID      string `json:"jobId"`
	ObjectKey  string `json:"objectKey"`
	UploadURL  string `json:"uploadUrl"`
	ExpiresIn  int    `json:"expiresIn"`
}

// InitUpload handles POST /v1/documents:init-upload.
func (h *UploadHandler) InitUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := authmw.TenantIDFromContext(ctx)
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "tenant_id is required")
		return
	}
	userID := authmw.UserIDFromContext(ctx)

	var req initUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.Filename == "" || req.ContentType == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "filename and contentType are required")
		return
	}

	sourceType, ok := inferSourceType(req.ContentType, req.Filename)
	if !ok {
		writeError(w, http.StatusBadRequest, "unsupported_format", fmt.Sprintf("unsupported content type: %s", req.ContentType))
		return
	}

	title := req.Title
	if title == "" {
		title = req.Filename
	}

	docID := uuid.New().String()
	versionID := uuid.New().String()
	jobID := uuid.New().String()

	if err := h.docs.Create(r.Context(), model.Document{
		DocID:      docID,
		TenantID:   tenantID,
		Title:      title,
		Filename:   req.Filename,
		Status:     model.DocumentStatusActive,
		UploaderID: userID,
	}); err != nil {
		slog.Error("create document failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to create document")
		return
	}

	objectKey := objectstore.GenerateKey(tenantID, docID, 1)
	versionNumber, err := h.versions.Reserve(ctx, model.DocumentVersion{
		DocVersionID: versionID,
		DocID:        docID,
		TenantID:     tenantID,
		ObjectKey:    objectKey,
		MimeType:     req.ContentType,
	})
	if err != nil {
		slog.Error("reserve document version failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to reserve document version")
		return
	}
	_ = versionNumber // version 1 by construction for a freshly created document

	if err := h.jobs.Create(ctx, model.IngestionJob{
		JobID:        jobID,
		TenantID:     tenantID,
		DocVersionID: versionID,
		SourceType:   sourceType,
		Status:       model.JobStatusQueued,
		Stage:        model.StagePendingUpload,
		MaxAttempts:  3,
	}); err != nil {
		slog.Error("create ingestion job failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to create ingestion job")
		return
	}

	uploadURL, err := h.store.GetUploadURL(ctx, objectKey, req.ContentType, presignedUploadTTL)
	if err != nil {
		slog.Error("presign upload URL failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to presign upload URL")
		return
	}

	writeJSON(w, http.StatusOK, initUploadResponse{
		DocumentID: docID,
		VersionID:  versionID,
		JobID:      jobID,
		ObjectKey:  objectKey,
		UploadURL:  uploadURL,
		ExpiresIn:  int(presignedUploadTTL.Seconds()),
	})
}

type completeUploadRequest struct {
	VersionID string `json:"versionId"`
	FileSize  int64  `json:"fileSize"`
}

type completeUploadResponse struct {
	Status string `json:"status"`
}

// CompleteUpload handles POST /v1/documents:complete-upload.
func (h *UploadHandler) CompleteUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := authmw.TenantIDFromContext(ctx)
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "tenant_id is required")
		return
	}

	var req completeUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.VersionID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "versionId is required")
		return
	}
	if req.FileSize > h.cfg.MaxFileSizeBytes() {
		writeError(w, http.StatusBadRequest, "file_too_large", fmt.Sprintf("file exceeds max size of %d bytes", h.cfg.MaxFileSizeBytes()))
		return
	}

	version, err := h.versions.Get(ctx, tenantID, req.VersionID)
	if err != nil {
		if err == repository.ErrNotFound {
			writeError(w, http.StatusNotFound, "not_found", "document version not found")
			return
		}
		slog.Error("load document version failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to load document version")
		return
	}

	job, err := h.jobForVersion(ctx, tenantID, req.VersionID)
	if err != nil {
		slog.Error("load job for version failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to load ingestion job")
		return
	}

	// Only a job still awaiting its upload may advance. A replayed
	// complete-upload for a version that already advanced is a no-op
	// (the event is already enqueued); anything else, including a job
	// cancelled by a document delete, must not be resurrected.
	if job.Status != model.JobStatusQueued || job.Stage != model.StagePendingUpload {
		if job.Status == model.JobStatusQueued && job.Stage == model.StageUploaded {
			writeJSON(w, http.StatusOK, completeUploadResponse{Status: "queued"})
			return
		}
		writeError(w, http.StatusConflict, "conflict", "ingestion job is not awaiting upload")
		return
	}

	downloaded, err := h.store.Download(ctx, version.ObjectKey)
	if err != nil {
		slog.Error("verify uploaded object failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to verify uploaded object")
		return
	}
	contentHash := sha256Hex(downloaded)

	if declared, ok := sourceTypeByMime[version.MimeType]; ok {
		if sniffed, matches := sniffAgainstDeclared(mimetype.Detect(downloaded), declared); !matches {
			writeError(w, http.StatusBadRequest, "unsupported_format",
				fmt.Sprintf("uploaded content is %s but the version was declared %s", sniffed, declared))
			return
		}
	}

	if err := h.versions.Materialize(ctx, req.VersionID, req.FileSize, contentHash); err != nil {
		slog.Error("materialize document version failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to materialize document version")
		return
	}

	job, _ = jobs.Advance(job, jobs.EventUploadComplete, time.Now(), "", "")
	if err := h.jobs.Save(ctx, job); err != nil {
		slog.Error("advance job to uploaded failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to advance ingestion job")
		return
	}

	payload := model.IngestionRequestedPayload{Version: 1, Type: "document.ingestion_requested"}
	payload.Payload.DocVersionID = req.VersionID
	payload.Payload.JobID = job.JobID
	payload.Payload.TenantID = tenantID
	payloadBytes, _ := json.Marshal(payload)

	if err := h.dispatcher.Enqueue(ctx, uuid.New().String(), tenantID, payload.Type, payloadBytes); err != nil {
		slog.Error("enqueue ingestion event failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to enqueue ingestion event")
		return
	}

	writeJSON(w, http.StatusOK, completeUploadResponse{Status: "queued"})
}

// jobForVersion is a small convenience lookup; jobs are keyed 1:1 by
// doc_version_id at creation time in InitUpload.
func (h *UploadHandler) jobForVersion(ctx context.Context, tenantID, versionID string) (model.IngestionJob, error) {
	return h.jobs.GetByVersion(ctx, tenantID, versionID)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}
