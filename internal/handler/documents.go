// Package handler implements HTTP handlers for the management APIs.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	authmw "github.com/jharjadi/pro-rag/core-api-go/internal/middleware"
	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
	"github.com/jharjadi/pro-rag/core-api-go/internal/repository"
)

// DocumentHandler handles document management endpoints.
type DocumentHandler struct {
	docs     *repository.DocumentRepository
	versions *repository.VersionRepository
	content  *repository.ContentRepository
	jobs     *repository.JobRepository
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(pool *pgxpool.Pool) *DocumentHandler {
	return &DocumentHandler{
		docs:     repository.NewDocumentRepository(pool),
		versions: repository.NewVersionRepository(pool),
		content:  repository.NewContentRepository(pool),
		jobs:     repository.NewJobRepository(pool),
	}
}

// List handles GET /v1/documents?page=1&limit=20
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := authmw.TenantIDFromContext(ctx)
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "tenant_id is required")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	pg := model.DefaultPagination(page, limit)

	docs, err := h.docs.List(ctx, tenantID, pg.Limit, pg.Offset())
	if err != nil {
		slog.Error("list documents failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to list documents")
		return
	}

	items := make([]model.DocumentListItem, 0, len(docs))
	for _, d := range docs {
		latest := 0
		if versions, err := h.versions.ListByDocument(ctx, tenantID, d.DocID); err == nil && len(versions) > 0 {
			latest = versions[len(versions)-1].VersionNumber
		}
		items = append(items, model.DocumentListItem{
			DocID:         d.DocID,
			Title:         d.Title,
			Filename:      d.Filename,
			Status:        string(d.Status),
			LatestVersion: latest,
			CreatedAt:     d.CreatedAt,
			UpdatedAt:     d.UpdatedAt,
		})
	}

	writeJSON(w, http.StatusOK, model.DocumentListResponse{
		Documents: items,
		Total:     len(items),
		Page:      pg.Page,
		Limit:     pg.Limit,
	})
}

// Get handles GET /v1/documents/:id
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := authmw.TenantIDFromContext(ctx)
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "tenant_id is required")
		return
	}
	docID := chi.URLParam(r, "id")

	doc, err := h.docs.Get(ctx, tenantID, docID)
	if err != nil {
		if err == repository.ErrNotFound {
			writeError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		slog.Error("get document failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to get document")
		return
	}

	versions, err := h.versions.ListByDocument(ctx, tenantID, docID)
	if err != nil {
		slog.Error("list document versions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to get document versions")
		return
	}

	summaries := make([]model.VersionSummary, 0, len(versions))
	for _, v := range versions {
		summaries = append(summaries, model.VersionSummary{
			DocVersionID:  v.DocVersionID,
			VersionNumber: v.VersionNumber,
			MimeType:      v.MimeType,
			ContentHash:   v.ContentHash,
			CreatedAt:     v.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, model.DocumentDetailResponse{
		DocID:    doc.DocID,
		Title:    doc.Title,
		Filename: doc.Filename,
		Status:   string(doc.Status),
		Versions: summaries,
	})
}

// Patch handles PATCH /v1/documents/:id, updating title and/or labels.
func (h *DocumentHandler) Patch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := authmw.TenantIDFromContext(ctx)
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "tenant_id is required")
		return
	}
	docID := chi.URLParam(r, "id")

	var req model.PatchDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	var labels []string
	if req.Labels != nil {
		labels = *req.Labels
	}
	if err := h.docs.UpdateMetadata(ctx, tenantID, docID, req.Title, labels); err != nil {
		if err == repository.ErrNotFound {
			writeError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		slog.Error("patch document failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to update document")
		return
	}

	doc, err := h.docs.Get(ctx, tenantID, docID)
	if err != nil {
		slog.Error("reload patched document failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to reload document")
		return
	}

	writeJSON(w, http.StatusOK, model.DocumentDetailResponse{
		DocID:    doc.DocID,
		Title:    doc.Title,
		Filename: doc.Filename,
		Status:   string(doc.Status),
	})
}

// Delete handles DELETE /v1/documents/:id, soft-deleting the document
// and cancelling any non-terminal job for it. A job already in flight
// also observes the deletion at its next stage boundary via
// Coordinator.checkDocumentDeleted, but that lazy check
// alone can miss a job sitting between boundary checks, so deletion
// actively cancels jobs too.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := authmw.TenantIDFromContext(ctx)
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "tenant_id is required")
		return
	}
	docID := chi.URLParam(r, "id")

	if err := h.docs.SoftDelete(ctx, tenantID, docID); err != nil {
		if err == repository.ErrNotFound {
			writeError(w, http.StatusNotFound, "not_found", "document not found or already deleted")
			return
		}
		slog.Error("delete document failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to delete document")
		return
	}

	if err := h.jobs.CancelNonTerminalForDocument(ctx, tenantID, docID); err != nil {
		slog.Error("cancel jobs for deleted document failed", "error", err)
	}

	writeJSON(w, http.StatusOK, model.DeleteDocumentResponse{Status: "deleted_pending", DocID: docID})
}

// resolveVersionID picks the version to read content for: the
// version_id query parameter if given, otherwise the document's
// latest version.
func (h *DocumentHandler) resolveVersionID(r *http.Request, tenantID, docID string) (string, bool) {
	if v := r.URL.Query().Get("version_id"); v != "" {
		return v, true
	}
	versions, err := h.versions.ListByDocument(r.Context(), tenantID, docID)
	if err != nil || len(versions) == 0 {
		return "", false
	}
	return versions[len(versions)-1].DocVersionID, true
}

// ListChunks handles GET /v1/documents/:id/chunks?version_id=...
func (h *DocumentHandler) ListChunks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := authmw.TenantIDFromContext(ctx)
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "tenant_id is required")
		return
	}
	docID := chi.URLParam(r, "id")

	versionID, ok := h.resolveVersionID(r, tenantID, docID)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no version found for this document")
		return
	}

	chunks, err := h.content.GetChunks(ctx, versionID)
	if err != nil {
		slog.Error("get document chunks failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to load document chunks")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"doc_version_id": versionID,
		"chunks":         chunks,
		"total":          len(chunks),
	})
}

// ListPages handles GET /v1/documents/:id/pages?version_id=...,
// exposing the raw parser output for a version.
func (h *DocumentHandler) ListPages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := authmw.TenantIDFromContext(ctx)
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "tenant_id is required")
		return
	}
	docID := chi.URLParam(r, "id")

	versionID, ok := h.resolveVersionID(r, tenantID, docID)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no version found for this document")
		return
	}

	pages, err := h.content.GetPages(ctx, versionID)
	if err != nil {
		slog.Error("get document pages failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to load document pages")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"doc_version_id": versionID,
		"pages":          pages,
		"total":          len(pages),
	})
}
