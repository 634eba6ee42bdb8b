package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jharjadi/pro-rag/core-api-go/internal/crypto"
	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
	"github.com/jharjadi/pro-rag/core-api-go/internal/repository"
)

// TenantHandler manages tenants and their encrypted object-store
// credentials. Mounted behind RequireRole("admin").
type TenantHandler struct {
	tenants *repository.TenantRepository
	box     *crypto.Box
}

// NewTenantHandler creates a TenantHandler. box may be nil if no
// encryption key was configured, in which case credential endpoints
// return an error rather than silently storing plaintext.
func NewTenantHandler(pool *pgxpool.Pool, box *crypto.Box) *TenantHandler {
	return &TenantHandler{tenants: repository.NewTenantRepository(pool), box: box}
}

type createTenantRequest struct {
	Name string `json:"name"`
}

// Create handles POST /v1/tenants.
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "name is required")
		return
	}

	t, err := h.tenants.Create(r.Context(), req.Name)
	if err != nil {
		slog.Error("create tenant failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to create tenant")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// SetCredentials handles PUT /v1/tenants/{id}/object-store-credentials,
// sealing the supplied credentials before they ever reach the database.
func (h *TenantHandler) SetCredentials(w http.ResponseWriter, r *http.Request) {
	if h.box == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "encryption key not configured")
		return
	}
	tenantID := chi.URLParam(r, "id")

	var creds model.ObjectStoreCredentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if creds.Bucket == "" || creds.AccessKey == "" || creds.SecretKey == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "bucket, access_key and secret_key are required")
		return
	}

	if err := h.tenants.SetObjectStoreCredentials(r.Context(), tenantID, h.box, creds); err != nil {
		if err == repository.ErrNotFound {
			writeError(w, http.StatusNotFound, "not_found", "tenant not found")
			return
		}
		slog.Error("set tenant object store credentials failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to store credentials")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
