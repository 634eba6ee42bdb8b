package model

import "time"

// InitUploadRequest is an upload-init request body. The
// POST /v1/documents:init-upload handler does not use it; it decodes
// its own type, whose content type field is named contentType.
type InitUploadRequest struct {
	Title       string `json:"title"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// InitUploadResponse is the response to Upload init.
type InitUploadResponse struct {
	DocumentID string `json:"documentId"`
	VersionID  string `json:"versionId"`
	JobID      string `json:"jobId"`
	ObjectKey  string `json:"objectKey"`
	UploadURL  string `json:"uploadUrl"`
	ExpiresIn  int    `json:"expiresIn"`
}

// CompleteUploadRequest is an upload-complete request body. The
// POST /v1/documents:complete-upload handler does not use it; it
// decodes its own type carrying versionId and fileSize.
type CompleteUploadRequest struct {
	FileSizeBytes int64 `json:"fileSizeBytes"`
}

// CompleteUploadResponse acknowledges that the job was enqueued.
type CompleteUploadResponse struct {
	Status string `json:"status"`
}

// DocumentListItem summarizes one document for GET /v1/documents.
type DocumentListItem struct {
	DocID         string     `json:"doc_id"`
	Title         string     `json:"title"`
	Filename      string     `json:"original_filename"`
	Status        string     `json:"status"`
	LatestVersion int        `json:"latest_version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DocumentListResponse is the GET /v1/documents response body.
type DocumentListResponse struct {
	Documents []DocumentListItem `json:"documents"`
	Total     int                `json:"total"`
	Page      int                `json:"page"`
	Limit     int                `json:"limit"`
}

// VersionSummary describes one version in a document detail response.
type VersionSummary struct {
	DocVersionID  string    `json:"doc_version_id"`
	VersionNumber int       `json:"version_number"`
	MimeType      string    `json:"mime_type"`
	ContentHash   string    `json:"content_hash,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// DocumentDetailResponse is the GET /v1/documents/:id response body.
type DocumentDetailResponse struct {
	DocID    string           `json:"doc_id"`
	Title    string           `json:"title"`
	Filename string           `json:"original_filename"`
	Status   string           `json:"status"`
	Versions []VersionSummary `json:"versions"`
}

// PatchDocumentRequest is the PATCH /v1/documents/:id request body.
type PatchDocumentRequest struct {
	Title  *string   `json:"title,omitempty"`
	Labels *[]string `json:"labels,omitempty"`
}

// DeleteDocumentResponse acknowledges a soft delete.
type DeleteDocumentResponse struct {
	Status string `json:"status"`
	DocID  string `json:"doc_id"`
}

// JobDetailResponse is the GET /v1/jobs/:id response body.
type JobDetailResponse struct {
	JobID       string     `json:"job_id"`
	Status      string     `json:"status"`
	Stage       string     `json:"stage,omitempty"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	ErrorCode   string     `json:"error_code,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
}
