package model

import "time"

// DocumentStatus is the lifecycle state of a Document.
type DocumentStatus string

const (
	DocumentStatusActive          DocumentStatus = "active"
	DocumentStatusDeletedPending  DocumentStatus = "deleted_pending"
	DocumentStatusDeleted         DocumentStatus = "deleted"
)

// Document is a business-scoped logical file; it owns an ordered,
// non-empty sequence of Versions.
type Document struct {
	DocID      string         `json:"doc_id"`
	TenantID   string         `json:"tenant_id"`
	Title      string         `json:"title"`
	Filename   string         `json:"original_filename"`
	Status     DocumentStatus `json:"status"`
	UploaderID string         `json:"uploader_id"`
	Labels     []string       `json:"labels,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  *time.Time     `json:"deleted_at,omitempty"`
}

// DocumentVersion is an immutable snapshot of one upload.
// It is created "reserved" (ContentHash == "") and becomes
// "materialized" once Complete Upload records size + hash.
type DocumentVersion struct {
	DocVersionID  string `json:"doc_version_id"`
	DocID         string `json:"doc_id"`
	TenantID      string `json:"tenant_id"`
	VersionNumber int    `json:"version_number"`
	VersionLabel  string `json:"version_label"`
	ObjectKey     string `json:"object_key"`
	MimeType      string `json:"mime_type"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	ContentHash   string `json:"content_hash,omitempty"`
	// IsActive marks the version the query pipeline retrieves against;
	// set once ingestion completes successfully for this version (see
	// VersionRepository.Activate), never at reservation time.
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	MaterializedAt *time.Time `json:"materialized_at,omitempty"`
}

// Materialized reports whether Complete Upload has recorded size+hash.
func (v DocumentVersion) Materialized() bool {
	return v.ContentHash != ""
}

// JobStatus is the top-level state of an IngestionJob.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusRetryReady JobStatus = "retry_ready"
	JobStatusDone       JobStatus = "done"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// JobStage is the orthogonal sub-status of an IngestionJob, meaningful
// only while Status is queued/processing/retry_ready.
type JobStage string

const (
	StagePendingUpload JobStage = "pending_upload"
	StageUploaded      JobStage = "uploaded"
	StageParsing       JobStage = "parsing"
	StageChunking      JobStage = "chunking"
	StageEmbedding     JobStage = "embedding"
)

// SourceType is the canonical format family of an ingested document.
type SourceType string

const (
	SourcePDF  SourceType = "pdf"
	SourceDOCX SourceType = "docx"
	SourceDOC  SourceType = "doc"
	SourceTXT  SourceType = "txt"
	SourceCSV  SourceType = "csv"
	SourceXLSX SourceType = "xlsx"
	SourceXLS  SourceType = "xls"
	SourceHTML SourceType = "html"
)

// ErrorCode is the closed set of classified ingestion failure kinds.
type ErrorCode string

const (
	ErrExtractionEmpty     ErrorCode = "extraction_empty"
	ErrExtractionLowQuality ErrorCode = "extraction_low_quality"
	ErrNeedsOCR            ErrorCode = "needs_ocr"
	ErrParseFailed         ErrorCode = "parse_failed"
	ErrProviderRateLimited ErrorCode = "provider_rate_limited"
	ErrTimeout             ErrorCode = "timeout"
	ErrUnsupportedFormat   ErrorCode = "unsupported_format"
	ErrFileTooLarge        ErrorCode = "file_too_large"
	ErrFileCorrupted       ErrorCode = "file_corrupted"
	ErrDocumentDeleted     ErrorCode = "document_deleted"
	ErrInternal            ErrorCode = "internal"
)

// Retryable reports whether the job should be retried (vs terminated)
// when this error code is observed.
func (e ErrorCode) Retryable() bool {
	switch e {
	case ErrProviderRateLimited, ErrTimeout, ErrInternal:
		return true
	default:
		return false
	}
}

// IngestionJob is the unit advanced by the job state machine.
type IngestionJob struct {
	JobID        string     `json:"job_id"`
	TenantID     string     `json:"tenant_id"`
	DocVersionID string     `json:"doc_version_id"`
	SourceType   SourceType `json:"source_type"`
	Status       JobStatus  `json:"status"`
	Stage        JobStage   `json:"stage"`
	Attempts     int        `json:"attempts"`
	MaxAttempts  int        `json:"max_attempts"`
	LastError    string     `json:"last_error,omitempty"`
	ErrorCode    ErrorCode  `json:"error_code,omitempty"`
	Metrics      map[string]interface{} `json:"metrics,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	NextRetryAt  *time.Time `json:"next_retry_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// DocumentPage is one logical or native page produced by a parser.
type DocumentPage struct {
	DocVersionID string `json:"doc_version_id"`
	PageNumber   int    `json:"page_number"`
	Text         string `json:"text"`
	CharCount    int    `json:"char_count"`
}

// DocumentChunk is one chunker output, carrying page provenance.
type DocumentChunk struct {
	ChunkID      string   `json:"chunk_id"`
	TenantID     string   `json:"tenant_id"`
	DocVersionID string   `json:"doc_version_id"`
	Ordinal      int      `json:"ordinal"`
	Text         string   `json:"text"`
	PageStart    int      `json:"page_start"`
	PageEnd      int      `json:"page_end"`
	Sentences    []string `json:"sentences,omitempty"`
	TokenCount   int      `json:"token_count"`
}

// ChunkEmbedding is the fixed-dimension vector index entry for one chunk.
type ChunkEmbedding struct {
	ChunkID string    `json:"chunk_id"`
	Vector  []float32 `json:"vector"`
	Model   string    `json:"model"`
}

// EmbeddingDim is the fixed vector dimension of the embedding model.
const EmbeddingDim = 1536

// EventOutbox is a durable pointer to pending work or event emission.
type EventOutbox struct {
	EventID     string     `json:"event_id"`
	TenantID    string     `json:"tenant_id"`
	EventType   string     `json:"event_type"`
	Payload     []byte     `json:"payload"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	LastError   string     `json:"last_error,omitempty"`
	NextRetryAt time.Time  `json:"next_retry_at"`
	LeasedUntil *time.Time `json:"leased_until,omitempty"`
}

// IngestionRequestedPayload is the JSON payload of a document.ingestion_requested event.
type IngestionRequestedPayload struct {
	Version  int    `json:"version"`
	Type     string `json:"type"`
	Payload  struct {
		DocVersionID string `json:"versionId"`
		JobID        string `json:"jobId"`
		TenantID     string `json:"tenantId"`
	} `json:"payload"`
}
