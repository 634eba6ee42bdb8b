package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jharjadi/pro-rag/core-api-go/internal/chunker"
	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
)

type fakeDocs struct {
	statuses []model.DocumentStatus
	calls    int
}

func (f *fakeDocs) Get(ctx context.Context, tenantID, docID string) (model.Document, error) {
	i := f.calls
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	f.calls++
	return model.Document{DocID: docID, TenantID: tenantID, Status: f.statuses[i]}, nil
}

type fakeVersions struct {
	version       model.DocumentVersion
	activateCalls int
}

func (f *fakeVersions) Get(ctx context.Context, tenantID, docVersionID string) (model.DocumentVersion, error) {
	return f.version, nil
}

func (f *fakeVersions) Activate(ctx context.Context, tenantID, docID, docVersionID string) error {
	f.activateCalls++
	return nil
}

type fakeJobs struct {
	saved []model.IngestionJob
}

func (f *fakeJobs) Get(ctx context.Context, tenantID, jobID string) (model.IngestionJob, error) {
	return model.IngestionJob{}, errors.New("not used")
}

func (f *fakeJobs) Save(ctx context.Context, j model.IngestionJob) error {
	f.saved = append(f.saved, j)
	return nil
}

func (f *fakeJobs) ListRetryReady(ctx context.Context, limit int) ([]model.IngestionJob, error) {
	return nil, nil
}

func (f *fakeJobs) last() model.IngestionJob {
	return f.saved[len(f.saved)-1]
}

type fakeStore struct {
	data []byte
	err  error
}

func (f *fakeStore) Download(ctx context.Context, key string) ([]byte, error) {
	return f.data, f.err
}

type fakeContent struct {
	pagesReplaced      int
	chunksReplaced     int
	embeddingsReplaced int
}

func (f *fakeContent) ReplacePages(ctx context.Context, docVersionID string, pages []model.DocumentPage) error {
	f.pagesReplaced++
	return nil
}

func (f *fakeContent) ReplaceChunks(ctx context.Context, docVersionID string, chunks []model.DocumentChunk, newChunkID func() string) ([]model.DocumentChunk, error) {
	f.chunksReplaced++
	out := make([]model.DocumentChunk, len(chunks))
	for i, c := range chunks {
		c.ChunkID = newChunkID()
		out[i] = c
	}
	return out, nil
}

func (f *fakeContent) ReplaceEmbeddings(ctx context.Context, chunkIDs []string, embeddings []model.ChunkEmbedding) error {
	f.embeddingsReplaced++
	return nil
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]model.ChunkEmbedding, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.ChunkEmbedding, len(texts))
	for i := range texts {
		out[i] = model.ChunkEmbedding{ChunkID: "", Vector: make([]float32, 4), Model: "fake"}
	}
	return out, nil
}

func newTestJob() model.IngestionJob {
	return model.IngestionJob{
		JobID:        "job-1",
		TenantID:     "tenant-1",
		DocVersionID: "ver-1",
		SourceType:   model.SourceCSV,
		Status:       model.JobStatusProcessing,
		Stage:        model.StageParsing,
		MaxAttempts:  3,
	}
}

func TestProcessHappyPathCompletesJobAndActivatesVersion(t *testing.T) {
	docs := &fakeDocs{statuses: []model.DocumentStatus{model.DocumentStatusActive}}
	versions := &fakeVersions{version: model.DocumentVersion{DocVersionID: "ver-1", DocID: "doc-1", MimeType: "text/csv"}}
	jobsRepo := &fakeJobs{}
	content := &fakeContent{}
	c := &Coordinator{
		Store:    &fakeStore{data: []byte("Name,Age\nAlice,30\nBob,40\nCarol,50\n")},
		Docs:     docs,
		Versions: versions,
		Jobs:     jobsRepo,
		Content:  content,
		Embedder: &fakeEmbedder{},
		ChunkCfg: chunker.DefaultConfig(),
	}

	if err := c.Process(context.Background(), newTestJob()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	final := jobsRepo.last()
	if final.Status != model.JobStatusDone {
		t.Errorf("expected status done, got %s", final.Status)
	}
	if versions.activateCalls != 1 {
		t.Errorf("expected version activated once, got %d", versions.activateCalls)
	}
	if content.embeddingsReplaced != 1 {
		t.Errorf("expected embeddings replaced once, got %d", content.embeddingsReplaced)
	}
}

func TestProcessTerminalFailsOnEmptyExtraction(t *testing.T) {
	docs := &fakeDocs{statuses: []model.DocumentStatus{model.DocumentStatusActive}}
	versions := &fakeVersions{version: model.DocumentVersion{DocVersionID: "ver-1", DocID: "doc-1", MimeType: "text/csv"}}
	jobsRepo := &fakeJobs{}
	content := &fakeContent{}
	c := &Coordinator{
		Store:    &fakeStore{data: []byte("")},
		Docs:     docs,
		Versions: versions,
		Jobs:     jobsRepo,
		Content:  content,
		Embedder: &fakeEmbedder{},
		ChunkCfg: chunker.DefaultConfig(),
	}

	if err := c.Process(context.Background(), newTestJob()); err == nil {
		t.Fatal("expected error for empty extraction")
	}

	final := jobsRepo.last()
	if final.Status != model.JobStatusFailed {
		t.Errorf("expected status failed, got %s", final.Status)
	}
	if final.ErrorCode != model.ErrExtractionEmpty {
		t.Errorf("expected extraction_empty, got %s", final.ErrorCode)
	}
	if content.chunksReplaced != 0 || content.embeddingsReplaced != 0 {
		t.Error("expected no chunks or embeddings persisted after a quality-gate failure")
	}
}

func TestProcessUnsupportedMimeTypeFailsTerminal(t *testing.T) {
	docs := &fakeDocs{statuses: []model.DocumentStatus{model.DocumentStatusActive}}
	versions := &fakeVersions{version: model.DocumentVersion{DocVersionID: "ver-1", DocID: "doc-1", MimeType: "application/octet-stream"}}
	jobsRepo := &fakeJobs{}
	c := &Coordinator{
		Store:    &fakeStore{data: []byte("irrelevant")},
		Docs:     docs,
		Versions: versions,
		Jobs:     jobsRepo,
		Content:  &fakeContent{},
		Embedder: &fakeEmbedder{},
		ChunkCfg: chunker.DefaultConfig(),
	}

	// Route falls back to the job's source type, so the job carries one
	// with no parser as well.
	job := newTestJob()
	job.SourceType = model.SourceType("zip")
	if err := c.Process(context.Background(), job); err == nil {
		t.Fatal("expected error for unsupported mime type")
	}

	final := jobsRepo.last()
	if final.ErrorCode != model.ErrUnsupportedFormat {
		t.Errorf("expected unsupported_format, got %s", final.ErrorCode)
	}
}

func TestProcessRetryableEmbeddingFailureLeavesJobRetryReady(t *testing.T) {
	docs := &fakeDocs{statuses: []model.DocumentStatus{model.DocumentStatusActive, model.DocumentStatusActive}}
	versions := &fakeVersions{version: model.DocumentVersion{DocVersionID: "ver-1", DocID: "doc-1", MimeType: "text/csv"}}
	jobsRepo := &fakeJobs{}
	content := &fakeContent{}
	c := &Coordinator{
		Store:    &fakeStore{data: []byte("Name,Age\nAlice,30\nBob,40\nCarol,50\n")},
		Docs:     docs,
		Versions: versions,
		Jobs:     jobsRepo,
		Content:  content,
		Embedder: &fakeEmbedder{err: errors.New("429 too many requests")},
		ChunkCfg: chunker.DefaultConfig(),
	}

	job := newTestJob()
	job.Attempts = 1

	// classifiedFail returns nil for a job routed to retry_ready, so the
	// outbox dispatcher marks the originating event complete - the job
	// itself, not the event, is what carries the retry forward.
	if err := c.Process(context.Background(), job); err != nil {
		t.Fatalf("expected nil error for a job parked in retry_ready, got %v", err)
	}

	final := jobsRepo.last()
	if final.Status != model.JobStatusRetryReady {
		t.Fatalf("expected status retry_ready, got %s", final.Status)
	}
	if final.ErrorCode != model.ErrProviderRateLimited {
		t.Errorf("expected provider_rate_limited, got %s", final.ErrorCode)
	}
	if final.NextRetryAt == nil {
		t.Error("expected next_retry_at to be set")
	}
	if content.embeddingsReplaced != 0 {
		t.Error("expected no embeddings persisted for a retryable failure")
	}
}

func TestProcessStopsBeforeEmbeddingWhenDocumentDeletedDuringChunking(t *testing.T) {
	// Active for the pre-parse check and the post-parse checkDocumentDeleted
	// call, then deleted by the time the post-chunk check runs.
	docs := &fakeDocs{statuses: []model.DocumentStatus{
		model.DocumentStatusActive,
		model.DocumentStatusActive,
		model.DocumentStatusDeletedPending,
	}}
	versions := &fakeVersions{version: model.DocumentVersion{DocVersionID: "ver-1", DocID: "doc-1", MimeType: "text/csv"}}
	jobsRepo := &fakeJobs{}
	content := &fakeContent{}
	c := &Coordinator{
		Store:    &fakeStore{data: []byte("Name,Age\nAlice,30\nBob,40\nCarol,50\n")},
		Docs:     docs,
		Versions: versions,
		Jobs:     jobsRepo,
		Content:  content,
		Embedder: &fakeEmbedder{},
		ChunkCfg: chunker.DefaultConfig(),
	}

	if err := c.Process(context.Background(), newTestJob()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	final := jobsRepo.last()
	if final.Status != model.JobStatusFailed || final.ErrorCode != model.ErrDocumentDeleted {
		t.Fatalf("expected job failed/document_deleted, got status=%s code=%s", final.Status, final.ErrorCode)
	}
	if content.embeddingsReplaced != 0 {
		t.Error("expected no embeddings persisted once deletion is observed mid-pipeline")
	}
	if versions.activateCalls != 0 {
		t.Error("expected the version never to be activated")
	}
}

func TestPollRetryReadyResumesJobThroughProcess(t *testing.T) {
	docs := &fakeDocs{statuses: []model.DocumentStatus{model.DocumentStatusActive}}
	versions := &fakeVersions{version: model.DocumentVersion{DocVersionID: "ver-1", DocID: "doc-1", MimeType: "text/csv"}}

	retryAt := time.Now().Add(-time.Second)
	pending := newTestJob()
	pending.Status = model.JobStatusRetryReady
	pending.Stage = model.StageParsing
	pending.Attempts = 1
	pending.NextRetryAt = &retryAt

	jobsRepo := &fakeRetryJobs{pending: []model.IngestionJob{pending}}
	content := &fakeContent{}
	c := &Coordinator{
		Store:    &fakeStore{data: []byte("Name,Age\nAlice,30\nBob,40\nCarol,50\n")},
		Docs:     docs,
		Versions: versions,
		Jobs:     jobsRepo,
		Content:  content,
		Embedder: &fakeEmbedder{},
		ChunkCfg: chunker.DefaultConfig(),
	}

	if err := c.pollRetryReady(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(jobsRepo.saved) == 0 {
		t.Fatal("expected the retry-ready job to be saved")
	}
	final := jobsRepo.saved[len(jobsRepo.saved)-1]
	if final.Status != model.JobStatusDone {
		t.Errorf("expected the resumed job to complete, got status %s", final.Status)
	}
}

// fakeRetryJobs additionally serves ListRetryReady from a fixed set,
// exercising the jobs.Advance(EventRetryWindowReached) -> Process path
// runRetryPoller drives.
type fakeRetryJobs struct {
	fakeJobs
	pending []model.IngestionJob
}

func (f *fakeRetryJobs) ListRetryReady(ctx context.Context, limit int) ([]model.IngestionJob, error) {
	return f.pending, nil
}
