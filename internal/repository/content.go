package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
	"github.com/pgvector/pgvector-go"
)

// ContentRepository persists the per-stage artifacts of one ingestion
// run (pages, chunks, embeddings), each stage replaced atomically via
// delete-then-insert to make coordinator retries idempotent.
type ContentRepository struct {
	pool *pgxpool.Pool
}

func NewContentRepository(pool *pgxpool.Pool) *ContentRepository {
	return &ContentRepository{pool: pool}
}

// ReplacePages deletes any existing pages for docVersionID and
// inserts the given set inside one transaction.
func (r *ContentRepository) ReplacePages(ctx context.Context, docVersionID string, pages []model.DocumentPage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace pages tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM document_pages WHERE doc_version_id = $1`, docVersionID); err != nil {
		return fmt.Errorf("delete existing pages: %w", err)
	}

	batch := &pgx.Batch{}
	for _, p := range pages {
		batch.Queue(`
			INSERT INTO document_pages (doc_version_id, page_number, text, char_count)
			VALUES ($1, $2, $3, $4)
		`, docVersionID, p.PageNumber, p.Text, len(p.Text))
	}
	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert page %d: %w", i, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close page batch: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *ContentRepository) GetPages(ctx context.Context, docVersionID string) ([]model.DocumentPage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT doc_version_id, page_number, text, char_count
		FROM document_pages WHERE doc_version_id = $1 ORDER BY page_number
	`, docVersionID)
	if err != nil {
		return nil, fmt.Errorf("get pages: %w", err)
	}
	defer rows.Close()

	var pages []model.DocumentPage
	for rows.Next() {
		var p model.DocumentPage
		if err := rows.Scan(&p.DocVersionID, &p.PageNumber, &p.Text, &p.CharCount); err != nil {
			return nil, fmt.Errorf("scan page row: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// GetChunks returns the persisted chunks for docVersionID in ordinal
// order, with their page provenance.
func (r *ContentRepository) GetChunks(ctx context.Context, docVersionID string) ([]model.DocumentChunk, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT chunk_id, tenant_id, doc_version_id, ordinal, text, page_start, page_end, token_count
		FROM document_chunks WHERE doc_version_id = $1 ORDER BY ordinal
	`, docVersionID)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	defer rows.Close()

	var chunks []model.DocumentChunk
	for rows.Next() {
		var c model.DocumentChunk
		if err := rows.Scan(&c.ChunkID, &c.TenantID, &c.DocVersionID, &c.Ordinal, &c.Text,
			&c.PageStart, &c.PageEnd, &c.TokenCount); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// ReplaceChunks deletes any existing chunks (and, transitively via
// cascade, their embeddings) for docVersionID and inserts the given
// set, assigning a fresh chunk_id to each.
func (r *ContentRepository) ReplaceChunks(ctx context.Context, docVersionID string, chunks []model.DocumentChunk, newChunkID func() string) ([]model.DocumentChunk, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin replace chunks tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM document_chunks WHERE doc_version_id = $1`, docVersionID); err != nil {
		return nil, fmt.Errorf("delete existing chunks: %w", err)
	}

	out := make([]model.DocumentChunk, len(chunks))
	batch := &pgx.Batch{}
	for i, c := range chunks {
		c.ChunkID = newChunkID()
		out[i] = c
		batch.Queue(`
			INSERT INTO document_chunks (chunk_id, tenant_id, doc_version_id, ordinal, text, page_start, page_end, token_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, c.ChunkID, c.TenantID, c.DocVersionID, c.Ordinal, c.Text, c.PageStart, c.PageEnd, c.TokenCount)
	}
	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return nil, fmt.Errorf("insert chunk %d: %w", i, err)
			}
		}
		if err := br.Close(); err != nil {
			return nil, fmt.Errorf("close chunk batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit replace chunks tx: %w", err)
	}
	return out, nil
}

// ReplaceEmbeddings deletes any existing embeddings for the given
// chunk IDs and inserts the given set, inside one transaction.
func (r *ContentRepository) ReplaceEmbeddings(ctx context.Context, chunkIDs []string, embeddings []model.ChunkEmbedding) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace embeddings tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if len(chunkIDs) > 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM chunk_embeddings WHERE chunk_id = ANY($1)`, chunkIDs); err != nil {
			return fmt.Errorf("delete existing embeddings: %w", err)
		}
	}

	if len(embeddings) != len(chunkIDs) {
		return fmt.Errorf("embeddings count %d does not match chunk id count %d", len(embeddings), len(chunkIDs))
	}

	batch := &pgx.Batch{}
	for i, e := range embeddings {
		vec := pgvector.NewVector(e.Vector)
		batch.Queue(`
			INSERT INTO chunk_embeddings (chunk_id, embedding, model)
			VALUES ($1, $2, $3)
		`, chunkIDs[i], vec, e.Model)
	}
	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert embedding %d: %w", i, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close embedding batch: %w", err)
		}
	}

	return tx.Commit(ctx)
}
