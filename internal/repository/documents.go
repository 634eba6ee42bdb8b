// Package repository implements tenant-partitioned pgx data access
// for the ingestion pipeline's persisted entities.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
)

// ErrNotFound is returned when a tenant-scoped lookup finds no row.
var ErrNotFound = errors.New("repository: not found")

// DocumentRepository persists Document rows.
type DocumentRepository struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository creates a DocumentRepository bound to pool.
func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

func (r *DocumentRepository) Create(ctx context.Context, d model.Document) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO documents (doc_id, tenant_id, title, original_filename, status, uploader_id, labels, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
	`, d.DocID, d.TenantID, d.Title, d.Filename, d.Status, d.UploaderID, d.Labels)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Get(ctx context.Context, tenantID, docID string) (model.Document, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT doc_id, tenant_id, title, original_filename, status, uploader_id, labels, created_at, updated_at, deleted_at
		FROM documents WHERE tenant_id = $1 AND doc_id = $2
	`, tenantID, docID)

	var d model.Document
	if err := row.Scan(&d.DocID, &d.TenantID, &d.Title, &d.Filename, &d.Status, &d.UploaderID,
		&d.Labels, &d.CreatedAt, &d.UpdatedAt, &d.DeletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Document{}, ErrNotFound
		}
		return model.Document{}, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (r *DocumentRepository) List(ctx context.Context, tenantID string, limit, offset int) ([]model.Document, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT doc_id, tenant_id, title, original_filename, status, uploader_id, labels, created_at, updated_at, deleted_at
		FROM documents
		WHERE tenant_id = $1 AND status != $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, tenantID, model.DocumentStatusDeleted, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.DocID, &d.TenantID, &d.Title, &d.Filename, &d.Status, &d.UploaderID,
			&d.Labels, &d.CreatedAt, &d.UpdatedAt, &d.DeletedAt); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *DocumentRepository) UpdateMetadata(ctx context.Context, tenantID, docID string, title *string, labels []string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE documents SET
			title = COALESCE($3, title),
			labels = COALESCE($4, labels),
			updated_at = now()
		WHERE tenant_id = $1 AND doc_id = $2
	`, tenantID, docID, title, labels)
	if err != nil {
		return fmt.Errorf("update document metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks a document deleted_pending; the coordinator treats
// this as a cancellation signal for any in-flight job.
func (r *DocumentRepository) SoftDelete(ctx context.Context, tenantID, docID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE documents SET status = $3, deleted_at = now(), updated_at = now()
		WHERE tenant_id = $1 AND doc_id = $2 AND status = $4
	`, tenantID, docID, model.DocumentStatusDeletedPending, model.DocumentStatusActive)
	if err != nil {
		return fmt.Errorf("soft delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
