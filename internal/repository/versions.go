package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
)

// VersionRepository persists DocumentVersion rows.
type VersionRepository struct {
	pool *pgxpool.Pool
}

func NewVersionRepository(pool *pgxpool.Pool) *VersionRepository {
	return &VersionRepository{pool: pool}
}

// Reserve inserts a new version row with no content hash yet (upload
// initiated but not completed); VersionNumber is computed as
// max(existing)+1 within the same statement to respect the unique
// (doc_id, version_number) constraint under concurrent inits.
// The row starts inactive; Activate flips it once ingestion succeeds.
func (r *VersionRepository) Reserve(ctx context.Context, v model.DocumentVersion) (int, error) {
	var versionNumber int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO document_versions (doc_version_id, doc_id, tenant_id, version_number, version_label, object_key, mime_type, file_size_bytes, is_active, created_at)
		SELECT $1, $2, $3, n, 'v' || n, $4, $5, 0, false, now()
		FROM (SELECT COALESCE(MAX(version_number), 0) + 1 AS n FROM document_versions WHERE doc_id = $2 AND tenant_id = $3) next
		RETURNING version_number
	`, v.DocVersionID, v.DocID, v.TenantID, v.ObjectKey, v.MimeType).Scan(&versionNumber)
	if err != nil {
		return 0, fmt.Errorf("reserve document version: %w", err)
	}
	return versionNumber, nil
}

// Activate marks docVersionID the sole active (query-servable) version
// for its document, deactivating any prior active version in the same
// transaction. The coordinator calls this once ingestion finishes
// successfully for a version; the query pipeline only retrieves
// against rows where `is_active = true`.
func (r *VersionRepository) Activate(ctx context.Context, tenantID, docID, docVersionID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin activate version tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE document_versions SET is_active = false
		WHERE tenant_id = $1 AND doc_id = $2 AND is_active = true
	`, tenantID, docID); err != nil {
		return fmt.Errorf("deactivate prior versions: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE document_versions SET is_active = true
		WHERE tenant_id = $1 AND doc_version_id = $2
	`, tenantID, docVersionID)
	if err != nil {
		return fmt.Errorf("activate version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return tx.Commit(ctx)
}

// Materialize records size + content hash once Complete Upload
// observes the finished object.
func (r *VersionRepository) Materialize(ctx context.Context, docVersionID string, sizeBytes int64, contentHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE document_versions
		SET file_size_bytes = $2, content_hash = $3, materialized_at = now()
		WHERE doc_version_id = $1
	`, docVersionID, sizeBytes, contentHash)
	if err != nil {
		return fmt.Errorf("materialize document version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const versionColumns = `doc_version_id, doc_id, tenant_id, version_number, version_label, object_key, mime_type, file_size_bytes, content_hash, is_active, created_at, materialized_at`

func scanVersion(row pgx.Row) (model.DocumentVersion, error) {
	var v model.DocumentVersion
	if err := row.Scan(&v.DocVersionID, &v.DocID, &v.TenantID, &v.VersionNumber, &v.VersionLabel, &v.ObjectKey, &v.MimeType,
		&v.FileSizeBytes, &v.ContentHash, &v.IsActive, &v.CreatedAt, &v.MaterializedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.DocumentVersion{}, ErrNotFound
		}
		return model.DocumentVersion{}, fmt.Errorf("scan document version: %w", err)
	}
	return v, nil
}

func (r *VersionRepository) Get(ctx context.Context, tenantID, docVersionID string) (model.DocumentVersion, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+versionColumns+`
		FROM document_versions WHERE tenant_id = $1 AND doc_version_id = $2
	`, tenantID, docVersionID)
	return scanVersion(row)
}

func (r *VersionRepository) ListByDocument(ctx context.Context, tenantID, docID string) ([]model.DocumentVersion, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+versionColumns+`
		FROM document_versions WHERE tenant_id = $1 AND doc_id = $2 ORDER BY version_number
	`, tenantID, docID)
	if err != nil {
		return nil, fmt.Errorf("list document versions: %w", err)
	}
	defer rows.Close()

	var versions []model.DocumentVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
