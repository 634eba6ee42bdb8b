package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jharjadi/pro-rag/core-api-go/internal/crypto"
	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
)

// TenantRepository persists Tenant rows, including each tenant's own
// object-store credentials sealed at rest via crypto.Box.
type TenantRepository struct {
	pool *pgxpool.Pool
}

// NewTenantRepository creates a TenantRepository bound to pool.
func NewTenantRepository(pool *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{pool: pool}
}

func (r *TenantRepository) Create(ctx context.Context, name string) (model.Tenant, error) {
	var t model.Tenant
	err := r.pool.QueryRow(ctx, `
		INSERT INTO tenants (name, created_at)
		VALUES ($1, now())
		RETURNING tenant_id, name, created_at
	`, name).Scan(&t.TenantID, &t.Name, &t.CreatedAt)
	if err != nil {
		return model.Tenant{}, fmt.Errorf("create tenant: %w", err)
	}
	return t, nil
}

func (r *TenantRepository) Get(ctx context.Context, tenantID string) (model.Tenant, error) {
	var t model.Tenant
	err := r.pool.QueryRow(ctx, `
		SELECT tenant_id, name, created_at FROM tenants WHERE tenant_id = $1
	`, tenantID).Scan(&t.TenantID, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Tenant{}, ErrNotFound
		}
		return model.Tenant{}, fmt.Errorf("get tenant: %w", err)
	}
	return t, nil
}

// SetObjectStoreCredentials seals creds with box and stores the wire
// format in tenants.object_store_credentials, overwriting any prior
// value. Plaintext credentials never touch the column.
func (r *TenantRepository) SetObjectStoreCredentials(ctx context.Context, tenantID string, box *crypto.Box, creds model.ObjectStoreCredentials) error {
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshal object store credentials: %w", err)
	}
	sealed, err := box.Seal(plaintext)
	if err != nil {
		return fmt.Errorf("seal object store credentials: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE tenants SET object_store_credentials = $2 WHERE tenant_id = $1
	`, tenantID, sealed)
	if err != nil {
		return fmt.Errorf("store object store credentials: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetObjectStoreCredentials returns the tenant's own object-store
// credentials, or ok=false if the tenant has none set (callers should
// then fall back to the service-wide bucket).
func (r *TenantRepository) GetObjectStoreCredentials(ctx context.Context, tenantID string, box *crypto.Box) (creds model.ObjectStoreCredentials, ok bool, err error) {
	var sealed *string
	err = r.pool.QueryRow(ctx, `
		SELECT object_store_credentials FROM tenants WHERE tenant_id = $1
	`, tenantID).Scan(&sealed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ObjectStoreCredentials{}, false, ErrNotFound
		}
		return model.ObjectStoreCredentials{}, false, fmt.Errorf("load object store credentials: %w", err)
	}
	if sealed == nil {
		return model.ObjectStoreCredentials{}, false, nil
	}

	plaintext, err := box.Open(*sealed)
	if err != nil {
		return model.ObjectStoreCredentials{}, false, fmt.Errorf("open object store credentials: %w", err)
	}
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return model.ObjectStoreCredentials{}, false, fmt.Errorf("unmarshal object store credentials: %w", err)
	}
	return creds, true, nil
}
