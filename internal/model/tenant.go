package model

import "time"

// Tenant is a billing/isolation boundary; every document, job, and
// user is scoped to exactly one.
type Tenant struct {
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ObjectStoreCredentials is a tenant's own S3-compatible bucket
// credentials, sealed at rest via internal/crypto before being stored
// in tenants.object_store_credentials.
type ObjectStoreCredentials struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
}
