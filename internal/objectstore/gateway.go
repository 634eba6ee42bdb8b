// Package objectstore implements the presigned upload/download URL
// gateway and raw byte download for ingestion sources.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrorKind classifies a Gateway failure the way the ingestion
// coordinator needs to decide retry-vs-terminal.
type ErrorKind string

const (
	ErrKindTransient ErrorKind = "transient"
	ErrKindAuth      ErrorKind = "auth"
	ErrKindNotFound  ErrorKind = "not_found"
)

// Error wraps an underlying object-store failure with its kind.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("objectstore: %s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the coordinator should retry on this error.
// Not-found is terminal; everything else is retryable.
func (e *Error) Retryable() bool { return e.Kind != ErrKindNotFound }

// Config holds the object-store connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	// UsePathStyle is required by most S3-compatible providers that
	// are not AWS itself (MinIO, etc).
	UsePathStyle bool
}

// Gateway issues presigned URLs and downloads raw objects.
type Gateway struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// NewGateway builds a Gateway from Config.
func NewGateway(ctx context.Context, cfg Config) (*Gateway, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("objectstore: load aws config: %w", err)
	}

	var opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.UsePathStyle
		})
	}

	client := s3.NewFromConfig(awsCfg, opts...)
	return &Gateway{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
	}, nil
}

// GenerateKey is a pure, reproducible object-store path for one
// document version.
func GenerateKey(tenantID, docID string, version int) string {
	return fmt.Sprintf("tenants/%s/docs/%s/v%d/original", tenantID, docID, version)
}

// GetUploadURL returns a time-limited PUT URL bound to contentType.
func (g *Gateway) GetUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	req, err := g.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", &Error{Kind: ErrKindTransient, Err: err}
	}
	return req.URL, nil
}

// GetDownloadURL returns a time-limited GET URL for key.
func (g *Gateway) GetDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := g.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", &Error{Kind: ErrKindTransient, Err: err}
	}
	return req.URL, nil
}

// Download fetches the raw bytes at key.
func (g *Gateway) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classifyError(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &Error{Kind: ErrKindTransient, Err: err}
	}
	return data, nil
}

func classifyError(err error) error {
	// The AWS SDK v2 surfaces "NoSuchKey"/"NotFound" via the error
	// string when no typed API error is registered for the backend,
	// which is common with non-AWS backends.
	msg := err.Error()
	for _, needle := range []string{"NoSuchKey", "NotFound", "404"} {
		if strings.Contains(msg, needle) {
			return &Error{Kind: ErrKindNotFound, Err: err}
		}
	}
	for _, needle := range []string{"AccessDenied", "Forbidden", "403", "SignatureDoesNotMatch"} {
		if strings.Contains(msg, needle) {
			return &Error{Kind: ErrKindAuth, Err: err}
		}
	}
	return &Error{Kind: ErrKindTransient, Err: err}
}
