// Package embedding batches text into fixed-dimension vectors via an
// HTTP embedding service, generalizing the single-text query-path
// embedder to bulk ingestion use.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
)

const (
	defaultBatchSize = 50
	batchDelay       = 100 * time.Millisecond
)

// Client calls the embedding HTTP service in batches.
type Client struct {
	endpoint  string
	apiKey    string
	client    *http.Client
	batchSize int
	model     string
}

// NewClient creates a Client against endpoint. apiKey may be empty for
// an unauthenticated local sidecar; hosted providers require it.
func NewClient(endpoint, modelName, apiKey string) *Client {
	return &Client{
		endpoint:  endpoint,
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 30 * time.Second},
		batchSize: defaultBatchSize,
		model:     modelName,
	}
}

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// EmbedBatch generates one 1536-dim vector per input text, in order,
// internally chunking into batches of batchSize with a short delay
// between calls to smooth rate limits. Provider errors are reported
// verbatim so the quality classifier can distinguish rate-limit and
// timeout failures. Empty input returns empty output.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([]model.ChunkEmbedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([]model.ChunkEmbedding, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := c.embedOne(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		for _, v := range vectors {
			out = append(out, model.ChunkEmbedding{Vector: v, Model: c.model})
		}

		if end < len(texts) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(batchDelay):
			}
		}
	}

	return out, nil
}

func (c *Client) embedOne(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embed response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed service returned %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed embedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal embed response: %w", err)
	}

	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed service returned %d vectors for %d inputs", len(parsed.Embeddings), len(texts))
	}

	return parsed.Embeddings, nil
}
