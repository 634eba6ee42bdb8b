package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
)

const cohereRerankURL = "https://api.cohere.com/v2/rerank"

// RerankResult is the outcome of one rerank attempt over the fused
// candidate chunks.
type RerankResult struct {
	Chunks  []model.ChunkResult
	Used    bool   // the reranker actually reordered the chunks
	Skipped bool   // the reranker was skipped (no key, or failed open)
	Error   string // failure detail when Used is false
	Latency time.Duration
}

// RerankerService reorders retrieved document chunks by relevance to
// the question via Cohere's rerank API. Reranking is an accuracy
// boost, not a correctness requirement, so with failOpen set a
// provider failure falls back to the RRF ordering instead of failing
// the query.
type RerankerService struct {
	apiKey   string
	model    string
	timeout  time.Duration
	maxDocs  int
	failOpen bool
	client   *http.Client
}

// NewRerankerService creates a RerankerService. An empty apiKey
// disables reranking entirely (Enabled returns false).
func NewRerankerService(apiKey, model string, timeout time.Duration, maxDocs int, failOpen bool) *RerankerService {
	return &RerankerService{
		apiKey:   apiKey,
		model:    model,
		timeout:  timeout,
		maxDocs:  maxDocs,
		failOpen: failOpen,
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether an API key is configured.
func (s *RerankerService) Enabled() bool {
	return s.apiKey != ""
}

// Rerank scores chunks against question and returns them reordered by
// relevance. Chunks beyond maxDocs keep their RRF position and are not
// sent to the provider.
func (s *RerankerService) Rerank(ctx context.Context, question string, chunks []model.ChunkResult) *RerankResult {
	start := time.Now()

	if !s.Enabled() {
		return &RerankResult{
			Chunks:  chunks,
			Skipped: true,
			Error:   "no API key configured",
			Latency: time.Since(start),
		}
	}

	toRerank := chunks
	if len(toRerank) > s.maxDocs {
		toRerank = toRerank[:s.maxDocs]
	}

	scores, err := s.callCohere(ctx, question, toRerank)
	if err != nil {
		return s.fallback(chunks, start, err.Error())
	}

	reranked := make([]model.ChunkResult, 0, len(scores))
	for _, r := range scores {
		if r.Index < 0 || r.Index >= len(toRerank) {
			slog.Warn("reranker returned invalid index", "index", r.Index, "total", len(toRerank))
			continue
		}
		chunk := toRerank[r.Index]
		chunk.RerankScore = r.RelevanceScore
		reranked = append(reranked, chunk)
	}

	return &RerankResult{
		Chunks:  reranked,
		Used:    true,
		Latency: time.Since(start),
	}
}

// callCohere posts the chunk texts and returns the provider's
// relevance-ordered index/score pairs.
func (s *RerankerService) callCohere(ctx context.Context, question string, chunks []model.ChunkResult) ([]cohereRerankEntry, error) {
	docs := make([]string, len(chunks))
	for i, c := range chunks {
		docs[i] = c.Text
	}

	bodyBytes, err := json.Marshal(cohereRerankRequest{
		Model:           s.model,
		Query:           question,
		Documents:       docs,
		TopN:            len(docs),
		ReturnDocuments: false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cohereRerankURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Cohere API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed cohereRerankResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return parsed.Results, nil
}

// fallback returns the original RRF-ordered chunks when failOpen is
// set, or an empty result the caller treats as a hard failure.
func (s *RerankerService) fallback(originalChunks []model.ChunkResult, start time.Time, errMsg string) *RerankResult {
	slog.Warn("reranker failed", "error", errMsg, "fail_open", s.failOpen)

	if s.failOpen {
		return &RerankResult{
			Chunks:  originalChunks,
			Skipped: true,
			Error:   errMsg,
			Latency: time.Since(start),
		}
	}
	return &RerankResult{
		Error:   errMsg,
		Latency: time.Since(start),
	}
}

// Cohere v2/rerank wire types.

type cohereRerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	TopN            int      `json:"top_n"`
	ReturnDocuments bool     `json:"return_documents"`
}

type cohereRerankResponse struct {
	ID      string              `json:"id"`
	Results []cohereRerankEntry `json:"results"`
}

type cohereRerankEntry struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}
