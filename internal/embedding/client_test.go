package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func fakeEmbedServer(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		vectors := make([][]float32, len(req.Texts))
		for i := range vectors {
			vectors[i] = make([]float32, dim)
		}
		json.NewEncoder(w).Encode(embedResponse{Embeddings: vectors})
	}))
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	c := NewClient("http://unused", "test-model", "")
	out, err := c.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != nil {
		t.Errorf("expected nil output for empty input, got %v", out)
	}
}

func TestEmbedBatchSplitsAcrossBatches(t *testing.T) {
	srv := fakeEmbedServer(t, 4)
	defer srv.Close()

	c := NewClient(srv.URL, "test-model", "")
	c.batchSize = 3

	texts := make([]string, 7)
	for i := range texts {
		texts[i] = "text"
	}

	out, err := c.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 7 {
		t.Fatalf("expected 7 embeddings, got %d", len(out))
	}
	for _, e := range out {
		if len(e.Vector) != 4 {
			t.Errorf("expected 4-dim vector, got %d", len(e.Vector))
		}
		if e.Model != "test-model" {
			t.Errorf("expected model tag, got %q", e.Model)
		}
	}
}

func TestEmbedBatchPropagatesProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limit exceeded"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-model", "")
	_, err := c.EmbedBatch(context.Background(), []string{"a"})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestEmbedBatchSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{make([]float32, 4)}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-model", "sk-test-key")
	if _, err := c.EmbedBatch(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer sk-test-key" {
		t.Errorf("expected bearer token header, got %q", gotAuth)
	}
}
