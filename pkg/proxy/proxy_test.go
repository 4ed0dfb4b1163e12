package proxy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/veloce-ai/veloce/pkg/cache"
	"github.com/veloce-ai/veloce/pkg/config"
	"github.com/veloce-ai/veloce/pkg/embedder"
	"github.com/veloce-ai/veloce/pkg/models"
	"github.com/veloce-ai/veloce/pkg/pipeline"
)

func newTestServer(t *testing.T, upstreamFails bool) *Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if upstreamFails {
			http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
			return
		}
		resp := map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float32{0.1, 0.2, 0.3}},
			},
			"model": "text-embedding-3-small",
			"usage": map[string]int{"prompt_tokens": 4, "total_tokens": 4},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(ts.Close)

	c, err := cache.New(cache.Options{Backend: cache.BackendMemory})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)

	e := embedder.New(embedder.Config{
		APIKey:     "sk-test",
		BaseURL:    ts.URL + "/v1",
		Dimensions: 3,
		MaxRetries: 1,
		Timeout:    5 * time.Second,
	})

	cfg := config.Default()
	return New(cfg, pipeline.New(c, e, nil, nil))
}

func postEmbeddings(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/embeddings", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestEmbeddingsEndpoint(t *testing.T) {
	s := newTestServer(t, false)

	w := postEmbeddings(t, s, `{"input":"hello"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp embeddingsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Object != "list" || len(resp.Data) != 1 {
		t.Fatalf("unexpected response shape: %+v", resp)
	}
	if len(resp.Data[0].Embedding) != 3 {
		t.Errorf("expected 3-dim vector, got %d", len(resp.Data[0].Embedding))
	}
	if resp.Cached || resp.Source != pipeline.SourceGenerated {
		t.Errorf("first call should be generated, got cached=%v source=%s", resp.Cached, resp.Source)
	}
	if resp.Usage.TotalTokens != 4 {
		t.Errorf("expected 4 tokens, got %d", resp.Usage.TotalTokens)
	}

	// Second identical request comes from the cache.
	w = postEmbeddings(t, s, `{"input":"hello"}`)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Cached || resp.Source != cache.SourceMemory {
		t.Errorf("second call should hit memory, got cached=%v source=%s", resp.Cached, resp.Source)
	}
}

func TestEmbeddingsBadBody(t *testing.T) {
	s := newTestServer(t, false)

	w := postEmbeddings(t, s, `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error.Kind != embedder.ErrKindInvalidInput {
		t.Errorf("expected invalid_input kind, got %s", resp.Error.Kind)
	}
}

func TestEmbeddingsEmptyInput(t *testing.T) {
	s := newTestServer(t, false)

	w := postEmbeddings(t, s, `{"input":"  "}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestEmbeddingsUpstreamFailure(t *testing.T) {
	s := newTestServer(t, true)

	w := postEmbeddings(t, s, `{"input":"hello"}`)
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d: %s", w.Code, w.Body.String())
	}

	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error.Kind != embedder.ErrKindExhaustedRetries {
		t.Errorf("expected exhausted_retries kind, got %s", resp.Error.Kind)
	}
}

func TestCacheStatsEndpoint(t *testing.T) {
	s := newTestServer(t, false)

	postEmbeddings(t, s, `{"input":"hello"}`)

	req := httptest.NewRequest(http.MethodGet, "/v1/cache/stats", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var stats models.CacheStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 1 || stats.Sets != 1 {
		t.Errorf("expected 1 entry and 1 set, got %+v", stats)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
