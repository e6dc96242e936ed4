package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/config"
	dbSQLite "github.com/kailas-cloud/semsearch/internal/db/sqlite"
	"github.com/kailas-cloud/semsearch/internal/domain"
)

var vocab = []string{"cat", "dog", "car", "bus"}

// keywordProvider embeds text as normalized keyword counts over a tiny vocabulary.
type keywordProvider struct {
	calls atomic.Int32
}

func (p *keywordProvider) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	p.calls.Add(1)
	vec := make([]float32, len(vocab))
	for _, w := range strings.Fields(strings.ToLower(text)) {
		for i, v := range vocab {
			if w == v {
				vec[i]++
			}
		}
	}
	for i := range vec {
		vec[i] += 0.01
	}
	norm, err := domain.Normalize(vec)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: norm, TotalTokens: len(strings.Fields(text))}, nil
}

func newTestApp(t *testing.T) (*App, *keywordProvider) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Config{
		HTTP:      config.HTTPConfig{Port: 8080},
		Store:     config.StoreConfig{Driver: config.StoreSQLite, Path: filepath.Join(dir, "docs.db")},
		Cache:     config.CacheConfig{Driver: config.CacheBolt, Path: filepath.Join(dir, "cache.db"), InvalidateOnWrite: true},
		Embedding: config.EmbeddingConfig{BaseURL: "http://unused", Dimensions: len(vocab), CacheTTLSec: 60},
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	store, err := OpenStore(context.Background(), cfg.Store, cfg.Embedding.Dimensions)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	cache, err := OpenCache(cfg.Cache)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}

	provider := &keywordProvider{}
	a := NewWithBackends(cfg, store, cache, provider, zap.NewNop())
	t.Cleanup(a.Close)

	if err := a.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return a, provider
}

func call(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

type searchBody struct {
	Data []struct {
		ID         int64   `json:"id"`
		Content    string  `json:"content"`
		Similarity float64 `json:"similarity"`
	} `json:"data"`
}

func TestApp_EndToEnd(t *testing.T) {
	a, provider := newTestApp(t)
	h := a.Handler()

	rr := call(t, h, http.MethodPost, "/v1/documents/bulk",
		`{"documents":["the cat sleeps","a dog barks","red car drives"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("bulk status = %d: %s", rr.Code, rr.Body)
	}

	rr = call(t, h, http.MethodPost, "/v1/search", `{"query":"cat","limit":1}`)
	if rr.Code != http.StatusOK || rr.Header().Get("X-Cache") != "miss" {
		t.Fatalf("search status = %d cache = %q: %s", rr.Code, rr.Header().Get("X-Cache"), rr.Body)
	}
	var res searchBody
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Data) != 1 || res.Data[0].Content != "the cat sleeps" {
		t.Fatalf("unexpected results: %+v", res.Data)
	}
	if res.Data[0].Similarity <= 0.9 || res.Data[0].Similarity > 1 {
		t.Errorf("similarity = %f", res.Data[0].Similarity)
	}

	calls := provider.calls.Load()
	rr = call(t, h, http.MethodPost, "/v1/search", `{"query":"CAT ","limit":1}`)
	if rr.Header().Get("X-Cache") != "hit" {
		t.Errorf("second search X-Cache = %q, want hit", rr.Header().Get("X-Cache"))
	}
	if provider.calls.Load() != calls {
		t.Error("cache hit must not reach the provider")
	}

	// Re-inserting known content is served from the embedding cache.
	rr = call(t, h, http.MethodPost, "/v1/document", `{"document":"the cat sleeps"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("insert status = %d: %s", rr.Code, rr.Body)
	}
	if provider.calls.Load() != calls {
		t.Error("repeated content must hit the embedding cache")
	}

	rr = call(t, h, http.MethodDelete, "/v1/delete-document/1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d: %s", rr.Code, rr.Body)
	}
	rr = call(t, h, http.MethodDelete, "/v1/delete-document/1", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rr.Code)
	}

	// Writes bump the cache generation, so the next search recomputes.
	rr = call(t, h, http.MethodPost, "/v1/search", `{"query":"cat","limit":1}`)
	if rr.Header().Get("X-Cache") != "miss" {
		t.Errorf("search after delete X-Cache = %q, want miss", rr.Header().Get("X-Cache"))
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Data) != 1 || res.Data[0].ID != 4 {
		t.Errorf("expected the re-inserted document, got %+v", res.Data)
	}

	rr = call(t, h, http.MethodGet, "/v1/all-documents", "")
	var list struct {
		Data []struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 3 || list.Data[0].ID != 2 {
		t.Errorf("unexpected list: %+v", list.Data)
	}

	rr = call(t, h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Errorf("health status = %d: %s", rr.Code, rr.Body)
	}
}

func TestOpenCache_None(t *testing.T) {
	c, err := OpenCache(config.CacheConfig{Driver: config.CacheNone})
	if err != nil || c != nil {
		t.Fatalf("OpenCache(none) = (%v, %v), want (nil, nil)", c, err)
	}
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	if _, err := OpenStore(context.Background(), config.StoreConfig{Driver: "mysql"}, 3); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestApp_WithoutCache(t *testing.T) {
	dir := t.TempDir()
	store, err := dbSQLite.NewStore(dbSQLite.Config{Path: filepath.Join(dir, "d.db"), Dimensions: len(vocab), Metric: "cosine"})
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Config{HTTP: config.HTTPConfig{Port: 1}, Embedding: config.EmbeddingConfig{Dimensions: len(vocab)}}
	cfg.ApplyDefaults()

	a := NewWithBackends(cfg, store, nil, &keywordProvider{}, zap.NewNop())
	t.Cleanup(a.Close)
	if err := a.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}

	h := a.Handler()
	call(t, h, http.MethodPost, "/v1/document", `{"document":"dog and bus"}`)
	for i := 0; i < 2; i++ {
		rr := call(t, h, http.MethodPost, "/v1/search", `{"query":"dog"}`)
		if rr.Header().Get("X-Cache") != "miss" {
			t.Errorf("search %d X-Cache = %q, want miss without a cache", i, rr.Header().Get("X-Cache"))
		}
	}
}
