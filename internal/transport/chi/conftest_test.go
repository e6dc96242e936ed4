package chi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
	documentuc "github.com/kailas-cloud/semsearch/internal/usecase/document"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/semsearch/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

// memRepo is an in-memory document repository serving all use cases.
type memRepo struct {
	mu      sync.Mutex
	nextID  int64
	docs    map[int64]string
	failAll error
	pingErr error
}

func newMemRepo() *memRepo {
	return &memRepo{docs: map[int64]string{}}
}

func (m *memRepo) Insert(_ context.Context, doc domdoc.Document) (int64, error) {
	if m.failAll != nil {
		return 0, m.failAll
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.docs[m.nextID] = doc.Content()
	return m.nextID, nil
}

func (m *memRepo) BulkInsert(ctx context.Context, docs []domdoc.Document) ([]int64, error) {
	if m.failAll != nil {
		return nil, m.failAll
	}
	ids := make([]int64, len(docs))
	for i := range docs {
		ids[i], _ = m.Insert(ctx, docs[i])
	}
	return ids, nil
}

// Nearest returns documents in id order with distance growing with id.
func (m *memRepo) Nearest(_ context.Context, _ []float32, limit int) ([]result.Result, error) {
	if m.failAll != nil {
		return nil, m.failAll
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]result.Result, 0, len(m.docs))
	for id, c := range m.docs {
		out = append(out, result.FromDistance(id, c, float64(id)/10))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) List(_ context.Context) ([]domdoc.Document, error) {
	if m.failAll != nil {
		return nil, m.failAll
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domdoc.Document, 0, len(m.docs))
	for id, c := range m.docs {
		out = append(out, domdoc.Reconstruct(id, c, nil))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (m *memRepo) Delete(_ context.Context, id int64) (bool, error) {
	if m.failAll != nil {
		return false, m.failAll
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return false, nil
	}
	delete(m.docs, id)
	return true, nil
}

func (m *memRepo) Ping(_ context.Context) error { return m.pingErr }

// fakeEmbedder fails for texts containing "fail".
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if strings.Contains(text, "fail") {
		return domain.EmbeddingResult{}, domain.NewEmbeddingError("upstream returned 503", errors.New("secret detail"))
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0}, TotalTokens: 2}, nil
}

// memCache is a map-backed search cache.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]result.Result
}

func (c *memCache) Lookup(_ context.Context, query string, _ int) ([]result.Result, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[query]
	return r, query, ok
}

func (c *memCache) Store(_ context.Context, key string, results []result.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = results
}

type testEnv struct {
	repo   *memRepo
	server *httptest.Server
}

func newTestEnv(t *testing.T, cfg RouterConfig) *testEnv {
	t.Helper()
	repo := newMemRepo()
	logger := zap.NewNop()

	s := NewServer(
		ingestuc.New(repo, fakeEmbedder{}).WithMaxBatchSize(5),
		documentuc.New(repo),
		searchuc.New(repo, fakeEmbedder{}).WithCache(&memCache{entries: map[string][]result.Result{}}),
		healthuc.New(repo, nil),
		logger,
	)
	srv := httptest.NewServer(NewRouter(s, cfg, logger))
	t.Cleanup(srv.Close)
	return &testEnv{repo: repo, server: srv}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
