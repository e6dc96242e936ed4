package searchcache

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
)

// memStore is an in-memory KV for tests. TTLs are recorded, not enforced.
type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) IncrBy(_ context.Context, key string, val int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(string(m.data[key]), 10, 64)
	m.data[key] = []byte(strconv.FormatInt(n+val, 10))
	return nil
}

func newTestCache(t *testing.T, cfg Config) (*Cache, *memStore) {
	t.Helper()
	ms := newMemStore()
	return New(ms, cfg, nil, zap.NewNop()), ms
}

// put stores results the way a search does: resolve the key via Lookup, then Store.
func put(ctx context.Context, c *Cache, query string, limit int, results []result.Result) {
	_, key, _ := c.Lookup(ctx, query, limit)
	c.Store(ctx, key, results)
}
