package searchcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
)

// DefaultTTL is how long a result set stays cached.
const DefaultTTL = 300 * time.Second

// store is the consumer interface for the result cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) error
}

// Config controls key scoping, lifetime and write invalidation.
type Config struct {
	KeyPrefix string
	TTL       time.Duration
	// InvalidateOnWrite mixes a generation counter into every key; Invalidate bumps it.
	// When false, cached results may be stale for up to TTL after a mutation.
	InvalidateOnWrite bool
}

// Cache stores ranked search results keyed by normalized query and limit.
// Backend failures are logged and reported as misses.
type Cache struct {
	store      store
	cfg        Config
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a search result cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(s store, cfg Config, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{store: s, cfg: cfg, cacheTotal: cacheTotal, logger: logger}
}

type entry struct {
	ID         int64   `json:"id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// Lookup returns cached results for (query, limit) and the key they live under.
// On a miss the key is what Store must be given: it pins the generation read here,
// so results computed across a concurrent Invalidate land under the old generation.
func (c *Cache) Lookup(ctx context.Context, query string, limit int) ([]result.Result, string, bool) {
	key := c.key(ctx, query, limit)

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached search results", zap.String("key", key), zap.Error(err))
		}
		c.inc("miss")
		return nil, key, false
	}

	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warn("Failed to parse cached search results", zap.String("key", key), zap.Error(err))
		c.inc("miss")
		return nil, key, false
	}

	out := make([]result.Result, len(entries))
	for i, e := range entries {
		out[i] = result.New(e.ID, e.Content, e.Similarity)
	}
	c.inc("hit")
	return out, key, true
}

// Store caches results under a key returned by Lookup with the configured TTL.
func (c *Cache) Store(ctx context.Context, key string, results []result.Result) {
	entries := make([]entry, len(results))
	for i := range results {
		entries[i] = entry{ID: results[i].ID(), Content: results[i].Content(), Similarity: results[i].Similarity()}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		c.logger.Warn("Failed to encode search results", zap.Error(err))
		return
	}

	if err := c.store.SetWithTTL(ctx, key, data, c.cfg.TTL); err != nil {
		c.logger.Warn("Failed to cache search results", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate makes every cached result unreachable. No-op unless InvalidateOnWrite is set.
func (c *Cache) Invalidate(ctx context.Context) error {
	if !c.cfg.InvalidateOnWrite {
		return nil
	}
	if err := c.store.IncrBy(ctx, c.generationKey(), 1); err != nil {
		return fmt.Errorf("bump search cache generation: %w", err)
	}
	return nil
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *Cache) generationKey() string {
	return c.cfg.KeyPrefix + "search_gen"
}

func (c *Cache) generation(ctx context.Context) int64 {
	data, err := c.store.Get(ctx, c.generationKey())
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to read search cache generation", zap.Error(err))
		}
		return 0
	}
	gen, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0
	}
	return gen
}

func (c *Cache) key(ctx context.Context, query string, limit int) string {
	h := sha256.New()
	h.Write([]byte(query))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(limit)))
	if c.cfg.InvalidateOnWrite {
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatInt(c.generation(ctx), 10)))
	}
	return c.cfg.KeyPrefix + "search:" + hex.EncodeToString(h.Sum(nil))
}
