package semsearch

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	storeDriver string // "postgres" or "sqlite"
	dsn         string
	path        string
	metric      string

	cacheDriver   string // "redis", "bolt" or "" (disabled)
	cacheAddrs    []string
	cachePassword string
	cachePath     string
	cacheTTL      time.Duration
	embeddingTTL  time.Duration

	embedder         Embedder
	vectorDimensions int
	maxBatchSize     int
	concurrency      int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithPostgres stores documents in Postgres with the pgvector extension.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.storeDriver = "postgres"
		c.dsn = dsn
	})
}

// WithSQLite stores documents in a local SQLite file.
func WithSQLite(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.storeDriver = "sqlite"
		c.path = path
	})
}

// WithMetric selects the vector distance: "cosine" (default) or "inner_product".
func WithMetric(metric string) Option {
	return optionFunc(func(c *clientConfig) {
		c.metric = metric
	})
}

// WithRedisCache caches search results and embeddings in Redis.
func WithRedisCache(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "redis"
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
	})
}

// WithBoltCache caches search results and embeddings in a local bbolt file.
func WithBoltCache(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "bolt"
		c.cachePath = path
	})
}

// WithCacheTTL sets how long search results stay cached. Default: 5 minutes.
func WithCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
	})
}

// WithEmbeddingCacheTTL caches document and query embeddings for ttl.
// Zero (default) disables the embedding cache.
func WithEmbeddingCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.embeddingTTL = ttl
	})
}

// WithEmbedder sets the text embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithVectorDimensions sets the embedding length. Defaults to 384 (all-MiniLM-L6-v2).
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithMaxBatchSize sets the maximum number of items per bulk insert.
// Default: 100.
func WithMaxBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxBatchSize = size
	})
}

// WithConcurrency bounds parallel embedding calls during bulk inserts. Default: 8.
func WithConcurrency(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.concurrency = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
