package semsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/app"
	"github.com/kailas-cloud/semsearch/internal/config"
	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain"
	dombatch "github.com/kailas-cloud/semsearch/internal/domain/batch"
	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces for substitution in tests.
type ingestUseCase interface {
	Insert(ctx context.Context, content string) (int64, error)
	BulkInsert(ctx context.Context, inputs []domdoc.Input) (*dombatch.Outcome, error)
}

type documentUseCase interface {
	List(ctx context.Context) ([]domdoc.Document, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type searchUseCase interface {
	Search(ctx context.Context, query string, limit int) (searchuc.Response, error)
}

// Client is the semsearch SDK entry point.
type Client struct {
	store     db.Pinger
	ingestSvc ingestUseCase
	docSvc    documentUseCase
	searchSvc searchUseCase
	healthSvc healthUseCase
	closeFn   func()
	obs       *observer
}

// New opens the configured backends, creates the schema and wires the pipeline.
// The provided context is used for the readiness checks and migration.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.storeDriver == "" {
		return nil, errors.New("semsearch: document store required (use WithPostgres or WithSQLite)")
	}
	if cfg.embedder == nil {
		return nil, errors.New("semsearch: embedder required (use WithEmbedder)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	appCfg := buildConfig(cfg)

	store, err := app.OpenStore(ctx, appCfg.Store, appCfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("semsearch: %w", err)
	}
	if err := db.WaitForReady(ctx, store, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("semsearch: document store not ready: %w", err)
	}

	cache, err := app.OpenCache(appCfg.Cache)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("semsearch: %w", err)
	}
	if cache != nil {
		if err := db.WaitForReady(ctx, cache, defaultReadinessTimeout); err != nil {
			store.Close()
			cache.Close()
			return nil, fmt.Errorf("semsearch: cache not ready: %w", err)
		}
	}

	a := app.NewWithBackends(appCfg, store, cache, &embedderAdapter{inner: cfg.embedder}, zap.NewNop())
	if err := a.Migrate(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("semsearch: %w", err)
	}

	return &Client{
		store:     store,
		ingestSvc: a.Ingest,
		docSvc:    a.Documents,
		searchSvc: a.Search,
		healthSvc: a.Health,
		closeFn:   a.Close,
		obs:       obs,
	}, nil
}

// buildConfig maps client options onto the server configuration so both share defaults.
func buildConfig(c *clientConfig) config.Config {
	cfg := config.Config{
		Store: config.StoreConfig{
			Driver: c.storeDriver,
			DSN:    c.dsn,
			Path:   c.path,
			Metric: c.metric,
		},
		Cache: config.CacheConfig{
			Driver:            c.cacheDriver,
			Addrs:             c.cacheAddrs,
			Password:          c.cachePassword,
			Path:              c.cachePath,
			TTLSec:            int(c.cacheTTL / time.Second),
			InvalidateOnWrite: true,
		},
		Embedding: config.EmbeddingConfig{
			Provider:    "sdk",
			Dimensions:  c.vectorDimensions,
			CacheTTLSec: int(c.embeddingTTL / time.Second),
		},
		Ingest: config.IngestConfig{
			MaxBatchSize: c.maxBatchSize,
			Concurrency:  c.concurrency,
		},
	}
	if cfg.Cache.Driver == "" {
		cfg.Cache.Driver = config.CacheNone
	}
	cfg.ApplyDefaults()
	return cfg
}

// Close releases all resources.
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// Ping checks document store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, domain.AsEmbeddingFailure(fmt.Errorf("embed: %w", err))
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}
