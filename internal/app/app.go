package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/config"
	"github.com/kailas-cloud/semsearch/internal/db"
	dbBolt "github.com/kailas-cloud/semsearch/internal/db/bolt"
	dbPostgres "github.com/kailas-cloud/semsearch/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/semsearch/internal/db/redis"
	dbSQLite "github.com/kailas-cloud/semsearch/internal/db/sqlite"
	"github.com/kailas-cloud/semsearch/internal/domain"
	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
	"github.com/kailas-cloud/semsearch/internal/domain/search/request"
	"github.com/kailas-cloud/semsearch/internal/metrics"
	documentrepo "github.com/kailas-cloud/semsearch/internal/repository/document"
	"github.com/kailas-cloud/semsearch/internal/repository/embcache"
	"github.com/kailas-cloud/semsearch/internal/repository/searchcache"
	chiTransport "github.com/kailas-cloud/semsearch/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/semsearch/internal/transport/openai"
	documentuc "github.com/kailas-cloud/semsearch/internal/usecase/document"
	embeddinguc "github.com/kailas-cloud/semsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/semsearch/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

// App is the composition root: backends, embedder chain and use case services.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	store db.VectorStore
	cache db.Cache // nil when caching is disabled

	Ingest    *ingestuc.Service
	Documents *documentuc.Service
	Search    *searchuc.Service
	Health    *healthuc.Service
}

// New connects to the configured backends and wires all services.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	// Register embedding metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()

	store, err := OpenStore(ctx, cfg.Store, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, err
	}

	readiness := time.Duration(cfg.Store.ReadinessTimeout) * time.Second
	if err := db.WaitForReady(ctx, store, readiness); err != nil {
		store.Close()
		return nil, fmt.Errorf("document store not ready: %w", err)
	}
	logger.Info("Connected to document store",
		zap.String("driver", cfg.Store.Driver),
		zap.String("metric", cfg.Store.Metric),
	)

	cache, err := OpenCache(cfg.Cache)
	if err != nil {
		store.Close()
		return nil, err
	}
	if cache != nil {
		if err := db.WaitForReady(ctx, cache, readiness); err != nil {
			store.Close()
			cache.Close()
			return nil, fmt.Errorf("cache not ready: %w", err)
		}
		logger.Info("Connected to cache", zap.String("driver", cfg.Cache.Driver))
	}

	return wire(cfg, store, cache, newProvider(cfg.Embedding, logger), logger), nil
}

// NewWithBackends wires services over already opened backends and an embedding provider.
// cache may be nil.
func NewWithBackends(
	cfg config.Config, store db.VectorStore, cache db.Cache, provider domain.Embedder, logger *zap.Logger,
) *App {
	metrics.RegisterEmbeddingMetrics()
	return wire(cfg, store, cache, provider, logger)
}

func wire(
	cfg config.Config, store db.VectorStore, cache db.Cache, provider domain.Embedder, logger *zap.Logger,
) *App {
	docEmbedder := BuildEmbedder(cfg.Embedding, provider, cfg.Embedding.DocumentInstruction, cache, cfg.Cache.KeyPrefix, logger)
	queryEmbedder := BuildEmbedder(cfg.Embedding, provider, cfg.Embedding.QueryInstruction, cache, cfg.Cache.KeyPrefix, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	docRepo := documentrepo.New(store)

	ingestSvc := ingestuc.New(docRepo, docEmbedder).
		WithBounds(domdoc.Bounds{MinLength: cfg.Ingest.MinContentLength, MaxLength: cfg.Ingest.MaxContentLength}).
		WithMaxBatchSize(cfg.Ingest.MaxBatchSize).
		WithConcurrency(cfg.Ingest.Concurrency).
		WithItemTimeout(time.Duration(cfg.Ingest.ItemTimeoutSec) * time.Second).
		WithLogger(logger)
	docSvc := documentuc.New(docRepo).WithLogger(logger)
	searchSvc := searchuc.New(docRepo, queryEmbedder).
		WithLimits(request.Limits{
			MinQueryLength: cfg.Search.MinQueryLength,
			MaxQueryLength: cfg.Search.MaxQueryLength,
			DefaultLimit:   cfg.Search.DefaultLimit,
			MaxLimit:       cfg.Search.MaxLimit,
		}).
		WithOverfetch(cfg.Search.OverfetchFactor)
	healthSvc := healthuc.New(store, embeddingChecker(cfg.Embedding, provider))

	// Pass nil interfaces (not typed nil pointers) when the cache is disabled.
	if cache != nil {
		results := searchcache.New(cache, searchcache.Config{
			KeyPrefix:         cfg.Cache.KeyPrefix,
			TTL:               time.Duration(cfg.Cache.TTLSec) * time.Second,
			InvalidateOnWrite: cfg.Cache.InvalidateOnWrite,
		}, metrics.SearchCacheTotal, logger)
		searchSvc.WithCache(results)
		ingestSvc.WithInvalidator(results)
		docSvc.WithInvalidator(results)
		healthSvc.WithCache(cache)
	}

	return &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		cache:     cache,
		Ingest:    ingestSvc,
		Documents: docSvc,
		Search:    searchSvc,
		Health:    healthSvc,
	}
}

// OpenStore creates the configured document store.
func OpenStore(ctx context.Context, cfg config.StoreConfig, dims int) (db.VectorStore, error) {
	switch cfg.Driver {
	case config.StorePostgres:
		s, err := dbPostgres.NewStore(ctx, dbPostgres.Config{
			DSN:        cfg.DSN,
			Dimensions: dims,
			Metric:     db.Metric(cfg.Metric),
			HNSWIndex:  cfg.HNSWIndex,
			MaxConns:   int32(cfg.MaxConns),
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	case config.StoreSQLite:
		s, err := dbSQLite.NewStore(dbSQLite.Config{
			Path:       cfg.Path,
			Dimensions: dims,
			Metric:     db.Metric(cfg.Metric),
		})
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// OpenCache creates the configured cache backend. Returns nil for driver "none".
func OpenCache(cfg config.CacheConfig) (db.Cache, error) {
	switch cfg.Driver {
	case config.CacheRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis cache: %w", err)
		}
		return s, nil
	case config.CacheBolt:
		s, err := dbBolt.NewStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open bolt cache: %w", err)
		}
		return s, nil
	case config.CacheNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

func newProvider(cfg config.EmbeddingConfig, logger *zap.Logger) *openaiEmb.Embedder {
	return openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		Model:             cfg.Model,
		Dimensions:        cfg.Dimensions,
		RequestDimensions: cfg.RequestDimensions,
		Normalize:         cfg.NormalizeEnabled(),
		Timeout:           time.Duration(cfg.TimeoutSec) * time.Second,
		Provider:          cfg.Provider,
		Logger:            logger,
	})
}

// BuildEmbedder assembles the decorator chain: provider -> cached -> instrumented -> instruction.
func BuildEmbedder(
	cfg config.EmbeddingConfig,
	provider domain.Embedder,
	instruction string,
	cache db.Cache,
	keyPrefix string,
	logger *zap.Logger,
) domain.Embedder {
	embedder := provider

	if cache != nil && cfg.CacheTTLSec > 0 {
		embedder = embcache.New(provider, cache, embcache.Config{
			KeyPrefix:  keyPrefix,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			TTL:        time.Duration(cfg.CacheTTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger)

	// Instruction prefix is outermost so the cache key includes it
	return domain.WithInstruction(embedder, instruction)
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

func embeddingChecker(cfg config.EmbeddingConfig, provider domain.Embedder) healthuc.EmbeddingChecker {
	if !cfg.HealthCheck {
		return nil
	}
	return &embeddingHealthChecker{embedder: provider}
}

// Migrate creates the document store schema.
func (a *App) Migrate(ctx context.Context) error {
	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	a.logger.Info("Schema migrated", zap.String("driver", a.cfg.Store.Driver))
	return nil
}

// Handler returns the HTTP API handler.
func (a *App) Handler() http.Handler {
	server := chiTransport.NewServer(a.Ingest, a.Documents, a.Search, a.Health, a.logger)
	return chiTransport.NewRouter(server, chiTransport.RouterConfig{
		RateLimit: chiTransport.RateLimitConfig{
			Requests: a.cfg.HTTP.RateLimit.Requests,
			Window:   time.Duration(a.cfg.HTTP.RateLimit.WindowSec) * time.Second,
		},
	}, a.logger)
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", a.cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.Handler(),
		ReadTimeout:  time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	a.logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.logger.Info("Server stopped gracefully")
	return nil
}

// Close releases backend connections.
func (a *App) Close() {
	if a.cache != nil {
		a.cache.Close()
	}
	a.store.Close()
}
