package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/semsearch/internal/domain"
	dombatch "github.com/kailas-cloud/semsearch/internal/domain/batch"
	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
	logpkg "github.com/kailas-cloud/semsearch/internal/logger"
	"github.com/kailas-cloud/semsearch/internal/metrics"
)

// Defaults for bulk ingestion.
const (
	MaxBatchSize       = 100
	DefaultConcurrency = 8
	DefaultItemTimeout = 30 * time.Second
)

// Service embeds and stores documents, one at a time or in bulk with per-item error reporting.
type Service struct {
	docs         DocumentWriter
	embed        Embedder
	invalidator  Invalidator
	bounds       domdoc.Bounds
	maxBatchSize int
	concurrency  int
	itemTimeout  time.Duration
	logger       *zap.Logger
}

// New creates an ingestion service.
func New(docs DocumentWriter, embed Embedder) *Service {
	return &Service{
		docs:         docs,
		embed:        embed,
		bounds:       domdoc.DefaultBounds(),
		maxBatchSize: MaxBatchSize,
		concurrency:  DefaultConcurrency,
		itemTimeout:  DefaultItemTimeout,
		logger:       zap.NewNop(),
	}
}

// WithBounds configures content length bounds.
func (s *Service) WithBounds(b domdoc.Bounds) *Service {
	s.bounds = b
	return s
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// WithConcurrency bounds how many items of a batch are embedded at once.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// WithItemTimeout bounds the embedding call of each bulk item.
func (s *Service) WithItemTimeout(d time.Duration) *Service {
	if d > 0 {
		s.itemTimeout = d
	}
	return s
}

// WithInvalidator sets the cache invalidator bumped after successful writes.
func (s *Service) WithInvalidator(inv Invalidator) *Service {
	s.invalidator = inv
	return s
}

// WithLogger sets the logger.
func (s *Service) WithLogger(l *zap.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

// MaxBatch returns the configured maximum batch size.
func (s *Service) MaxBatch() int { return s.maxBatchSize }

// Insert validates, embeds and stores one document. The store is not touched
// unless validation and embedding both succeed.
func (s *Service) Insert(ctx context.Context, content string) (int64, error) {
	clean, err := s.bounds.Clean(content)
	if err != nil {
		countItem(domain.StageValidation)
		return 0, err
	}

	embResult, err := s.embed.Embed(ctx, clean)
	if err != nil {
		countItem(domain.StageEmbedding)
		return 0, fmt.Errorf("vectorize: %w", domain.AsEmbeddingFailure(err))
	}
	domain.UsageFromContext(ctx).AddTokens(embResult.TotalTokens)

	id, err := s.docs.Insert(ctx, domdoc.New(clean, embResult.Embedding))
	if err != nil {
		countItem(domain.StageStore)
		return 0, fmt.Errorf("insert: %w", err)
	}

	countItem("")
	s.invalidate(ctx)
	return id, nil
}

// item is the per-index working slot of a bulk insert.
// Each embedding task writes only its own slot.
type item struct {
	content string
	vec     []float32
	err     error
}

// BulkInsert validates and embeds every input independently, then stores all
// surviving documents in one atomic write. Only a batch size violation fails
// the whole request; everything else is reported per item in the outcome.
func (s *Service) BulkInsert(ctx context.Context, inputs []domdoc.Input) (*dombatch.Outcome, error) {
	if len(inputs) == 0 {
		return nil, domain.NewValidationError("documents", "must contain at least one item")
	}
	if len(inputs) > s.maxBatchSize {
		return nil, domain.NewValidationError("documents",
			fmt.Sprintf("batch size %d exceeds %d", len(inputs), s.maxBatchSize))
	}

	out := dombatch.NewOutcome(len(inputs))
	items := make([]item, len(inputs))

	pending := make([]int, 0, len(inputs))
	for i, in := range inputs {
		items[i].content = in.Content()
		if err := in.Err(); err != nil {
			items[i].err = err
			continue
		}
		clean, err := s.bounds.Clean(in.Content())
		if err != nil {
			items[i].err = err
			continue
		}
		items[i].content = clean
		pending = append(pending, i)
	}

	s.embedAll(ctx, items, pending)

	valid := make([]domdoc.Document, 0, len(pending))
	validIdx := make([]int, 0, len(pending))
	for i := range items {
		if items[i].err != nil {
			out.AddFailure(i, items[i].content, items[i].err)
			continue
		}
		valid = append(valid, domdoc.New(items[i].content, items[i].vec))
		validIdx = append(validIdx, i)
	}

	if len(valid) > 0 {
		ids, err := s.docs.BulkInsert(ctx, valid)
		if err != nil {
			logpkg.FromContextOr(ctx, s.logger).Error("Bulk insert write failed",
				zap.Int("total", out.Total),
				zap.Int("documents", len(valid)),
				zap.Error(err),
			)
			out.StoreError = domain.Reason(err)
			for _, i := range validIdx {
				out.AddFailure(i, items[i].content, err)
			}
		} else {
			for k, i := range validIdx {
				out.AddSuccess(i, ids[k], items[i].content)
			}
			s.invalidate(ctx)
		}
	}

	out.Sort()
	for _, f := range out.Errors {
		countItem(f.Stage)
	}
	for range out.Results {
		countItem("")
	}

	s.logger.Debug("Bulk insert finished",
		zap.Int("total", out.Total),
		zap.Int("successful", out.Successful),
		zap.Int("failed", out.Failed),
	)
	return out, nil
}

// embedAll embeds the pending items concurrently, each under its own timeout.
func (s *Service) embedAll(ctx context.Context, items []item, pending []int) {
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	usage := domain.UsageFromContext(ctx)
	for _, i := range pending {
		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(ctx, s.itemTimeout)
			defer cancel()

			embResult, err := s.embed.Embed(itemCtx, items[i].content)
			if err != nil {
				items[i].err = domain.AsEmbeddingFailure(err)
				return nil
			}
			usage.AddTokens(embResult.TotalTokens)
			items[i].vec = embResult.Embedding
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.logger.Warn("Failed to invalidate search cache", zap.Error(err))
	}
}

func countItem(stage domain.Stage) {
	status := string(stage)
	if status == "" {
		status = "ok"
	}
	metrics.IngestItemsTotal.WithLabelValues(status).Inc()
}
