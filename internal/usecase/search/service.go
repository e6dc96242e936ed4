package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/search/request"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
)

// DefaultOverfetch is how many candidates per requested result are pulled from the store.
const DefaultOverfetch = 2

// Response is a ranked result set and whether it came from the cache.
type Response struct {
	Results []result.Result
	Cached  bool
}

// Service handles semantic search over stored documents.
type Service struct {
	repo      Repository
	embed     Embedder
	cache     Cache
	limits    request.Limits
	overfetch int
}

// New creates a search service without a result cache.
func New(repo Repository, embed Embedder) *Service {
	return &Service{
		repo:      repo,
		embed:     embed,
		limits:    request.DefaultLimits(),
		overfetch: DefaultOverfetch,
	}
}

// WithCache enables result caching.
func (s *Service) WithCache(c Cache) *Service {
	s.cache = c
	return s
}

// WithLimits configures query length and limit bounds.
func (s *Service) WithLimits(l request.Limits) *Service {
	s.limits = l
	return s
}

// WithOverfetch configures the candidate multiplier. Values below 1 are ignored.
func (s *Service) WithOverfetch(n int) *Service {
	if n >= 1 {
		s.overfetch = n
	}
	return s
}

// Search returns up to limit documents most similar to query, highest similarity first.
// A cache hit returns without calling the embedder or the store.
func (s *Service) Search(ctx context.Context, query string, limit int) (Response, error) {
	req, err := request.New(query, limit, s.limits)
	if err != nil {
		return Response{}, err
	}
	key := req.NormalizedQuery()

	var slot string
	if s.cache != nil {
		cached, k, ok := s.cache.Lookup(ctx, key, req.Limit())
		if ok {
			return Response{Results: cached, Cached: true}, nil
		}
		slot = k
	}

	embResult, err := s.embed.Embed(ctx, key)
	if err != nil {
		return Response{}, fmt.Errorf("vectorize query: %w", domain.AsEmbeddingFailure(err))
	}
	domain.UsageFromContext(ctx).AddTokens(embResult.TotalTokens)

	candidates, err := s.repo.Nearest(ctx, embResult.Embedding, s.overfetch*req.Limit())
	if err != nil {
		return Response{}, fmt.Errorf("nearest: %w", err)
	}

	results := result.Rank(candidates, req.Limit())
	if results == nil {
		results = []result.Result{}
	}

	if s.cache != nil {
		s.cache.Store(ctx, slot, results)
	}
	return Response{Results: results}, nil
}
