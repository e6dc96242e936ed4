package search

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
)

// Repository defines the storage contract for search operations.
type Repository interface {
	Nearest(ctx context.Context, vec []float32, limit int) ([]result.Result, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Cache stores ranked results per (normalized query, limit).
// Lookup resolves the entry key once; Store writes to exactly that key.
type Cache interface {
	Lookup(ctx context.Context, query string, limit int) ([]result.Result, string, bool)
	Store(ctx context.Context, key string, results []result.Result)
}
