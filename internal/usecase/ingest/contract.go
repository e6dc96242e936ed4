package ingest

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/domain"
	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
)

// DocumentWriter persists embedded documents.
type DocumentWriter interface {
	Insert(ctx context.Context, doc domdoc.Document) (int64, error)
	BulkInsert(ctx context.Context, docs []domdoc.Document) ([]int64, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Invalidator drops cached search results after a write.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}
