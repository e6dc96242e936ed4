package document

import (
	"context"

	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
)

// Repository defines the storage contract for listing and deleting documents.
type Repository interface {
	List(ctx context.Context) ([]domdoc.Document, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Invalidator drops cached search results after a delete.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}
