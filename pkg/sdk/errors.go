package semsearch

import "github.com/kailas-cloud/semsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidInput           = domain.ErrInvalidInput
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrStore                  = domain.ErrStore
	ErrDocumentNotFound       = domain.ErrDocumentNotFound
)
