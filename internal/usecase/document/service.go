package document

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
)

// Service lists and deletes stored documents.
type Service struct {
	repo        Repository
	invalidator Invalidator
	logger      *zap.Logger
}

// New creates a document service.
func New(repo Repository) *Service {
	return &Service{repo: repo, logger: zap.NewNop()}
}

// WithInvalidator sets the cache invalidator bumped after a successful delete.
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

// List returns every stored document ordered by id.
func (s *Service) List(ctx context.Context) ([]domdoc.Document, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Delete removes the document with the given id.
// Returns false, without error, when no such document exists.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, domain.NewValidationError("id", "must be a positive integer")
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}

	if deleted && s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			s.logger.Warn("Failed to invalidate search cache", zap.Int64("id", id), zap.Error(err))
		}
	}
	return deleted, nil
}
