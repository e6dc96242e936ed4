package ingest

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/kailas-cloud/semsearch/internal/domain"
	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
)

// --- Mocks ---

type mockWriter struct {
	insertFn     func(ctx context.Context, doc domdoc.Document) (int64, error)
	bulkInsertFn func(ctx context.Context, docs []domdoc.Document) ([]int64, error)

	insertCalls int
	bulkCalls   int
	lastBulk    []domdoc.Document
}

func (m *mockWriter) Insert(ctx context.Context, doc domdoc.Document) (int64, error) {
	m.insertCalls++
	if m.insertFn != nil {
		return m.insertFn(ctx, doc)
	}
	return 1, nil
}

func (m *mockWriter) BulkInsert(ctx context.Context, docs []domdoc.Document) ([]int64, error) {
	m.bulkCalls++
	m.lastBulk = docs
	if m.bulkInsertFn != nil {
		return m.bulkInsertFn(ctx, docs)
	}
	ids := make([]int64, len(docs))
	for i := range docs {
		ids[i] = int64(100 + i)
	}
	return ids, nil
}

// mockEmbedder returns a fixed vector; texts containing failOn fail with an embedding error.
type mockEmbedder struct {
	failOn string
	tokens int
	calls  atomic.Int32
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	if m.failOn != "" && strings.Contains(text, m.failOn) {
		return domain.EmbeddingResult{}, domain.NewEmbeddingError("provider unavailable", nil)
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}, TotalTokens: m.tokens}, nil
}

type mockInvalidator struct {
	calls int
	err   error
}

func (m *mockInvalidator) Invalidate(_ context.Context) error {
	m.calls++
	return m.err
}

func inputs(texts ...string) []domdoc.Input {
	out := make([]domdoc.Input, len(texts))
	for i, t := range texts {
		out[i] = domdoc.NewInput(t)
	}
	return out
}
