package semsearch

import (
	"context"
	"math"
	"strings"

	dombatch "github.com/kailas-cloud/semsearch/internal/domain/batch"
	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

// --- ingestUseCase mock ---

type mockIngestUC struct {
	insertFn func(ctx context.Context, content string) (int64, error)
	bulkFn   func(ctx context.Context, inputs []domdoc.Input) (*dombatch.Outcome, error)
}

func (m *mockIngestUC) Insert(ctx context.Context, content string) (int64, error) {
	return m.insertFn(ctx, content)
}

func (m *mockIngestUC) BulkInsert(ctx context.Context, inputs []domdoc.Input) (*dombatch.Outcome, error) {
	return m.bulkFn(ctx, inputs)
}

// --- documentUseCase mock ---

type mockDocumentUC struct {
	listFn   func(ctx context.Context) ([]domdoc.Document, error)
	deleteFn func(ctx context.Context, id int64) (bool, error)
}

func (m *mockDocumentUC) List(ctx context.Context) ([]domdoc.Document, error) {
	return m.listFn(ctx)
}

func (m *mockDocumentUC) Delete(ctx context.Context, id int64) (bool, error) {
	return m.deleteFn(ctx, id)
}

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, query string, limit int) (searchuc.Response, error)
}

func (m *mockSearchUC) Search(ctx context.Context, query string, limit int) (searchuc.Response, error) {
	return m.searchFn(ctx, query, limit)
}

// --- embedders ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

// letterEmbedder maps text onto normalized counts of a, b and c.
type letterEmbedder struct{}

func (letterEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	vec := []float32{0.01, 0.01, 0.01}
	for _, r := range strings.ToLower(text) {
		switch r {
		case 'a':
			vec[0]++
		case 'b':
			vec[1]++
		case 'c':
			vec[2]++
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return EmbeddingResult{Embedding: vec, TotalTokens: len(strings.Fields(text))}, nil
}

// --- helpers ---

func testClient(ingestSvc ingestUseCase, docSvc documentUseCase, searchSvc searchUseCase) *Client {
	return &Client{
		ingestSvc: ingestSvc,
		docSvc:    docSvc,
		searchSvc: searchSvc,
	}
}
