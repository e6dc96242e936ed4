package semsearch

import (
	"context"
	"time"

	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
)

// Insert embeds and stores one document and returns its id.
func (c *Client) Insert(ctx context.Context, content string) (id int64, err error) {
	start := time.Now()
	defer func() { c.obs.observe("insert", start, err) }()

	return c.ingestSvc.Insert(ctx, content)
}

// BulkInsert stores many documents. A failing item never prevents the others
// from being stored; only batch-level errors (empty or oversized batch) are returned.
func (c *Client) BulkInsert(ctx context.Context, contents []string) (res BulkResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("bulk_insert", start, err) }()

	inputs := make([]domdoc.Input, len(contents))
	for i, s := range contents {
		inputs[i] = domdoc.NewInput(s)
	}

	out, err := c.ingestSvc.BulkInsert(ctx, inputs)
	if err != nil {
		return BulkResult{}, err
	}

	res = BulkResult{
		Total:      out.Total,
		Successful: out.Successful,
		Failed:     out.Failed,
		Stored:     make([]BulkStored, 0, len(out.Results)),
		Errors:     make([]BulkError, 0, len(out.Errors)),
		StoreError: out.StoreError,
	}
	for _, s := range out.Results {
		res.Stored = append(res.Stored, BulkStored{Index: s.Index, ID: s.ID, Content: s.Content})
	}
	for _, f := range out.Errors {
		res.Errors = append(res.Errors, BulkError{
			Index: f.Index, Content: f.Content, Stage: string(f.Stage), Reason: f.Reason,
		})
	}
	return res, nil
}

// List returns every stored document ordered by id.
func (c *Client) List(ctx context.Context) (docs []Document, err error) {
	start := time.Now()
	defer func() { c.obs.observe("list", start, err) }()

	stored, err := c.docSvc.List(ctx)
	if err != nil {
		return nil, err
	}
	docs = make([]Document, len(stored))
	for i := range stored {
		docs[i] = Document{ID: stored[i].ID(), Content: stored[i].Content()}
	}
	return docs, nil
}

// Delete removes a document. It reports false when no document had that id.
func (c *Client) Delete(ctx context.Context, id int64) (deleted bool, err error) {
	start := time.Now()
	defer func() { c.obs.observe("delete", start, err) }()

	return c.docSvc.Delete(ctx, id)
}

// Search returns up to limit documents most similar to query.
// A limit of 0 uses the default.
func (c *Client) Search(ctx context.Context, query string, limit int) (resp SearchResponse, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	r, err := c.searchSvc.Search(ctx, query, limit)
	if err != nil {
		return SearchResponse{}, err
	}
	resp = SearchResponse{Results: make([]SearchResult, len(r.Results)), Cached: r.Cached}
	for i := range r.Results {
		resp.Results[i] = SearchResult{
			ID:         r.Results[i].ID(),
			Content:    r.Results[i].Content(),
			Similarity: r.Results[i].Similarity(),
		}
	}
	return resp, nil
}
