package document

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain"
	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
)

// Repo maps domain documents onto a db.DocumentStore and tags failures as store errors.
type Repo struct {
	store db.DocumentStore
}

// New creates a document repository.
func New(s db.DocumentStore) *Repo {
	return &Repo{store: s}
}

// Insert persists one document and returns its id.
func (r *Repo) Insert(ctx context.Context, doc domdoc.Document) (int64, error) {
	id, err := r.store.Insert(ctx, db.NewRow{Content: doc.Content(), Embedding: doc.Embedding()})
	if err != nil {
		return 0, domain.NewStoreError("insert", err)
	}
	return id, nil
}

// BulkInsert persists docs atomically and returns ids in input order.
func (r *Repo) BulkInsert(ctx context.Context, docs []domdoc.Document) ([]int64, error) {
	rows := make([]db.NewRow, len(docs))
	for i := range docs {
		rows[i] = db.NewRow{Content: docs[i].Content(), Embedding: docs[i].Embedding()}
	}
	ids, err := r.store.BulkInsert(ctx, rows)
	if err != nil {
		return nil, domain.NewStoreError("bulk_insert", err)
	}
	if len(ids) != len(docs) {
		return nil, domain.NewStoreError("bulk_insert",
			fmt.Errorf("store returned %d ids for %d rows", len(ids), len(docs)))
	}
	return ids, nil
}

// Nearest returns up to limit documents closest to vec, scored by similarity.
// Order follows the store (distance ascending, id ascending).
func (r *Repo) Nearest(ctx context.Context, vec []float32, limit int) ([]result.Result, error) {
	ranked, err := r.store.RankByDistance(ctx, vec, limit)
	if err != nil {
		return nil, domain.NewStoreError("rank", err)
	}
	out := make([]result.Result, len(ranked))
	for i, rk := range ranked {
		out[i] = result.FromDistance(rk.ID, rk.Content, rk.Distance)
	}
	return out, nil
}

// Delete removes a document. Returns false when it did not exist.
func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	ok, err := r.store.DeleteByID(ctx, id)
	if err != nil {
		return false, domain.NewStoreError("delete", err)
	}
	return ok, nil
}

// List returns every document ordered by id, without embeddings.
func (r *Repo) List(ctx context.Context) ([]domdoc.Document, error) {
	rows, err := r.store.ListAll(ctx)
	if err != nil {
		return nil, domain.NewStoreError("list", err)
	}
	docs := make([]domdoc.Document, len(rows))
	for i, row := range rows {
		docs[i] = domdoc.Reconstruct(row.ID, row.Content, nil)
	}
	return docs, nil
}
