package document

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/db"
)

// mockStore implements db.DocumentStore for tests.
type mockStore struct {
	insertFn     func(ctx context.Context, row db.NewRow) (int64, error)
	bulkInsertFn func(ctx context.Context, rows []db.NewRow) ([]int64, error)
	rankFn       func(ctx context.Context, query []float32, limit int) ([]db.Ranked, error)
	deleteFn     func(ctx context.Context, id int64) (bool, error)
	listFn       func(ctx context.Context) ([]db.Row, error)
}

func (m *mockStore) Insert(ctx context.Context, row db.NewRow) (int64, error) {
	if m.insertFn != nil {
		return m.insertFn(ctx, row)
	}
	return 1, nil
}

func (m *mockStore) BulkInsert(ctx context.Context, rows []db.NewRow) ([]int64, error) {
	if m.bulkInsertFn != nil {
		return m.bulkInsertFn(ctx, rows)
	}
	ids := make([]int64, len(rows))
	for i := range rows {
		ids[i] = int64(i + 1)
	}
	return ids, nil
}

func (m *mockStore) RankByDistance(ctx context.Context, query []float32, limit int) ([]db.Ranked, error) {
	if m.rankFn != nil {
		return m.rankFn(ctx, query, limit)
	}
	return nil, nil
}

func (m *mockStore) DeleteByID(ctx context.Context, id int64) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return true, nil
}

func (m *mockStore) ListAll(ctx context.Context) ([]db.Row, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []db.Row{}, nil
}
