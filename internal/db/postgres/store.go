package postgres

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/semsearch/internal/db"
)

// Compile-time check: Store implements db.VectorStore.
var _ db.VectorStore = (*Store)(nil)

// Config holds Postgres store settings.
type Config struct {
	DSN        string
	Dimensions int
	Metric     db.Metric
	HNSWIndex  bool
	MaxConns   int32
}

// Store implements db.VectorStore on Postgres with the pgvector extension.
type Store struct {
	pool     *pgxpool.Pool
	dim      int
	metric   db.Metric
	hnsw     bool
	order    string
}

// NewStore creates a connection pool. Call Migrate before first use.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.Metric == "" {
		cfg.Metric = db.MetricCosine
	}
	if !cfg.Metric.IsValid() {
		return nil, fmt.Errorf("unsupported metric %q", cfg.Metric)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	return &Store{
		pool:     pool,
		dim:      cfg.Dimensions,
		metric:   cfg.Metric,
		hnsw:     cfg.HNSWIndex,
		order:    orderExpr(cfg.Metric),
	}, nil
}

// orderExpr returns the bare pgvector operator against parameter $1.
// ORDER BY must use it unchanged for the planner to pick the HNSW index.
func orderExpr(m db.Metric) string {
	if m == db.MetricInnerProduct {
		return "embedding <#> $1::vector"
	}
	return "embedding <=> $1::vector"
}

// toDistance maps the operator value to 1 - similarity.
// <#> is the negative inner product, so 1 + (a <#> b) = 1 - a·b.
func toDistance(m db.Metric, raw float64) float64 {
	if m == db.MetricInnerProduct {
		return 1 + raw
	}
	return raw
}

func opClass(m db.Metric) string {
	if m == db.MetricInnerProduct {
		return "vector_ip_ops"
	}
	return "vector_cosine_ops"
}

// Migrate creates the extension, table and optional HNSW index.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
	id        BIGSERIAL PRIMARY KEY,
	content   TEXT NOT NULL,
	embedding vector(%d) NOT NULL
)`, s.dim),
	}
	if s.hnsw {
		stmts = append(stmts, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS documents_embedding_idx ON documents USING hnsw (embedding %s)`,
			opClass(s.metric)))
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return &db.Error{Op: db.OpMigrate, Err: err}
		}
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Insert stores one document and returns its id.
func (s *Store) Insert(ctx context.Context, row db.NewRow) (int64, error) {
	if len(row.Embedding) != s.dim {
		return 0, &db.Error{Op: db.OpInsert, Err: db.ErrDimensionMismatch}
	}
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO documents (content, embedding) VALUES ($1, $2::vector) RETURNING id`,
		row.Content, pgvector.NewVector(row.Embedding),
	).Scan(&id)
	if err != nil {
		return 0, &db.Error{Op: db.OpInsert, Err: err}
	}
	return id, nil
}

// BulkInsert stores rows in one transaction using a pipelined batch.
func (s *Store) BulkInsert(ctx context.Context, rows []db.NewRow) ([]int64, error) {
	for _, r := range rows {
		if len(r.Embedding) != s.dim {
			return nil, &db.Error{Op: db.OpBulkInsert, Err: db.ErrDimensionMismatch}
		}
	}

	ids := make([]int64, len(rows))
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, r := range rows {
			batch.Queue(
				`INSERT INTO documents (content, embedding) VALUES ($1, $2::vector) RETURNING id`,
				r.Content, pgvector.NewVector(r.Embedding),
			)
		}
		br := tx.SendBatch(ctx, batch)
		for i := range rows {
			if err := br.QueryRow().Scan(&ids[i]); err != nil {
				_ = br.Close()
				return fmt.Errorf("row %d: %w", i, err)
			}
		}
		return br.Close()
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpBulkInsert, Err: err}
	}
	return ids, nil
}

// RankByDistance returns the nearest limit documents using the pgvector operator.
// Ties are broken by id after the scan; the index only orders by distance.
func (s *Store) RankByDistance(ctx context.Context, query []float32, limit int) ([]db.Ranked, error) {
	if len(query) != s.dim {
		return nil, &db.Error{Op: db.OpRank, Err: db.ErrDimensionMismatch}
	}
	q := fmt.Sprintf(`SELECT id, content, %[1]s AS distance
FROM documents
ORDER BY %[1]s
LIMIT $2`, s.order)

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(query), limit)
	if err != nil {
		return nil, &db.Error{Op: db.OpRank, Err: err}
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (db.Ranked, error) {
		var r db.Ranked
		if err := row.Scan(&r.ID, &r.Content, &r.Distance); err != nil {
			return r, err
		}
		r.Distance = toDistance(s.metric, r.Distance)
		return r, nil
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpRank, Err: err}
	}
	sortRanked(out)
	return out, nil
}

func sortRanked(rs []db.Ranked) {
	slices.SortStableFunc(rs, func(a, b db.Ranked) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// DeleteByID removes a document. Returns false when no row matched.
func (s *Store) DeleteByID(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return false, &db.Error{Op: db.OpDelete, Err: err}
	}
	return tag.RowsAffected() > 0, nil
}

// ListAll returns every document ordered by id.
func (s *Store) ListAll(ctx context.Context) ([]db.Row, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, content FROM documents ORDER BY id ASC`)
	if err != nil {
		return nil, &db.Error{Op: db.OpList, Err: err}
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (db.Row, error) {
		var r db.Row
		err := row.Scan(&r.ID, &r.Content)
		return r, err
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpList, Err: err}
	}
	if out == nil {
		out = []db.Row{}
	}
	return out, nil
}
