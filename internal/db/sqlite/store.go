package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kailas-cloud/semsearch/internal/db"
)

// Compile-time check: Store implements db.VectorStore.
var _ db.VectorStore = (*Store)(nil)

// Config holds SQLite store settings.
type Config struct {
	Path       string // file path or ":memory:"
	Dimensions int
	Metric     db.Metric
}

// Store implements db.VectorStore on modernc.org/sqlite with brute-force distance scans.
type Store struct {
	db       *sql.DB
	dim      int
	distance string
}

// NewStore opens the database. Call Migrate before first use.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
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

	registerFunctions()

	sqlDB, err := sql.Open("sqlite", dsn(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	// Single writer; also keeps ":memory:" on one shared connection.
	sqlDB.SetMaxOpenConns(1)

	distance := fnCosine
	if cfg.Metric == db.MetricInnerProduct {
		distance = fnInnerProduct
	}
	return &Store{db: sqlDB, dim: cfg.Dimensions, distance: distance}, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

// Migrate creates the documents table.
func (s *Store) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	content   TEXT NOT NULL,
	embedding BLOB NOT NULL CHECK (length(embedding) = %d)
)`, s.dim*4)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return &db.Error{Op: db.OpMigrate, Err: err}
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() {
	_ = s.db.Close()
}

// Insert stores one document and returns its id.
func (s *Store) Insert(ctx context.Context, row db.NewRow) (int64, error) {
	if len(row.Embedding) != s.dim {
		return 0, &db.Error{Op: db.OpInsert, Err: db.ErrDimensionMismatch}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (content, embedding) VALUES (?, ?)`,
		row.Content, encodeVector(row.Embedding))
	if err != nil {
		return 0, &db.Error{Op: db.OpInsert, Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, &db.Error{Op: db.OpInsert, Err: err}
	}
	return id, nil
}

// BulkInsert stores rows in one transaction. Nothing is written if any row fails.
func (s *Store) BulkInsert(ctx context.Context, rows []db.NewRow) ([]int64, error) {
	for _, r := range rows {
		if len(r.Embedding) != s.dim {
			return nil, &db.Error{Op: db.OpBulkInsert, Err: db.ErrDimensionMismatch}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &db.Error{Op: db.OpBulkInsert, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO documents (content, embedding) VALUES (?, ?)`)
	if err != nil {
		return nil, &db.Error{Op: db.OpBulkInsert, Err: err}
	}
	defer func() { _ = stmt.Close() }()

	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		res, err := stmt.ExecContext(ctx, r.Content, encodeVector(r.Embedding))
		if err != nil {
			return nil, &db.Error{Op: db.OpBulkInsert, Err: err}
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, &db.Error{Op: db.OpBulkInsert, Err: err}
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, &db.Error{Op: db.OpBulkInsert, Err: err}
	}
	return ids, nil
}

// RankByDistance scans all documents and returns the nearest limit.
func (s *Store) RankByDistance(ctx context.Context, query []float32, limit int) ([]db.Ranked, error) {
	if len(query) != s.dim {
		return nil, &db.Error{Op: db.OpRank, Err: db.ErrDimensionMismatch}
	}
	q := fmt.Sprintf(`SELECT id, content, %s(embedding, ?) AS distance
FROM documents
ORDER BY distance ASC, id ASC
LIMIT ?`, s.distance)

	rows, err := s.db.QueryContext(ctx, q, encodeVector(query), limit)
	if err != nil {
		return nil, &db.Error{Op: db.OpRank, Err: err}
	}
	defer func() { _ = rows.Close() }()

	out := make([]db.Ranked, 0, limit)
	for rows.Next() {
		var r db.Ranked
		if err := rows.Scan(&r.ID, &r.Content, &r.Distance); err != nil {
			return nil, &db.Error{Op: db.OpRank, Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpRank, Err: err}
	}
	return out, nil
}

// DeleteByID removes a document. Returns false when no row matched.
func (s *Store) DeleteByID(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return false, &db.Error{Op: db.OpDelete, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &db.Error{Op: db.OpDelete, Err: err}
	}
	return n > 0, nil
}

// ListAll returns every document ordered by id.
func (s *Store) ListAll(ctx context.Context) ([]db.Row, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, content FROM documents ORDER BY id ASC`)
	if err != nil {
		return nil, &db.Error{Op: db.OpList, Err: err}
	}
	defer func() { _ = rows.Close() }()

	out := []db.Row{}
	for rows.Next() {
		var r db.Row
		if err := rows.Scan(&r.ID, &r.Content); err != nil {
			return nil, &db.Error{Op: db.OpList, Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpList, Err: err}
	}
	return out, nil
}
