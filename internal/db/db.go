package db

import (
	"context"
	"fmt"
	"time"
)

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations with expiry.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	IncrBy(ctx context.Context, key string, val int64) error
}

// Cache is a KV backend owned by the process.
type Cache interface {
	Pinger
	KVStore
	Close()
}

// Metric selects how vector distance is computed.
type Metric string

// Supported metrics. Both are expressed as 1 - similarity.
const (
	MetricCosine       Metric = "cosine"
	MetricInnerProduct Metric = "inner_product"
)

// IsValid reports whether m is a supported metric.
func (m Metric) IsValid() bool {
	return m == MetricCosine || m == MetricInnerProduct
}

// Row is a stored document.
type Row struct {
	ID        int64
	Content   string
	Embedding []float32
}

// NewRow is a document pending insertion.
type NewRow struct {
	Content   string
	Embedding []float32
}

// Ranked is a document with its distance to a query vector.
type Ranked struct {
	ID       int64
	Content  string
	Distance float64
}

// DocumentStore persists documents and ranks them by vector distance.
type DocumentStore interface {
	Insert(ctx context.Context, row NewRow) (int64, error)
	// BulkInsert writes all rows in one transaction and returns ids in input order.
	BulkInsert(ctx context.Context, rows []NewRow) ([]int64, error)
	// RankByDistance returns up to limit rows ordered by distance ascending, ties by id ascending.
	RankByDistance(ctx context.Context, query []float32, limit int) ([]Ranked, error)
	DeleteByID(ctx context.Context, id int64) (bool, error)
	// ListAll returns every document without embeddings, ordered by id.
	ListAll(ctx context.Context) ([]Row, error)
}

// VectorStore is the document store facade owned by the process.
type VectorStore interface {
	Pinger
	DocumentStore
	Migrate(ctx context.Context) error
	Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func WaitForReady(ctx context.Context, p Pinger, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := p.Ping(ctx); err == nil {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := p.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}
