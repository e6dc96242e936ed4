package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound       = errors.New("db: key not found")
	ErrDimensionMismatch = errors.New("db: embedding dimension mismatch")
)

// Op constants name the failing operation for error context.
const (
	OpPing       = "PING"
	OpGet        = "GET"
	OpSet        = "SET"
	OpDel        = "DEL"
	OpIncrBy     = "INCRBY"
	OpMigrate    = "MIGRATE"
	OpInsert     = "INSERT"
	OpBulkInsert = "BULK_INSERT"
	OpRank       = "RANK"
	OpDelete     = "DELETE"
	OpList       = "LIST"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
