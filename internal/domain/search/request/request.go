package request

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// Default search parameter limits.
const (
	DefaultMinQueryLength = 2
	DefaultMaxQueryLength = 500
	DefaultLimit          = 10
	MaxLimit              = 50
)

// Limits bounds query length (in runes) and result count.
type Limits struct {
	MinQueryLength int
	MaxQueryLength int
	DefaultLimit   int
	MaxLimit       int
}

// DefaultLimits returns the default search limits.
func DefaultLimits() Limits {
	return Limits{
		MinQueryLength: DefaultMinQueryLength,
		MaxQueryLength: DefaultMaxQueryLength,
		DefaultLimit:   DefaultLimit,
		MaxLimit:       MaxLimit,
	}
}

// Request is a validated search query.
type Request struct {
	query string
	limit int
}

// New validates and normalizes search parameters.
// limit == 0 selects the default, negative limits are rejected, limits above the max are clamped.
func New(query string, limit int, l Limits) (Request, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Request{}, domain.NewValidationError("query", "is required")
	}
	n := utf8.RuneCountInString(q)
	if l.MinQueryLength > 0 && n < l.MinQueryLength {
		return Request{}, domain.NewValidationError("query", fmt.Sprintf("must be at least %d characters", l.MinQueryLength))
	}
	if l.MaxQueryLength > 0 && n > l.MaxQueryLength {
		return Request{}, domain.NewValidationError("query", fmt.Sprintf("must be at most %d characters", l.MaxQueryLength))
	}
	if limit < 0 {
		return Request{}, domain.NewValidationError("limit", "must be positive")
	}
	if limit == 0 {
		limit = l.DefaultLimit
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if l.MaxLimit > 0 && limit > l.MaxLimit {
		limit = l.MaxLimit
	}

	return Request{query: q, limit: limit}, nil
}

// Query returns the trimmed query text.
func (r *Request) Query() string { return r.query }

// NormalizedQuery returns the case-folded query used for embedding and cache keys.
func (r *Request) NormalizedQuery() string { return strings.ToLower(r.query) }

// Limit returns the maximum number of results.
func (r *Request) Limit() int { return r.limit }
