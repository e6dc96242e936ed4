package document

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// Default content bounds in runes.
const (
	DefaultMinContentLength = 3
	DefaultMaxContentLength = 10000
)

// Document is the document aggregate (immutable value object).
type Document struct {
	id        int64
	content   string
	embedding []float32
}

// New creates an unsaved Document. The store assigns the id.
func New(content string, embedding []float32) Document {
	return Document{content: content, embedding: embedding}
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id int64, content string, embedding []float32) Document {
	return Document{id: id, content: content, embedding: embedding}
}

// ID returns the store-assigned identifier.
func (d *Document) ID() int64 { return d.id }

// Content returns the document text content.
func (d *Document) Content() string { return d.content }

// Embedding returns the embedding vector, nil when not loaded.
func (d *Document) Embedding() []float32 { return d.embedding }

// Bounds holds content length limits in runes.
type Bounds struct {
	MinLength int
	MaxLength int
}

// DefaultBounds returns the default content bounds.
func DefaultBounds() Bounds {
	return Bounds{MinLength: DefaultMinContentLength, MaxLength: DefaultMaxContentLength}
}

// Clean trims content and checks it against the bounds.
// Returns the trimmed content, which is what gets embedded and stored.
func (b Bounds) Clean(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", domain.NewValidationError("content", "must not be empty")
	}
	n := utf8.RuneCountInString(trimmed)
	if b.MinLength > 0 && n < b.MinLength {
		return "", domain.NewValidationError("content", fmt.Sprintf("must be at least %d characters", b.MinLength))
	}
	if b.MaxLength > 0 && n > b.MaxLength {
		return "", domain.NewValidationError("content", fmt.Sprintf("must be at most %d characters", b.MaxLength))
	}
	return trimmed, nil
}

// Input is one raw bulk item. Accepted shapes:
//
//	"text"
//	["text"]
//	{"content": "text", "metadata": {...}}
//
// Metadata is accepted and ignored.
type Input struct {
	content string
	err     error
}

// NewInput creates an input from plain text.
func NewInput(content string) Input { return Input{content: content} }

// ParseInput normalizes a raw JSON item. Shape errors are kept on the Input
// so that one malformed item does not fail the whole batch.
func ParseInput(raw json.RawMessage) Input {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return Input{content: s}
	}

	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil {
		if len(arr) != 1 {
			return Input{err: domain.NewValidationError("content", fmt.Sprintf("expected a single string, got %d", len(arr)))}
		}
		return Input{content: arr[0]}
	}

	var obj struct {
		Content  *string         `json:"content"`
		Metadata json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Content != nil {
		return Input{content: *obj.Content}
	}

	return Input{err: domain.NewValidationError("content", "unsupported item shape")}
}

// Content returns the raw (untrimmed) text, empty when the shape was invalid.
func (i Input) Content() string { return i.content }

// Err returns the shape error, if any.
func (i Input) Err() error { return i.err }
