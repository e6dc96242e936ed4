package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput signals malformed or out-of-bounds client input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrStore signals a document store failure.
	ErrStore = errors.New("store error")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)

// Stage names the pipeline step an error originated from.
type Stage string

// Pipeline stages.
const (
	StageValidation Stage = "validation"
	StageEmbedding  Stage = "embedding"
	StageStore      Stage = "store"
)

// ValidationError reports input that failed bounds or shape checks.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidInput.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrInvalidInput.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError creates a validation error for the given field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// EmbeddingError reports a failed or malformed embedding response.
type EmbeddingError struct {
	Reason string
	Err    error
}

func (e *EmbeddingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrEmbeddingProviderError.Error(), e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrEmbeddingProviderError.Error(), e.Reason)
}

func (e *EmbeddingError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrEmbeddingProviderError, e.Err}
	}
	return []error{ErrEmbeddingProviderError}
}

// NewEmbeddingError creates an embedding error with an optional cause.
func NewEmbeddingError(reason string, cause error) error {
	return &EmbeddingError{Reason: reason, Err: cause}
}

// StoreError reports a failed persistence operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStore.Error(), e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error { return []error{ErrStore, e.Err} }

// NewStoreError wraps a persistence failure for the named operation.
func NewStoreError(op string, cause error) error {
	return &StoreError{Op: op, Err: cause}
}

// StageOf reports which stage produced err. Unknown errors are attributed to the store.
func StageOf(err error) Stage {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return StageValidation
	case errors.Is(err, ErrEmbeddingProviderError):
		return StageEmbedding
	default:
		return StageStore
	}
}

// Reason returns the client-facing explanation carried by a typed error.
// Anything else is attributed to the store, matching StageOf.
func Reason(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		if ve.Field == "" {
			return ve.Reason
		}
		return ve.Field + ": " + ve.Reason
	}
	var ee *EmbeddingError
	if errors.As(err, &ee) {
		return ee.Reason
	}
	if err == nil {
		return ""
	}
	// Store causes carry driver text; only the operation is exposed.
	var se *StoreError
	if errors.As(err, &se) {
		return ErrStore.Error() + ": " + se.Op
	}
	return ErrStore.Error()
}

// AsEmbeddingFailure tags an embedder failure that carries no stage yet,
// e.g. a cancelled context surfacing from a cache decorator.
func AsEmbeddingFailure(err error) error {
	if err == nil || errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrEmbeddingProviderError) {
		return err
	}
	return NewEmbeddingError("embedding request failed", err)
}
