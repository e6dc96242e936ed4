package domain

import (
	"context"
	"fmt"
	"math"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// CheckVector verifies a provider vector has the expected dimension, only finite components
// and at least one non-zero component. Cosine distance to a zero vector is undefined.
// A dimension of 0 skips the length check but still rejects empty vectors.
func CheckVector(vec []float32, dim int) error {
	if len(vec) == 0 {
		return NewEmbeddingError("empty embedding", nil)
	}
	if dim > 0 && len(vec) != dim {
		return NewEmbeddingError(fmt.Sprintf("dimension mismatch: expected %d, got %d", dim, len(vec)), nil)
	}
	nonZero := false
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return NewEmbeddingError(fmt.Sprintf("non-finite component at %d", i), nil)
		}
		if f != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		return NewEmbeddingError("zero-norm embedding", nil)
	}
	return nil
}

// Normalize returns vec scaled to unit Euclidean length.
func Normalize(vec []float32) ([]float32, error) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return nil, NewEmbeddingError("zero-norm embedding", nil)
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out, nil
}

// InstructionEmbedder is a domain decorator that prepends instruction text before embedding.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder creates a decorator that prepends instruction text.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed prepends instruction and delegates to inner embedder.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}

// WithInstruction wraps inner only when instruction is non-empty.
func WithInstruction(inner Embedder, instruction string) Embedder {
	if instruction == "" {
		return inner
	}
	return NewInstructionEmbedder(inner, instruction)
}
