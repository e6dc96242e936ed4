package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/metrics"
)

// DefaultTimeout bounds a single embedding call.
const DefaultTimeout = 30 * time.Second

// Embedder is an embedding provider using the OpenAI-compatible API
// (OpenAI, HuggingFace TEI, Ollama, Nebius).
type Embedder struct {
	client            *openai.Client
	model             openai.EmbeddingModel
	dimensions        int
	requestDimensions bool
	normalize         bool
	user              string
	provider          string
	logger            *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int // expected vector length; responses of any other length are rejected
	// RequestDimensions sends Dimensions in the request (only for models that support shortening).
	RequestDimensions bool
	Normalize         bool // scale vectors to unit length
	Timeout           time.Duration
	User              string
	Provider          string
	Logger            *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client:            openai.NewClientWithConfig(clientCfg),
		model:             openai.EmbeddingModel(cfg.Model),
		dimensions:        cfg.Dimensions,
		requestDimensions: cfg.RequestDimensions,
		normalize:         cfg.Normalize,
		user:              cfg.User,
		provider:          cfg.Provider,
		logger:            logger,
	}
}

// Embed implements domain.Embedder. Returns the vector and usage with transport-level metrics.
// Blank text is rejected before any network call. Vectors are never padded or truncated.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.EmbeddingResult{}, domain.NewValidationError("text", "must not be empty")
	}

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
	}
	if e.requestDimensions && e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()

	resp, err := e.client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)

	if err != nil {
		e.recordError("api_error")
		return domain.EmbeddingResult{}, parseAPIError(err)
	}

	if len(resp.Data) == 0 {
		e.recordError("empty_response")
		return domain.EmbeddingResult{}, domain.NewEmbeddingError("empty embedding response", nil)
	}

	vec := resp.Data[0].Embedding
	if err := domain.CheckVector(vec, e.dimensions); err != nil {
		e.recordError("invalid_vector")
		return domain.EmbeddingResult{}, err
	}
	if e.normalize {
		if vec, err = domain.Normalize(vec); err != nil {
			e.recordError("zero_norm")
			return domain.EmbeddingResult{}, err
		}
	}

	// Record success metrics
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, string(e.model)).Observe(duration.Seconds())

	totalTokens := resp.Usage.TotalTokens
	promptTokens := resp.Usage.PromptTokens
	if totalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, string(e.model), "prompt").Add(float64(promptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, string(e.model), "total").Add(float64(totalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    vec,
		PromptTokens: promptTokens,
		TotalTokens:  totalTokens,
	}, nil
}

func (e *Embedder) recordError(kind string) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), kind).Inc()
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors become domain.EmbeddingError for correct 502 mapping.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return domain.NewEmbeddingError(
			fmt.Sprintf("embedding API error %d: %s", reqErr.HTTPStatusCode, detail), err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewEmbeddingError(
			fmt.Sprintf("embedding API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message), err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewEmbeddingError("embedding request timed out", err)
	}

	return domain.NewEmbeddingError("embedding request failed", err)
}

// extractDetail extracts the "detail" or "error" field from a JSON error body (Nebius, TEI formats).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Detail != "" {
			return parsed.Detail
		}
		return parsed.Error
	}
	return ""
}
