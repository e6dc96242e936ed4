package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
	logpkg "github.com/kailas-cloud/semsearch/internal/logger"
	documentuc "github.com/kailas-cloud/semsearch/internal/usecase/document"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/semsearch/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

// maxBodyBytes caps request bodies (a full bulk batch of maximum-length documents fits).
const maxBodyBytes = 8 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the document, search and operational endpoints.
type Server struct {
	ingest        *ingestuc.Service
	documents     *documentuc.Service
	search        *searchuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest *ingestuc.Service,
	documents *documentuc.Service,
	search *searchuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest:    ingest,
		documents: documents,
		search:    search,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbedding),
		sentinelHandler(domain.ErrStore, http.StatusInternalServerError, codeStore),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/document", s.InsertDocument)
		r.Post("/documents/bulk", s.BulkInsertDocuments)
		r.Post("/search", s.SemanticSearch)
		r.Get("/all-documents", s.ListAllDocuments)
		r.Delete("/delete-document/{id}", s.DeleteDocument)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "", "method not allowed")
	})
}

// InsertDocument handles POST /v1/document.
func (s *Server) InsertDocument(w http.ResponseWriter, r *http.Request) {
	var req insertRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Document == nil {
		writeError(w, http.StatusBadRequest, codeValidation, string(domain.StageValidation), "document: is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	id, err := s.ingest.Insert(ctx, *req.Document)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dataResponse{Data: insertResponse{ID: id}})
}

// BulkInsertDocuments handles POST /v1/documents/bulk.
// Per-item failures are reported in the outcome with 200.
func (s *Server) BulkInsertDocuments(w http.ResponseWriter, r *http.Request) {
	var req bulkInsertRequest
	if !decodeBody(w, r, &req) {
		return
	}

	inputs := make([]domdoc.Input, len(req.Documents))
	for i, raw := range req.Documents {
		inputs[i] = domdoc.ParseInput(raw)
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	out, err := s.ingest.BulkInsert(ctx, inputs)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dataResponse{Data: outcomeToDTO(out)})
}

// SemanticSearch handles POST /v1/search.
func (s *Server) SemanticSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	limit := 0
	if req.Limit != nil {
		limit = *req.Limit
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.search.Search(ctx, req.Query, limit)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	cache := "miss"
	if resp.Cached {
		cache = "hit"
	}
	w.Header().Set("X-Cache", cache)
	writeJSON(w, http.StatusOK, dataResponse{Data: resultsToDTO(resp.Results)})
}

// ListAllDocuments handles GET /v1/all-documents.
func (s *Server) ListAllDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: documentsToDTO(docs)})
}

// DeleteDocument handles DELETE /v1/delete-document/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, string(domain.StageValidation),
			"id: must be a positive integer")
		return
	}

	deleted, err := s.documents.Delete(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if !deleted {
		status = http.StatusNotFound
	}
	writeJSON(w, status, dataResponse{Data: deleteResponse{ID: id, Deleted: deleted}})
}

// HealthCheck handles GET /health.
// Only an unreachable document store makes the service unavailable; cache and
// provider outages are reported as degraded.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, string(domain.StageValidation),
			"Invalid request body: "+err.Error())
		return false
	}
	return true
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Used() {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, stage, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{
		Code:    code,
		Stage:   stage,
		Message: message,
	}})
}

// validationHandler reports the offending field and reason; they come from client input.
func validationHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrInvalidInput) {
		return false
	}
	writeError(w, http.StatusBadRequest, codeValidation, string(domain.StageValidation), domain.Reason(err))
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The client sees only the sentinel text, never the wrapped cause.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		stage := ""
		if !errors.Is(err, domain.ErrRateLimited) {
			stage = string(domain.StageOf(err))
		}
		writeError(w, status, code, stage, sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "", "internal error")
}
