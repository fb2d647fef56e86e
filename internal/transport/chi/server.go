// Package chi provides the HTTP transport for the retrieval API.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/scholarlab/paperqa/internal/domain"
	"github.com/scholarlab/paperqa/internal/domain/question"
	"github.com/scholarlab/paperqa/internal/domain/ranking"
	healthuc "github.com/scholarlab/paperqa/internal/usecase/health"
	pipelineuc "github.com/scholarlab/paperqa/internal/usecase/pipeline"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// retriever is the consumer interface for the pipeline service (ISP).
type retriever interface {
	RetrieveDocuments(ctx context.Context, q question.Question) (pipelineuc.Retrieval, error)
	RetrieveChunks(ctx context.Context, query string, docs []ranking.Document, topK int) (pipelineuc.Retrieval, error)
	Answer(ctx context.Context, q question.Question) (pipelineuc.Answered, error)
}

// healthChecker is the consumer interface for the health service (ISP).
type healthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Defaults are server-side fallbacks for optional request parameters,
// typically sourced from the retrieval config.
type Defaults struct {
	Candidates int
	TopChunks  int
}

// Server exposes the retrieval pipeline over HTTP.
type Server struct {
	pipeline      retriever
	health        healthChecker
	defaults      Defaults
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(pipeline retriever, health healthChecker, defaults Defaults, logger *zap.Logger) *Server {
	s := &Server{
		pipeline: pipeline,
		health:   health,
		defaults: defaults,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway, codeGenerationFailed),
		sentinelHandler(domain.ErrProviderUnavailable, http.StatusBadGateway, codeProviderUnavailable),
		sentinelHandler(domain.ErrSearchUnavailable, http.StatusServiceUnavailable, codeSearchUnavailable),
	}
	return s
}

// Register mounts all API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/v1/retrieve/documents", s.RetrieveDocuments)
	r.Post("/v1/retrieve/chunks", s.RetrieveChunks)
	r.Post("/v1/answer", s.Answer)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// RetrieveDocuments handles POST /v1/retrieve/documents.
func (s *Server) RetrieveDocuments(w http.ResponseWriter, r *http.Request) {
	var req RetrieveDocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Candidates <= 0 {
		req.Candidates = s.defaults.Candidates
	}
	q, err := question.New(req.Query, req.Candidates, 0)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ret, err := s.pipeline.RetrieveDocuments(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RetrieveDocumentsResponse{
		State:     string(ret.State),
		Degraded:  ret.Degraded,
		Documents: documentItems(ret.Documents),
	})
}

// RetrieveChunks handles POST /v1/retrieve/chunks.
func (s *Server) RetrieveChunks(w http.ResponseWriter, r *http.Request) {
	var req RetrieveChunksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	// The query is validated through the same rules as a full question even
	// though candidates are not used on this path.
	if _, err := question.New(req.Query, 0, 0); err != nil {
		s.handleDomainError(w, err)
		return
	}

	docs := make([]ranking.Document, 0, len(req.Documents))
	for _, d := range req.Documents {
		if d.ID == "" {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "document id is required")
			return
		}
		if d.Weight < 0 {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "document weight must not be negative")
			return
		}
		docs = append(docs, ranking.Document{ID: d.ID, Weight: d.Weight})
	}

	if req.TopChunks <= 0 {
		req.TopChunks = s.defaults.TopChunks
	}
	ret, err := s.pipeline.RetrieveChunks(r.Context(), req.Query, docs, req.TopChunks)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RetrieveChunksResponse{
		State:  string(ret.State),
		Query:  req.Query,
		Chunks: chunkItems(ret.Chunks),
	})
}

// Answer handles POST /v1/answer.
func (s *Server) Answer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Candidates <= 0 {
		req.Candidates = s.defaults.Candidates
	}
	if req.TopChunks <= 0 {
		req.TopChunks = s.defaults.TopChunks
	}
	q, err := question.New(req.Query, req.Candidates, req.TopChunks)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ans, err := s.pipeline.Answer(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AnswerResponse{
		State:     string(ans.State),
		Degraded:  ans.Degraded,
		Answer:    ans.Answer,
		Documents: documentItems(ans.Documents),
		Chunks:    chunkItems(ans.Chunks),
	})
}

// HealthCheck handles GET /health.
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

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrDocumentNotFound,
		domain.ErrGenerationFailed,
		domain.ErrProviderUnavailable,
		domain.ErrSearchUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
