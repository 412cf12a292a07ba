// Package chi exposes the draft and review workflows over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsage/internal/domain"
	"github.com/kailas-cloud/docsage/internal/metrics"
	healthuc "github.com/kailas-cloud/docsage/internal/usecase/health"
	"github.com/kailas-cloud/docsage/internal/usecase/pipeline"
)

// maxBodyBytes caps request bodies; design documents are plain text.
const maxBodyBytes = 1 << 20

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest            = "bad_request"
	CodeValidationFailed      = "validation_failed"
	CodeUnauthorized          = "unauthorized"
	CodeEmbeddingUnavailable  = "embedding_unavailable"
	CodeIndexUnavailable      = "index_unavailable"
	CodeDimensionMismatch     = "dimension_mismatch"
	CodeGenerationUnavailable = "generation_unavailable"
	CodeNotImplemented        = "not_implemented"
	CodeConfiguration         = "configuration_error"
	CodeTimeout               = "timeout"
	CodeInternal              = "internal_error"
)

// DraftRequest is the body of POST /v1/drafts.
type DraftRequest struct {
	DesignDocument string `json:"design_document"`
}

// ReviewRequest is the body of POST /v1/reviews.
type ReviewRequest struct {
	ReleaseNote string `json:"release_note"`
}

// TextResponse carries generated text.
type TextResponse struct {
	Text string `json:"text"`
}

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Workflows is the pipeline surface the server needs.
type Workflows interface {
	Draft(ctx context.Context, designDocument string) (string, error)
	Review(ctx context.Context, releaseNote string) (string, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the HTTP API.
type Server struct {
	workflows     Workflows
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(workflows Workflows, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		workflows: workflows,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusBadGateway, CodeEmbeddingUnavailable),
		sentinelHandler(domain.ErrGenerationUnavailable, http.StatusBadGateway, CodeGenerationUnavailable),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, CodeIndexUnavailable),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusInternalServerError, CodeDimensionMismatch),
		sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, CodeNotImplemented),
		sentinelHandler(domain.ErrConfiguration, http.StatusInternalServerError, CodeConfiguration),
	}
	return s
}

// Router builds the chi router with the middleware stack.
// An empty apiKeys disables bearer authentication.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Post("/v1/drafts", s.CreateDraft)
	r.Post("/v1/reviews", s.CreateReview)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// CreateDraft handles POST /v1/drafts.
func (s *Server) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.DesignDocument) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "design_document is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	text, err := s.workflows.Draft(ctx, req.DesignDocument)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TextResponse{Text: text})
}

// CreateReview handles POST /v1/reviews.
func (s *Server) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ReleaseNote) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "release_note is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	text, err := s.workflows.Review(ctx, req.ReleaseNote)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TextResponse{Text: text})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
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

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("Unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, safeDomainMessage(err, sentinel))
		return true
	}
}

// safeDomainMessage names the failed stage and the sentinel without exposing provider internals.
func safeDomainMessage(err, sentinel error) string {
	var se *pipeline.StageError
	if errors.As(err, &se) {
		return string(se.Stage) + ": " + sentinel.Error()
	}
	return sentinel.Error()
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
