// Package chi exposes the retrieval pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/answer"
	"github.com/kailas-cloud/ragdex/internal/domain/search/mode"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/logger"
	healthuc "github.com/kailas-cloud/ragdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/ragdex/internal/usecase/search"
)

// maxBodyBytes bounds request bodies; questions are capped far below this.
const maxBodyBytes = 64 << 10

// Retriever is the pipeline surface the server needs.
type Retriever interface {
	Query(ctx context.Context, req *request.Request) (answer.Result, error)
	SearchOnly(ctx context.Context, req *request.Request) (answer.Result, error)
	Compare(ctx context.Context, req *request.Request) ([]searchuc.Comparison, error)
}

// HealthChecker aggregates dependency health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the HTTP API.
type Server struct {
	search        Retriever
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Retriever, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{search: search, health: health, logger: logger}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeInvalidQuery, ""),
		sentinelHandler(domain.ErrRetrieval, http.StatusServiceUnavailable, ErrorCodeRetrievalUnavailable,
			"Search is temporarily unavailable, please try again later."),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited, ""),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/query", s.Query)
	r.Post("/v1/search", s.Search)
	r.Post("/v1/search/compare", s.Compare)
	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// Query handles POST /v1/query. A missing session id is generated and echoed
// back so the client can continue the conversation.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var body QueryRequest
	if !s.decode(w, r, &body) {
		return
	}

	sessionID := body.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	req, err := request.New(body.Question, sessionID, mode.Hybrid, 0)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	res, err := s.search.Query(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse(res, sessionID, debugRequested(r)))
}

// Search handles POST /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	req, ok := s.searchRequest(w, r)
	if !ok {
		return
	}

	res, err := s.search.SearchOnly(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse(res, "", debugRequested(r)))
}

// Compare handles POST /v1/search/compare.
func (s *Server) Compare(w http.ResponseWriter, r *http.Request) {
	req, ok := s.searchRequest(w, r)
	if !ok {
		return
	}

	cmp, err := s.search.Compare(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, compareResponse(cmp))
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

	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

func (s *Server) searchRequest(w http.ResponseWriter, r *http.Request) (request.Request, bool) {
	var body SearchRequest
	if !s.decode(w, r, &body) {
		return request.Request{}, false
	}
	req, err := request.New(body.Question, "", mode.Mode(body.Mode), body.Limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return request.Request{}, false
	}
	return req, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func debugRequested(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("debug"))
	return err == nil && v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler matches a single sentinel error. An empty message passes the
// error text through; input errors carry no internals.
func sentinelHandler(sentinel error, status int, code ErrorCode, message string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := message
		if msg == "" {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
