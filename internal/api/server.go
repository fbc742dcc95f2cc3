// Package api exposes the HTTP interface for the audit service.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/auditkit/siteaudit/internal/audit"
	"github.com/auditkit/siteaudit/internal/config"
	"github.com/auditkit/siteaudit/internal/dispatcher"
	"github.com/auditkit/siteaudit/internal/metrics"
)

// Server wires HTTP handlers to the dispatcher and stores.
type Server struct {
	router      chi.Router
	jobStore    audit.JobStore
	reportStore audit.ReportStore
	dispatcher  *dispatcher.Dispatcher
	idGen       audit.IDGenerator
	clock       audit.Clock
	cfg         config.Config
	logger      *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	jobStore audit.JobStore,
	reportStore audit.ReportStore,
	dispatcher *dispatcher.Dispatcher,
	idGen audit.IDGenerator,
	clock audit.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		jobStore:    jobStore,
		reportStore: reportStore,
		dispatcher:  dispatcher,
		idGen:       idGen,
		clock:       clock,
		cfg:         cfg,
		logger:      logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/audits", func(r chi.Router) {
			r.Post("/", s.submitAudit)
			r.Route("/{audit_id}", func(r chi.Router) {
				r.Get("/", s.getAudit)
				r.Get("/report", s.getReport)
				r.Post("/cancel", s.cancelAudit)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// In-memory dependencies are always ready; in future check downstreams.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type auditRequest struct {
	URL            string `json:"url"`
	MaxPages       *int   `json:"max_pages"`
	MaxConcurrency *int   `json:"max_concurrency"`
}

func (s *Server) submitAudit(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	params, err := s.toParameters(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	auditID, err := s.enqueueAudit(r.Context(), params)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusRequestTimeout
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"audit_id": auditID})
}

func (s *Server) getAudit(w http.ResponseWriter, r *http.Request) {
	auditID := chi.URLParam(r, "audit_id")
	job, err := s.jobStore.GetJob(r.Context(), auditID)
	if err != nil {
		writeError(w, http.StatusNotFound, "audit not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audit": job})
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	auditID := chi.URLParam(r, "audit_id")
	job, err := s.jobStore.GetJob(r.Context(), auditID)
	if err != nil {
		writeError(w, http.StatusNotFound, "audit not found")
		return
	}
	switch job.Status {
	case audit.JobStatusQueued, audit.JobStatusRunning:
		writeError(w, http.StatusConflict, "audit not finished")
		return
	case audit.JobStatusFailed, audit.JobStatusCanceled:
		writeJSON(w, http.StatusOK, map[string]any{
			"audit_id": auditID,
			"status":   job.Status,
			"error":    job.ErrorText,
		})
		return
	}
	report, err := s.reportStore.GetReport(r.Context(), auditID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "report unavailable")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) cancelAudit(w http.ResponseWriter, r *http.Request) {
	auditID := chi.URLParam(r, "audit_id")
	if err := s.jobStore.UpdateJobStatus(
		r.Context(),
		auditID,
		audit.JobStatusCanceled,
		"canceled via API",
		audit.Counters{},
	); err != nil {
		writeError(w, http.StatusNotFound, "audit not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"audit_id": auditID,
		"status":   string(audit.JobStatusCanceled),
	})
}

func (s *Server) enqueueAudit(ctx context.Context, params audit.Parameters) (string, error) {
	auditID, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate audit id: %w", err)
	}
	now := s.clock.Now()
	job := audit.Job{
		ID:         auditID,
		Status:     audit.JobStatusQueued,
		Submitted:  now,
		Parameters: params,
	}
	if err := s.jobStore.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("create audit: %w", err)
	}
	queueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	item := audit.QueueItem{
		JobID:     auditID,
		Params:    params,
		Submitted: now.Unix(),
	}
	if err := s.dispatcher.Enqueue(queueCtx, item); err != nil {
		return "", fmt.Errorf("enqueue audit: %w", err)
	}
	return auditID, nil
}

func (s *Server) toParameters(req auditRequest) (audit.Parameters, error) {
	target, err := validateTargetURL(req.URL)
	if err != nil {
		return audit.Parameters{}, err
	}
	params := audit.Parameters{
		URL:            target,
		MaxPages:       valueOrDefault(req.MaxPages, 0),
		MaxConcurrency: valueOrDefault(req.MaxConcurrency, 0),
	}
	if params.MaxPages < 0 {
		return audit.Parameters{}, errors.New("max_pages must be >= 0")
	}
	if params.MaxConcurrency < 0 {
		return audit.Parameters{}, errors.New("max_concurrency must be >= 0")
	}
	return params.Normalize(s.limits()), nil
}

func (s *Server) limits() audit.Limits {
	l := audit.DefaultLimits()
	if s.cfg.Audit.DefaultMaxPages > 0 {
		l.DefaultMaxPages = s.cfg.Audit.DefaultMaxPages
	}
	if s.cfg.Audit.MaxPagesCap > 0 {
		l.MaxPagesCap = s.cfg.Audit.MaxPagesCap
	}
	if s.cfg.Audit.DefaultMaxConcurrency > 0 {
		l.DefaultMaxConcurrency = s.cfg.Audit.DefaultMaxConcurrency
	}
	if s.cfg.Audit.MaxConcurrencyCap > 0 {
		l.MaxConcurrencyCap = s.cfg.Audit.MaxConcurrencyCap
	}
	return l
}

func valueOrDefault[T any](ptr *T, def T) T {
	if ptr == nil {
		return def
	}
	return *ptr
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
