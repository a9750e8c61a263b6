// Package server exposes the export runner over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/williampepple1/coze-template-scraper/internal/export"
	"github.com/williampepple1/coze-template-scraper/internal/metrics"
	"github.com/williampepple1/coze-template-scraper/pkg/models"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server serves the runner's operations
type Server struct {
	Runner  *export.Runner
	Metrics *metrics.Metrics
	logger  *zap.Logger
}

// New creates a server. m may be nil, in which case /metrics is not mounted.
func New(runner *export.Runner, m *metrics.Metrics, logger *zap.Logger) *Server {
	return &Server{
		Runner:  runner,
		Metrics: m,
		logger:  logger,
	}
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/healthz", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Get("/applicable", s.handleApplicable)
		r.Get("/records", s.handleRecords)
	})
	r.Get("/export", s.handleExport)

	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics.Handler())
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.Runner.Status())
}

func (s *Server) handleApplicable(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	render.JSON(w, r, map[string]any{
		"url":        url,
		"applicable": s.Runner.Check(url),
	})
}

type recordsResponse struct {
	Summary models.Summary  `json:"summary"`
	Records []models.Record `json:"records"`
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	summary, records, ok := s.collect(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, recordsResponse{Summary: summary, Records: records})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	_, records, ok := s.collect(w, r)
	if !ok {
		return
	}

	writer := s.Runner.Writer
	data, err := writer.Encode(records)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", writer.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", writer.Filename()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("write export response", zap.Error(err))
	}
}

// collect runs the runner for the url query parameter and writes the error
// response itself when it fails.
func (s *Server) collect(w http.ResponseWriter, r *http.Request) (models.Summary, []models.Record, bool) {
	url := r.URL.Query().Get("url")
	if url == "" {
		s.fail(w, r, http.StatusBadRequest, errors.New("missing url parameter"))
		return models.Summary{}, nil, false
	}

	summary, records, err := s.Runner.Collect(r.Context(), url)
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return summary, nil, false
	}
	if records == nil {
		records = []models.Record{}
	}
	return summary, records, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, export.ErrNotApplicable):
		return http.StatusBadRequest
	case errors.Is(err, export.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.logger.Warn("request failed",
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err))
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: err.Error()})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}
