// Package web serves the HTTP API and the browser dashboard.
//
// Handlers translate requests, call the snapshot service, and render JSON.
// The service layer is not safe for concurrent index access over one sqlite
// connection, so every handler runs under the server mutex.
package web

import (
	"context"
	_ "embed"
	"errors"
	"net/http"
	"sync"
	"time"

	"snapkeep/internal/metrics"
	"snapkeep/internal/snap"
)

//go:embed page.html
var pageHTML []byte

// Server is the HTTP front end over a snapshot service.
type Server struct {
	svc    *snap.Service
	logger snap.Logger

	mu sync.Mutex
}

// NewServer creates a Server around the given service. logger may be nil.
func NewServer(svc *snap.Service, logger snap.Logger) *Server {
	if logger == nil {
		logger = snap.NewNopLogger()
	}
	return &Server{svc: svc, logger: logger}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/snapshots", s.instrument("snapshots_list", s.handleList))
	mux.HandleFunc("POST /api/snapshots", s.instrument("snapshots_create", s.handleCreate))
	mux.HandleFunc("GET /api/snapshots/{id}", s.instrument("snapshot_get", s.handleGet))
	mux.HandleFunc("DELETE /api/snapshots/{id}", s.instrument("snapshot_delete", s.handleDelete))
	mux.HandleFunc("GET /api/snapshots/{id}/content", s.instrument("snapshot_content", s.handleContent))
	mux.HandleFunc("POST /api/snapshots/{id}/restore", s.instrument("snapshot_restore", s.handleRestore))
	mux.HandleFunc("POST /api/snapshots/{id}/export", s.instrument("snapshot_export", s.handleExport))

	mux.HandleFunc("GET /api/diff", s.instrument("diff", s.handleDiff))
	mux.HandleFunc("GET /api/stats", s.instrument("stats", s.handleStats))

	mux.HandleFunc("GET /api/exclusions", s.instrument("exclusions_list", s.handleExclusionsList))
	mux.HandleFunc("POST /api/exclusions", s.instrument("exclusions_add", s.handleExclusionsAdd))
	mux.HandleFunc("DELETE /api/exclusions", s.instrument("exclusions_remove", s.handleExclusionsRemove))

	return mux
}

// Serve runs the HTTP server on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleClosed := make(chan struct{})
	go func() {
		defer close(idleClosed)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("web server listening", "addr", addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-idleClosed
		return nil
	}
	return err
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(pageHTML)
}

// statusRecorder captures the response status for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument serializes handler execution and records a request counter.
func (s *Server) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		s.mu.Lock()
		h(rec, r)
		s.mu.Unlock()

		metrics.HTTPRequests.WithLabelValues(route, statusClass(rec.status)).Inc()
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
