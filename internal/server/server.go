// Package server exposes the context store and retrieval pipeline over HTTP.
// Routing is chi; every response body is JSON; error responses carry the
// machine-readable code alongside the message.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/objones25/mnemo/internal/rag"
	"github.com/objones25/mnemo/internal/storage"
	merr "github.com/objones25/mnemo/pkg/errors"
)

// Server is the mnemod HTTP API server.
type Server struct {
	store     *storage.ContextStore
	processor *rag.Processor
	router    chi.Router
	version   string
	started   time.Time
}

// New creates a Server over the given store and retrieval processor. The
// processor may be nil, in which case /v1/retrieve answers 503.
func New(store *storage.ContextStore, processor *rag.Processor, version string) *Server {
	s := &Server{
		store:     store,
		processor: processor,
		version:   version,
		started:   time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/contexts", s.handleStore)
		r.Post("/contexts/query", s.handleQuery)
		r.Get("/contexts/{id}", s.handleGet)
		r.Delete("/contexts/{id}", s.handleDelete)
		r.Post("/contexts/{id}/screening", s.handleScreening)
		r.Post("/retrieve", s.handleRetrieve)
		r.Get("/stats/temporal", s.handleTemporalStats)
		r.Get("/stats/storage", s.handleStorageStats)
		r.Post("/cleanup", s.handleCleanup)
	})

	s.router = r
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests within shutdownTimeout.
func (s *Server) Serve(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("version", s.version).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("http server draining")
		return srv.Shutdown(drainCtx)
	})
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	backendOK := true
	if err := s.store.Health(r.Context()); err != nil {
		backendOK = false
		log.Warn().Err(err).Msg("backend health check failed")
	}

	status := "ok"
	if !backendOK {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"backend": backendOK,
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request handled")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("response encoding failed")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := merr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, map[string]any{
		"error": err.Error(),
		"code":  string(merr.CodeOf(err)),
	})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, merr.New(merr.CodeRequestInvalid, msg))
}
