// Package server exposes analysis, layout and picking over HTTP.
//
// Routes:
//
//	GET  /api/health             build info
//	GET  /api/repos              stored repositories; ?summary=true drops the trees
//	POST /api/analyze/local      analyze a local repository and store it
//	POST /api/analyze/github     clone and analyze owner/repo and store it
//	POST /api/scan               analyze every repository under a directory
//	GET  /api/repo/{id}          one stored repository
//	GET  /api/repo/{id}/tree     its directory tree
//	GET  /api/city               layout JSON of a view over the stored repositories
//	GET  /api/city.svg           the same layout as an SVG plan
//	POST /api/pick               the building under a screen point
//	GET  /metrics                Prometheus metrics, when enabled
//
// Repositories are returned in full, directories included. Analyze routes
// report cache use in the [CacheHeader] response header.
//
// Errors are JSON objects {"error": message, "code": code} with the status
// from [errors.HTTPStatus].
package server

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/codecity/pkg/city/view"
	"github.com/matzehuels/codecity/pkg/config"
	"github.com/matzehuels/codecity/pkg/pipeline"
	"github.com/matzehuels/codecity/pkg/store"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 10 * time.Second

// maxBodyBytes limits request bodies; every request body is a small JSON object.
const maxBodyBytes = 1 << 20

// Server serves the API. It is safe for concurrent use.
type Server struct {
	runner  *pipeline.Runner
	store   store.Store
	logger  *log.Logger
	viewCfg view.Config
	metrics http.Handler
	router  chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// WithLayout sets the layout parameters of every view.
func WithLayout(cfg view.Config) Option { return func(s *Server) { s.viewCfg = cfg } }

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option { return func(s *Server) { s.metrics = h } }

// New creates a server that analyzes through runner and persists into st.
func New(runner *pipeline.Runner, st store.Store, opts ...Option) *Server {
	s := &Server{
		runner:  runner,
		store:   st,
		viewCfg: view.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, notFound(r.URL.Path))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/repos", s.handleRepos)
		r.Post("/analyze/local", s.handleAnalyzeLocal)
		r.Post("/analyze/github", s.handleAnalyzeGitHub)
		r.Post("/scan", s.handleScan)
		r.Get("/repo/{id}", s.handleRepo)
		r.Get("/repo/{id}/tree", s.handleTree)
		r.Get("/city", s.handleCity)
		r.Get("/city.svg", s.handleCitySVG)
		r.Post("/pick", s.handlePick)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
