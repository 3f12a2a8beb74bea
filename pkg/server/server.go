// Package server exposes the flame graph pipeline over HTTP.
//
// Routes:
//
//	GET    /healthz                  liveness check
//	POST   /v1/layout                document -> layout JSON
//	POST   /v1/render?format=svg     document -> rendered artifact
//	POST   /v1/graphs                save a named document
//	GET    /v1/graphs                list saved documents, newest first
//	GET    /v1/graphs/{id}           fetch a saved document
//	DELETE /v1/graphs/{id}           delete a saved document
//	GET    /v1/graphs/{id}/render    render a saved document
//	GET    /metrics                  Prometheus metrics (when enabled)
//
// Documents are posted in JSON, YAML or TOML, chosen by Content-Type. Layout
// and render options come from query parameters (color_mode, palette, width,
// row_height, title, unit, inverted) and fall back to the configured render
// defaults. An invalid hierarchy answers 422 with the validation result.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/flametower/pkg/config"
	"github.com/matzehuels/flametower/pkg/pipeline"
	"github.com/matzehuels/flametower/pkg/storage"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 10 << 20

// Server wraps HTTP serving of the flame graph API.
type Server struct {
	httpServer *http.Server
	runner     *pipeline.Runner
	store      storage.Store
	logger     *log.Logger
	defaults   config.RenderConfig
	gatherer   prometheus.Gatherer
	maxBody    int64
}

// Option configures a [Server].
type Option func(*Server)

// WithStore sets the store for saved graphs. Defaults to a [storage.MemoryStore].
func WithStore(st storage.Store) Option { return func(s *Server) { s.store = st } }

// WithLogger sets the request logger. Defaults to a discard logger.
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// WithRenderDefaults sets the options applied when a request leaves them unset.
func WithRenderDefaults(rc config.RenderConfig) Option {
	return func(s *Server) { s.defaults = rc }
}

// WithMetrics serves the metrics of g at /metrics.
func WithMetrics(g prometheus.Gatherer) Option { return func(s *Server) { s.gatherer = g } }

// WithMaxBodyBytes overrides [DefaultMaxBodyBytes].
func WithMaxBodyBytes(n int64) Option { return func(s *Server) { s.maxBody = n } }

// New creates a configured HTTP server listening on addr.
func New(addr string, runner *pipeline.Runner, opts ...Option) *Server {
	s := &Server{
		runner:  runner,
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = storage.NewMemoryStore()
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run blocks and serves HTTP traffic. It returns nil after [Server.Shutdown].
func (s *Server) Run() error {
	s.logger.Info("listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(instrument)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/layout", s.handleLayout)
		r.Post("/render", s.handleRender)
		r.Route("/graphs", func(r chi.Router) {
			r.Post("/", s.handleCreateGraph)
			r.Get("/", s.handleListGraphs)
			r.Get("/{id}", s.handleGetGraph)
			r.Delete("/{id}", s.handleDeleteGraph)
			r.Get("/{id}/render", s.handleRenderGraph)
		})
	})
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}
