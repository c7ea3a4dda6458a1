package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/autoclean-api/internal/config"
)

// APIPrefix is where versioned routes are mounted.
const APIPrefix = "/api/v1"

// Server owns the router and the HTTP listener.
type Server struct {
	Router *chi.Mux
	Errors *ErrorHandler
	Port   int

	logger     *slog.Logger
	routes     *Routes
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	health   *HealthHandlers
	external []func(*Routes)
	stages   []Stage
}

// WithHealth mounts the liveness and readiness probes.
func WithHealth(h *HealthHandlers) Option {
	return func(o *serverOptions) { o.health = h }
}

// WithExternalRoutes registers public business routes under /api/v1.
func WithExternalRoutes(register func(*Routes)) Option {
	return func(o *serverOptions) { o.external = append(o.external, register) }
}

// WithStages runs stages before every /api/v1 handler.
func WithStages(stages ...Stage) Option {
	return func(o *serverOptions) { o.stages = append(o.stages, stages...) }
}

// New builds the router: request id, logging, tracing and panic recovery
// middleware, the route-not-found fallback, health probes and /api/v1.
func New(cfg config.ServerConfig, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	errs := NewErrorHandler(logger)
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "autoclean-api")
	})
	r.Use(errs.RecoverMiddleware)

	r.NotFound(NotFoundHandler())
	r.MethodNotAllowed(NotFoundHandler())

	s := &Server{
		Router: r,
		Errors: errs,
		Port:   cfg.Port,
		logger: logger,
		routes: NewRoutes(r, errs),
	}
	s.httpServer = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: cfg.RequestTimeout,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	if o.health != nil {
		o.health.Register(s.routes)
	}
	s.routes.Group(APIPrefix, func(api *Routes) {
		api = api.With(o.stages...)
		for _, register := range o.external {
			register(api)
		}
	})

	return s
}

// Routes returns the registrar for the root router.
func (s *Server) Routes() *Routes {
	return s.routes
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// Start listens on the configured port and serves until Shutdown. It returns
// nil after a graceful shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.Port, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting server", slog.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}
