// Package server runs the status server: health, metrics and read-only access
// to the last published crosswalk while the scheduler keeps it fresh.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/giygas/rug-formats/config"
	"github.com/giygas/rug-formats/handlers"
	"github.com/giygas/rug-formats/interfaces"
	"github.com/giygas/rug-formats/logging"
	"github.com/giygas/rug-formats/metrics"
	"github.com/giygas/rug-formats/validation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server
type Server struct {
	server      *http.Server
	router      chi.Router
	handler     *handlers.HTTPHandlerImpl
	rateLimiter *RateLimiter
	config      *config.Config
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, dataStore interfaces.DataStore, healthChecker interfaces.HealthChecker) *Server {
	router := chi.NewRouter()

	server := &Server{
		server: &http.Server{
			Handler:      router,
			Addr:         cfg.Address + ":" + cfg.Port,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:      router,
		handler:     handlers.NewHTTPHandler(dataStore, validation.NewDataValidator(), healthChecker),
		rateLimiter: NewRateLimiter(),
		config:      cfg,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(RealIPMiddleware)
	s.router.Use(logging.LoggingMiddleware(logging.Logger()))
	s.router.Use(metrics.Metrics)
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.rateLimiter.Middleware)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handler.HealthCheck)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/rugs", s.handler.ServeRecords)
		r.Get("/rugs/{code}", s.handler.FindRecordByCode)
		r.Get("/formats/{name}", s.handler.ServeFormatTable)
		r.Get("/report", s.handler.ServeReport)
	})
}

// Start starts the server and blocks until it stops
func (s *Server) Start() error {
	s.rateLimiter.StartCleanup(30 * time.Minute)

	logging.Info(fmt.Sprintf("Starting server at: %s:%s", s.config.Address, s.config.Port))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")
	s.rateLimiter.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}
