// Package api serves the Shafaf REST surface: fraud scoring, the
// citizen assistant, bill inquiries, analytics, and operational probes.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opengov-pk/shafaf/internal/assistant"
	"github.com/opengov-pk/shafaf/internal/domain"
	"github.com/opengov-pk/shafaf/internal/metrics"
	"github.com/opengov-pk/shafaf/internal/risk"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	health  *Health
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, scorer *risk.Scorer, responder *assistant.Responder, m *metrics.Metrics, version string) *Server {
	handler := NewHandler(repo, cache, bus, scorer, responder, m, version)

	health := NewHealth(version)
	health.RegisterCheck("database", func(ctx context.Context) error {
		return repo.Ping(ctx)
	})
	health.RegisterCheck("model", func(ctx context.Context) error {
		if scorer == nil || scorer.ModelVersion() == "" {
			return errors.New("model not loaded")
		}
		return nil
	})
	if cache != nil {
		health.RegisterCheck("cache", func(ctx context.Context) error {
			return cache.Ping(ctx)
		})
	}

	router := chi.NewRouter()

	// Global middleware stack
	router.Use(middleware.RealIP) // Extract real IP
	router.Use(CORSMiddleware)    // CORS for browser clients
	router.Use(RecoverMiddleware) // Recover from panics
	if cfg.RateLimitPerSecond > 0 {
		limiter := NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
		router.Use(limiter.Middleware) // Per-IP token bucket
	}
	router.Use(TracingMiddleware) // OpenTelemetry tracing
	if m != nil {
		router.Use(m.Middleware) // Prometheus request metrics
	}
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.Compress(5)) // Gzip compression

	// Service descriptor and probes
	router.Get("/", handler.Root)
	router.Get("/health", health.Status)
	router.Get("/health/live", health.Live)
	router.Get("/health/ready", health.Ready)
	if m != nil {
		router.Method(http.MethodGet, "/metrics", m.Handler())
	}

	// Fraud scoring
	router.Post("/fraud-detect", handler.FraudDetect)

	// Citizen assistant
	router.Post("/assistant", handler.Assistant)

	// Bill inquiries
	router.Post("/bill-inquiry", handler.BillInquiry)
	router.Get("/bill-inquiry", handler.BillInquiry)

	// Stored contracts and analytics
	router.Get("/contracts", handler.ListContracts)
	router.Get("/analytics/dashboard", handler.Dashboard)
	router.Get("/analytics/export", handler.ExportAnalytics)

	return &Server{
		router:  router,
		handler: handler,
		health:  health,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}

// HealthChecks returns the probe registry so callers can add checks.
func (s *Server) HealthChecks() *Health {
	return s.health
}
