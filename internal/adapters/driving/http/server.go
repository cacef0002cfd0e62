package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// VocabularyReloader re-reads the vendor vocabulary from its source
type VocabularyReloader interface {
	Reload(ctx context.Context) (int, error)
	Vendors() *domain.VendorSet
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	lake    driving.LakeService
	answers driving.AnswerService

	// Infrastructure
	latest     driven.LatestVersionStore
	vocabulary VocabularyReloader
	verifier   driven.TokenVerifier // nil disables admin endpoints
	taskQueue  driven.TaskQueue     // nil rebuilds inline
	pingers    map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// Deps are the services and adapters the API is served from
type Deps struct {
	Lake       driving.LakeService
	Answers    driving.AnswerService
	Latest     driven.LatestVersionStore
	Vocabulary VocabularyReloader
	Verifier   driven.TokenVerifier
	TaskQueue  driven.TaskQueue
	// Pingers are checked by /ready, keyed by component name
	Pingers map[string]Pinger
	Logger  *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:     http.NewServeMux(),
		version:    cfg.Version,
		logger:     logger,
		lake:       deps.Lake,
		answers:    deps.Answers,
		latest:     deps.Latest,
		vocabulary: deps.Vocabulary,
		verifier:   deps.Verifier,
		taskQueue:  deps.TaskQueue,
		pingers:    deps.Pingers,
	}

	s.setupRoutes()

	handler := NewLoggingMiddleware(logger).Handler(
		NewRecoveryMiddleware(logger).Handler(s.router))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // ask may wait for a rebuild
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the root handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.verifier)
	admin := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(authMiddleware.RequireAdmin(h))
	}

	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// API docs
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwaggerDoc)

	// Query endpoints
	s.router.HandleFunc("GET /api/v1/ask", s.handleAsk)
	s.router.HandleFunc("GET /api/v1/answer", s.handleAnswer)
	s.router.HandleFunc("GET /api/v1/search", s.handleSearch)

	// Vendor endpoints
	s.router.HandleFunc("GET /api/v1/vendors", s.handleListVendors)
	s.router.HandleFunc("GET /api/v1/vendors/status", s.handleVendorStatus)
	s.router.HandleFunc("GET /api/v1/lake/totals", s.handleLakeTotals)
	s.router.HandleFunc("GET /api/v1/vendors/{vendor}/latest", s.handleLatestVersion)

	// Admin endpoints
	s.router.Handle("POST /api/v1/vendors/{vendor}/rebuild", admin(s.handleRebuild))
	s.router.Handle("POST /api/v1/vendors/reload", admin(s.handleReloadVocabulary))
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
