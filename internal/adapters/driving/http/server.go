package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the driving ports served over HTTP
type Services struct {
	Auth        driving.AuthService
	Users       driving.UserService
	Ingest      driving.IngestService
	Lifecycle   driving.LifecycleService
	Review      driving.ReviewService
	Eligibility driving.EligibilityService
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	authService        driving.AuthService
	userService        driving.UserService
	ingestService      driving.IngestService
	lifecycleService   driving.LifecycleService
	reviewService      driving.ReviewService
	eligibilityService driving.EligibilityService

	// Infrastructure
	taskQueue driven.TaskQueue  // Optional: enables ?async=true
	checks    map[string]Pinger // Readiness checks by name
	gatherer  prometheus.Gatherer
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	Version     string
	CORSOrigins []string
	Logger      *slog.Logger
	Gatherer    prometheus.Gatherer // Served on /metrics (default: prometheus.DefaultGatherer)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server. taskQueue may be nil, in which case
// async requests are rejected.
func NewServer(cfg Config, svc Services, taskQueue driven.TaskQueue, checks map[string]Pinger) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		router:             http.NewServeMux(),
		version:            cfg.Version,
		logger:             logger,
		authService:        svc.Auth,
		userService:        svc.Users,
		ingestService:      svc.Ingest,
		lifecycleService:   svc.Lifecycle,
		reviewService:      svc.Review,
		eligibilityService: svc.Eligibility,
		taskQueue:          taskQueue,
		checks:             checks,
		gatherer:           gatherer,
	}

	s.setupRoutes()

	var handler http.Handler = s.router
	handler = NewCORSMiddleware(cfg.CORSOrigins).Handler(handler)
	handler = NewLoggingMiddleware(logger).Handler(handler)
	handler = NewRecoveryMiddleware(logger).Handler(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)
	authed := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(h)
	}
	reviewer := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(authMiddleware.RequireReviewer(h))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(authMiddleware.RequireAdmin(h))
	}

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwaggerDoc)

	// Auth endpoints
	s.router.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	s.router.HandleFunc("POST /api/v1/auth/refresh", s.handleRefresh)
	s.router.Handle("POST /api/v1/auth/logout", authed(s.handleLogout))
	s.router.Handle("POST /api/v1/auth/logout-all", authed(s.handleLogoutAll))
	s.router.Handle("POST /api/v1/auth/password", authed(s.handleChangePassword))

	// Setup endpoint (public, one-time use)
	s.router.HandleFunc("POST /api/v1/setup", s.handleSetup)

	// Analyst accounts
	s.router.Handle("GET /api/v1/me", authed(s.handleGetMe))
	s.router.Handle("GET /api/v1/users", admin(s.handleListUsers))
	s.router.Handle("POST /api/v1/users", admin(s.handleCreateUser))
	s.router.Handle("GET /api/v1/users/{id}", admin(s.handleGetUser))
	s.router.Handle("PATCH /api/v1/users/{id}", admin(s.handleUpdateUser))
	s.router.Handle("PUT /api/v1/users/{id}/password", admin(s.handleSetPassword))
	s.router.Handle("DELETE /api/v1/users/{id}", admin(s.handleDeleteUser))

	// Posts and their structural trees
	s.router.Handle("POST /api/v1/posts", reviewer(s.handleIngest))
	s.router.Handle("POST /api/v1/posts/batch", reviewer(s.handleIngestBatch))
	s.router.Handle("GET /api/v1/posts", authed(s.handleListPosts))
	s.router.Handle("GET /api/v1/posts/{id}", authed(s.handleGetPost))
	s.router.Handle("DELETE /api/v1/posts/{id}", admin(s.handleDeletePost))
	s.router.Handle("GET /api/v1/posts/{id}/tree", authed(s.handleGetTree))
	s.router.Handle("PATCH /api/v1/nodes/{id}", reviewer(s.handleAlterNode))
	s.router.Handle("DELETE /api/v1/nodes/{id}", reviewer(s.handleAlterNode))

	// Lifecycle
	s.router.Handle("GET /api/v1/posts/{id}/snapshots", authed(s.handleListSnapshots))
	s.router.Handle("GET /api/v1/posts/{id}/snapshots/{stage}", authed(s.handleGetSnapshotAtStage))
	s.router.Handle("POST /api/v1/posts/{id}/advance", reviewer(s.handleAdvance))

	// Review overlay of a snapshot
	s.router.Handle("GET /api/v1/snapshots/{id}", authed(s.handleGetSnapshot))
	s.router.Handle("GET /api/v1/snapshots/{id}/tree", authed(s.handleGetSnapshotTree))
	s.router.Handle("PATCH /api/v1/snapshots/{id}/nodes/{node}", reviewer(s.handleUpdateNodeState))
	s.router.Handle("PUT /api/v1/snapshots/{id}/nodes/{node}/context", reviewer(s.handleSetContext))
	s.router.Handle("PUT /api/v1/snapshots/{id}/nodes/{node}/actors", reviewer(s.handleSetActor))
	s.router.Handle("PUT /api/v1/snapshots/{id}/candidates/{node}", reviewer(s.handleSetCandidate))
	s.router.Handle("POST /api/v1/snapshots/{id}/nodes/{node}/duplicate", reviewer(s.handleMarkDuplicate))
	s.router.Handle("DELETE /api/v1/snapshots/{id}/nodes/{node}/duplicate", reviewer(s.handleClearDuplicate))
	s.router.Handle("GET /api/v1/snapshots/{id}/nodes/{node}/resolve", authed(s.handleResolve))
	s.router.Handle("POST /api/v1/snapshots/{id}/dedup/suggest", reviewer(s.handleSuggestDuplicates))
	s.router.Handle("POST /api/v1/snapshots/{id}/context/rederive", reviewer(s.handleRederiveContext))

	// Commit eligibility
	s.router.Handle("POST /api/v1/snapshots/{id}/recompute", reviewer(s.handleRecompute))
	s.router.Handle("GET /api/v1/snapshots/{id}/eligibility", authed(s.handleGetEligibility))

	// Background tasks
	s.router.Handle("GET /api/v1/tasks", authed(s.handleListTasks))
	s.router.Handle("GET /api/v1/tasks/stats", admin(s.handleQueueStats))
	s.router.Handle("GET /api/v1/tasks/{id}", authed(s.handleGetTask))
	s.router.Handle("DELETE /api/v1/tasks/{id}", reviewer(s.handleCancelTask))
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
