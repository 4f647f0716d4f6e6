package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apisetup "push-server/internal/api"
	"push-server/internal/bootstrap"
	"push-server/internal/config"
	"push-server/internal/observability"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	deps       *bootstrap.Dependencies
	config     *config.Config
	logger     *observability.Logger
	cancel     context.CancelFunc
}

// New creates a new Server instance
func New(cfg *config.Config, deps *bootstrap.Dependencies, logger *observability.Logger) *Server {
	return &Server{
		config: cfg,
		deps:   deps,
		logger: logger,
	}
}

// Setup configures the HTTP router with middleware and routes
func (s *Server) Setup() {
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	s.router = gin.New()
	s.router.Use(gin.Recovery())

	// Subscription and tracking calls come from arbitrary landing page origins.
	// Dashboard calls authenticate with a bearer token, so no credentials are shared.
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "Last-Event-ID", "Cache-Control", "Accept"}

	s.router.Use(cors.New(corsConfig))
	s.router.Use(observability.Middleware(s.logger))

	rootRouter := s.router.Group("/")
	api := apisetup.New(rootRouter, apisetup.Handlers{
		Auth:          s.deps.AuthHandler,
		Registry:      s.deps.RegistryHandler,
		Notifications: s.deps.NotificationsHandler,
		Campaigns:     s.deps.CampaignHandler,
		LandingPages:  s.deps.LandingPageHandler,
		Segments:      s.deps.SegmentHandler,
		Stream:        s.deps.StreamHandler,
		RateLimiter:   s.deps.RateLimiter,
	}, s.deps.VAPIDPublicKey)
	api.RegisterRoutes()
}

// Start begins listening for HTTP requests and starts background workers
func (s *Server) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	if s.deps.EventBridge != nil {
		go func() {
			if err := s.deps.EventBridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error(ctx, "event bridge stopped with error", err)
			}
		}()
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Streams never finish on their own; closing the hub lets Shutdown drain
	// the remaining requests instead of cancelling them.
	if s.deps.Hub != nil {
		s.httpServer.RegisterOnShutdown(s.deps.Hub.Close)
	}

	go func() {
		s.logger.Info(ctx, fmt.Sprintf("Server starting on port %d", s.config.Server.Port))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, "server failed to start", err)
			os.Exit(1)
		}
	}()

	return nil
}

// WaitForShutdown blocks until a shutdown signal is received, then gracefully shuts down
func (s *Server) WaitForShutdown(ctx context.Context) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	s.logger.Info(ctx, "Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.cancel()
	if err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.deps.Cleanup()

	s.logger.Info(ctx, "Server exited gracefully")
	return nil
}
