// Package api serves the tracker over HTTP with gin.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/acl-rts-tracker/internal/domain"
	"github.com/acl-rts-tracker/internal/middleware"
	"github.com/acl-rts-tracker/internal/monitoring"
	"github.com/acl-rts-tracker/internal/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// HealthCheck checks one dependency.
type HealthCheck func(ctx context.Context) error

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	service       *service.AssessmentService
	metrics       *monitoring.Manager
	checks        map[string]HealthCheck
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance. metrics may be nil, which disables /metrics.
func NewServer(
	configManager domain.ConfigManager,
	svc *service.AssessmentService,
	metrics *monitoring.Manager,
	checks map[string]HealthCheck,
	logger *logrus.Logger,
) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	var observer middleware.RequestObserver
	if metrics != nil {
		observer = metrics
	}

	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.AuditLogger(logger, observer))
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	server := &Server{
		configManager: configManager,
		service:       svc,
		metrics:       metrics,
		checks:        checks,
		logger:        logger,
		router:        router,
	}

	server.setupRoutes(cfg.RateLimit)

	return server
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes(rateLimit domain.RateLimitConfig) {
	s.router.GET("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	v1.Use(middleware.RateLimit(rateLimit))
	{
		v1.POST("/patients", s.handleRegisterPatient)
		v1.GET("/patients", s.handleListPatients)
		v1.GET("/patients/:mrn", s.handleGetPatient)
		v1.POST("/patients/:mrn/assessments", s.handleRecordAssessment)
		v1.GET("/patients/:mrn/assessments", s.handleListAssessments)
		v1.GET("/patients/:mrn/phase", s.handleCurrentPhase)
		v1.GET("/patients/:mrn/series/:metric", s.handleMetricSeries)

		v1.GET("/metrics", s.handleMetricDefinitions)
		v1.POST("/calculate/lsi", s.handleCalculateLSI)
		v1.POST("/calculate/ttbw", s.handleCalculateTTBW)
		v1.POST("/classify", s.handleClassify)
	}
}

// handleHealth reports the status of every dependency.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	components := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			components[name] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "healthy"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":     overall,
		"components": components,
		"timestamp":  time.Now().UTC(),
		"version":    Version,
	})
}
