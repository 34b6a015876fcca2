// Package mcp exposes the tracker to MCP clients over stdio.
// The lite server needs no external services: SQLite for persistence, an in-memory patient cache.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/acl-rts-tracker/internal/cache"
	litecfg "github.com/acl-rts-tracker/internal/config"
	"github.com/acl-rts-tracker/internal/domain"
	"github.com/acl-rts-tracker/internal/logging"
	"github.com/acl-rts-tracker/internal/service"
	"github.com/acl-rts-tracker/internal/store"
)

// Server identity reported to MCP clients.
const (
	ServerName    = "acl-rts-tracker-lite"
	ServerVersion = "v1.0.0"
)

// LiteServer is a lightweight MCP server that requires no external databases.
type LiteServer struct {
	config    *litecfg.LiteConfig
	mcpServer *mcp.Server
	store     store.Store
	patients  *cache.CachedPatientStore
	service   *service.AssessmentService
	handlers  *toolHandlers
	observer  ToolObserver
	logger    *logrus.Logger
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		s.logger = logger
		return nil
	}
}

// WithStore sets a custom store instead of opening one from the configuration.
func WithStore(st store.Store) LiteServerOption {
	return func(s *LiteServer) error {
		if st == nil {
			return fmt.Errorf("store must not be nil")
		}
		s.store = st
		return nil
	}
}

// WithToolObserver receives the outcome of every tool call.
func WithToolObserver(observer ToolObserver) LiteServerOption {
	return func(s *LiteServer) error {
		s.observer = observer
		return nil
	}
}

// NewLiteServer creates a new lightweight MCP server instance.
func NewLiteServer(cfg *litecfg.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{config: cfg}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	// stdout belongs to the protocol
	if server.logger == nil {
		logger, _, err := logging.NewLogger(domain.LoggingConfig{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
			Output: logging.OutputStderr,
			Redact: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		server.logger = logger
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if server.store == nil {
		st, err := store.Open(cfg.DatabaseURL, cfg.DatabasePath(), server.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		server.store = st
	}

	server.patients = cache.NewCachedPatientStore(
		server.store,
		cache.NewMemoryCache(cfg.CacheMaxItems, cfg.CacheTTL),
		cache.BreakerConfigFrom(domain.CacheConfig{}),
		server.logger,
	)

	server.service = service.NewAssessmentService(
		server.logger,
		server.patients,
		server.store,
		service.NewRecordBuilder(cfg.MomentArmM),
		nil,
	)

	server.handlers = &toolHandlers{
		service:   server.service,
		exporter:  server.store,
		exportDir: cfg.ExportDir(),
		observer:  server.observer,
		logger:    server.logger,
	}

	server.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, nil)
	server.registerMCPTools()

	server.logger.Info("Lite server initialized successfully")
	return server, nil
}

// registerMCPTools registers tools with the MCP SDK.
func (s *LiteServer) registerMCPTools() {
	h := s.handlers

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolRegisterPatient,
		Description: "Register a patient with their ACL reconstruction date. MRNs are unique.",
	}, h.handleRegisterPatient)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolRecordAssessment,
		Description: "Record a return-to-sport visit from raw trials. Computes LSI, TTBW and " +
			"asymmetry metrics, appends the record to the patient's timeline and returns its phase.",
	}, h.handleRecordAssessment)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolClassifyPhase,
		Description: "Classify into rehabilitation phase 0-4 with per-criterion reasons. " +
			"Pass an MRN for the latest visit, or a map of metric values.",
	}, h.handleClassifyPhase)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolMetricSeries,
		Description: "Return the dated values of one metric across a patient's visits. Unknown values are omitted.",
	}, h.handleMetricSeries)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolComputeLSI,
		Description: "Compute a limb symmetry index from trials of each limb.",
	}, h.handleComputeLSI)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolComputeTTBW,
		Description: "Compute torque-to-bodyweight in Nm/kg from force trials in lbf.",
	}, h.handleComputeTTBW)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolExportTimeline,
		Description: "Export a patient's full assessment timeline as a JSON file in the data directory.",
	}, h.handleExportTimeline)

	s.logger.WithField("tool_count", 7).Info("Successfully registered all tools")
}

// Start runs the server on stdio until the client disconnects or ctx is cancelled.
func (s *LiteServer) Start(ctx context.Context) error {
	s.logger.Info("Starting ACL RTS Tracker MCP Server (Lite)...")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	if err := s.patients.Close(); err != nil {
		s.logger.WithError(err).Error("Failed to close store")
		return err
	}
	return nil
}

// Service returns the assessment service.
func (s *LiteServer) Service() *service.AssessmentService {
	return s.service
}

// CacheStats returns the patient cache counters.
func (s *LiteServer) CacheStats() cache.Stats {
	return s.patients.Stats()
}
