// Package config loads process configuration. The viper Manager serves the full HTTP server;
// LiteConfig is the environment-only configuration used by the MCP server and the CLI.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external services and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir     string // Base directory for data files
	DatabaseURL string // Optional: postgres:// URL replacing the SQLite file

	// Cache settings
	CacheMaxItems int           // Maximum patients in memory cache
	CacheTTL      time.Duration // Default cache TTL

	// Engine
	MomentArmM float64 // Knee-extension moment arm in meters

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".acl-rts-tracker")

	return &LiteConfig{
		DataDir:       dataDir,
		CacheMaxItems: 1000,
		CacheTTL:      24 * time.Hour,
		MomentArmM:    0.36,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	// Data directory
	if v := os.Getenv("RTS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	cfg.DatabaseURL = os.Getenv("RTS_DATABASE_URL")

	// Cache settings
	if v := os.Getenv("RTS_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("RTS_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	if v := os.Getenv("RTS_MOMENT_ARM_M"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			cfg.MomentArmM = f
		}
	}

	// Logging
	if v := os.Getenv("RTS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("RTS_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// DatabasePath returns the path to the SQLite database.
func (c *LiteConfig) DatabasePath() string {
	return filepath.Join(c.DataDir, "rts.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}
