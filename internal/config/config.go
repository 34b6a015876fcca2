package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/acl-rts-tracker/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. RTS_SERVER_PORT.
const EnvPrefix = "RTS"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	return NewManagerFromFile("")
}

// NewManagerFromFile loads configuration from an explicit file instead of the search paths.
func NewManagerFromFile(path string) (*Manager, error) {
	m := &Manager{configFile: path}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/acl-rts-tracker/")
	}

	// Set environment variable prefix and enable automatic env binding
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "15s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "acl_rts")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.conn_max_idle_time", "1m")
	v.SetDefault("database.migrations_path", "migrations")

	// Cache defaults
	v.SetDefault("cache.redis_url", "redis://localhost:6379")
	v.SetDefault("cache.default_ttl", "24h")
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.pool_timeout", "4s")
	v.SetDefault("cache.key_prefix", "rts:patient:")
	v.SetDefault("cache.max_items", 1000)
	v.SetDefault("cache.breaker_max_requests", 3)
	v.SetDefault("cache.breaker_interval", "30s")
	v.SetDefault("cache.breaker_timeout", "60s")
	v.SetDefault("cache.breaker_failure_threshold", 5)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)
	v.SetDefault("logging.redact", true)

	// Engine defaults
	v.SetDefault("engine.moment_arm_m", 0.36)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetCacheConfig returns cache configuration
func (m *Manager) GetCacheConfig() *domain.CacheConfig {
	return &m.config.Cache
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// ConfigFileUsed returns the file the configuration was read from, if any.
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	// Validate database configuration
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if config.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if config.Database.Username == "" {
		return fmt.Errorf("database username is required")
	}

	// Validate cache configuration
	if config.Cache.RedisURL == "" {
		return fmt.Errorf("redis URL is required")
	}

	// Validate engine configuration
	if config.Engine.MomentArmM <= 0 || config.Engine.MomentArmM > 1 {
		return fmt.Errorf("invalid moment arm: %g m", config.Engine.MomentArmM)
	}

	if config.RateLimit.Enabled && config.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate limit requires a positive requests_per_second")
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.EqualFold(m.config.Environment, "production")
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
