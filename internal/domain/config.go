package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Engine      EngineConfig    `mapstructure:"engine"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// CacheConfig represents patient cache configuration
type CacheConfig struct {
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
	KeyPrefix   string        `mapstructure:"key_prefix"`
	MaxItems    int           `mapstructure:"max_items"`

	// Circuit breaker guarding the Redis round trips
	BreakerMaxRequests      uint32        `mapstructure:"breaker_max_requests"`
	BreakerInterval         time.Duration `mapstructure:"breaker_interval"`
	BreakerTimeout          time.Duration `mapstructure:"breaker_timeout"`
	BreakerFailureThreshold uint32        `mapstructure:"breaker_failure_threshold"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	// Redact scrubs patient identifiers from log fields
	Redact bool `mapstructure:"redact"`
}

// EngineConfig holds the tunables of the metrics engine
type EngineConfig struct {
	MomentArmM float64 `mapstructure:"moment_arm_m"`
}

// RateLimitConfig represents per-client request limiting on the HTTP API
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}
