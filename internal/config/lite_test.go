package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 0.36, cfg.MomentArmM)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 0.36, cfg.MomentArmM)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("RTS_DATA_DIR", "/tmp/test-rts")
	t.Setenv("RTS_DATABASE_URL", "postgres://rts@localhost/rts")
	t.Setenv("RTS_CACHE_MAX_ITEMS", "500")
	t.Setenv("RTS_CACHE_TTL", "12h")
	t.Setenv("RTS_MOMENT_ARM_M", "0.4")
	t.Setenv("RTS_LOG_LEVEL", "debug")
	t.Setenv("RTS_LOG_FORMAT", "text")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-rts", cfg.DataDir)
	assert.Equal(t, "postgres://rts@localhost/rts", cfg.DatabaseURL)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 0.4, cfg.MomentArmM)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadLiteConfig_InvalidValuesKeepDefaults(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("RTS_CACHE_MAX_ITEMS", "-3")
	t.Setenv("RTS_CACHE_TTL", "soon")
	t.Setenv("RTS_MOMENT_ARM_M", "2.5")

	cfg := LoadLiteConfig()

	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 0.36, cfg.MomentArmM)
}

func TestLiteConfig_DatabasePath(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.acl-rts-tracker"}

	assert.Equal(t, "/home/user/.acl-rts-tracker/rts.db", cfg.DatabasePath())
}

func TestLiteConfig_ExportDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.acl-rts-tracker"}

	assert.Equal(t, "/home/user/.acl-rts-tracker/exports", cfg.ExportDir())
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: filepath.Join(t.TempDir(), "rts")}

	require.NoError(t, cfg.EnsureDataDir())

	// Verify directories exist
	_, err := os.Stat(cfg.DataDir)
	assert.NoError(t, err)

	_, err = os.Stat(cfg.ExportDir())
	assert.NoError(t, err)
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"RTS_DATA_DIR",
		"RTS_DATABASE_URL",
		"RTS_CACHE_MAX_ITEMS",
		"RTS_CACHE_TTL",
		"RTS_MOMENT_ARM_M",
		"RTS_LOG_LEVEL",
		"RTS_LOG_FORMAT",
	}
	for _, v := range vars {
		t.Setenv(v, "")
	}
}
