package database

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/acl-rts-tracker/internal/domain"
)

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(domain.DatabaseConfig{
		Host:            "db.internal",
		Port:            5433,
		Database:        "rts",
		Username:        "clinic",
		Password:        "p@ss word",
		SSLMode:         "require",
		MaxOpenConns:    20,
		MaxIdleConns:    4,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
	})

	assert.Equal(t, int32(20), cfg.MaxConns)
	assert.Equal(t, int32(4), cfg.MinConns)
	assert.Equal(t, "host=db.internal port=5433 dbname=rts user=clinic password=p@ss word sslmode=require", cfg.DSN())

	u := cfg.URL()
	assert.True(t, strings.HasPrefix(u, "postgres://clinic:"), u)
	assert.Contains(t, u, "@db.internal:5433/rts?sslmode=require")
	assert.NotContains(t, u, "p@ss word")
}

func TestDatabaseConnection(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}()

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	config := Config{
		Host:        host,
		Port:        port.Int(),
		Database:    "testdb",
		Username:    "testuser",
		Password:    "testpass",
		MaxConns:    10,
		MinConns:    2,
		MaxConnLife: time.Hour,
		MaxConnIdle: time.Minute * 30,
		SSLMode:     "disable",
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel) // Reduce noise in tests

	db, err := NewConnection(ctx, config, logger)
	if err != nil {
		t.Fatalf("Failed to create database connection: %v", err)
	}
	defer db.Close()

	if err := db.Health(ctx); err != nil {
		t.Fatalf("Database health check failed: %v", err)
	}

	runner, err := NewMigrationRunner(config.URL(), "../../migrations", logger)
	if err != nil {
		t.Fatalf("Failed to create migration runner: %v", err)
	}
	defer runner.Close()

	if err := runner.Up(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	// Second run is a no-op.
	if err := runner.Up(ctx); err != nil {
		t.Fatalf("Re-running migrations failed: %v", err)
	}

	version, dirty, err := runner.Version()
	if err != nil {
		t.Fatalf("Failed to read migration version: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("Expected clean version 1, got %d (dirty=%v)", version, dirty)
	}

	stats := db.Stats()
	if stats.TotalConns() == 0 {
		t.Error("Expected at least one connection in pool")
	}
}
