package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/acl-rts-tracker/internal/api"
	"github.com/acl-rts-tracker/internal/cache"
	"github.com/acl-rts-tracker/internal/config"
	"github.com/acl-rts-tracker/internal/database"
	"github.com/acl-rts-tracker/internal/logging"
	"github.com/acl-rts-tracker/internal/monitoring"
	"github.com/acl-rts-tracker/internal/repository"
	"github.com/acl-rts-tracker/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()

	logger, logCloser, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logCloser.Close()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := run(ctx, configManager, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

func run(ctx context.Context, configManager *config.Manager, logger *logrus.Logger) error {
	cfg := configManager.GetConfig()
	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"environment": cfg.Environment,
		"config_file": configManager.ConfigFileUsed(),
	}).Info("Starting ACL RTS Tracker")

	dbConfig := database.ConfigFrom(cfg.Database)
	db, err := database.NewConnection(ctx, dbConfig, logger)
	if err != nil {
		return err
	}

	if cfg.Database.MigrationsPath != "" {
		runner, err := database.NewMigrationRunner(dbConfig.URL(), cfg.Database.MigrationsPath, logger)
		if err != nil {
			db.Close()
			return err
		}
		err = runner.Up(ctx)
		runner.Close()
		if err != nil {
			db.Close()
			return err
		}
	}

	store := repository.NewStore(db, logger)
	checks := map[string]api.HealthCheck{"database": store.Ping}

	// Redis is optional; without it patients are cached in process.
	var patientCache cache.PatientCache
	redisCache, err := cache.NewRedisCache(ctx, cfg.Cache)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, using in-memory patient cache")
		patientCache = cache.NewMemoryCache(cfg.Cache.MaxItems, cfg.Cache.DefaultTTL)
	} else {
		patientCache = redisCache
		checks["cache"] = redisCache.Ping
	}

	patients := cache.NewCachedPatientStore(store, patientCache, cache.BreakerConfigFrom(cfg.Cache), logger)
	defer patients.Close()

	metrics := monitoring.NewManager()
	metrics.RegisterCacheStats(
		func() float64 { return float64(patients.Stats().Hits) },
		func() float64 { return float64(patients.Stats().Misses) },
	)

	svc := service.NewAssessmentService(
		logger,
		patients,
		store,
		service.NewRecordBuilder(cfg.Engine.MomentArmM),
		nil,
	).WithMetrics(metrics)

	server := api.NewServer(configManager, svc, metrics, checks, logger)
	return server.Start(ctx)
}
