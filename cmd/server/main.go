package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ctiworks/threatboard/internal/api"
	"github.com/ctiworks/threatboard/internal/archive"
	"github.com/ctiworks/threatboard/internal/cache"
	"github.com/ctiworks/threatboard/internal/config"
	"github.com/ctiworks/threatboard/internal/ingest"
	"github.com/ctiworks/threatboard/internal/logger"
	"github.com/ctiworks/threatboard/internal/middleware"
	"github.com/ctiworks/threatboard/internal/scan"
	"github.com/ctiworks/threatboard/internal/store"
)

func main() {
	// Load and validate configuration
	cfg := config.Load()

	// Initialize logger
	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: "stdout",
		Pretty: cfg.Env == "development",
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Msg("Starting threatboard...")

	// Redis-backed ingest dedup, with an in-memory fallback so the
	// service still runs without a Redis instance.
	var ingestCache cache.Cache
	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, using in-memory cache")
		ingestCache = cache.NewMockClient(cfg.RedisPrefix)
	} else {
		ingestCache = redisClient
	}
	defer func() {
		if err := ingestCache.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing cache")
		}
	}()

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	// Evidence archive is optional; a missing endpoint disables it.
	var archiver scan.Archiver
	if s3store, err := archive.New(context.Background(), cfg); err != nil {
		log.Warn().Err(err).Msg("Evidence archive unavailable")
	} else if s3store != nil {
		archiver = s3store
	}

	checker := scan.NewChecker(scan.CheckerConfig{
		TargetDomain:  cfg.TargetDomain,
		TargetBaseURL: cfg.TargetBaseURL,
		IPInfoBaseURL: cfg.IPInfoBaseURL,
	})
	scans := scan.NewManager(scan.ManagerConfig{
		TargetDomain:     cfg.TargetDomain,
		PersistThreshold: cfg.PersistThreshold,
		Retention:        cfg.ScanRetention,
		Concurrency:      cfg.ScanConcurrency,
	}, db, checker, archiver)
	defer scans.Shutdown()

	processor := ingest.NewProcessor(cfg, ingestCache, db)

	// Periodic news ingest
	scheduler := ingest.NewScheduler(processor, cfg.FetchSchedule)
	if err := scheduler.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.FetchSchedule).Msg("Invalid fetch schedule")
	}
	defer scheduler.Stop()

	// Create Fiber app with custom config
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: middleware.ErrorHandler,
	})

	api.SetupRoutes(app, api.NewHandlers(cfg, db, processor, scans, checker))

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
