package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"unifit/internal/cache"
	"unifit/internal/catalog"
	"unifit/internal/config"
	"unifit/internal/db"
	"unifit/internal/engine"
	"unifit/internal/evaluator/gemini"
	"unifit/internal/jobs"
	"unifit/internal/logger"
	"unifit/internal/metrics"
	"unifit/internal/profilestore"
	"unifit/internal/scoring"
	"unifit/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	zlog, err := logger.New(cfg.LogJSON, cfg.LogDebug)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	// Initialize database
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		zlog.Fatal("failed to run migrations", zap.Error(err))
	}
	zlog.Info("migrations completed")

	// Seed the embedded catalog so a fresh database can serve immediately
	for _, u := range catalog.Seed() {
		if err := database.UpsertUniversity(ctx, &u); err != nil {
			zlog.Fatal("failed to seed catalog", zap.Error(err))
		}
	}

	// Optional Redis cache
	fitCache := cache.New(cfg.RedisURL, cfg.CacheTTL)
	if fitCache != nil {
		defer fitCache.Close()
		zlog.Info("fit record cache enabled")
	}

	// Factor evaluator
	generator, err := gemini.NewGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		zlog.Fatal("failed to initialize evaluator", zap.Error(err))
	}
	profiles := profilestore.New(cfg.ProfileStoreURL)
	eval := gemini.NewEvaluator(generator, profiles, zlog)

	metrics.Init(database, zlog)

	eng := engine.New(database, database, database, database, eval, fitCache, engine.Config{
		BatchSize:        cfg.BatchSize,
		FitCreditCost:    cfg.FitCreditCost,
		ImageCreditCost:  cfg.ImageCreditCost,
		FreeCredits:      cfg.FreeCredits,
		EvaluatorTimeout: cfg.EvaluatorTimeout,
		Bands: scoring.Bands{
			Safety: cfg.SafetyBand,
			Target: cfg.TargetBand,
			Reach:  cfg.ReachBand,
		},
	}, zlog)

	srv := server.New(cfg)
	srv.RegisterRoutes(database, eng)

	// External catalog sync, when configured
	if cfg.CatalogPath != "" {
		refresher := jobs.NewCatalogRefresher(database, cfg.CatalogPath, cfg.CatalogRefreshInterval, zlog)
		go refresher.Start(ctx)
	}

	go func() {
		if err := srv.Start(); err != nil {
			zlog.Error("server error", zap.Error(err))
		}
	}()
	zlog.Info("server started", zap.String("addr", cfg.ServerAddr))

	<-ctx.Done()

	zlog.Info("shutting down server")
	if err := srv.Shutdown(); err != nil {
		zlog.Fatal("server forced to shutdown", zap.Error(err))
	}
	zlog.Info("server exited")
}
