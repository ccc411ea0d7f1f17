// Shafaf - Government transparency services for Pakistan.
// Copyright (c) 2025 opengov-pk
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/opengov-pk/shafaf/internal/api"
	"github.com/opengov-pk/shafaf/internal/assistant"
	"github.com/opengov-pk/shafaf/internal/bus"
	"github.com/opengov-pk/shafaf/internal/cache"
	"github.com/opengov-pk/shafaf/internal/domain"
	"github.com/opengov-pk/shafaf/internal/history"
	"github.com/opengov-pk/shafaf/internal/metrics"
	"github.com/opengov-pk/shafaf/internal/repository"
	"github.com/opengov-pk/shafaf/internal/risk"
	"github.com/opengov-pk/shafaf/internal/screening"
	"github.com/opengov-pk/shafaf/internal/seeder"
	"github.com/opengov-pk/shafaf/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load configuration
	cfg := domain.DefaultConfig()
	if os.Getenv("SHAFAF_PROFILE") == string(domain.ProfileProduction) {
		cfg = domain.ProductionConfig()
	}
	applyEnvOverrides(cfg)

	// Initialize structured logger
	initLogger(cfg.Logging)

	slog.Info("starting shafaf",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"profile", cfg.Profile,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Scorer: supplier history, screening rules, then the model.
	// A bad model or threshold artifact is fatal here and nowhere else.
	historySvc := history.NewService(repo, cacheImpl)
	extractor := risk.NewExtractor(historySvc, cfg.Scorer.MinHistorySamples)

	screeningRules := screening.DefaultRules()
	if cfg.Scorer.ScreeningRulesPath != "" {
		screeningRules, err = screening.LoadFile(cfg.Scorer.ScreeningRulesPath)
		if err != nil {
			slog.Error("failed to load screening rules", "error", err)
			os.Exit(1)
		}
	}
	screener, err := screening.NewEngine(risk.FeatureNames, screeningRules)
	if err != nil {
		slog.Error("failed to initialize screening engine", "error", err)
		os.Exit(1)
	}
	slog.Info("screening engine initialized", "rules_count", screener.RulesCount())

	scorer, err := risk.NewScorer(risk.Config{
		ModelPath:      cfg.Scorer.ModelPath,
		ThresholdsPath: cfg.Scorer.ThresholdsPath,
	}, extractor, screener)
	if err != nil {
		slog.Error("failed to initialize risk scorer", "error", err)
		os.Exit(1)
	}
	slog.Info("risk scorer initialized", "model_version", scorer.ModelVersion())

	// Initialize Assistant
	responder := assistant.NewResponder(repo, cfg.Assistant)
	slog.Info("assistant initialized", "default_language", cfg.Assistant.DefaultLanguage)

	// Initialize Metrics
	m := metrics.New()

	// Seed demo data into an empty store
	if cfg.Seed.DemoData {
		if err := seeder.New(repo, repo, repo).SeedAll(ctx); err != nil {
			slog.Error("failed to seed demo data", "error", err)
			os.Exit(1)
		}
	}

	// Start alert worker
	alertWorker := worker.NewWorker(busImpl, m)
	if err := alertWorker.Start(); err != nil {
		slog.Error("failed to start alert worker", "error", err)
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, scorer, responder, m, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("shafaf is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	if err := alertWorker.Stop(); err != nil {
		slog.Error("failed to stop alert worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("shafaf shutdown complete")
}

// initLogger configures the default slog logger. SHAFAF_DEBUG=true forces
// debug level regardless of the configured one.
func initLogger(cfg domain.LoggingConfig) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if os.Getenv("SHAFAF_DEBUG") == "true" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// applyEnvOverrides maps SHAFAF_* environment variables onto the config.
func applyEnvOverrides(cfg *domain.Config) {
	if v := os.Getenv("SHAFAF_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SHAFAF_DB_DRIVER"); v != "" {
		cfg.Repository.Driver = v
	}
	if v := os.Getenv("SHAFAF_DB_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv("SHAFAF_POSTGRES_HOST"); v != "" {
		cfg.Repository.PostgresHost = v
	}
	if v := os.Getenv("SHAFAF_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Repository.PostgresPort = port
		}
	}
	if v := os.Getenv("SHAFAF_POSTGRES_USER"); v != "" {
		cfg.Repository.PostgresUser = v
	}
	if v := os.Getenv("SHAFAF_POSTGRES_PASSWORD"); v != "" {
		cfg.Repository.PostgresPassword = v
	}
	if v := os.Getenv("SHAFAF_POSTGRES_DB"); v != "" {
		cfg.Repository.PostgresDB = v
	}
	if v := os.Getenv("SHAFAF_CACHE"); v != "" {
		cfg.Cache.Type = v
	}
	if v := os.Getenv("SHAFAF_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("SHAFAF_BUS"); v != "" {
		cfg.EventBus.Type = v
	}
	if v := os.Getenv("SHAFAF_NATS_URL"); v != "" {
		cfg.EventBus.NATSUrl = v
	}
	if v := os.Getenv("SHAFAF_MODEL_PATH"); v != "" {
		cfg.Scorer.ModelPath = v
	}
	if v := os.Getenv("SHAFAF_SCORER_CONFIG"); v != "" {
		cfg.Scorer.ThresholdsPath = v
	}
	if v := os.Getenv("SHAFAF_SCREENING_RULES"); v != "" {
		cfg.Scorer.ScreeningRulesPath = v
	}
	if v := os.Getenv("SHAFAF_SEED_DEMO"); v != "" {
		if seed, err := strconv.ParseBool(v); err == nil {
			cfg.Seed.DemoData = seed
		}
	}
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  +-------------------------------------------+")
	fmt.Println("  |                 SHAFAF                    |")
	fmt.Println("  |     Government Transparency Services      |")
	fmt.Println("  |       Every rupee in plain sight.         |")
	fmt.Println("  +-------------------------------------------+")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Profile:  %s\n", cfg.Profile)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /fraud-detect         - Score a procurement contract")
	fmt.Println("    POST /assistant            - Citizen services chat")
	fmt.Println("    POST /bill-inquiry         - Utility bill lookup by CNIC")
	fmt.Println("    GET  /bill-inquiry?cnic=   - Same lookup via query string")
	fmt.Println("    GET  /contracts            - List stored contracts")
	fmt.Println("    GET  /analytics/dashboard  - Aggregated statistics")
	fmt.Println("    GET  /analytics/export     - Analytics workbook (XLSX)")
	fmt.Println("    GET  /metrics              - Prometheus metrics")
	fmt.Println("    GET  /health               - Health check")
	fmt.Println()
}
