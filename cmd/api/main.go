package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/glowdesk/scheduling-engine/internal/api/router"
	"github.com/glowdesk/scheduling-engine/internal/availability"
	"github.com/glowdesk/scheduling-engine/internal/clients"
	appconfig "github.com/glowdesk/scheduling-engine/internal/config"
	"github.com/glowdesk/scheduling-engine/internal/http/handlers"
	"github.com/glowdesk/scheduling-engine/internal/observability/metrics"
	"github.com/glowdesk/scheduling-engine/internal/recommend"
	"github.com/glowdesk/scheduling-engine/internal/schedule"
	"github.com/glowdesk/scheduling-engine/internal/suggest"
	"github.com/glowdesk/scheduling-engine/pkg/logging"
)

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting scheduling-engine API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Postgres pool
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to reach postgres", "error", err)
		os.Exit(1)
	}

	// Redis (optional; schedule cache degrades to direct reads)
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisOptions := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(redisOptions)
		defer func() { _ = redisClient.Close() }()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, schedule cache disabled", "error", err)
			redisClient = nil
		}
	}

	// Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	schedMetrics := metrics.NewSchedulingMetrics(registry)

	// Storage layer
	store := schedule.NewStore(pool)
	cache := schedule.NewScheduleCache(store, redisClient, cfg.ScheduleCacheTTL, logger)
	source := schedule.NewCachedSource(store, cache)
	history := clients.NewHistory(pool)

	// Domain services
	engine := availability.NewEngine(source, logger, schedMetrics)
	suggestions := suggest.NewService(engine, store, suggest.Options{
		SameDayBuffer:   cfg.SameDayBuffer,
		MinPrimarySlots: cfg.MinPrimarySlots,
		StepMinutes:     cfg.SlotStepMinutes,
	}, logger, schedMetrics)
	recommender := recommend.NewEngine(suggestions, store, history, recommend.Options{
		MinDaysSinceVisit:  cfg.MinDaysSinceVisit,
		CandidateLimit:     cfg.CandidateLimit,
		DateDecayFactor:    cfg.DateDecayFactor,
		DateDecayAfterDays: cfg.DateDecayAfter,
	}, logger, schedMetrics)

	// Setup router
	routerCfg := &router.Config{
		Logger:             logger,
		Availability:       handlers.NewAvailabilityHandler(engine, logger),
		Suggestions:        handlers.NewSuggestionsHandler(suggestions, logger),
		Recommendations:    handlers.NewRecommendationsHandler(recommender, logger),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
