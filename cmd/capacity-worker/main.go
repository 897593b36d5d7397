package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowdesk/scheduling-engine/internal/availability"
	"github.com/glowdesk/scheduling-engine/internal/clients"
	appconfig "github.com/glowdesk/scheduling-engine/internal/config"
	"github.com/glowdesk/scheduling-engine/internal/recommend"
	"github.com/glowdesk/scheduling-engine/internal/schedule"
	"github.com/glowdesk/scheduling-engine/internal/suggest"
	"github.com/glowdesk/scheduling-engine/internal/worker/capacity"
	"github.com/glowdesk/scheduling-engine/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("capacity worker requires DATABASE_URL")
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := schedule.NewStore(pool)
	history := clients.NewHistory(pool)

	engine := availability.NewEngine(store, logger, nil)
	suggestions := suggest.NewService(engine, store, suggest.Options{
		SameDayBuffer:   cfg.SameDayBuffer,
		MinPrimarySlots: cfg.MinPrimarySlots,
		StepMinutes:     cfg.SlotStepMinutes,
	}, logger, nil)
	recommender := recommend.NewEngine(suggestions, store, history, recommend.Options{
		MinDaysSinceVisit:  cfg.MinDaysSinceVisit,
		CandidateLimit:     cfg.CandidateLimit,
		DateDecayFactor:    cfg.DateDecayFactor,
		DateDecayAfterDays: cfg.DateDecayAfter,
	}, logger, nil)

	worker := capacity.NewWorker(recommender, cfg.CapacityWindowDays, 10, logger)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("capacity worker shutting down")
		cancel()
	}()

	logger.Info("capacity worker started",
		"interval", cfg.CapacityInterval,
		"window_days", cfg.CapacityWindowDays,
	)
	if err := worker.Run(ctx, cfg.CapacityInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("capacity worker exited", "error", err)
		os.Exit(1)
	}
}
