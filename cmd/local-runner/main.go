// Package main runs the pipeline jobs on a local cron schedule, outside
// Lambda. Useful for development and for self-hosted deployments where
// EventBridge is not available. Schedules come from configuration; each job
// fires with default inputs.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"riverwatch/internal/catalog"
	"riverwatch/internal/config"
	"riverwatch/internal/db"
	"riverwatch/internal/hydromet"
	"riverwatch/internal/observability"
	"riverwatch/internal/scheduler"
)

// job is the common shape of the three pipeline services.
type job interface {
	Run(ctx context.Context, in scheduler.Input) (*scheduler.RunSummary, error)
}

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	logger.Info("local runner initializing", "environment", cfg.Environment)

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	metrics, err := observability.NewFromConfig(ctx, cfg.Metrics, logger)
	if err != nil {
		logger.Error("failed to initialize metrics publisher", "error", err)
		os.Exit(1)
	}

	client := hydromet.NewClient(cfg.Hydromet, logger)
	reconciler := catalog.NewReconciler(
		db.NewRiverRunRepository(pool),
		db.NewStationMetadataRepository(pool),
		logger,
	)
	currentRepo := db.NewCurrentConditionsRepository(pool)

	dailyCfg := scheduler.DailyConfig{
		Catalog:        reconciler,
		History:        client,
		Current:        currentRepo,
		Metadata:       db.NewStationMetadataRepository(pool),
		Yearly:         db.NewYearlyReadingsRepository(pool),
		NewBatch:       func() scheduler.BatchQueue { return db.NewBatchWriter(pool, logger) },
		Metrics:        metrics,
		HistoricalDays: cfg.Jobs.HistoricalDays,
		Logger:         logger,
	}

	realtime := scheduler.NewRealtimeUpdater(scheduler.RealtimeUpdaterConfig{
		Catalog: reconciler,
		Fetcher: client,
		Current: currentRepo,
		Metrics: metrics,
		Hours:   cfg.Jobs.RealtimeHours,
		Logger:  logger,
	})
	averager := scheduler.NewDailyAverager(dailyCfg)
	updater := scheduler.NewStationUpdater(dailyCfg)

	c := cron.New()
	schedule(c, logger, cfg.Jobs.RealtimeSchedule, "realtime refresh", realtime)
	schedule(c, logger, cfg.Jobs.DailySchedule, "daily aggregation", averager)
	schedule(c, logger, cfg.Jobs.UpdaterSchedule, "station update", updater)

	c.Start()
	logger.Info("local runner started",
		"realtime_schedule", cfg.Jobs.RealtimeSchedule,
		"daily_schedule", cfg.Jobs.DailySchedule,
		"updater_schedule", cfg.Jobs.UpdaterSchedule,
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	logger.Info("shutdown signal received", "signal", sig.String())

	// Stop scheduling new runs and wait for in-flight jobs to finish.
	<-c.Stop().Done()
	logger.Info("local runner stopped")
}

func schedule(c *cron.Cron, logger *slog.Logger, spec, name string, j job) {
	if _, err := c.AddFunc(spec, func() {
		if _, err := j.Run(context.Background(), scheduler.Input{}); err != nil {
			logger.Error("scheduled run failed", "job", name, "error", err)
		}
	}); err != nil {
		logger.Error("invalid cron schedule", "job", name, "schedule", spec, "error", err)
		os.Exit(1)
	}
}
