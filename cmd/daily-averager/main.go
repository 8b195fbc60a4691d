// Package main is the entrypoint for the Daily Averager Lambda function.
//
// The averager runs once a day after midnight UTC. New stations get a full
// historical backfill of daily means; existing stations get yesterday's
// aggregate computed from the cached hourly window, avoiding a second pass
// against the rate-limited upstream API.
//
// This file handles dependency wiring (cold start) and delegates all business
// logic to internal/scheduler.DailyAverager.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"riverwatch/internal/catalog"
	"riverwatch/internal/config"
	"riverwatch/internal/db"
	"riverwatch/internal/hydromet"
	"riverwatch/internal/observability"
	"riverwatch/internal/scheduler"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	logger.Info("daily averager initializing (cold start)", "environment", cfg.Environment)

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	metrics, err := observability.NewFromConfig(ctx, cfg.Metrics, logger)
	if err != nil {
		logger.Error("failed to initialize metrics publisher", "error", err)
		os.Exit(1)
	}

	averager := scheduler.NewDailyAverager(scheduler.DailyConfig{
		Catalog: catalog.NewReconciler(
			db.NewRiverRunRepository(pool),
			db.NewStationMetadataRepository(pool),
			logger,
		),
		History:        hydromet.NewClient(cfg.Hydromet, logger),
		Current:        db.NewCurrentConditionsRepository(pool),
		Metadata:       db.NewStationMetadataRepository(pool),
		Yearly:         db.NewYearlyReadingsRepository(pool),
		NewBatch:       func() scheduler.BatchQueue { return db.NewBatchWriter(pool, logger) },
		Metrics:        metrics,
		HistoricalDays: cfg.Jobs.HistoricalDays,
		Logger:         logger,
	})

	logger.Info("daily averager initialized", "historical_days", cfg.Jobs.HistoricalDays)

	lambda.Start(func(ctx context.Context, input scheduler.Input) (*scheduler.RunSummary, error) {
		summary, err := averager.Run(ctx, input)
		if err != nil {
			logger.ErrorContext(ctx, "daily aggregation run failed", "error", err)
			return nil, err
		}
		return summary, nil
	})
}
