// Package main is the entrypoint for the Station Updater Lambda function.
//
// The updater is the combined daily maintenance job: it backfills new
// stations like the daily averager and can additionally re-fetch the full
// history of existing stations when invoked with force_historical, repairing
// gaps left by failed runs.
//
// This file handles dependency wiring (cold start) and delegates all business
// logic to internal/scheduler.StationUpdater.
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
	logger.Info("station updater initializing (cold start)", "environment", cfg.Environment)

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

	updater := scheduler.NewStationUpdater(scheduler.DailyConfig{
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

	logger.Info("station updater initialized", "historical_days", cfg.Jobs.HistoricalDays)

	lambda.Start(func(ctx context.Context, input scheduler.Input) (*scheduler.RunSummary, error) {
		summary, err := updater.Run(ctx, input)
		if err != nil {
			logger.ErrorContext(ctx, "station update run failed", "error", err)
			return nil, err
		}
		return summary, nil
	})
}
