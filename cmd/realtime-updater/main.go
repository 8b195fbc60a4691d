// Package main is the entrypoint for the Realtime Updater Lambda function.
//
// The updater runs every few hours via an EventBridge rule. It discovers the
// station catalog from the river-run collection, fetches the trailing hourly
// window for every station from Environment Canada, and overwrites each
// station's current-conditions cache document.
//
// This file handles dependency wiring (cold start) and delegates all business
// logic to internal/scheduler.RealtimeUpdater.
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
	logger.Info("realtime updater initializing (cold start)", "environment", cfg.Environment)

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

	updater := scheduler.NewRealtimeUpdater(scheduler.RealtimeUpdaterConfig{
		Catalog: catalog.NewReconciler(
			db.NewRiverRunRepository(pool),
			db.NewStationMetadataRepository(pool),
			logger,
		),
		Fetcher: hydromet.NewClient(cfg.Hydromet, logger),
		Current: db.NewCurrentConditionsRepository(pool),
		Metrics: metrics,
		Hours:   cfg.Jobs.RealtimeHours,
		Logger:  logger,
	})

	logger.Info("realtime updater initialized", "hours", cfg.Jobs.RealtimeHours)

	lambda.Start(func(ctx context.Context, input scheduler.Input) (*scheduler.RunSummary, error) {
		summary, err := updater.Run(ctx, input)
		if err != nil {
			logger.ErrorContext(ctx, "realtime refresh run failed", "error", err)
			return nil, err
		}
		return summary, nil
	})
}
