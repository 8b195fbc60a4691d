package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"riverwatch/internal/aggregate"
	"riverwatch/internal/hydromet"
	"riverwatch/internal/observability"
	"riverwatch/internal/types"
)

// realtimeConcurrency caps concurrent upstream fetches so a large catalog
// does not hammer the rate-limited API.
const realtimeConcurrency = 8

// RealtimeUpdater refreshes the current-conditions cache for every
// discovered station: fetch the trailing hourly window, derive the latest
// reading, trend, and data age, and overwrite the cache document.
type RealtimeUpdater struct {
	catalog CatalogSource
	fetcher ReadingFetcher
	current CurrentStore
	metrics observability.RunMetrics
	clock   clockwork.Clock
	hours   int
	logger  *slog.Logger
}

// RealtimeUpdaterConfig holds the dependencies for a RealtimeUpdater.
type RealtimeUpdaterConfig struct {
	Catalog CatalogSource
	Fetcher ReadingFetcher
	Current CurrentStore
	Metrics observability.RunMetrics
	Clock   clockwork.Clock
	// Hours is the default fetch window; 720 covers the trailing 30 days.
	Hours  int
	Logger *slog.Logger
}

// NewRealtimeUpdater creates a RealtimeUpdater with the given configuration.
func NewRealtimeUpdater(cfg RealtimeUpdaterConfig) *RealtimeUpdater {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NoopRunMetrics{}
	}
	return &RealtimeUpdater{
		catalog: cfg.Catalog,
		fetcher: cfg.Fetcher,
		current: cfg.Current,
		metrics: metrics,
		clock:   clock,
		hours:   cfg.Hours,
		logger:  logger,
	}
}

// Run executes one refresh cycle. Station failures are isolated; one bad
// station never cancels the rest of the fan-out.
func (u *RealtimeUpdater) Run(ctx context.Context, in Input) (*RunSummary, error) {
	started := u.clock.Now().UTC()
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		Job:       JobRealtimeUpdater,
		DryRun:    in.DryRun,
		StartedAt: started,
	}
	logger := u.logger.With("run_id", summary.RunID, "job", summary.Job)

	cat, err := u.catalog.Discover(ctx)
	if err != nil {
		return nil, err
	}
	stations := capStations(cat.Stations, in.Limit)
	if len(stations) == 0 {
		logger.WarnContext(ctx, "no stations discovered, nothing to refresh")
		summary.DurationMS = u.clock.Now().UTC().Sub(started).Milliseconds()
		return summary, nil
	}

	hours := in.Hours
	if hours <= 0 {
		hours = u.hours
	}
	logger.InfoContext(ctx, "starting realtime refresh",
		"stations", len(stations),
		"hours", hours,
		"dry_run", in.DryRun,
	)

	var mu sync.Mutex
	results := make([]StationResult, 0, len(stations))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(realtimeConcurrency)
	for _, stationID := range stations {
		stationID := stationID
		g.Go(func() error {
			result := u.refreshStation(gCtx, logger, stationID, hours, in.DryRun)
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			// Never propagate station errors; siblings keep running.
			return nil
		})
	}
	g.Wait()

	summary.tally(results)
	summary.DurationMS = u.clock.Now().UTC().Sub(started).Milliseconds()

	logger.InfoContext(ctx, "realtime refresh finished",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"readings", summary.TotalReadings,
		"duration_ms", summary.DurationMS,
	)
	u.metrics.RecordRun(ctx, summary.Job, summary.Succeeded, summary.Failed,
		summary.TotalReadings, time.Duration(summary.DurationMS)*time.Millisecond)
	return summary, nil
}

// refreshStation fetches one station's window and overwrites its cache.
func (u *RealtimeUpdater) refreshStation(ctx context.Context, logger *slog.Logger, stationID string, hours int, dryRun bool) StationResult {
	readings, err := u.fetcher.LatestReadings(ctx, stationID, hours)
	if err != nil {
		logger.ErrorContext(ctx, "failed to fetch realtime readings",
			"station_id", stationID,
			"error", err,
		)
		return StationResult{StationID: stationID, Status: types.StatusError, Detail: err.Error()}
	}
	if len(readings) == 0 {
		logger.InfoContext(ctx, "station reported no data in window", "station_id", stationID)
		return StationResult{StationID: stationID, Status: types.StatusNoData}
	}

	now := u.clock.Now().UTC()
	status := hydromet.StatusFromWindow(stationID, readings, now)
	cc := types.CurrentConditions{
		StationID:   stationID,
		Provider:    types.ProviderEnvironmentCanada,
		StationName: status.Latest.StationName,
		LatestReading: types.LatestReading{
			Datetime:  status.Latest.Timestamp.UTC().Format(time.RFC3339),
			Discharge: status.Latest.Discharge,
			Level:     status.Latest.Level,
		},
		Trend:          status.Trend,
		DataAgeHours:   status.DataAgeHours,
		HourlyReadings: aggregate.WindowFromReadings(readings),
		ReadingsCount:  status.ReadingsCount,
		UpdatedAt:      now,
	}

	if !dryRun {
		if err := u.current.Put(ctx, cc); err != nil {
			logger.ErrorContext(ctx, "failed to overwrite current conditions",
				"station_id", stationID,
				"error", err,
			)
			return StationResult{StationID: stationID, Status: types.StatusError, Detail: err.Error()}
		}
	}
	return StationResult{StationID: stationID, Status: types.StatusSuccess, Readings: len(readings)}
}
