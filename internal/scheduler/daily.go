package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"riverwatch/internal/aggregate"
	"riverwatch/internal/observability"
	"riverwatch/internal/types"
)

// DailyConfig holds the dependencies shared by the daily averager and the
// station updater.
type DailyConfig struct {
	Catalog  CatalogSource
	History  HistoryFetcher
	Current  CurrentStore
	Metadata MetadataStore
	Yearly   YearlyStore
	NewBatch BatchFactory
	Metrics  observability.RunMetrics
	Clock    clockwork.Clock
	// HistoricalDays is the default backfill window; 1825 covers 5 years.
	HistoricalDays int
	Logger         *slog.Logger
}

// dailyCore carries the station-level processing shared by both daily jobs.
type dailyCore struct {
	catalog        CatalogSource
	history        HistoryFetcher
	current        CurrentStore
	metadata       MetadataStore
	yearly         YearlyStore
	newBatch       BatchFactory
	metrics        observability.RunMetrics
	clock          clockwork.Clock
	historicalDays int
	logger         *slog.Logger
}

func newDailyCore(cfg DailyConfig) dailyCore {
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
	return dailyCore{
		catalog:        cfg.Catalog,
		history:        cfg.History,
		current:        cfg.Current,
		metadata:       cfg.Metadata,
		yearly:         cfg.Yearly,
		newBatch:       cfg.NewBatch,
		metrics:        metrics,
		clock:          clock,
		historicalDays: cfg.HistoricalDays,
		logger:         logger,
	}
}

// DailyAverager appends daily aggregates to the yearly documents. New
// stations get a full historical backfill; existing stations get only
// yesterday's aggregate, computed from the cached hourly window so the
// upstream API is not hit again.
type DailyAverager struct {
	dailyCore
}

// NewDailyAverager creates a DailyAverager with the given configuration.
func NewDailyAverager(cfg DailyConfig) *DailyAverager {
	return &DailyAverager{dailyCore: newDailyCore(cfg)}
}

// Run executes one daily aggregation cycle. Stations are processed
// sequentially; the batched backfill writes flush in capped chunks.
func (a *DailyAverager) Run(ctx context.Context, in Input) (*RunSummary, error) {
	return a.run(ctx, in, JobDailyAverager, false)
}

func (c *dailyCore) run(ctx context.Context, in Input, job string, forceHistorical bool) (*RunSummary, error) {
	started := c.clock.Now().UTC()
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		Job:       job,
		DryRun:    in.DryRun,
		StartedAt: started,
	}
	logger := c.logger.With("run_id", summary.RunID, "job", job)

	part, err := c.catalog.Partition(ctx)
	if err != nil {
		return nil, err
	}
	if len(part.Stations) == 0 {
		logger.WarnContext(ctx, "no stations discovered, nothing to aggregate")
		summary.DurationMS = c.clock.Now().UTC().Sub(started).Milliseconds()
		return summary, nil
	}

	// Limit spans both partitions: new stations first, then existing.
	newStations := capStations(part.New, in.Limit)
	existing := part.Existing
	if in.Limit > 0 {
		remaining := in.Limit - len(newStations)
		if remaining < 0 {
			remaining = 0
		}
		existing = capStations(existing, remaining)
	}

	days := in.HistoricalDays
	if days <= 0 {
		days = c.historicalDays
	}
	logger.InfoContext(ctx, "starting daily aggregation",
		"new_stations", len(newStations),
		"existing_stations", len(existing),
		"historical_days", days,
		"force_historical", forceHistorical,
		"dry_run", in.DryRun,
	)

	results := make([]StationResult, 0, len(newStations)+len(existing))

	if len(newStations) > 0 {
		results = append(results, c.backfillNewStations(ctx, logger, newStations, part.RunIDs, days, in.DryRun)...)
	}
	for _, stationID := range existing {
		if forceHistorical {
			results = append(results, c.refreshHistory(ctx, logger, stationID, days, in.DryRun))
			continue
		}
		results = append(results, c.appendYesterday(ctx, logger, stationID, in.DryRun))
	}

	summary.tally(results)
	summary.DurationMS = c.clock.Now().UTC().Sub(started).Milliseconds()

	logger.InfoContext(ctx, "daily aggregation finished",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"readings", summary.TotalReadings,
		"duration_ms", summary.DurationMS,
	)
	c.metrics.RecordRun(ctx, job, summary.Succeeded, summary.Failed,
		summary.TotalReadings, time.Duration(summary.DurationMS)*time.Millisecond)
	return summary, nil
}

// backfillNewStations ingests full history for stations never seen before:
// one metadata create plus one merge per calendar year, all through the
// chunked batch writer.
func (c *dailyCore) backfillNewStations(ctx context.Context, logger *slog.Logger, stations []string, runIDs map[string][]string, days int, dryRun bool) []StationResult {
	now := c.clock.Now().UTC()
	batch := c.newBatch()
	results := make([]StationResult, 0, len(stations))

	for _, stationID := range stations {
		meta, err := c.history.StationInfo(ctx, stationID)
		if err != nil {
			logger.ErrorContext(ctx, "failed to resolve station info",
				"station_id", stationID, "error", err)
			results = append(results, StationResult{StationID: stationID, Status: types.StatusError, Detail: err.Error()})
			continue
		}

		daily, err := c.history.Historical(ctx, stationID, days)
		if err != nil {
			logger.ErrorContext(ctx, "failed to fetch historical daily means",
				"station_id", stationID, "error", err)
			results = append(results, StationResult{StationID: stationID, Status: types.StatusError, Detail: err.Error()})
			continue
		}
		if len(daily) == 0 {
			logger.InfoContext(ctx, "new station has no historical data", "station_id", stationID)
			results = append(results, StationResult{StationID: stationID, Status: types.StatusNoData})
			continue
		}

		meta.FirstDataFetch = now
		meta.LastUpdated = now
		meta.CreatedAt = now
		meta.IsActive = true
		meta.RiverRuns = runIDs[stationID]
		if meta.RiverRuns == nil {
			meta.RiverRuns = []string{}
		}

		if !dryRun {
			if err := c.queueBackfill(ctx, batch, meta, daily, now); err != nil {
				results = append(results, StationResult{StationID: stationID, Status: types.StatusError, Detail: err.Error()})
				continue
			}
		}
		results = append(results, StationResult{StationID: stationID, Status: types.StatusSuccess, Readings: len(daily)})
	}

	if !dryRun {
		if err := batch.Flush(ctx); err != nil {
			// A failed chunk loses only its own ops; the next run re-ingests
			// any station whose metadata create did not commit.
			logger.ErrorContext(ctx, "backfill batch flush failed",
				"committed", batch.Committed(), "error", err)
		}
	}
	return results
}

// queueBackfill queues the metadata create and the per-year merges for one
// new station, years in ascending order.
func (c *dailyCore) queueBackfill(ctx context.Context, batch BatchQueue, meta types.StationMetadata, daily types.DailyReadings, now time.Time) error {
	if err := batch.QueueCreateMetadata(ctx, meta); err != nil {
		return err
	}

	byYear := aggregate.ByYear(daily)
	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)

	for _, year := range years {
		if err := batch.QueueMergeYearly(ctx, meta.Provider, meta.StationID, year, byYear[year], now); err != nil {
			return err
		}
	}
	return nil
}

// appendYesterday computes yesterday's aggregate from the cached hourly
// window and merge-writes it into the right year document.
func (c *dailyCore) appendYesterday(ctx context.Context, logger *slog.Logger, stationID string, dryRun bool) StationResult {
	provider := types.ProviderEnvironmentCanada
	now := c.clock.Now().UTC()
	yesterday := now.AddDate(0, 0, -1)
	date := yesterday.Format(types.DateFormat)

	cc, err := c.current.Get(ctx, provider, stationID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to read current conditions cache",
			"station_id", stationID, "error", err)
		return StationResult{StationID: stationID, Status: types.StatusError, Detail: err.Error()}
	}
	if cc == nil {
		logger.InfoContext(ctx, "no cached conditions for station, skipping",
			"station_id", stationID)
		return StationResult{StationID: stationID, Status: types.StatusNoCache}
	}

	daily := aggregate.ForDate(cc.HourlyReadings, date)
	if len(daily) == 0 {
		logger.InfoContext(ctx, "cache holds no samples for yesterday",
			"station_id", stationID, "date", date)
		return StationResult{StationID: stationID, Status: types.StatusNoYesterdayData}
	}

	if !dryRun {
		if err := c.yearly.Merge(ctx, provider, stationID, yesterday.Year(), daily, now); err != nil {
			logger.ErrorContext(ctx, "failed to merge yesterday aggregate",
				"station_id", stationID, "date", date, "error", err)
			return StationResult{StationID: stationID, Status: types.StatusError, Detail: err.Error()}
		}
		if err := c.metadata.Touch(ctx, provider, stationID, now); err != nil {
			logger.ErrorContext(ctx, "failed to touch station metadata",
				"station_id", stationID, "error", err)
			return StationResult{StationID: stationID, Status: types.StatusError, Detail: err.Error()}
		}
	}
	return StationResult{StationID: stationID, Status: types.StatusSuccess, Readings: 1}
}
