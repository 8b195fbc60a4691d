package scheduler

import (
	"context"
	"log/slog"
	"sort"

	"riverwatch/internal/aggregate"
	"riverwatch/internal/types"
)

// StationUpdater is the combined daily maintenance job: new stations get the
// same historical backfill as the daily averager, while existing stations
// either run the cached yesterday fast path or, with ForceHistorical,
// re-fetch and merge their entire history before it.
type StationUpdater struct {
	dailyCore
}

// NewStationUpdater creates a StationUpdater with the given configuration.
func NewStationUpdater(cfg DailyConfig) *StationUpdater {
	return &StationUpdater{dailyCore: newDailyCore(cfg)}
}

// Run executes one update cycle.
func (u *StationUpdater) Run(ctx context.Context, in Input) (*RunSummary, error) {
	return u.run(ctx, in, JobStationUpdater, in.ForceHistorical)
}

// refreshHistory re-fetches an existing station's full daily-mean history
// and merge-writes every year document. Merge semantics make this safe to
// repeat; stored dates absent from the fetch are preserved. The yesterday
// fast path still runs afterwards to pick up data newer than the daily-mean
// product's publication lag.
func (c *dailyCore) refreshHistory(ctx context.Context, logger *slog.Logger, stationID string, days int, dryRun bool) StationResult {
	provider := types.ProviderEnvironmentCanada
	now := c.clock.Now().UTC()

	daily, err := c.history.Historical(ctx, stationID, days)
	if err != nil {
		logger.ErrorContext(ctx, "failed to re-fetch station history",
			"station_id", stationID, "error", err)
		return StationResult{StationID: stationID, Status: types.StatusError, Detail: err.Error()}
	}
	if len(daily) == 0 {
		logger.InfoContext(ctx, "station history re-fetch returned no data",
			"station_id", stationID)
		return StationResult{StationID: stationID, Status: types.StatusNoData}
	}

	if !dryRun {
		byYear := aggregate.ByYear(daily)
		years := make([]int, 0, len(byYear))
		for year := range byYear {
			years = append(years, year)
		}
		sort.Ints(years)

		for _, year := range years {
			if err := c.yearly.Merge(ctx, provider, stationID, year, byYear[year], now); err != nil {
				logger.ErrorContext(ctx, "failed to merge re-fetched year",
					"station_id", stationID, "year", year, "error", err)
				return StationResult{StationID: stationID, Status: types.StatusError, Detail: err.Error()}
			}
		}
		if err := c.metadata.Touch(ctx, provider, stationID, now); err != nil {
			logger.ErrorContext(ctx, "failed to touch station metadata",
				"station_id", stationID, "error", err)
			return StationResult{StationID: stationID, Status: types.StatusError, Detail: err.Error()}
		}
	}

	// Daily means lag realtime by days; top up yesterday from the cache.
	fast := c.appendYesterday(ctx, logger, stationID, dryRun)
	if fast.Status == types.StatusError {
		return StationResult{StationID: stationID, Status: types.StatusError, Readings: len(daily), Detail: fast.Detail}
	}
	readings := len(daily)
	if fast.Status == types.StatusSuccess {
		readings += fast.Readings
	}
	return StationResult{StationID: stationID, Status: types.StatusSuccess, Readings: readings}
}
