// Package scheduler implements the three scheduled pipeline jobs: the
// realtime current-conditions refresher, the daily averager, and the
// combined station updater. Each job is a service with a Run method invoked
// from a Lambda handler or the local cron runner.
package scheduler

import (
	"context"
	"time"

	"riverwatch/internal/catalog"
	"riverwatch/internal/types"
)

// Job names stamped into logs, summaries, and metrics.
const (
	JobRealtimeUpdater = "realtime_updater"
	JobDailyAverager   = "daily_averager"
	JobStationUpdater  = "station_updater"
)

// Input is the manual-invocation payload shared by all three jobs. Zero
// values fall back to configured defaults.
type Input struct {
	// DryRun performs every read and computation but suppresses writes.
	DryRun bool `json:"dry_run"`
	// Limit caps the number of stations processed, in sorted order. Used to
	// keep manual backfills inside the Lambda timeout.
	Limit int `json:"limit"`
	// Hours overrides the realtime fetch window.
	Hours int `json:"hours"`
	// HistoricalDays overrides the daily-mean backfill window.
	HistoricalDays int `json:"historical_days"`
	// ForceHistorical makes the station updater re-fetch full history for
	// existing stations instead of the cached fast path only.
	ForceHistorical bool `json:"force_historical"`
}

// StationResult is the per-station outcome of one run.
type StationResult struct {
	StationID string              `json:"station_id"`
	Status    types.StationStatus `json:"status"`
	Readings  int                 `json:"readings"`
	Detail    string              `json:"detail,omitempty"`
}

// RunSummary is the run-level outcome returned to the invoker.
type RunSummary struct {
	RunID         string          `json:"run_id"`
	Job           string          `json:"job"`
	DryRun        bool            `json:"dry_run"`
	StartedAt     time.Time       `json:"started_at"`
	DurationMS    int64           `json:"duration_ms"`
	Succeeded     int             `json:"succeeded"`
	Failed        int             `json:"failed"`
	Skipped       int             `json:"skipped"`
	TotalReadings int             `json:"total_readings"`
	Results       []StationResult `json:"results"`
}

// tally folds per-station results into the summary counters.
func (s *RunSummary) tally(results []StationResult) {
	s.Results = results
	for _, r := range results {
		switch r.Status {
		case types.StatusSuccess:
			s.Succeeded++
			s.TotalReadings += r.Readings
		case types.StatusError:
			s.Failed++
		default:
			s.Skipped++
		}
	}
}

// CatalogSource produces the station sets each run operates on.
type CatalogSource interface {
	Discover(ctx context.Context) (*catalog.Catalog, error)
	Partition(ctx context.Context) (*catalog.Partition, error)
}

// ReadingFetcher fetches hourly realtime readings, newest first.
type ReadingFetcher interface {
	LatestReadings(ctx context.Context, stationID string, hours int) ([]types.Reading, error)
}

// HistoryFetcher fetches daily-mean history and station identity.
type HistoryFetcher interface {
	Historical(ctx context.Context, stationID string, days int) (types.DailyReadings, error)
	StationInfo(ctx context.Context, stationID string) (types.StationMetadata, error)
}

// CurrentStore reads and overwrites the current-conditions cache.
type CurrentStore interface {
	Put(ctx context.Context, cc types.CurrentConditions) error
	Get(ctx context.Context, provider types.Provider, stationID string) (*types.CurrentConditions, error)
}

// MetadataStore refreshes station metadata timestamps.
type MetadataStore interface {
	Touch(ctx context.Context, provider types.Provider, stationID string, now time.Time) error
}

// YearlyStore merge-writes daily aggregates into year documents.
type YearlyStore interface {
	Merge(ctx context.Context, provider types.Provider, stationID string, year int, readings types.DailyReadings, now time.Time) error
}

// BatchQueue is the chunked batch writer used for backfills.
type BatchQueue interface {
	QueueCreateMetadata(ctx context.Context, meta types.StationMetadata) error
	QueueTouchMetadata(ctx context.Context, provider types.Provider, stationID string, now time.Time) error
	QueueMergeYearly(ctx context.Context, provider types.Provider, stationID string, year int, readings types.DailyReadings, now time.Time) error
	Flush(ctx context.Context) error
	Committed() int
}

// BatchFactory creates a fresh BatchQueue per run.
type BatchFactory func() BatchQueue

// capStations applies the Limit input to an already sorted station list.
func capStations(stations []string, limit int) []string {
	if limit > 0 && len(stations) > limit {
		return stations[:limit]
	}
	return stations
}
