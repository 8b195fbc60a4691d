package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riverwatch/internal/catalog"
	"riverwatch/internal/types"
)

type dailyFixture struct {
	catalog  *stubCatalog
	history  *stubHistory
	current  *stubCurrent
	metadata *stubMetadata
	yearly   *stubYearly
	batch    *stubBatch
}

func newDailyFixture(part *catalog.Partition) *dailyFixture {
	return &dailyFixture{
		catalog:  &stubCatalog{part: part},
		history:  &stubHistory{},
		current:  &stubCurrent{},
		metadata: &stubMetadata{},
		yearly:   &stubYearly{},
		batch:    &stubBatch{},
	}
}

func (f *dailyFixture) averager() *DailyAverager {
	return NewDailyAverager(f.config())
}

func (f *dailyFixture) config() DailyConfig {
	return DailyConfig{
		Catalog:        f.catalog,
		History:        f.history,
		Current:        f.current,
		Metadata:       f.metadata,
		Yearly:         f.yearly,
		NewBatch:       func() BatchQueue { return f.batch },
		Clock:          clockwork.NewFakeClockAt(testNow),
		HistoricalDays: 1825,
	}
}

func partitionOf(newStations, existing []string) *catalog.Partition {
	stations := append(append([]string{}, newStations...), existing...)
	return &catalog.Partition{
		Catalog: catalog.Catalog{
			Provider: types.ProviderEnvironmentCanada,
			Stations: stations,
			RunIDs:   map[string][]string{},
		},
		New:      newStations,
		Existing: existing,
	}
}

func yesterdayCache() *types.CurrentConditions {
	// testNow is 2026-08-28; these samples fall on 2026-08-27 UTC.
	return &types.CurrentConditions{
		StationID: "08NM116",
		Provider:  types.ProviderEnvironmentCanada,
		HourlyReadings: types.HourlyReadings{
			"2026-08-27T10:00:00Z": {Discharge: f64(40.0), Level: f64(1.2)},
			"2026-08-27T11:00:00Z": {Discharge: f64(42.0), Level: f64(1.3)},
			"2026-08-28T01:00:00Z": {Level: f64(9.9)}, // today, excluded
		},
	}
}

func TestDailyAverager_BackfillsNewStation(t *testing.T) {
	part := partitionOf([]string{"08GA072"}, nil)
	part.RunIDs["08GA072"] = []string{"run-1", "run-2"}
	f := newDailyFixture(part)
	f.history.history = map[string]types.DailyReadings{
		"08GA072": {
			"2025-12-31": {MeanLevel: f64(1.1)},
			"2026-01-01": {MeanLevel: f64(1.2)},
			"2026-01-02": {MeanLevel: f64(1.3)},
		},
	}

	summary, err := f.averager().Run(context.Background(), Input{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 3, summary.TotalReadings)

	// One metadata create with discovery-derived run associations.
	require.Len(t, f.batch.creates, 1)
	meta := f.batch.creates[0]
	assert.Equal(t, "08GA072", meta.StationID)
	assert.Equal(t, "Station 08GA072", meta.StationName)
	assert.Equal(t, []string{"run-1", "run-2"}, meta.RiverRuns)
	assert.True(t, meta.IsActive)
	assert.Equal(t, testNow, meta.FirstDataFetch)
	assert.Equal(t, testNow, meta.CreatedAt)

	// One merge per calendar year, ascending.
	require.Len(t, f.batch.merges, 2)
	assert.Equal(t, 2025, f.batch.merges[0].year)
	assert.Len(t, f.batch.merges[0].readings, 1)
	assert.Equal(t, 2026, f.batch.merges[1].year)
	assert.Len(t, f.batch.merges[1].readings, 2)

	assert.Equal(t, 1, f.batch.flushes)
}

func TestDailyAverager_NewStationWithoutHistoryIsNoData(t *testing.T) {
	f := newDailyFixture(partitionOf([]string{"08GA072"}, nil))

	summary, err := f.averager().Run(context.Background(), Input{})
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	assert.Equal(t, types.StatusNoData, summary.Results[0].Status)
	assert.Empty(t, f.batch.creates)
	assert.Empty(t, f.batch.merges)
}

func TestDailyAverager_ExistingStationFastPath(t *testing.T) {
	f := newDailyFixture(partitionOf(nil, []string{"08NM116"}))
	f.current.cached = map[string]*types.CurrentConditions{"08NM116": yesterdayCache()}

	summary, err := f.averager().Run(context.Background(), Input{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)

	// Exactly one merge into yesterday's year with one aggregated date.
	require.Len(t, f.yearly.merges, 1)
	merge := f.yearly.merges[0]
	assert.Equal(t, "08NM116", merge.stationID)
	assert.Equal(t, 2026, merge.year)
	require.Len(t, merge.readings, 1)
	agg := merge.readings["2026-08-27"]
	assert.Equal(t, 41.0, *agg.MeanDischarge)
	assert.Equal(t, 1.25, *agg.MeanLevel)

	assert.Equal(t, []string{"08NM116"}, f.metadata.touches)
}

func TestDailyAverager_ExistingStationWithoutCache(t *testing.T) {
	f := newDailyFixture(partitionOf(nil, []string{"08NM116"}))

	summary, err := f.averager().Run(context.Background(), Input{})
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	assert.Equal(t, types.StatusNoCache, summary.Results[0].Status)
	assert.Empty(t, f.yearly.merges)
	assert.Empty(t, f.metadata.touches)
}

func TestDailyAverager_CacheWithoutYesterdaySamples(t *testing.T) {
	f := newDailyFixture(partitionOf(nil, []string{"08NM116"}))
	f.current.cached = map[string]*types.CurrentConditions{"08NM116": {
		StationID: "08NM116",
		HourlyReadings: types.HourlyReadings{
			"2026-08-25T10:00:00Z": {Level: f64(1.2)}, // two days ago
		},
	}}

	summary, err := f.averager().Run(context.Background(), Input{})
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	assert.Equal(t, types.StatusNoYesterdayData, summary.Results[0].Status)
	assert.Empty(t, f.yearly.merges)
	assert.Empty(t, f.metadata.touches)
}

func TestDailyAverager_DryRunComputesButNeverWrites(t *testing.T) {
	part := partitionOf([]string{"08GA072"}, []string{"08NM116"})
	f := newDailyFixture(part)
	f.history.history = map[string]types.DailyReadings{
		"08GA072": {"2026-08-01": {MeanLevel: f64(1.0)}},
	}
	f.current.cached = map[string]*types.CurrentConditions{"08NM116": yesterdayCache()}

	summary, err := f.averager().Run(context.Background(), Input{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Empty(t, f.batch.creates)
	assert.Empty(t, f.batch.merges)
	assert.Empty(t, f.yearly.merges)
	assert.Empty(t, f.metadata.touches)
}

func TestDailyAverager_LimitSpansPartitions(t *testing.T) {
	part := partitionOf([]string{"08AA001", "08BB002"}, []string{"08CC003", "08DD004"})
	f := newDailyFixture(part)
	f.history.history = map[string]types.DailyReadings{
		"08AA001": {"2026-08-01": {MeanLevel: f64(1.0)}},
		"08BB002": {"2026-08-01": {MeanLevel: f64(1.0)}},
	}
	f.current.cached = map[string]*types.CurrentConditions{"08CC003": yesterdayCache()}

	summary, err := f.averager().Run(context.Background(), Input{Limit: 3})
	require.NoError(t, err)

	// Both new stations plus the first existing one; 08DD004 is left out.
	require.Len(t, summary.Results, 3)
	assert.Equal(t, []string{"08CC003"}, f.metadata.touches)
}

func TestDailyAverager_StationInfoErrorIsIsolated(t *testing.T) {
	part := partitionOf([]string{"08GA072", "08ZZ999"}, nil)
	f := newDailyFixture(part)
	f.history.infoErr = map[string]error{"08ZZ999": errors.New("upstream down")}
	f.history.history = map[string]types.DailyReadings{
		"08GA072": {"2026-08-01": {MeanLevel: f64(1.0)}},
	}

	summary, err := f.averager().Run(context.Background(), Input{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, f.batch.creates, 1)
	assert.Equal(t, "08GA072", f.batch.creates[0].StationID)
}

func TestDailyAverager_EmptyRunAssociationsStoredAsEmptySet(t *testing.T) {
	f := newDailyFixture(partitionOf([]string{"08GA072"}, nil))
	f.history.history = map[string]types.DailyReadings{
		"08GA072": {"2026-08-01": {MeanLevel: f64(1.0)}},
	}

	_, err := f.averager().Run(context.Background(), Input{})
	require.NoError(t, err)

	require.Len(t, f.batch.creates, 1)
	assert.NotNil(t, f.batch.creates[0].RiverRuns)
	assert.Empty(t, f.batch.creates[0].RiverRuns)
}
