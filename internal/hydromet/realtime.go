package hydromet

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"riverwatch/internal/aggregate"
	"riverwatch/internal/types"
)

// statusWindowHours is the lookback used by StationStatus; wide enough to
// compute a trend even for stations reporting every few hours.
const statusWindowHours = 48

// Status is a point-in-time summary of a station's realtime feed.
type Status struct {
	StationID     string
	Active        bool
	Latest        *types.Reading
	DataAgeHours  float64
	Trend         types.Trend
	ReadingsCount int
}

// LatestReadings fetches hourly readings for the trailing window, newest
// first. An empty slice with a nil error means the station reported nothing
// in the window.
func (c *Client) LatestReadings(ctx context.Context, stationID string, hours int) ([]types.Reading, error) {
	end := c.clock.Now().UTC()
	start := end.Add(-time.Duration(hours) * time.Hour)

	params := url.Values{}
	params.Set("STATION_NUMBER", stationID)
	params.Set("f", "json")
	params.Set("limit", strconv.Itoa(maxPageSize))
	params.Set("sortby", "-DATETIME")
	params.Set("datetime", start.Format(time.RFC3339)+"/"+end.Format(time.RFC3339))

	fc, err := c.getCollection(ctx, c.cfg.RealtimeURL, params)
	if err != nil {
		return nil, err
	}
	return parseReadings(fc), nil
}

// StationStatus summarizes the station's current state from its recent
// realtime feed: latest reading, data age, and level trend.
func (c *Client) StationStatus(ctx context.Context, stationID string) (*Status, error) {
	readings, err := c.LatestReadings(ctx, stationID, statusWindowHours)
	if err != nil {
		return nil, err
	}
	return StatusFromWindow(stationID, readings, c.clock.Now().UTC()), nil
}

// StatusFromWindow derives a Status from an already-fetched newest-first
// window, so callers holding readings do not refetch. now anchors the data
// age. An empty window yields an inactive status with a stable trend.
func StatusFromWindow(stationID string, readings []types.Reading, now time.Time) *Status {
	if len(readings) == 0 {
		return &Status{StationID: stationID, Trend: types.TrendStable}
	}

	latest := readings[0]

	levels := make([]float64, 0, len(readings))
	for _, r := range readings {
		if r.Level != nil {
			levels = append(levels, *r.Level)
		}
	}

	return &Status{
		StationID:     stationID,
		Active:        true,
		Latest:        &latest,
		DataAgeHours:  now.Sub(latest.Timestamp).Hours(),
		Trend:         aggregate.ClassifyTrend(levels),
		ReadingsCount: len(readings),
	}
}
