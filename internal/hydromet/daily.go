package hydromet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"riverwatch/internal/types"
)

// DailyMeans fetches upstream-computed daily averages for the inclusive date
// range, keyed by YYYY-MM-DD.
func (c *Client) DailyMeans(ctx context.Context, stationID string, start, end time.Time) (types.DailyReadings, error) {
	params := url.Values{}
	params.Set("STATION_NUMBER", stationID)
	params.Set("f", "json")
	params.Set("limit", strconv.Itoa(maxPageSize))
	params.Set("sortby", "DATE")
	params.Set("datetime", fmt.Sprintf("%sT00:00:00Z/%sT23:59:59Z",
		start.UTC().Format(types.DateFormat),
		end.UTC().Format(types.DateFormat)))

	fc, err := c.getCollection(ctx, c.cfg.DailyMeanURL, params)
	if err != nil {
		return nil, err
	}
	return parseDailyMeans(fc), nil
}

// Historical fetches daily means for the trailing window of days. Used to
// backfill newly discovered stations.
func (c *Client) Historical(ctx context.Context, stationID string, days int) (types.DailyReadings, error) {
	end := c.clock.Now().UTC()
	start := end.AddDate(0, 0, -days)
	return c.DailyMeans(ctx, stationID, start, end)
}

// StationInfo resolves the station's display name from a single-feature
// probe against the daily-mean collection. Stations with no retrievable
// name get a "Station <id>" placeholder instead of an error.
func (c *Client) StationInfo(ctx context.Context, stationID string) (types.StationMetadata, error) {
	fallback := types.StationMetadata{
		StationID:   stationID,
		Provider:    types.ProviderEnvironmentCanada,
		StationName: fmt.Sprintf("Station %s", stationID),
	}

	params := url.Values{}
	params.Set("STATION_NUMBER", stationID)
	params.Set("f", "json")
	params.Set("limit", "1")

	fc, err := c.getCollection(ctx, c.cfg.DailyMeanURL, params)
	if err != nil {
		return fallback, err
	}
	if len(fc.Features) == 0 {
		return fallback, nil
	}

	var f feature
	if err := json.Unmarshal(fc.Features[0], &f); err != nil || f.Properties.StationName == "" {
		return fallback, nil
	}

	meta := fallback
	meta.StationName = f.Properties.StationName
	return meta, nil
}
