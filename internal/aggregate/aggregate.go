// Package aggregate turns hourly station readings into daily average
// aggregates and classifies short-term level trends. It is pure computation
// with no I/O, shared by the realtime and daily orchestrators.
package aggregate

import (
	"math"
	"time"

	"riverwatch/internal/types"
)

// trendSamples is how many newest-first level samples the trend looks at,
// roughly six hours of hourly data plus the current reading.
const trendSamples = 7

// trendThreshold is the hysteresis band in metres; level deltas inside it
// read as stable.
const trendThreshold = 0.05

// WindowFromReadings builds an hourly window keyed by RFC3339 UTC timestamp.
// Readings carrying no measurement are dropped.
func WindowFromReadings(readings []types.Reading) types.HourlyReadings {
	window := make(types.HourlyReadings, len(readings))
	for _, r := range readings {
		if !r.Valid() {
			continue
		}
		key := r.Timestamp.UTC().Format(time.RFC3339)
		window[key] = types.HourlySample{
			Discharge: r.Discharge,
			Level:     r.Level,
		}
	}
	return window
}

// DailyAverages aggregates an hourly window into per-date means, bucketed by
// the UTC calendar date of each sample. Discharge means are rounded to 2
// decimals and level means to 3, matching the precision of the upstream
// daily-mean product. Dates with no valid sample are omitted.
func DailyAverages(window types.HourlyReadings) types.DailyReadings {
	type bucket struct {
		dischargeSum float64
		dischargeN   int
		levelSum     float64
		levelN       int
	}

	buckets := make(map[string]*bucket)
	for key, sample := range window {
		date, ok := dateOf(key)
		if !ok {
			continue
		}
		if sample.Discharge == nil && sample.Level == nil {
			continue
		}
		b := buckets[date]
		if b == nil {
			b = &bucket{}
			buckets[date] = b
		}
		if sample.Discharge != nil {
			b.dischargeSum += *sample.Discharge
			b.dischargeN++
		}
		if sample.Level != nil {
			b.levelSum += *sample.Level
			b.levelN++
		}
	}

	daily := make(types.DailyReadings, len(buckets))
	for date, b := range buckets {
		var agg types.DailyAggregate
		if b.dischargeN > 0 {
			v := round(b.dischargeSum/float64(b.dischargeN), 2)
			agg.MeanDischarge = &v
		}
		if b.levelN > 0 {
			v := round(b.levelSum/float64(b.levelN), 3)
			agg.MeanLevel = &v
		}
		daily[date] = agg
	}
	return daily
}

// ForDate aggregates only the samples falling on the given UTC date. The
// result holds at most one entry.
func ForDate(window types.HourlyReadings, date string) types.DailyReadings {
	filtered := make(types.HourlyReadings)
	for key, sample := range window {
		if d, ok := dateOf(key); ok && d == date {
			filtered[key] = sample
		}
	}
	return DailyAverages(filtered)
}

// ByYear partitions a date-keyed aggregate map into per-year maps for the
// yearly document layout. Dates with an unparseable year are dropped.
func ByYear(daily types.DailyReadings) map[int]types.DailyReadings {
	byYear := make(map[int]types.DailyReadings)
	for date, agg := range daily {
		t, err := time.Parse(types.DateFormat, date)
		if err != nil {
			continue
		}
		year := t.Year()
		if byYear[year] == nil {
			byYear[year] = make(types.DailyReadings)
		}
		byYear[year][date] = agg
	}
	return byYear
}

// ClassifyTrend reads a newest-first series of level samples and reports
// whether the river is rising, falling, or stable. It compares the newest
// sample against the one about six hours back, with a hysteresis band so
// sensor noise does not flap the trend.
func ClassifyTrend(levels []float64) types.Trend {
	if len(levels) > trendSamples {
		levels = levels[:trendSamples]
	}
	if len(levels) < 2 {
		return types.TrendStable
	}

	delta := levels[0] - levels[len(levels)-1]
	switch {
	case delta > trendThreshold:
		return types.TrendRising
	case delta < -trendThreshold:
		return types.TrendFalling
	default:
		return types.TrendStable
	}
}

// dateOf extracts the UTC calendar date from an hourly window key. Keys are
// RFC3339 timestamps; offsets are normalized to UTC before bucketing.
func dateOf(key string) (string, bool) {
	t, err := time.Parse(time.RFC3339, key)
	if err != nil {
		return "", false
	}
	return t.UTC().Format(types.DateFormat), true
}

func round(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}
