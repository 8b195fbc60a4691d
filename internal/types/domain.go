// Package types defines the domain records shared across the RiverWatch
// pipeline: upstream readings, daily aggregates, and the persistent
// station documents.
//
// Field names on persisted types are part of the stored-data compatibility
// surface and must not change: existing documents were written with these
// exact keys.
package types

import (
	"fmt"
	"time"
)

// DateFormat is the calendar-day key format used throughout the store.
// Lexicographic order on these keys equals chronological order.
const DateFormat = "2006-01-02"

// Reading is a single hydrometric sample fetched from the upstream API.
// At least one of Discharge or Level must be present for the reading to be
// valid; the fetcher discards readings with neither.
type Reading struct {
	Timestamp   time.Time
	StationID   string
	StationName string
	Discharge   *float64 // m³/s, nil when the station does not report it
	Level       *float64 // m, nil when the station does not report it
}

// Valid reports whether the reading carries at least one measurement.
func (r Reading) Valid() bool {
	return r.Discharge != nil || r.Level != nil
}

// DailyAggregate is one calendar day's reduced readings. Either mean may be
// absent independently: a day can have discharge samples but no level
// samples, or vice versa. A day with neither is never stored.
type DailyAggregate struct {
	MeanDischarge *float64 `json:"mean_discharge,omitempty"` // rounded to 2 decimals
	MeanLevel     *float64 `json:"mean_level,omitempty"`     // rounded to 3 decimals
}

// DailyReadings maps date keys (DateFormat) to aggregates within one year
// document.
type DailyReadings map[string]DailyAggregate

// StationMetadata is the per-station info document, created once when a
// station is first ingested and never deleted by the pipeline.
type StationMetadata struct {
	StationID      string    `json:"station_id"`
	Provider       Provider  `json:"provider"`
	StationName    string    `json:"station_name"`
	FirstDataFetch time.Time `json:"first_data_fetch"`
	LastUpdated    time.Time `json:"last_updated"`
	IsActive       bool      `json:"is_active"`
	RiverRuns      []string  `json:"river_runs"`
	CreatedAt      time.Time `json:"created_at"`
}

// YearlyReadings is one per-station, per-year document. Writes merge into
// DailyReadings per date key; dates absent from a write are preserved.
type YearlyReadings struct {
	Year          int           `json:"year"`
	DailyReadings DailyReadings `json:"daily_readings"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// HourlySample is one entry in the current-conditions hourly window.
type HourlySample struct {
	Discharge *float64 `json:"discharge"`
	Level     *float64 `json:"level"`
}

// HourlyReadings maps RFC3339 timestamp strings to samples.
type HourlyReadings map[string]HourlySample

// LatestReading is the most recent sample embedded in the current-conditions
// document. Datetime stays a string because it round-trips the upstream
// timestamp verbatim.
type LatestReading struct {
	Datetime  string   `json:"datetime"`
	Discharge *float64 `json:"discharge"`
	Level     *float64 `json:"level"`
}

// CurrentConditions is the single mutable cache document per station. It is
// fully overwritten on every refresh and always derivable by re-fetching the
// recent window from the network; it is a cache, not a source of truth.
type CurrentConditions struct {
	StationID      string         `json:"station_id"`
	Provider       Provider       `json:"provider"`
	StationName    string         `json:"station_name"`
	LatestReading  LatestReading  `json:"latest_reading"`
	Trend          Trend          `json:"trend"`
	DataAgeHours   float64        `json:"data_age_hours"`
	HourlyReadings HourlyReadings `json:"hourly_readings"`
	ReadingsCount  int            `json:"readings_count"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// RiverRun is the external collaborator's entity that seeds station
// discovery. The pipeline only ever reads it.
type RiverRun struct {
	ID               string
	StationID        string
	GaugeStationCode string
}

// DocID builds the document key used by every store collection.
func DocID(provider Provider, stationID string) string {
	return fmt.Sprintf("%s_%s", provider, stationID)
}
