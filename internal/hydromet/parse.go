package hydromet

import (
	"encoding/json"
	"time"

	"riverwatch/internal/types"
)

// featureCollection is the GeoJSON envelope returned by both collections.
// Features stay raw so malformed records can be skipped one at a time.
type featureCollection struct {
	Features []json.RawMessage `json:"features"`
}

type feature struct {
	Properties featureProperties `json:"properties"`
}

type featureProperties struct {
	Datetime      string   `json:"DATETIME"`
	Date          string   `json:"DATE"`
	Discharge     *float64 `json:"DISCHARGE"`
	Level         *float64 `json:"LEVEL"`
	StationName   string   `json:"STATION_NAME"`
	StationNumber string   `json:"STATION_NUMBER"`
}

// parseReadings converts realtime features to readings, preserving response
// order. Features that fail to decode, have an unparseable DATETIME, or carry
// neither measurement are dropped silently.
func parseReadings(fc *featureCollection) []types.Reading {
	readings := make([]types.Reading, 0, len(fc.Features))
	for _, raw := range fc.Features {
		var f feature
		if err := json.Unmarshal(raw, &f); err != nil {
			continue
		}
		props := f.Properties
		if props.Discharge == nil && props.Level == nil {
			continue
		}
		ts, err := time.Parse(time.RFC3339, props.Datetime)
		if err != nil {
			continue
		}
		readings = append(readings, types.Reading{
			Timestamp:   ts.UTC(),
			StationID:   props.StationNumber,
			StationName: props.StationName,
			Discharge:   props.Discharge,
			Level:       props.Level,
		})
	}
	return readings
}

// parseDailyMeans converts daily-mean features to a date-keyed aggregate map.
// The upstream already averaged per day, so values are passed through.
func parseDailyMeans(fc *featureCollection) types.DailyReadings {
	readings := make(types.DailyReadings, len(fc.Features))
	for _, raw := range fc.Features {
		var f feature
		if err := json.Unmarshal(raw, &f); err != nil {
			continue
		}
		props := f.Properties
		if props.Discharge == nil && props.Level == nil {
			continue
		}
		if len(props.Date) < len(types.DateFormat) {
			continue
		}
		date := props.Date[:len(types.DateFormat)]
		if _, err := time.Parse(types.DateFormat, date); err != nil {
			continue
		}
		readings[date] = types.DailyAggregate{
			MeanDischarge: props.Discharge,
			MeanLevel:     props.Level,
		}
	}
	return readings
}
