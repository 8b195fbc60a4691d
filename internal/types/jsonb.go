package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Compile-time interface assertions.
// These ensure all JSONB types implement both sql.Scanner and driver.Valuer,
// catching any method signature drift at compile time rather than at runtime.
// Scan is on pointer receivers; Value is on value receivers.
var (
	_ sql.Scanner   = (*DailyReadings)(nil)
	_ driver.Valuer = DailyReadings(nil)
	_ sql.Scanner   = (*LatestReading)(nil)
	_ driver.Valuer = LatestReading{}
	_ sql.Scanner   = (*StationMetadata)(nil)
	_ driver.Valuer = StationMetadata{}
)

// scanJSONB is a generic helper that scans a JSONB database value into a Go
// pointer. It handles nil values, []byte, and string representations from
// different database drivers.
func scanJSONB(dest interface{}, value interface{}) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, dest)
}

// ---------------------------------------------------------------------------
// DailyReadings (yearly_readings.daily_readings)
// ---------------------------------------------------------------------------

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (dr *DailyReadings) Scan(value interface{}) error {
	if value == nil {
		*dr = nil
		return nil
	}
	return scanJSONB(dr, value)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
func (dr DailyReadings) Value() (driver.Value, error) {
	if dr == nil {
		// The merge-write concatenates this column; an empty object keeps
		// the operation a no-op instead of nulling the document.
		return []byte("{}"), nil
	}
	return json.Marshal(dr)
}

// ---------------------------------------------------------------------------
// LatestReading (current_conditions.latest_reading)
// ---------------------------------------------------------------------------

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (lr *LatestReading) Scan(value interface{}) error {
	return scanJSONB(lr, value)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
func (lr LatestReading) Value() (driver.Value, error) {
	return json.Marshal(lr)
}

// ---------------------------------------------------------------------------
// StationMetadata (station_metadata.info)
// ---------------------------------------------------------------------------

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (sm *StationMetadata) Scan(value interface{}) error {
	return scanJSONB(sm, value)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
func (sm StationMetadata) Value() (driver.Value, error) {
	return json.Marshal(sm)
}
