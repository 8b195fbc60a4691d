package db

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/klauspost/compress/gzip"

	"riverwatch/internal/types"
)

// CurrentConditionsRepository provides access to the current_conditions
// collection: one mutable cache document per provider+station holding the
// latest reading, trend, and a rolling window of hourly samples.
//
// Unlike yearly_readings, every write is a full overwrite: stale hourly
// samples outside the new window are intentionally dropped. The document is
// always derivable by re-fetching the recent window from the network.
//
// The hourly window is stored as a gzip-compressed JSON blob rather than a
// JSONB column: a 30-day window is ~720 map entries per station, and the
// packed blob keeps document size well under backend limits without leaking
// an encoding hack into the document model.
type CurrentConditionsRepository struct {
	db DBTX
}

// NewCurrentConditionsRepository creates a repository backed by the given
// database connection (pool or transaction).
func NewCurrentConditionsRepository(db DBTX) *CurrentConditionsRepository {
	return &CurrentConditionsRepository{db: db}
}

const putCurrentSQL = `
INSERT INTO current_conditions
  (doc_id, station_id, provider, station_name, latest_reading, trend,
   data_age_hours, hourly_readings, readings_count, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (doc_id) DO UPDATE
  SET station_id      = EXCLUDED.station_id,
      provider        = EXCLUDED.provider,
      station_name    = EXCLUDED.station_name,
      latest_reading  = EXCLUDED.latest_reading,
      trend           = EXCLUDED.trend,
      data_age_hours  = EXCLUDED.data_age_hours,
      hourly_readings = EXCLUDED.hourly_readings,
      readings_count  = EXCLUDED.readings_count,
      updated_at      = EXCLUDED.updated_at`

// Put fully overwrites the cache document for a station.
func (r *CurrentConditionsRepository) Put(ctx context.Context, cc types.CurrentConditions) error {
	blob, err := packHourlyReadings(cc.HourlyReadings)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to pack hourly readings", err)
	}

	docID := types.DocID(cc.Provider, cc.StationID)
	_, err = r.db.Exec(ctx, putCurrentSQL,
		docID,
		cc.StationID,
		string(cc.Provider),
		cc.StationName,
		cc.LatestReading,
		string(cc.Trend),
		cc.DataAgeHours,
		blob,
		cc.ReadingsCount,
		cc.UpdatedAt.UTC(),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to write current conditions", err)
	}
	return nil
}

// Get returns the cache document for a station with the hourly window
// unpacked, or nil if the realtime refresher has not yet run for it.
func (r *CurrentConditionsRepository) Get(ctx context.Context, provider types.Provider, stationID string) (*types.CurrentConditions, error) {
	docID := types.DocID(provider, stationID)

	var (
		cc       types.CurrentConditions
		prov     string
		trend    string
		blob     []byte
	)
	err := r.db.QueryRow(ctx,
		`SELECT station_id, provider, station_name, latest_reading, trend,
		        data_age_hours, hourly_readings, readings_count, updated_at
		 FROM current_conditions
		 WHERE doc_id = $1`,
		docID,
	).Scan(
		&cc.StationID,
		&prov,
		&cc.StationName,
		&cc.LatestReading,
		&trend,
		&cc.DataAgeHours,
		&blob,
		&cc.ReadingsCount,
		&cc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get current conditions", err)
	}

	cc.Provider = types.Provider(prov)
	cc.Trend = types.Trend(trend)
	cc.HourlyReadings, err = unpackHourlyReadings(blob)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to unpack hourly readings", err)
	}
	return &cc, nil
}

// packHourlyReadings encodes the hourly window as gzip-compressed JSON.
func packHourlyReadings(hr types.HourlyReadings) ([]byte, error) {
	if hr == nil {
		hr = types.HourlyReadings{}
	}
	raw, err := json.Marshal(hr)
	if err != nil {
		return nil, fmt.Errorf("marshaling hourly readings: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compressing hourly readings: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing hourly readings blob: %w", err)
	}
	return buf.Bytes(), nil
}

// unpackHourlyReadings decodes a blob written by packHourlyReadings.
// A nil or empty blob decodes to an empty window.
func unpackHourlyReadings(blob []byte) (types.HourlyReadings, error) {
	if len(blob) == 0 {
		return types.HourlyReadings{}, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("opening hourly readings blob: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompressing hourly readings: %w", err)
	}

	var hr types.HourlyReadings
	if err := json.Unmarshal(raw, &hr); err != nil {
		return nil, fmt.Errorf("unmarshaling hourly readings: %w", err)
	}
	return hr, nil
}
