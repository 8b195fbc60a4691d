package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"riverwatch/internal/types"
)

// YearlyReadingsRepository provides access to the yearly_readings
// collection: one document per provider+station+calendar year, holding a
// date-keyed map of daily aggregates.
type YearlyReadingsRepository struct {
	db DBTX
}

// NewYearlyReadingsRepository creates a repository backed by the given
// database connection (pool or transaction).
func NewYearlyReadingsRepository(db DBTX) *YearlyReadingsRepository {
	return &YearlyReadingsRepository{db: db}
}

// mergeYearlySQL merge-writes the supplied daily_readings map into the year
// document. The jsonb || concatenation gives per-date last-write-wins while
// preserving every date absent from this write, which makes repeated runs
// and overlapping backfill windows idempotent and order-independent.
const mergeYearlySQL = `
INSERT INTO yearly_readings (doc_id, year, daily_readings, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (doc_id, year) DO UPDATE
  SET daily_readings = yearly_readings.daily_readings || EXCLUDED.daily_readings,
      updated_at     = EXCLUDED.updated_at`

// Merge writes the supplied date->aggregate map into the year document,
// preserving previously stored dates not present in this call.
func (r *YearlyReadingsRepository) Merge(
	ctx context.Context,
	provider types.Provider,
	stationID string,
	year int,
	readings types.DailyReadings,
	now time.Time,
) error {
	docID := types.DocID(provider, stationID)
	if _, err := r.db.Exec(ctx, mergeYearlySQL, docID, year, readings, now.UTC()); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to merge yearly readings", err)
	}
	return nil
}

// Get returns the year document for a station, or nil if none exists.
func (r *YearlyReadingsRepository) Get(ctx context.Context, provider types.Provider, stationID string, year int) (*types.YearlyReadings, error) {
	docID := types.DocID(provider, stationID)

	var doc types.YearlyReadings
	err := r.db.QueryRow(ctx,
		`SELECT year, daily_readings, updated_at
		 FROM yearly_readings
		 WHERE doc_id = $1 AND year = $2`,
		docID, year,
	).Scan(&doc.Year, &doc.DailyReadings, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get yearly readings", err)
	}
	return &doc, nil
}
