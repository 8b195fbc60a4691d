package db

import (
	"context"

	"riverwatch/internal/types"
)

// RiverRunRepository reads the river_runs collection maintained by the
// community-site scraper. The pipeline only consumes the station references
// embedded in each run; it never writes this collection.
type RiverRunRepository struct {
	db DBTX
}

// NewRiverRunRepository creates a repository backed by the given database
// connection (pool or transaction).
func NewRiverRunRepository(db DBTX) *RiverRunRepository {
	return &RiverRunRepository{db: db}
}

// List returns every river run with its station references extracted.
// A run may reference a gauge through the top-level stationId field, through
// the nested gaugeStation.code field, or both with the same code.
func (r *RiverRunRepository) List(ctx context.Context) ([]types.RiverRun, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id,
		        COALESCE(data->>'stationId', ''),
		        COALESCE(data->'gaugeStation'->>'code', '')
		 FROM river_runs
		 ORDER BY id`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list river runs", err)
	}
	defer rows.Close()

	var runs []types.RiverRun
	for rows.Next() {
		var run types.RiverRun
		if err := rows.Scan(&run.ID, &run.StationID, &run.GaugeStationCode); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan river run", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate river runs", err)
	}
	return runs, nil
}
