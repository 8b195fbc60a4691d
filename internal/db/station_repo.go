package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"riverwatch/internal/types"
)

// StationMetadataRepository provides access to the station_metadata
// collection. One document exists per provider+station, under the key
// {provider}_{stationId}, with the metadata payload in the "info" column.
type StationMetadataRepository struct {
	db DBTX
}

// NewStationMetadataRepository creates a repository backed by the given
// database connection (pool or transaction).
func NewStationMetadataRepository(db DBTX) *StationMetadataRepository {
	return &StationMetadataRepository{db: db}
}

// createMetadataSQL upserts the full info document. Re-running a backfill
// for the same station overwrites the document with identical content, which
// keeps the operation idempotent.
const createMetadataSQL = `
INSERT INTO station_metadata (doc_id, info)
VALUES ($1, $2)
ON CONFLICT (doc_id) DO UPDATE SET info = EXCLUDED.info`

// Create writes the metadata document for a newly ingested station.
// Called once per station's first successful ingestion.
func (r *StationMetadataRepository) Create(ctx context.Context, meta types.StationMetadata) error {
	docID := types.DocID(meta.Provider, meta.StationID)
	if _, err := r.db.Exec(ctx, createMetadataSQL, docID, meta); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create station metadata", err)
	}
	return nil
}

// touchSQL refreshes last_updated inside the info document without touching
// any other field.
const touchSQL = `
UPDATE station_metadata
SET info = jsonb_set(info, '{last_updated}', to_jsonb($2::timestamptz))
WHERE doc_id = $1`

// Touch refreshes the last_updated timestamp only.
func (r *StationMetadataRepository) Touch(ctx context.Context, provider types.Provider, stationID string, now time.Time) error {
	docID := types.DocID(provider, stationID)
	if _, err := r.db.Exec(ctx, touchSQL, docID, now.UTC()); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to touch station metadata", err)
	}
	return nil
}

// Get returns the metadata document for a station, or nil if the station has
// never been ingested.
func (r *StationMetadataRepository) Get(ctx context.Context, provider types.Provider, stationID string) (*types.StationMetadata, error) {
	docID := types.DocID(provider, stationID)

	var meta types.StationMetadata
	err := r.db.QueryRow(ctx,
		`SELECT info FROM station_metadata WHERE doc_id = $1`,
		docID,
	).Scan(&meta)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get station metadata", err)
	}
	return &meta, nil
}

// List returns all metadata documents for the given provider, ordered by
// station identifier. Serves the read API's station listing.
func (r *StationMetadataRepository) List(ctx context.Context, provider types.Provider) ([]types.StationMetadata, error) {
	prefix := string(provider) + "_"

	rows, err := r.db.Query(ctx,
		`SELECT info FROM station_metadata WHERE doc_id LIKE $1 || '%' ORDER BY doc_id`,
		prefix,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list station metadata", err)
	}
	defer rows.Close()

	var metas []types.StationMetadata
	for rows.Next() {
		var meta types.StationMetadata
		if err := rows.Scan(&meta); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan station metadata", err)
		}
		metas = append(metas, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate station metadata", err)
	}
	return metas, nil
}

// ListKnown enumerates the station identifiers that have a metadata document
// for the given provider. This is the durable record of "has this station
// ever been successfully processed" that the reconciler partitions against.
func (r *StationMetadataRepository) ListKnown(ctx context.Context, provider types.Provider) ([]string, error) {
	prefix := string(provider) + "_"

	rows, err := r.db.Query(ctx,
		`SELECT doc_id FROM station_metadata WHERE doc_id LIKE $1 || '%' ORDER BY doc_id`,
		prefix,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list known stations", err)
	}
	defer rows.Close()

	var stations []string
	for rows.Next() {
		var docID string
		if err := rows.Scan(&docID); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan station doc id", err)
		}
		stations = append(stations, strings.TrimPrefix(docID, prefix))
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate known stations", err)
	}
	return stations, nil
}
