package db

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"riverwatch/internal/types"
)

// The merge must concatenate into the existing map, never replace it.
// Everything else about non-destructive merging follows from this SQL.
func TestMergeYearlySQLIsConcatenating(t *testing.T) {
	assert.Contains(t, mergeYearlySQL,
		"yearly_readings.daily_readings || EXCLUDED.daily_readings")
	assert.Contains(t, mergeYearlySQL, "ON CONFLICT (doc_id, year)")
	assert.False(t, strings.Contains(mergeYearlySQL, "SET daily_readings = EXCLUDED.daily_readings,"),
		"merge must not blindly replace the stored map")
}

func TestYearlyReadingsRepository_Merge(t *testing.T) {
	dbMock := new(mockDBTX)
	repo := NewYearlyReadingsRepository(dbMock)

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	readings := types.DailyReadings{
		"2026-08-27": {MeanDischarge: f64(45.61), MeanLevel: f64(1.234)},
	}

	dbMock.On("Exec", mock.Anything, mergeYearlySQL,
		[]any{"environment_canada_08GA072", 2026, readings, now},
	).Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := repo.Merge(context.Background(), types.ProviderEnvironmentCanada, "08GA072", 2026, readings, now)
	require.NoError(t, err)
	dbMock.AssertExpectations(t)
}

func TestYearlyReadingsRepository_Get_NotFound(t *testing.T) {
	dbMock := new(mockDBTX)
	repo := NewYearlyReadingsRepository(dbMock)

	dbMock.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	doc, err := repo.Get(context.Background(), types.ProviderEnvironmentCanada, "08GA072", 2020)
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestYearlyReadingsRepository_Get(t *testing.T) {
	dbMock := new(mockDBTX)
	repo := NewYearlyReadingsRepository(dbMock)

	updatedAt := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	dbMock.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFn: func(dest ...any) error {
			*dest[0].(*int) = 2026
			*dest[1].(*types.DailyReadings) = types.DailyReadings{
				"2026-08-27": {MeanLevel: f64(1.2)},
			}
			*dest[2].(*time.Time) = updatedAt
			return nil
		}})

	doc, err := repo.Get(context.Background(), types.ProviderEnvironmentCanada, "08GA072", 2026)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, 2026, doc.Year)
	assert.Equal(t, 1.2, *doc.DailyReadings["2026-08-27"].MeanLevel)
}
