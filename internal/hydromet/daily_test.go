package hydromet

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riverwatch/internal/types"
)

const dailyBody = `{
	"features": [
		{"properties": {"DATE": "2026-08-26", "DISCHARGE": 45.61, "LEVEL": 1.234, "STATION_NUMBER": "08GA072"}},
		{"properties": {"DATE": "2026-08-27", "DISCHARGE": null, "LEVEL": 1.301, "STATION_NUMBER": "08GA072"}},
		{"properties": {"DATE": "2026-08-28", "DISCHARGE": null, "LEVEL": null}}
	]
}`

func TestDailyMeans(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, dailyBody)
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	daily, err := client.DailyMeans(context.Background(), "08GA072", start, end)
	require.NoError(t, err)

	// The all-null day is skipped.
	require.Len(t, daily, 2)
	assert.Equal(t, 45.61, *daily["2026-08-26"].MeanDischarge)
	assert.Equal(t, 1.234, *daily["2026-08-26"].MeanLevel)
	assert.Nil(t, daily["2026-08-27"].MeanDischarge)

	assert.Equal(t, []string{"DATE"}, gotQuery["sortby"])
	assert.Equal(t, []string{"2026-08-01T00:00:00Z/2026-08-28T23:59:59Z"}, gotQuery["datetime"])
}

func TestHistorical_WindowFromClock(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, `{"features": []}`)
	}))
	defer server.Close()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	client := testClient(t, server.URL, WithClock(clockwork.NewFakeClockAt(now)))

	daily, err := client.Historical(context.Background(), "08GA072", 1825)
	require.NoError(t, err)
	assert.Empty(t, daily)

	// 1825 days before 2026-08-28.
	assert.Equal(t, []string{"2021-08-29T00:00:00Z/2026-08-28T23:59:59Z"}, gotQuery["datetime"])
}

func TestStationInfo(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, `{"features": [{"properties": {"DATE": "2026-08-27", "LEVEL": 1.3, "STATION_NAME": "CHEAKAMUS RIVER ABOVE MILLAR CREEK"}}]}`)
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	meta, err := client.StationInfo(context.Background(), "08GA072")
	require.NoError(t, err)
	assert.Equal(t, "CHEAKAMUS RIVER ABOVE MILLAR CREEK", meta.StationName)
	assert.Equal(t, "08GA072", meta.StationID)
	assert.Equal(t, types.ProviderEnvironmentCanada, meta.Provider)
	assert.Equal(t, []string{"1"}, gotQuery["limit"])
}

func TestStationInfo_FallbackName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"features": []}`)
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	meta, err := client.StationInfo(context.Background(), "99ZZ999")
	require.NoError(t, err)
	assert.Equal(t, "Station 99ZZ999", meta.StationName)
}
