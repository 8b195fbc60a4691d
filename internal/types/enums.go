package types

// Provider identifies the upstream hydrometric data provider.
type Provider string

const (
	ProviderEnvironmentCanada Provider = "environment_canada"
)

// Trend is the short-horizon qualitative direction of level change.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// StationStatus is the terminal status of one station's processing step
// within an orchestrator run. Only StatusError counts as a failure; the
// no_* statuses are legitimate empty outcomes (seasonal stations, cache
// not yet populated) and must not be conflated with errors.
type StationStatus string

const (
	StatusSuccess         StationStatus = "success"
	StatusError           StationStatus = "error"
	StatusNoData          StationStatus = "no_data"
	StatusNoCache         StationStatus = "no_cache"
	StatusNoYesterdayData StationStatus = "no_yesterday_data"
)
