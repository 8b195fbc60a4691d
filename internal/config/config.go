// Package config defines the configuration for the RiverWatch pipeline.
// Configuration is loaded once at process initialization (Lambda cold start
// or local-runner startup) and is immutable thereafter. It follows 12-Factor
// principles by strictly separating code from configuration.
//
// Values are resolved via: OS environment (highest) -> dotenv file.
// Any missing required value or invalid format fails the process immediately
// on startup (fail fast).
package config

import (
	"log/slog"
	"time"
)

// Config is the top-level configuration struct. Sub-components receive only
// the specific config subsets they require.
type Config struct {
	// System metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain configurations
	Database DatabaseConfig
	Hydromet HydrometConfig
	Jobs     JobsConfig
	Server   ServerConfig
	Metrics  MetricsConfig
}

// SlogLevel maps the configured log level string to a slog.Level. Unknown
// values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL string `envconfig:"DATABASE_URL" validate:"required"`

	// Tuning parameters
	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
}

// HydrometConfig holds upstream hydrometric API endpoints and resilience
// tuning. The defaults target Environment Canada's geospatial API.
type HydrometConfig struct {
	RealtimeURL  string        `envconfig:"HYDROMET_REALTIME_URL" default:"https://api.weather.gc.ca/collections/hydrometric-realtime/items" validate:"required,url"`
	DailyMeanURL string        `envconfig:"HYDROMET_DAILY_URL" default:"https://api.weather.gc.ca/collections/hydrometric-daily-mean/items" validate:"required,url"`
	Timeout      time.Duration `envconfig:"HYDROMET_TIMEOUT" default:"30s"`
	// MaxRetries bounds total request attempts per upstream call.
	MaxRetries int           `envconfig:"HYDROMET_MAX_RETRIES" default:"3"`
	RetryDelay time.Duration `envconfig:"HYDROMET_RETRY_DELAY" default:"2s"`
}

// JobsConfig holds the orchestrator tunables.
type JobsConfig struct {
	// RealtimeHours is the hourly-fetch window for the current-conditions
	// refresher. 720 hours = 30 days.
	RealtimeHours int `envconfig:"REALTIME_HOURS" default:"720" validate:"gt=0"`

	// HistoricalDays is the daily-mean backfill window for newly discovered
	// stations. 1825 days = 5 years.
	HistoricalDays int `envconfig:"HISTORICAL_DAYS" default:"1825" validate:"gt=0"`

	// Cron schedules used by the local runner only; Lambda deployments are
	// scheduled externally.
	RealtimeSchedule string `envconfig:"REALTIME_SCHEDULE" default:"0 */3 * * *"`
	DailySchedule    string `envconfig:"DAILY_SCHEDULE" default:"30 6 * * *"`
	UpdaterSchedule  string `envconfig:"UPDATER_SCHEDULE" default:"0 7 * * *"`
}

// ServerConfig holds the read API's HTTP server settings.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
}

// MetricsConfig holds CloudWatch metric publishing settings. An empty
// namespace disables publishing entirely (local development).
type MetricsConfig struct {
	Namespace string `envconfig:"METRICS_NAMESPACE" default:"RiverWatch"`
	Region    string `envconfig:"AWS_REGION" default:"us-east-1"`
}
