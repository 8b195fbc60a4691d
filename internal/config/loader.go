// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent drift bugs in day bucketing.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Validate the struct using go-playground/validator.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load loads and validates the pipeline configuration from the environment.
// The optional dotenvPath overrides the default ".env" lookup; pass "" for
// the default.
func Load(dotenvPath string) (*Config, error) {
	// All date bucketing and "yesterday" cutoffs are defined in UTC.
	// Pinning the process timezone keeps any stray time.Now() call honest.
	time.Local = time.UTC

	if dotenvPath == "" {
		dotenvPath = ".env"
	}
	// A missing dotenv file is the normal case in deployed environments.
	_ = godotenv.Load(dotenvPath)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: processing environment: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return &cfg, nil
}
