package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration for the CLI and orchestrator.
type Config struct {
	// DBPath is the SQLite database file path
	// Default: ".tripflow/tripflow.db"
	DBPath string

	// StepDelay is the fixed pause between plan steps. Bounds the
	// request rate to the generation provider and gives subscribers
	// time to render each transition.
	// Default: 2s, Range: 0-60s
	StepDelay time.Duration

	// ProvidersPath is an optional providers.yaml overriding the
	// env-derived provider endpoints. A missing file is ignored.
	// Default: ".tripflow/providers.yaml"
	ProvidersPath string
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		DBPath:        ".tripflow/tripflow.db",
		StepDelay:     2 * time.Second,
		ProvidersPath: ".tripflow/providers.yaml",
	}
}

// FromEnv loads configuration from environment variables, falling back
// to defaults. Invalid values are rejected rather than silently
// clamped.
//
// Environment variables:
//   - TRIPFLOW_DB: database file path
//   - TRIPFLOW_STEP_DELAY_SECONDS: inter-step delay (0-60)
//   - TRIPFLOW_PROVIDERS: providers.yaml path
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("TRIPFLOW_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("TRIPFLOW_PROVIDERS"); v != "" {
		cfg.ProvidersPath = v
	}
	if v := os.Getenv("TRIPFLOW_STEP_DELAY_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid TRIPFLOW_STEP_DELAY_SECONDS %q: %w", v, err)
		}
		if secs < 0 || secs > 60 {
			return cfg, fmt.Errorf("TRIPFLOW_STEP_DELAY_SECONDS must be between 0 and 60 (got %d)", secs)
		}
		cfg.StepDelay = time.Duration(secs) * time.Second
	}

	return cfg, nil
}
