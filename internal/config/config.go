package config

import (
	"os"
	"runtime"
	"strconv"

	"impactsim/internal/errors"
)

// Config represents the complete pipeline configuration
type Config struct {
	Cache     CacheConfig
	Estimator EstimatorConfig
	Run       RunConfig
}

// CacheConfig selects and parameterizes the trial cache backend
type CacheConfig struct {
	// Backend is one of "memory", "sqlite", "postgres"
	Backend     string
	Path        string // sqlite database file
	DatabaseURL string // postgres connection string
	StoreSeries bool   // keep per-timestep series in cached entries
}

// EstimatorConfig holds the estimator backend settings passed through
// the estimator port
type EstimatorConfig struct {
	PriorLevelSD float64
	Iterations   int
}

// RunConfig holds sweep execution settings
type RunConfig struct {
	Simulations   int
	Concurrency   int
	ProgressEvery int // report progress every N completed trials
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Cache: CacheConfig{
			Backend:     getEnvOrDefault("SIM_CACHE_BACKEND", "sqlite"),
			Path:        getEnvOrDefault("SIM_CACHE_PATH", "impactsim.db"),
			DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),
			StoreSeries: getEnvBoolOrDefault("SIM_CACHE_STORE_SERIES", false),
		},
		Estimator: EstimatorConfig{
			PriorLevelSD: getEnvFloatOrDefault("SIM_PRIOR_LEVEL_SD", 0.1),
			Iterations:   getEnvIntOrDefault("SIM_ITERATIONS", 1000),
		},
		Run: RunConfig{
			Simulations:   getEnvIntOrDefault("SIM_SIMULATIONS", 100),
			Concurrency:   getEnvIntOrDefault("SIM_CONCURRENCY", runtime.NumCPU()),
			ProgressEvery: getEnvIntOrDefault("SIM_PROGRESS_EVERY", 25),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.Cache.Backend {
	case "memory":
	case "sqlite":
		if cfg.Cache.Path == "" {
			return errors.ConfigInvalid("SIM_CACHE_PATH is required for the sqlite backend")
		}
	case "postgres":
		if cfg.Cache.DatabaseURL == "" {
			return errors.ConfigInvalid("DATABASE_URL is required for the postgres backend")
		}
	default:
		return errors.ConfigInvalid("unknown cache backend: " + cfg.Cache.Backend)
	}

	if cfg.Estimator.PriorLevelSD < 0 {
		return errors.ConfigInvalid("SIM_PRIOR_LEVEL_SD must be non-negative")
	}
	if cfg.Estimator.Iterations <= 0 {
		return errors.ConfigInvalid("SIM_ITERATIONS must be positive")
	}
	if cfg.Run.Simulations <= 0 {
		return errors.ConfigInvalid("SIM_SIMULATIONS must be positive")
	}
	if cfg.Run.Concurrency <= 0 {
		return errors.ConfigInvalid("SIM_CONCURRENCY must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
