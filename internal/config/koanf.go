// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/vidpulse/config.yaml",
	"/etc/vidpulse/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix namespaces all VidPulse environment variables.
const envPrefix = "VIDPULSE_"

// Default returns a Config with all default values applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        4326, // EPSG:4326, the lat/lon coordinate system
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:         "/data/vidpulse.duckdb",
			MaxMemory:    "1GB",
			Threads:      0, // 0 = runtime.NumCPU()
			SeedMockData: false,
		},
		Spatial: SpatialConfig{
			Strategy:        "grid",
			CellSizeKm:      50,
			RefreshInterval: time.Minute,
		},
		Trending: TrendingConfig{
			DefaultWindowDays: 7,
			DefaultRadiusKm:   50,
			DefaultLimit:      10,
			BreakerThreshold:  5,
			BreakerTimeout:    30 * time.Second,
		},
		ETL: ETLConfig{
			RunAtHour:  2,
			Interval:   0, // daily at RunAtHour unless overridden
			WindowDays: 7,
		},
		RateLimit: RateLimitConfig{
			LoginMaxAttempts: 5,
			LoginWindow:      time.Minute,
			ActionMax:        60,
			ActionWindow:     time.Hour,
			HTTPRequests:     100,
			HTTPWindow:       time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML config
// file, and environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// VIDPULSE_SERVER_PORT -> server.port, VIDPULSE_SPATIAL_STRATEGY -> spatial.strategy
	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps a VIDPULSE_* environment variable name to a koanf path.
// The section is the first underscore-delimited token; the remainder keeps
// its underscores (config keys are snake_case within a section).
//
//	VIDPULSE_SERVER_PORT            -> server.port
//	VIDPULSE_SPATIAL_CELL_SIZE_KM   -> spatial.cell_size_km
//	VIDPULSE_RATE_LIMIT_ACTION_MAX  -> rate_limit.action_max
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	// rate_limit is the only two-token section name
	if rest, ok := strings.CutPrefix(key, "rate_limit_"); ok {
		return "rate_limit." + rest
	}

	section, rest, found := strings.Cut(key, "_")
	if !found {
		return key
	}
	return section + "." + rest
}
