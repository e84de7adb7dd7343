// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

// Package config provides layered configuration management for VidPulse.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in sensible defaults for all settings
//  2. Config File: optional YAML file (config.yaml) for persistent settings
//  3. Environment Variables: override any setting
//
// Config is immutable after Load() and safe for concurrent read access.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Spatial   SpatialConfig   `koanf:"spatial"`
	Trending  TrendingConfig  `koanf:"trending"`
	ETL       ETLConfig       `koanf:"etl"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// Environment is "development" or "production"; development enables
	// console log output and mock data seeding conveniences.
	Environment string `koanf:"environment"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file location. ":memory:" is accepted for tests.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count; 0 means runtime.NumCPU().
	Threads int `koanf:"threads"`

	// SeedMockData loads a small demo catalog with view history at startup.
	SeedMockData bool `koanf:"seed_mock_data"`
}

// SpatialConfig selects and tunes the radius-query strategy.
type SpatialConfig struct {
	// Strategy is "grid" (spatial-hash index, sub-linear queries) or
	// "scan" (exhaustive haversine pass over the catalog). Both return the
	// same result sets; grid trades memory and refresh staleness for speed.
	Strategy string `koanf:"strategy"`

	// CellSizeKm is the grid cell edge length for the grid strategy.
	CellSizeKm float64 `koanf:"cell_size_km"`

	// RefreshInterval bounds how stale the grid index may be before it is
	// rebuilt from the catalog. Zero rebuilds on every query.
	RefreshInterval time.Duration `koanf:"refresh_interval"`
}

// TrendingConfig holds request-path ranking defaults.
type TrendingConfig struct {
	// DefaultWindowDays is the view window used when a query omits days.
	DefaultWindowDays int     `koanf:"default_window_days"`
	DefaultRadiusKm   float64 `koanf:"default_radius_km"`
	DefaultLimit      int     `koanf:"default_limit"`

	// BreakerThreshold is the consecutive storage failure count that opens
	// the catalog/signal read circuit breaker.
	BreakerThreshold uint32        `koanf:"breaker_threshold"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout"`
}

// ETLConfig holds the daily aggregation pipeline settings.
type ETLConfig struct {
	// RunAtHour is the local hour (0-23) of the daily scheduled run.
	RunAtHour int `koanf:"run_at_hour"`

	// Interval overrides the daily cadence when positive; used in tests
	// and for more frequent refreshes.
	Interval time.Duration `koanf:"interval"`

	// WindowDays is the trailing view window the aggregation scans.
	WindowDays int `koanf:"window_days"`
}

// RateLimitConfig holds the throttling primitive settings.
type RateLimitConfig struct {
	// Fixed-window limiter (login-style: per network address).
	LoginMaxAttempts int           `koanf:"login_max_attempts"`
	LoginWindow      time.Duration `koanf:"login_window"`

	// Rolling-window limiter (per-user action throttling).
	ActionMax    int           `koanf:"action_max"`
	ActionWindow time.Duration `koanf:"action_window"`

	// HTTP edge limiting (httprate, per IP).
	HTTPRequests int           `koanf:"http_requests"`
	HTTPWindow   time.Duration `koanf:"http_window"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Validate checks the configuration for invalid or inconsistent values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	switch c.Spatial.Strategy {
	case "grid", "scan":
	default:
		return fmt.Errorf("spatial.strategy must be \"grid\" or \"scan\", got %q", c.Spatial.Strategy)
	}
	if c.Spatial.CellSizeKm <= 0 {
		return fmt.Errorf("spatial.cell_size_km must be positive, got %v", c.Spatial.CellSizeKm)
	}
	if c.Trending.DefaultWindowDays < 1 || c.Trending.DefaultWindowDays > 30 {
		return fmt.Errorf("trending.default_window_days must be between 1 and 30, got %d", c.Trending.DefaultWindowDays)
	}
	if c.Trending.DefaultRadiusKm <= 0 || c.Trending.DefaultRadiusKm > 500 {
		return fmt.Errorf("trending.default_radius_km must be in (0, 500], got %v", c.Trending.DefaultRadiusKm)
	}
	if c.Trending.DefaultLimit < 1 || c.Trending.DefaultLimit > 100 {
		return fmt.Errorf("trending.default_limit must be between 1 and 100, got %d", c.Trending.DefaultLimit)
	}
	if c.ETL.RunAtHour < 0 || c.ETL.RunAtHour > 23 {
		return fmt.Errorf("etl.run_at_hour must be between 0 and 23, got %d", c.ETL.RunAtHour)
	}
	if c.ETL.WindowDays < 1 {
		return fmt.Errorf("etl.window_days must be at least 1, got %d", c.ETL.WindowDays)
	}
	if c.RateLimit.LoginMaxAttempts < 1 || c.RateLimit.ActionMax < 1 {
		return fmt.Errorf("rate_limit maximums must be at least 1")
	}
	if c.RateLimit.LoginWindow <= 0 || c.RateLimit.ActionWindow <= 0 {
		return fmt.Errorf("rate_limit windows must be positive")
	}
	return nil
}

// Addr returns the host:port the HTTP server binds to.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDevelopment reports whether the server runs in development mode.
func (c *ServerConfig) IsDevelopment() bool {
	return c.Environment != "production"
}
