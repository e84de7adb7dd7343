// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

// Package database provides DuckDB-backed storage for the video catalog
// mirror, the append-only view event log, and the popularity snapshot log.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/vidpulse/vidpulse/internal/config"
)

// Common storage errors.
var (
	// ErrVideoNotFound indicates the referenced video is absent from the
	// catalog - typically a stale event referencing a deleted video.
	ErrVideoNotFound = errors.New("video not found")
)

// defaultQueryTimeout bounds queries issued without a caller deadline.
const defaultQueryTimeout = 30 * time.Second

// DB wraps the DuckDB connection and provides data access methods.
// Methods are safe for concurrent use; DuckDB serializes writes internally
// and the view-count increment is a single atomic UPDATE at the storage
// layer, never a read-modify-write in application memory.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens the database file and initializes the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	connStr := cfg.Path
	if cfg.Path != ":memory:" && cfg.Path != "" {
		// Ensure the parent directory exists for file-backed databases.
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
		connStr = fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
			cfg.Path, numThreads, cfg.MaxMemory)
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}

	if err := db.createTables(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if cfg.SeedMockData {
		if err := db.SeedMockData(context.Background()); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to seed mock data: %w", err)
		}
	}

	return db, nil
}

// Close releases the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// ensureContext attaches the default query timeout when the caller did not
// set a deadline.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultQueryTimeout)
}
