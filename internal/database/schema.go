// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core tables and indexes.
//
// Tables:
//   - videos: read-model of the platform catalog (coordinates, counters)
//   - video_views: append-only view event log feeding scoring and ETL
//   - popular_snapshots / popular_snapshot_entries: ETL output log; exactly
//     one snapshot row carries is_latest = true at any instant
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS videos (
			id BIGINT PRIMARY KEY,
			title TEXT NOT NULL,
			latitude DOUBLE,
			longitude DOUBLE,
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			view_count BIGINT NOT NULL DEFAULT 0,
			like_count BIGINT NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS video_views (
			id UUID PRIMARY KEY,
			video_id BIGINT NOT NULL,
			viewed_at TIMESTAMP NOT NULL,
			user_id BIGINT,
			ip_address TEXT,
			user_agent TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS popular_snapshots (
			id UUID PRIMARY KEY,
			computed_at TIMESTAMP NOT NULL,
			is_latest BOOLEAN NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS popular_snapshot_entries (
			snapshot_id UUID NOT NULL,
			"rank" INTEGER NOT NULL,
			video_id BIGINT NOT NULL,
			score DOUBLE NOT NULL
		)`,

		// Geo queries load all coordinate-bearing rows; the partial-style
		// predicate keeps the common filter cheap.
		`CREATE INDEX IF NOT EXISTS idx_videos_coords ON videos (latitude, longitude)`,

		// Window scans and per-video grouping for scoring and ETL.
		`CREATE INDEX IF NOT EXISTS idx_views_viewed_at ON video_views (viewed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_views_video_id ON video_views (video_id)`,

		`CREATE INDEX IF NOT EXISTS idx_snapshots_latest ON popular_snapshots (is_latest)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}
