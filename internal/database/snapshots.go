// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/vidpulse/vidpulse/internal/models"
)

// GetLatestSnapshot returns the current popularity snapshot with its entries
// in rank order, or (nil, nil) when no ETL run has completed yet.
func (db *DB) GetLatestSnapshot(ctx context.Context) (*models.PopularitySnapshot, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT s.id::VARCHAR, s.computed_at, e."rank", e.video_id, e.score
		FROM popular_snapshots s
		JOIN popular_snapshot_entries e ON e.snapshot_id = s.id
		WHERE s.is_latest
		ORDER BY e."rank"`)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snap *models.PopularitySnapshot
	for rows.Next() {
		var id string
		var computedAt time.Time
		var entry models.SnapshotEntry
		if err := rows.Scan(&id, &computedAt, &entry.Rank, &entry.VideoID, &entry.Score); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot entry: %w", err)
		}
		if snap == nil {
			snap = &models.PopularitySnapshot{ID: id, ComputedAt: computedAt, IsLatest: true}
		}
		snap.Entries = append(snap.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshot entries: %w", err)
	}
	return snap, nil
}

// ReplaceLatestSnapshot writes a new snapshot and retires the previous one
// in a single transaction. Readers observe either the old snapshot or the
// new one, never a mix and never an empty gap.
func (db *DB) ReplaceLatestSnapshot(ctx context.Context, snap *models.PopularitySnapshot) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE popular_snapshots SET is_latest = false WHERE is_latest`); err != nil {
		return fmt.Errorf("failed to retire previous snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO popular_snapshots (id, computed_at, is_latest)
		VALUES (?, ?, true)`, snap.ID, snap.ComputedAt); err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	for _, entry := range snap.Entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO popular_snapshot_entries (snapshot_id, "rank", video_id, score)
			VALUES (?, ?, ?, ?)`,
			snap.ID, entry.Rank, entry.VideoID, entry.Score); err != nil {
			return fmt.Errorf("failed to insert snapshot entry rank %d: %w", entry.Rank, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// SnapshotCount returns the number of stored snapshots. Used by tests and
// the health endpoint to confirm ETL activity.
func (db *DB) SnapshotCount(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int64
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM popular_snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return n, nil
}
