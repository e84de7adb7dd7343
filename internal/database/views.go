// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vidpulse/vidpulse/internal/models"
)

// InsertViewEvent appends a view event to the log. Events are never
// updated or deleted after this point.
func (db *DB) InsertViewEvent(ctx context.Context, ev *models.ViewEvent) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var userID any
	if ev.UserID != nil {
		userID = *ev.UserID
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO video_views (id, video_id, viewed_at, user_id, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.VideoID, ev.ViewedAt, userID,
		nullIfEmpty(ev.IPAddress), nullIfEmpty(ev.UserAgent))
	if err != nil {
		return fmt.Errorf("failed to insert view event for video %d: %w", ev.VideoID, err)
	}
	return nil
}

// ViewEventsSince returns view events at or after the cutoff, grouped by
// video. Only the fields the scorer reads are populated; videos with no
// views in the window are absent from the map.
func (db *DB) ViewEventsSince(ctx context.Context, since time.Time) (map[int64][]models.ViewEvent, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT video_id, viewed_at
		FROM video_views
		WHERE viewed_at >= ?
		ORDER BY video_id, viewed_at`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query views since %s: %w", since.Format(time.RFC3339), err)
	}
	defer func() { _ = rows.Close() }()

	events := make(map[int64][]models.ViewEvent)
	for rows.Next() {
		var ev models.ViewEvent
		if err := rows.Scan(&ev.VideoID, &ev.ViewedAt); err != nil {
			return nil, fmt.Errorf("failed to scan view event: %w", err)
		}
		events[ev.VideoID] = append(events[ev.VideoID], ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate view events: %w", err)
	}
	return events, nil
}

// CountViewsSince returns the total number of view events at or after the
// cutoff, across all videos.
func (db *DB) CountViewsSince(ctx context.Context, since time.Time) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM video_views WHERE viewed_at >= ?`, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count views: %w", err)
	}
	return n, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return sql.NullString{String: s, Valid: true}
}
