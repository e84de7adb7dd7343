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

// DailyViewCount is one (video, calendar day) bucket of the view log.
// Day is truncated to midnight UTC.
type DailyViewCount struct {
	VideoID int64
	Day     time.Time
	Views   int64
}

// GetDailyViewCounts buckets view events at or after the cutoff by video and
// UTC calendar day. The aggregation runs inside DuckDB; the ETL only sees
// pre-reduced buckets, never raw events.
func (db *DB) GetDailyViewCounts(ctx context.Context, since time.Time) ([]DailyViewCount, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT video_id, DATE_TRUNC('day', viewed_at) AS day, COUNT(*)
		FROM video_views
		WHERE viewed_at >= ?
		GROUP BY video_id, day
		ORDER BY video_id, day`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily view counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var buckets []DailyViewCount
	for rows.Next() {
		var b DailyViewCount
		if err := rows.Scan(&b.VideoID, &b.Day, &b.Views); err != nil {
			return nil, fmt.Errorf("failed to scan daily bucket: %w", err)
		}
		b.Day = b.Day.UTC()
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily buckets: %w", err)
	}
	return buckets, nil
}
