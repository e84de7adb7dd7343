// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vidpulse/vidpulse/internal/models"
)

// SeedMockData loads a small demo catalog with a week of view history.
// Intended for development mode; it is a no-op when videos already exist.
func (db *DB) SeedMockData(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var existing int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos`).Scan(&existing); err != nil {
		return fmt.Errorf("failed to check existing catalog: %w", err)
	}
	if existing > 0 {
		return nil
	}

	now := time.Now().UTC()
	ptr := func(f float64) *float64 { return &f }

	videos := []models.Video{
		{ID: 1, Title: "Street food tour: Shibuya at midnight", Latitude: ptr(35.6595), Longitude: ptr(139.7005), DurationSeconds: 58, CreatedAt: now.AddDate(0, 0, -2), LikeCount: 340},
		{ID: 2, Title: "Sunrise run along the Sumida river", Latitude: ptr(35.7101), Longitude: ptr(139.8014), DurationSeconds: 42, CreatedAt: now.AddDate(0, 0, -5), LikeCount: 120},
		{ID: 3, Title: "Hidden jazz bar in Golden Gai", Latitude: ptr(35.6938), Longitude: ptr(139.7034), DurationSeconds: 61, CreatedAt: now.AddDate(0, 0, -1), LikeCount: 89},
		{ID: 4, Title: "Berlin flea market haul", Latitude: ptr(52.5200), Longitude: ptr(13.4050), DurationSeconds: 47, CreatedAt: now.AddDate(0, 0, -8), LikeCount: 510},
		{ID: 5, Title: "Kreuzberg skate session", Latitude: ptr(52.4990), Longitude: ptr(13.4030), DurationSeconds: 35, CreatedAt: now.AddDate(0, 0, -3), LikeCount: 205},
		{ID: 6, Title: "Cooking with grandma (no location)", DurationSeconds: 90, CreatedAt: now.AddDate(0, 0, -4), LikeCount: 77},
	}

	// Views per video per days-ago bucket. Front-loaded recent activity so
	// the demo trending feed has an obvious ordering.
	viewPlan := map[int64][]int{
		1: {40, 25, 10},
		2: {5, 8, 12, 6},
		3: {30, 2},
		4: {3, 4, 6, 9, 15},
		5: {18, 14, 7},
		6: {22, 11},
	}

	for i := range videos {
		for _, daily := range viewPlan[videos[i].ID] {
			videos[i].ViewCount += int64(daily)
		}
		if err := db.InsertVideo(ctx, &videos[i]); err != nil {
			return err
		}
	}

	for videoID, plan := range viewPlan {
		for daysAgo, count := range plan {
			day := now.AddDate(0, 0, -daysAgo)
			for i := 0; i < count; i++ {
				ev := &models.ViewEvent{
					ID:       uuid.NewString(),
					VideoID:  videoID,
					ViewedAt: day.Add(-time.Duration(i) * time.Minute),
				}
				if err := db.InsertViewEvent(ctx, ev); err != nil {
					return err
				}
			}
		}
	}

	return nil
}
