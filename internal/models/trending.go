// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package models

import "time"

// ScoreBreakdown exposes the four independently capped sub-scores that make
// up a video's popularity score, plus the raw signals they were derived from.
// Caps: view 40, like 30, engagement 20, recency 10. The total is the plain
// sum of the four - the weights are already baked into the caps.
type ScoreBreakdown struct {
	ViewScore       float64 `json:"view_score"`
	LikeScore       float64 `json:"like_score"`
	EngagementScore float64 `json:"engagement_score"`
	RecencyScore    float64 `json:"recency_score"`

	WindowViews    int     `json:"window_views"`
	TotalLikes     int64   `json:"total_likes"`
	EngagementRate float64 `json:"engagement_rate"`
	AgeDays        int64   `json:"age_days"`
}

// RankedVideo is one row of a trending query result.
type RankedVideo struct {
	Rank       int            `json:"rank"`
	Video      Video          `json:"video"`
	TotalScore float64        `json:"total_score"`
	DistanceKm float64        `json:"distance_km"`
	Breakdown  ScoreBreakdown `json:"breakdown"`
}

// SnapshotEntry is one ranked slot of a popularity snapshot.
type SnapshotEntry struct {
	Rank    int     `json:"rank"`
	VideoID int64   `json:"video_id"`
	Score   float64 `json:"score"`
}

// PopularitySnapshot is an immutable precomputed top-K result produced by an
// ETL run. Exactly one snapshot is marked latest at any instant; a new run
// supersedes the previous snapshot atomically, it never mutates it.
type PopularitySnapshot struct {
	ID         string          `json:"id"`
	ComputedAt time.Time       `json:"computed_at"`
	Entries    []SnapshotEntry `json:"entries"`
	IsLatest   bool            `json:"is_latest"`
}
