// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

// Package models defines the core data types shared across VidPulse components.
package models

import "time"

// Video is a catalog entry for a short video. The catalog is owned by the
// upstream platform; VidPulse reads it and issues atomic view-count
// increments, nothing else. Coordinates are optional - a video without them
// never appears in geographic queries.
type Video struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Latitude        *float64  `json:"latitude,omitempty"`
	Longitude       *float64  `json:"longitude,omitempty"`
	DurationSeconds int       `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
	ViewCount       int64     `json:"view_count"`
	LikeCount       int64     `json:"like_count"`
}

// HasCoordinates reports whether the video carries a geographic position.
func (v *Video) HasCoordinates() bool {
	return v.Latitude != nil && v.Longitude != nil
}

// ViewEvent is a single recorded playback, append-only once written.
// It feeds both the request-time popularity scorer and the daily ETL
// aggregation. UserID is nil for anonymous views.
type ViewEvent struct {
	ID        string    `json:"id"`
	VideoID   int64     `json:"video_id"`
	ViewedAt  time.Time `json:"viewed_at"`
	UserID    *int64    `json:"user_id,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}
