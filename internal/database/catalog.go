// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vidpulse/vidpulse/internal/models"
)

// AllGeoTagged returns every catalog video that carries coordinates.
// This feeds the spatial searcher; videos without a position are invisible
// to geographic queries and are filtered here, not downstream.
func (db *DB) AllGeoTagged(ctx context.Context) ([]models.Video, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, latitude, longitude, duration_seconds,
		       created_at, view_count, like_count
		FROM videos
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query geo-tagged videos: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var videos []models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate videos: %w", err)
	}
	return videos, nil
}

// GetVideo returns a single catalog entry, or ErrVideoNotFound.
func (db *DB) GetVideo(ctx context.Context, id int64) (*models.Video, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `
		SELECT id, title, latitude, longitude, duration_seconds,
		       created_at, view_count, like_count
		FROM videos
		WHERE id = ?`, id)

	v, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVideoNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// IncrementViewCount bumps a video's lifetime view counter by one.
// The increment happens inside the database engine as a single UPDATE, so
// concurrent callers never lose updates. Returns ErrVideoNotFound when the
// video does not exist.
func (db *DB) IncrementViewCount(ctx context.Context, id int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE videos SET view_count = view_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to increment view count for video %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// InsertVideo adds a catalog entry. Used by mock data seeding and tests;
// the catalog of record lives upstream.
func (db *DB) InsertVideo(ctx context.Context, v *models.Video) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO videos (id, title, latitude, longitude, duration_seconds,
		                    created_at, view_count, like_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Title, v.Latitude, v.Longitude, v.DurationSeconds,
		v.CreatedAt, v.ViewCount, v.LikeCount)
	if err != nil {
		return fmt.Errorf("failed to insert video %d: %w", v.ID, err)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (models.Video, error) {
	var v models.Video
	var lat, lon sql.NullFloat64
	err := row.Scan(&v.ID, &v.Title, &lat, &lon, &v.DurationSeconds,
		&v.CreatedAt, &v.ViewCount, &v.LikeCount)
	if err != nil {
		return models.Video{}, err
	}
	if lat.Valid {
		v.Latitude = &lat.Float64
	}
	if lon.Valid {
		v.Longitude = &lon.Float64
	}
	return v, nil
}
