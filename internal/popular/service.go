// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

// Package popular serves the precomputed leaderboard published by the ETL.
// Reads never touch the aggregation path: they hit an in-memory snapshot
// cache, falling back to storage only before the first cache fill.
package popular

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/vidpulse/vidpulse/internal/database"
	"github.com/vidpulse/vidpulse/internal/logging"
	"github.com/vidpulse/vidpulse/internal/models"
)

// Catalog resolves snapshot entries back to full video records.
type Catalog interface {
	GetVideo(ctx context.Context, id int64) (*models.Video, error)
}

// SnapshotStore loads the persisted latest snapshot.
type SnapshotStore interface {
	GetLatestSnapshot(ctx context.Context) (*models.PopularitySnapshot, error)
}

// Entry is one hydrated leaderboard row.
type Entry struct {
	Rank  int          `json:"rank"`
	Score float64      `json:"score"`
	Video models.Video `json:"video"`
}

// Service answers leaderboard reads from a lock-free snapshot cache.
// SetLatest swaps the cached snapshot atomically when an ETL run completes,
// so readers always observe a complete snapshot, never a partial one.
type Service struct {
	catalog Catalog
	store   SnapshotStore
	latest  atomic.Pointer[models.PopularitySnapshot]
}

// New creates the leaderboard read service.
func New(catalog Catalog, store SnapshotStore) *Service {
	return &Service{catalog: catalog, store: store}
}

// SetLatest installs a freshly computed snapshot in the cache. Wired as the
// aggregator's completion callback.
func (s *Service) SetLatest(snap *models.PopularitySnapshot) {
	s.latest.Store(snap)
}

// GetTopVideos returns the current leaderboard with full video records, or
// (nil, nil) when no aggregation run has completed yet. Entries whose video
// has since been deleted from the catalog are skipped.
func (s *Service) GetTopVideos(ctx context.Context) (*models.PopularitySnapshot, []Entry, error) {
	snap := s.latest.Load()
	if snap == nil {
		loaded, err := s.store.GetLatestSnapshot(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load latest snapshot: %w", err)
		}
		if loaded == nil {
			return nil, nil, nil
		}
		// Racing first readers may both load and store; either copy is the
		// same committed snapshot.
		s.latest.Store(loaded)
		snap = loaded
	}

	entries := make([]Entry, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		video, err := s.catalog.GetVideo(ctx, e.VideoID)
		if errors.Is(err, database.ErrVideoNotFound) {
			logging.Warn().
				Int64("video_id", e.VideoID).
				Str("snapshot_id", snap.ID).
				Msg("Snapshot references deleted video, skipping")
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to hydrate video %d: %w", e.VideoID, err)
		}
		entries = append(entries, Entry{Rank: e.Rank, Score: e.Score, Video: *video})
	}
	return snap, entries, nil
}
