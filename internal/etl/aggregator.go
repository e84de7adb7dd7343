// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

// Package etl implements the daily popularity aggregation pipeline: it
// reduces the trailing view window to a weighted score per video and
// publishes the top videos as an immutable snapshot.
package etl

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vidpulse/vidpulse/internal/config"
	"github.com/vidpulse/vidpulse/internal/database"
	"github.com/vidpulse/vidpulse/internal/logging"
	"github.com/vidpulse/vidpulse/internal/metrics"
	"github.com/vidpulse/vidpulse/internal/models"
)

// topK is the leaderboard size a snapshot carries.
const topK = 3

// maxDayWeight makes today's views count 8x a week-old view: a bucket from
// daysAgo d carries weight 8-d, and buckets older than 7 days contribute
// nothing even when the scan window is wider.
const maxDayWeight = 8

// Store is the persistence surface the aggregator needs.
type Store interface {
	GetDailyViewCounts(ctx context.Context, since time.Time) ([]database.DailyViewCount, error)
	ReplaceLatestSnapshot(ctx context.Context, snap *models.PopularitySnapshot) error
}

// Aggregator computes popularity snapshots. Run is serialized: a scheduled
// run and a manually triggered run never interleave.
type Aggregator struct {
	store      Store
	windowDays int

	// onComplete is invoked after a snapshot commits, outside the run lock.
	onComplete func(*models.PopularitySnapshot)

	mu  sync.Mutex
	now func() time.Time
}

// NewAggregator creates the aggregation pipeline. onComplete may be nil.
func NewAggregator(store Store, cfg *config.ETLConfig, onComplete func(*models.PopularitySnapshot)) *Aggregator {
	return &Aggregator{
		store:      store,
		windowDays: cfg.WindowDays,
		onComplete: onComplete,
		now:        time.Now,
	}
}

// Run executes one aggregation pass: scan the trailing view window, score
// each video with day-decayed weights, and atomically replace the latest
// snapshot with the new top videos. Any failure leaves the previous
// snapshot in place.
func (a *Aggregator) Run(ctx context.Context) (*models.PopularitySnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	started := a.now()
	snap, err := a.run(ctx, started)
	metrics.RecordETLRun(a.now().Sub(started), err)
	if err != nil {
		logging.Err(err).Msg("Popularity aggregation failed")
		return nil, err
	}

	logging.Info().
		Str("snapshot_id", snap.ID).
		Int("entries", len(snap.Entries)).
		Dur("duration", a.now().Sub(started)).
		Msg("Popularity aggregation complete")

	if a.onComplete != nil {
		a.onComplete(snap)
	}
	return snap, nil
}

func (a *Aggregator) run(ctx context.Context, now time.Time) (*models.PopularitySnapshot, error) {
	since := now.AddDate(0, 0, -a.windowDays)

	buckets, err := a.store.GetDailyViewCounts(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to scan view window: %w", err)
	}

	scores := make(map[int64]float64)
	for _, b := range buckets {
		weight := dayWeight(b.Day, now)
		if weight <= 0 {
			continue
		}
		scores[b.VideoID] += weight * float64(b.Views)
	}

	snap := &models.PopularitySnapshot{
		ID:         uuid.NewString(),
		ComputedAt: now.UTC(),
		Entries:    topEntries(scores),
		IsLatest:   true,
	}

	if err := a.store.ReplaceLatestSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to publish snapshot: %w", err)
	}
	return snap, nil
}

// dayWeight returns the decay weight for a view bucket: 8 for today, 7 for
// yesterday, down to 1 for seven days ago, 0 beyond. Days are calendar
// dates in UTC, not 24-hour periods.
func dayWeight(day, now time.Time) float64 {
	dy, dm, dd := day.UTC().Date()
	ny, nm, nd := now.UTC().Date()

	dDate := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	nDate := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)

	daysAgo := int(nDate.Sub(dDate).Hours() / 24)
	w := maxDayWeight - daysAgo
	if w < 0 {
		return 0
	}
	return float64(w)
}

// topEntries ranks the scored videos and keeps the top K. Ties break toward
// the lower video ID so repeated runs over unchanged data produce identical
// snapshots.
func topEntries(scores map[int64]float64) []models.SnapshotEntry {
	entries := make([]models.SnapshotEntry, 0, len(scores))
	for videoID, score := range scores {
		entries = append(entries, models.SnapshotEntry{VideoID: videoID, Score: score})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].VideoID < entries[j].VideoID
	})

	if len(entries) > topK {
		entries = entries[:topK]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
