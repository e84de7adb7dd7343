// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

// Package trending ranks geo-tagged videos by popularity score within a
// caller-supplied radius and view window.
package trending

import (
	"context"
	"fmt"
	"sort"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/vidpulse/vidpulse/internal/config"
	"github.com/vidpulse/vidpulse/internal/geo"
	"github.com/vidpulse/vidpulse/internal/logging"
	"github.com/vidpulse/vidpulse/internal/metrics"
	"github.com/vidpulse/vidpulse/internal/models"
	"github.com/vidpulse/vidpulse/internal/scoring"
)

// SignalStore provides the windowed view events the scorer consumes.
type SignalStore interface {
	ViewEventsSince(ctx context.Context, since time.Time) (map[int64][]models.ViewEvent, error)
}

// Query is a validated trending request. Zero-valued fields have already
// been replaced with configured defaults by the API layer.
type Query struct {
	Latitude   float64
	Longitude  float64
	RadiusKm   float64
	WindowDays int
	Limit      int
}

// Engine executes trending queries: spatial filter, then score, then rank.
type Engine struct {
	searcher geo.SpatialSearcher
	store    SignalStore
	breaker  *gobreaker.CircuitBreaker[map[int64][]models.ViewEvent]
	now      func() time.Time
}

// New creates a trending engine. The signal-store read path is wrapped in a
// circuit breaker so a struggling database degrades queries fast instead of
// piling up timeouts.
func New(searcher geo.SpatialSearcher, store SignalStore, cfg *config.TrendingConfig) *Engine {
	settings := gobreaker.Settings{
		Name:    "trending-signal-store",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state change")
		},
	}

	return &Engine{
		searcher: searcher,
		store:    store,
		breaker:  gobreaker.NewCircuitBreaker[map[int64][]models.ViewEvent](settings),
		now:      time.Now,
	}
}

// RankTrending returns up to q.Limit videos within the radius, ordered by
// total popularity score descending. Ranks are contiguous from 1. An empty
// area yields an empty slice, not an error.
func (e *Engine) RankTrending(ctx context.Context, q Query) ([]models.RankedVideo, error) {
	candidates, err := e.searcher.FindWithinRadius(ctx, q.Latitude, q.Longitude, q.RadiusKm)
	if err != nil {
		return nil, fmt.Errorf("spatial search failed: %w", err)
	}
	if len(candidates) == 0 {
		return []models.RankedVideo{}, nil
	}

	now := e.now()
	since := now.AddDate(0, 0, -q.WindowDays)

	windowViews, err := e.breaker.Execute(func() (map[int64][]models.ViewEvent, error) {
		return e.store.ViewEventsSince(ctx, since)
	})
	if err != nil {
		return nil, fmt.Errorf("signal store read failed: %w", err)
	}

	ranked := make([]models.RankedVideo, 0, len(candidates))
	for _, v := range candidates {
		rv, ok := e.scoreCandidate(v, q, windowViews[v.ID], now)
		if !ok {
			continue
		}
		ranked = append(ranked, rv)
	}

	// Stable sort keeps equal-score videos in candidate order, which the
	// searcher returns deterministically.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalScore > ranked[j].TotalScore
	})

	if len(ranked) > q.Limit {
		ranked = ranked[:q.Limit]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked, nil
}

// scoreCandidate scores one video, isolating panics so a single malformed
// catalog row cannot take down the whole query.
func (e *Engine) scoreCandidate(v models.Video, q Query, views []models.ViewEvent, now time.Time) (rv models.RankedVideo, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Int64("video_id", v.ID).
				Interface("panic", r).
				Msg("Scoring panicked, skipping video")
			ok = false
		}
	}()

	total, breakdown := scoring.Score(v, views, now)
	return models.RankedVideo{
		Video:      v,
		TotalScore: total,
		DistanceKm: geo.Distance(q.Latitude, q.Longitude, *v.Latitude, *v.Longitude),
		Breakdown:  breakdown,
	}, true
}
