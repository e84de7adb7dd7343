// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

// Package scoring computes per-video popularity scores for trending queries.
//
// Score is a pure function of the video's signals and the query time: the
// same inputs always produce the same total and breakdown, on the request
// path and in offline validation alike.
//
// The score is a 0-100 composite of four capped sub-scores:
//
//	view       0-40  recency-weighted views in the query window, log-scaled
//	like       0-30  total likes, log-scaled
//	engagement 0-20  likes per window view, as a percentage
//	recency    0-10  full score under one day old, minus one point per day
//
// The daily leaderboard ETL uses a separate, deliberately different decay
// schedule (see internal/etl); the two scoring functions serve different
// purposes and are not unified.
package scoring

import (
	"math"
	"time"

	"github.com/vidpulse/vidpulse/internal/models"
)

// Sub-score caps. The total is the plain sum of the four sub-scores, so the
// caps double as weights.
const (
	ViewWeight       = 40.0
	LikeWeight       = 30.0
	EngagementWeight = 20.0
	RecencyWeight    = 10.0
)

// minViewWeight is the floor for a single view's recency weight.
const minViewWeight = 0.1

// Score computes the popularity total and its breakdown for a video given
// the view events that fell inside the query window, as of now.
func Score(video models.Video, windowViews []models.ViewEvent, now time.Time) (float64, models.ScoreBreakdown) {
	ageDays := fullDaysSince(video.CreatedAt, now)

	b := models.ScoreBreakdown{
		WindowViews: len(windowViews),
		TotalLikes:  video.LikeCount,
		AgeDays:     ageDays,
	}

	b.ViewScore = viewScore(windowViews, now)
	b.LikeScore = likeScore(video.LikeCount)
	b.EngagementRate = engagementRate(video.LikeCount, len(windowViews))
	b.EngagementScore = math.Min(b.EngagementRate, EngagementWeight)
	b.RecencyScore = recencyScore(ageDays)

	total := b.ViewScore + b.LikeScore + b.EngagementScore + b.RecencyScore
	return total, b
}

// viewScore weights each view by how recently it happened - a view today
// counts 1.0, yesterday 0.9, and so on down to a floor of 0.1 - then
// log-scales the weighted sum so large view counts saturate at the cap.
func viewScore(views []models.ViewEvent, now time.Time) float64 {
	if len(views) == 0 {
		return 0
	}

	var weighted float64
	for _, view := range views {
		daysAgo := calendarDaysBetween(view.ViewedAt, now)
		weight := 1.0 - float64(daysAgo)*0.1
		if weight < minViewWeight {
			weight = minViewWeight
		}
		weighted += weight
	}

	return math.Min(math.Log10(1+weighted)*10, ViewWeight)
}

// likeScore log-scales the like count so it saturates at the cap.
func likeScore(likes int64) float64 {
	if likes == 0 {
		return 0
	}
	return math.Min(math.Log10(1+float64(likes))*10, LikeWeight)
}

// engagementRate is likes per window view as a percentage; zero when the
// window holds no views.
func engagementRate(likes int64, windowViews int) float64 {
	if windowViews == 0 {
		return 0
	}
	return float64(likes) * 100.0 / float64(windowViews)
}

// recencyScore gives the full score to videos under one day old, then loses
// one point per full day of age.
func recencyScore(ageDays int64) float64 {
	if ageDays < 1 {
		return RecencyWeight
	}
	return math.Max(RecencyWeight-float64(ageDays), 0)
}

// fullDaysSince counts complete 24-hour periods between from and now.
func fullDaysSince(from, now time.Time) int64 {
	if now.Before(from) {
		return 0
	}
	return int64(now.Sub(from).Hours() / 24)
}

// calendarDaysBetween counts the calendar-date difference between t and now
// in UTC - a view late yesterday evening is one day ago this morning even
// if fewer than 24 hours have passed.
func calendarDaysBetween(t, now time.Time) int {
	ty, tm, td := t.UTC().Date()
	ny, nm, nd := now.UTC().Date()

	tDate := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	nDate := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)

	days := int(nDate.Sub(tDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
