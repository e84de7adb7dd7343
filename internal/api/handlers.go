// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vidpulse/vidpulse/internal/config"
	"github.com/vidpulse/vidpulse/internal/database"
	"github.com/vidpulse/vidpulse/internal/etl"
	"github.com/vidpulse/vidpulse/internal/ingest"
	"github.com/vidpulse/vidpulse/internal/logging"
	"github.com/vidpulse/vidpulse/internal/metrics"
	"github.com/vidpulse/vidpulse/internal/models"
	"github.com/vidpulse/vidpulse/internal/popular"
	"github.com/vidpulse/vidpulse/internal/ratelimit"
	"github.com/vidpulse/vidpulse/internal/trending"
)

// Store is the storage surface the handlers read directly.
type Store interface {
	GetVideo(ctx context.Context, id int64) (*models.Video, error)
	CountViewsSince(ctx context.Context, since time.Time) (int64, error)
	SnapshotCount(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	cfg       *config.Config
	store     Store
	engine    *trending.Engine
	popular   *popular.Service
	tracker   *ingest.Tracker
	scheduler *etl.Scheduler

	// viewLimiter throttles view tracking per client (rolling window).
	viewLimiter *ratelimit.SlidingWindowLimiter

	// triggerLimiter throttles manual ETL triggers per client (fixed
	// window, reset on a successful run).
	triggerLimiter *ratelimit.FixedWindowLimiter

	startedAt time.Time
}

// NewHandlers creates the handler set.
func NewHandlers(
	cfg *config.Config,
	store Store,
	engine *trending.Engine,
	popularSvc *popular.Service,
	tracker *ingest.Tracker,
	scheduler *etl.Scheduler,
	viewLimiter *ratelimit.SlidingWindowLimiter,
	triggerLimiter *ratelimit.FixedWindowLimiter,
) *Handlers {
	return &Handlers{
		cfg:            cfg,
		store:          store,
		engine:         engine,
		popular:        popularSvc,
		tracker:        tracker,
		scheduler:      scheduler,
		viewLimiter:    viewLimiter,
		triggerLimiter: triggerLimiter,
		startedAt:      time.Now(),
	}
}

// TrendingResponse is the payload of a trending query.
type TrendingResponse struct {
	Videos []models.RankedVideo `json:"videos"`

	RadiusKm   float64 `json:"radius_km"`
	WindowDays int     `json:"window_days"`
}

// HandleTrendingLocal serves GET /api/v1/trending/local.
func (h *Handlers) HandleTrendingLocal(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req, err := parseTrendingRequest(r, &h.cfg.Trending)
	if err != nil {
		rw.ValidationError(err.Error(), nil)
		return
	}

	start := time.Now()
	ranked, err := h.engine.RankTrending(r.Context(), req.Query())
	if err != nil {
		logger := logging.Ctx(r.Context())
		logger.Err(err).Msg("Trending query failed")
		rw.InternalError("trending query failed")
		return
	}
	metrics.TrendingQueryDuration.WithLabelValues(h.cfg.Spatial.Strategy).Observe(time.Since(start).Seconds())
	metrics.TrendingCandidates.Observe(float64(len(ranked)))

	rw.SuccessWithMeta(TrendingResponse{
		Videos:     ranked,
		RadiusKm:   req.RadiusKm,
		WindowDays: req.Days,
	}, &APIMeta{Count: len(ranked)})
}

// PopularResponse is the payload of a leaderboard read.
type PopularResponse struct {
	ComputedAt *time.Time      `json:"computed_at,omitempty"`
	Videos     []popular.Entry `json:"videos"`
}

// HandlePopularVideos serves GET /api/v1/videos/popular. Before the first
// ETL run completes, the leaderboard is empty rather than an error.
func (h *Handlers) HandlePopularVideos(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	snap, entries, err := h.popular.GetTopVideos(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	resp := PopularResponse{Videos: []popular.Entry{}}
	if snap != nil {
		computedAt := snap.ComputedAt
		resp.ComputedAt = &computedAt
		resp.Videos = entries
	}
	rw.SuccessWithMeta(resp, &APIMeta{Count: len(resp.Videos)})
}

// TrackViewRequest is the optional JSON body of a view tracking call.
type TrackViewRequest struct {
	UserID *int64 `json:"user_id,omitempty"`
}

// HandleTrackView serves POST /api/v1/videos/{videoID}/view. The view is
// accepted and queued; persistence and the view-count increment happen
// asynchronously.
func (h *Handlers) HandleTrackView(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	videoID, err := strconv.ParseInt(chi.URLParam(r, "videoID"), 10, 64)
	if err != nil || videoID < 1 {
		rw.BadRequest("invalid video ID")
		return
	}

	body := decodeTrackViewBody(r)
	limiterKey := viewLimiterKey(r, body.UserID)

	if err := h.viewLimiter.Check(limiterKey); err != nil {
		var limitErr *ratelimit.LimitExceededError
		if errors.As(err, &limitErr) {
			metrics.RateLimitRejections.WithLabelValues("sliding").Inc()
			rw.TooManyRequests("view rate limit exceeded", map[string]interface{}{
				"count":    limitErr.Count,
				"max":      limitErr.Max,
				"reset_at": limitErr.ResetAt,
			})
			return
		}
		rw.InternalError("rate limit check failed")
		return
	}

	if _, err := h.store.GetVideo(r.Context(), videoID); err != nil {
		if errors.Is(err, database.ErrVideoNotFound) {
			rw.NotFound("video not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	ev, err := h.tracker.Track(r.Context(), videoID, body.UserID, clientIP(r), r.UserAgent())
	if err != nil {
		logger := logging.Ctx(r.Context())
		logger.Err(err).Int64("video_id", videoID).Msg("Failed to queue view event")
		rw.InternalError("failed to record view")
		return
	}
	h.viewLimiter.Record(limiterKey)

	rw.Accepted(map[string]interface{}{
		"event_id": ev.ID,
		"video_id": ev.VideoID,
	})
}

// HandleETLRun serves POST /api/v1/etl/run, the manual aggregation trigger.
// Attempts are counted against a fixed window whether or not the run
// succeeds; a successful run clears the caller's window.
func (h *Handlers) HandleETLRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	key := clientIP(r)

	if !h.triggerLimiter.Allow(key) {
		metrics.RateLimitRejections.WithLabelValues("fixed").Inc()
		rw.TooManyRequests("too many trigger attempts", map[string]interface{}{
			"max": h.cfg.RateLimit.LoginMaxAttempts,
		})
		return
	}

	if err := h.scheduler.RunNow(r.Context()); err != nil {
		rw.InternalError("aggregation run failed")
		return
	}
	h.triggerLimiter.Reset(key)

	rw.Success(map[string]interface{}{"status": "completed"})
}

// HandleHealth serves GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	status := "ok"
	dbStatus := "up"
	if err := h.store.Ping(r.Context()); err != nil {
		status = "degraded"
		dbStatus = "down"
	}

	health := map[string]interface{}{
		"status":         status,
		"database":       dbStatus,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	}

	if dbStatus == "up" {
		if snapshots, err := h.store.SnapshotCount(r.Context()); err == nil {
			health["snapshots"] = snapshots
		}
		if views, err := h.store.CountViewsSince(r.Context(), time.Now().Add(-24*time.Hour)); err == nil {
			health["views_24h"] = views
		}
	}

	if status != "ok" {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeInternalError, "service degraded", health)
		return
	}
	rw.Success(health)
}

// decodeTrackViewBody reads the optional JSON body of a tracking call.
// A missing or malformed body degrades to an anonymous view.
func decodeTrackViewBody(r *http.Request) TrackViewRequest {
	var body TrackViewRequest
	if r.Body == nil {
		return body
	}
	defer func() { _ = r.Body.Close() }()
	_ = decodeJSON(r, &body)
	return body
}

// viewLimiterKey identifies the client for view throttling: the user when
// authenticated, the network address otherwise.
func viewLimiterKey(r *http.Request, userID *int64) string {
	if userID != nil {
		return "user:" + strconv.FormatInt(*userID, 10)
	}
	return "ip:" + clientIP(r)
}

// clientIP returns the request's client address without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
