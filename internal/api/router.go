// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vidpulse/vidpulse/internal/config"
	"github.com/vidpulse/vidpulse/internal/middleware"
)

// NewRouter builds the HTTP routing table.
//
// Middleware order matters: request IDs first so every log line and error
// carries one, then panic recovery, then the per-IP edge limiter, then
// metrics so rejected requests are still counted.
func NewRouter(cfg *config.Config, h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	// Prometheus scrape endpoint, outside the rate limit.
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimit.HTTPRequests, cfg.RateLimit.HTTPWindow))
		r.Use(middleware.PrometheusMetrics)

		r.Get("/health", h.HandleHealth)
		r.Get("/trending/local", h.HandleTrendingLocal)
		r.Get("/videos/popular", h.HandlePopularVideos)
		r.Post("/videos/{videoID}/view", h.HandleTrackView)
		r.Post("/etl/run", h.HandleETLRun)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).NotFound("endpoint not found")
	})

	return r
}
