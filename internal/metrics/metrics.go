// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

// Package metrics provides Prometheus instrumentation for VidPulse.
//
// Metrics are exposed at the /metrics endpoint in Prometheus text format:
//
//	curl http://localhost:4326/metrics
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Trending Query Metrics
	TrendingQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trending_query_duration_seconds",
			Help:    "End-to-end trending query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"}, // "grid", "scan"
	)

	TrendingCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trending_query_candidates",
			Help:    "Number of videos found within the search radius",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// ETL Metrics
	ETLRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_runs_total",
			Help: "Total number of popularity aggregation runs",
		},
		[]string{"status"}, // "success", "failure"
	)

	ETLDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "etl_duration_seconds",
			Help:    "Duration of popularity aggregation runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)

	ETLLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "etl_last_success_timestamp",
			Help: "Unix timestamp of the last successful aggregation run",
		},
	)

	// Ingestion Metrics
	ViewEventsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "view_events_ingested_total",
			Help: "Total number of view events persisted",
		},
	)

	ViewEventsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "view_events_failed_total",
			Help: "Total number of view events that failed processing",
		},
		[]string{"reason"}, // "decode", "database", "unknown_video"
	)

	// Rate Limiter Metrics
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"limiter"}, // "fixed", "sliding", "http"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// RecordAPIRequest records a completed HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordETLRun records the outcome and duration of an aggregation run.
func RecordETLRun(duration time.Duration, err error) {
	ETLDuration.Observe(duration.Seconds())
	if err != nil {
		ETLRunsTotal.WithLabelValues("failure").Inc()
		return
	}
	ETLRunsTotal.WithLabelValues("success").Inc()
	ETLLastSuccess.SetToCurrentTime()
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
