// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

// Package main is the entry point for the VidPulse server.
//
// VidPulse is the trending and popularity subsystem of a short-video
// platform: it answers geo-aware trending queries, tracks view events,
// maintains a precomputed popularity leaderboard via a daily aggregation
// pipeline, and exposes the rate-limiting primitives guarding those paths.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered settings from defaults, YAML file, and
//     environment variables (Koanf v2)
//  2. Database: DuckDB storage for the catalog mirror, view event log,
//     and popularity snapshots
//  3. Spatial searcher: grid index or exhaustive scan radius queries
//  4. Ingestion bus: in-process Watermill channel carrying view events
//     from the HTTP edge to storage
//  5. Trending engine: spatial filter plus multi-factor popularity scoring
//  6. ETL: daily top-videos aggregation with atomic snapshot replacement
//  7. Supervisor tree: the HTTP server, event consumer, and ETL scheduler
//     run as supervised services with restart backoff
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables with the VIDPULSE_ prefix
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the supervisor
// tree stops its services, the HTTP server drains in-flight requests, and
// the database closes last.
//
// # Example Usage
//
// Development with seeded demo data:
//
//	export VIDPULSE_SERVER_ENVIRONMENT=development
//	export VIDPULSE_DATABASE_SEED_MOCK_DATA=true
//	./vidpulse
//
// Production:
//
//	export VIDPULSE_DATABASE_PATH=/var/lib/vidpulse/vidpulse.db
//	export VIDPULSE_SPATIAL_STRATEGY=grid
//	./vidpulse
//
// # Port 4326
//
// The default port 4326 references EPSG:4326 (WGS 84), the coordinate
// system the trending API speaks.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/vidpulse/vidpulse/internal/api"
	"github.com/vidpulse/vidpulse/internal/config"
	"github.com/vidpulse/vidpulse/internal/database"
	"github.com/vidpulse/vidpulse/internal/etl"
	"github.com/vidpulse/vidpulse/internal/geo"
	"github.com/vidpulse/vidpulse/internal/ingest"
	"github.com/vidpulse/vidpulse/internal/logging"
	"github.com/vidpulse/vidpulse/internal/popular"
	"github.com/vidpulse/vidpulse/internal/ratelimit"
	"github.com/vidpulse/vidpulse/internal/supervisor"
	"github.com/vidpulse/vidpulse/internal/supervisor/services"
	"github.com/vidpulse/vidpulse/internal/trending"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	logging.Info().
		Str("strategy", cfg.Spatial.Strategy).
		Msg("Starting VidPulse")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Str("path", cfg.Database.Path).Msg("Database initialized")

	searcher, err := geo.NewSearcher(cfg.Spatial, db)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize spatial searcher")
	}

	engine := trending.New(searcher, db, &cfg.Trending)

	popularSvc := popular.New(db, db)
	aggregator := etl.NewAggregator(db, &cfg.ETL, popularSvc.SetLatest)
	scheduler := etl.NewScheduler(aggregator, &cfg.ETL)

	bus := ingest.NewBus(ingest.NewLoggerAdapter(logging.Logger()))
	tracker := ingest.NewTracker(bus)
	consumer := ingest.NewConsumer(db)

	viewLimiter := ratelimit.NewSlidingWindowLimiter(cfg.RateLimit.ActionMax, cfg.RateLimit.ActionWindow)
	triggerLimiter := ratelimit.NewFixedWindowLimiter(cfg.RateLimit.LoginMaxAttempts, cfg.RateLimit.LoginWindow)

	handlers := api.NewHandlers(cfg, db, engine, popularSvc, tracker, scheduler, viewLimiter, triggerLimiter)
	router := api.NewRouter(cfg, handlers)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(
		slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		supervisor.DefaultTreeConfig(),
	)
	tree.AddPipelineService(services.NewConsumerService(consumer, bus))
	tree.AddPipelineService(services.NewSchedulerService(scheduler))
	tree.AddAPIService(services.NewHTTPServerService(server, supervisor.DefaultTreeConfig().ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Supervisor tree starting")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree exited with error")
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}

	logging.Info().Msg("VidPulse stopped")
}
