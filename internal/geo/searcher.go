// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package geo

import (
	"context"
	"fmt"

	"github.com/vidpulse/vidpulse/internal/config"
	"github.com/vidpulse/vidpulse/internal/models"
)

// Catalog provides read access to the geo-tagged portion of the video
// catalog. Satisfied by *database.DB.
type Catalog interface {
	// AllGeoTagged returns every video that carries coordinates.
	AllGeoTagged(ctx context.Context) ([]models.Video, error)
}

// SpatialSearcher answers radius queries over the catalog.
//
// FindWithinRadius returns every video with coordinates whose great-circle
// distance to (lat, lon) is at most radiusKm, in unspecified order - callers
// re-sort. Inputs are assumed pre-validated (lat in [-90,90], lon in
// [-180,180], radius in (0,500]); this component does not re-check them.
// Implementations are read-only and safe for concurrent use.
type SpatialSearcher interface {
	FindWithinRadius(ctx context.Context, lat, lon, radiusKm float64) ([]models.Video, error)
}

// NewSearcher constructs the radius-query strategy named by cfg.Strategy.
func NewSearcher(cfg config.SpatialConfig, catalog Catalog) (SpatialSearcher, error) {
	switch cfg.Strategy {
	case "grid":
		return NewGridSearcher(catalog, cfg.CellSizeKm, cfg.RefreshInterval), nil
	case "scan":
		return NewScanSearcher(catalog), nil
	default:
		return nil, fmt.Errorf("unknown spatial strategy %q", cfg.Strategy)
	}
}
