// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package geo

import (
	"context"
	"fmt"

	"github.com/vidpulse/vidpulse/internal/models"
)

// ScanSearcher is the exhaustive radius-query strategy: it walks the whole
// geo-tagged catalog and keeps every video whose haversine distance is
// within the radius. O(n) per query, no state, no staleness - the reference
// implementation the grid strategy must agree with.
type ScanSearcher struct {
	catalog Catalog
}

// NewScanSearcher creates the exhaustive-scan strategy.
func NewScanSearcher(catalog Catalog) *ScanSearcher {
	return &ScanSearcher{catalog: catalog}
}

// FindWithinRadius implements SpatialSearcher.
func (s *ScanSearcher) FindWithinRadius(ctx context.Context, lat, lon, radiusKm float64) ([]models.Video, error) {
	videos, err := s.catalog.AllGeoTagged(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	var results []models.Video
	for _, v := range videos {
		if !v.HasCoordinates() {
			continue
		}
		if Distance(lat, lon, *v.Latitude, *v.Longitude) <= radiusKm {
			results = append(results, v)
		}
	}
	return results, nil
}
