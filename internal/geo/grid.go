// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package geo

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/vidpulse/vidpulse/internal/models"
)

// GridSearcher is the indexed radius-query strategy. It divides the globe
// into fixed-size cells and hashes each geo-tagged video into its cell, so a
// query only inspects the cells intersecting the search circle instead of
// the whole catalog.
//
// The index is rebuilt from the catalog when older than refreshEvery; a zero
// interval rebuilds on every query. Candidate cells are always confirmed
// with an exact haversine check, so the result set matches ScanSearcher
// for any catalog the two strategies observe identically.
type GridSearcher struct {
	catalog Catalog

	cellSizeDeg float64
	cols        int // longitude columns covering 360 degrees
	rows        int // latitude rows covering 180 degrees

	refreshEvery time.Duration

	mu          sync.RWMutex
	cells       map[cellKey][]models.Video
	lastRefresh time.Time

	now func() time.Time // test hook
}

// cellKey addresses one grid cell. X is a wrapped longitude column in
// [0, cols); Y is a latitude row in [0, rows).
type cellKey struct {
	X, Y int
}

// NewGridSearcher creates the grid-index strategy with the given cell edge
// length in kilometers.
func NewGridSearcher(catalog Catalog, cellSizeKm float64, refreshEvery time.Duration) *GridSearcher {
	if cellSizeKm <= 0 {
		cellSizeKm = 50
	}
	cellSizeDeg := cellSizeKm / kmPerDegree

	return &GridSearcher{
		catalog:      catalog,
		cellSizeDeg:  cellSizeDeg,
		cols:         int(math.Ceil(360 / cellSizeDeg)),
		rows:         int(math.Ceil(180 / cellSizeDeg)),
		refreshEvery: refreshEvery,
		now:          time.Now,
	}
}

// FindWithinRadius implements SpatialSearcher.
func (g *GridSearcher) FindWithinRadius(ctx context.Context, lat, lon, radiusKm float64) ([]models.Video, error) {
	if err := g.ensureFresh(ctx); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	centerX := g.colFor(lon)
	centerY := g.rowFor(lat)

	latCells := int(math.Ceil(radiusKm/kmPerDegree/g.cellSizeDeg)) + 1
	lonCells := g.lonCellSpan(lat, radiusKm)

	var results []models.Video
	seen := make(map[cellKey]struct{})

	for dy := -latCells; dy <= latCells; dy++ {
		y := centerY + dy
		if y < 0 || y >= g.rows {
			continue
		}
		for dx := -lonCells; dx <= lonCells; dx++ {
			// Wrap longitude columns so the search circle crosses the
			// antimeridian correctly.
			x := ((centerX+dx)%g.cols + g.cols) % g.cols

			key := cellKey{X: x, Y: y}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			for _, v := range g.cells[key] {
				if Distance(lat, lon, *v.Latitude, *v.Longitude) <= radiusKm {
					results = append(results, v)
				}
			}
		}
	}

	return results, nil
}

// ensureFresh rebuilds the index from the catalog when it is missing or
// older than refreshEvery. The fresh-index fast path takes only the read
// lock, so concurrent queries do not serialize on it.
func (g *GridSearcher) ensureFresh(ctx context.Context) error {
	g.mu.RLock()
	fresh := g.isFresh()
	g.mu.RUnlock()
	if fresh {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Another query may have rebuilt while we waited for the write lock.
	if g.isFresh() {
		return nil
	}

	videos, err := g.catalog.AllGeoTagged(ctx)
	if err != nil {
		// Keep serving the previous index on a failed refresh.
		if g.cells != nil {
			return nil
		}
		return fmt.Errorf("failed to build spatial index: %w", err)
	}

	cells := make(map[cellKey][]models.Video)
	for _, v := range videos {
		if !v.HasCoordinates() {
			continue
		}
		key := cellKey{X: g.colFor(*v.Longitude), Y: g.rowFor(*v.Latitude)}
		cells[key] = append(cells[key], v)
	}

	g.cells = cells
	g.lastRefresh = g.now()
	return nil
}

// isFresh reports whether the index exists and is within its refresh
// interval. Caller holds g.mu (either mode).
func (g *GridSearcher) isFresh() bool {
	return g.cells != nil && g.refreshEvery > 0 && g.now().Sub(g.lastRefresh) < g.refreshEvery
}

// colFor maps a longitude in [-180, 180] to a wrapped column index.
func (g *GridSearcher) colFor(lon float64) int {
	x := int(math.Floor((lon + 180) / g.cellSizeDeg))
	return ((x % g.cols) + g.cols) % g.cols
}

// rowFor maps a latitude in [-90, 90] to a row index.
func (g *GridSearcher) rowFor(lat float64) int {
	y := int(math.Floor((lat + 90) / g.cellSizeDeg))
	if y < 0 {
		y = 0
	}
	if y >= g.rows {
		y = g.rows - 1
	}
	return y
}

// lonCellSpan returns how many longitude columns to check on each side of
// the center column. Longitude degrees shrink toward the poles, so the span
// is computed at the most poleward latitude the circle can reach; near a
// pole the circle covers all columns.
func (g *GridSearcher) lonCellSpan(lat, radiusKm float64) int {
	maxAbsLat := math.Abs(lat) + radiusKm/kmPerDegree
	if maxAbsLat >= 89 {
		return g.cols / 2
	}

	kmPerLonDegree := kmPerDegree * math.Cos(maxAbsLat*math.Pi/180)
	span := int(math.Ceil(radiusKm/kmPerLonDegree/g.cellSizeDeg)) + 1
	if span > g.cols/2 {
		span = g.cols / 2
	}
	return span
}
