// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

// Package geo answers radius queries over the video catalog.
//
// Two interchangeable strategies implement SpatialSearcher: a spatial-hash
// grid index with sub-linear queries, and an exhaustive haversine scan.
// Both are required to return the same result set for the same inputs; the
// strategy is selected once at startup via SpatialConfig.Strategy.
package geo

import "math"

// earthRadiusKm is the spherical-earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// kmPerDegree approximates one degree of latitude (or of longitude at the
// equator) in kilometers.
const kmPerDegree = 111.0

// Distance calculates the great-circle distance between two lat/lon points
// in kilometers using the haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
