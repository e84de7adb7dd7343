// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package geo

import (
	"math"
	"testing"
)

func TestDistance_KnownPairs(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKm                 float64
		tolerance              float64
	}{
		{"same point", 48.8566, 2.3522, 48.8566, 2.3522, 0, 0.001},
		{"Paris to London", 48.8566, 2.3522, 51.5074, -0.1278, 343.5, 2},
		{"Tokyo to Osaka", 35.6762, 139.6503, 34.6937, 135.5023, 396, 5},
		{"equator quarter circumference", 0, 0, 0, 90, 10007.5, 10},
		{"pole to pole", 90, 0, -90, 0, 20015, 10},
		{"across the antimeridian", 0, 179.5, 0, -179.5, 111.2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("Distance() = %v km, want %v km (±%v)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestDistance_Symmetric(t *testing.T) {
	d1 := Distance(35.6595, 139.7005, 52.5200, 13.4050)
	d2 := Distance(52.5200, 13.4050, 35.6595, 139.7005)

	if math.Abs(d1-d2) > 1e-9 {
		t.Errorf("Distance is not symmetric: %v vs %v", d1, d2)
	}
}
