// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package api

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vidpulse/vidpulse/internal/config"
)

func trendingDefaults() *config.TrendingConfig {
	return &config.TrendingConfig{
		DefaultWindowDays: 7,
		DefaultRadiusKm:   50,
		DefaultLimit:      10,
	}
}

func TestParseTrendingRequest_RequiresLatLon(t *testing.T) {
	for _, target := range []string{
		"/trending/local",
		"/trending/local?lat=35.6",
		"/trending/local?lon=139.7",
	} {
		r := httptest.NewRequest("GET", target, nil)
		if _, err := parseTrendingRequest(r, trendingDefaults()); err == nil {
			t.Errorf("%s: expected error for missing coordinates", target)
		}
	}
}

func TestParseTrendingRequest_AppliesDefaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/trending/local?lat=35.6&lon=139.7", nil)
	req, err := parseTrendingRequest(r, trendingDefaults())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Latitude != 35.6 || req.Longitude != 139.7 {
		t.Errorf("coordinates = (%v, %v), want (35.6, 139.7)", req.Latitude, req.Longitude)
	}
	if req.RadiusKm != 50 {
		t.Errorf("RadiusKm = %v, want default 50", req.RadiusKm)
	}
	if req.Days != 7 {
		t.Errorf("Days = %d, want default 7", req.Days)
	}
	if req.Limit != 10 {
		t.Errorf("Limit = %d, want default 10", req.Limit)
	}
}

func TestParseTrendingRequest_Overrides(t *testing.T) {
	r := httptest.NewRequest("GET", "/trending/local?lat=35.6&lon=139.7&radius_km=25&days=3&limit=5", nil)
	req, err := parseTrendingRequest(r, trendingDefaults())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.RadiusKm != 25 || req.Days != 3 || req.Limit != 5 {
		t.Errorf("got radius=%v days=%d limit=%d, want 25/3/5", req.RadiusKm, req.Days, req.Limit)
	}
}

func TestParseTrendingRequest_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"latitude above 90", "lat=90.5&lon=0"},
		{"latitude below -90", "lat=-91&lon=0"},
		{"longitude above 180", "lat=0&lon=180.5"},
		{"longitude below -180", "lat=0&lon=-181"},
		{"zero radius", "lat=0&lon=0&radius_km=0"},
		{"negative radius", "lat=0&lon=0&radius_km=-5"},
		{"radius above 500", "lat=0&lon=0&radius_km=501"},
		{"zero days", "lat=0&lon=0&days=0"},
		{"days above 30", "lat=0&lon=0&days=31"},
		{"zero limit", "lat=0&lon=0&limit=0"},
		{"limit above 100", "lat=0&lon=0&limit=101"},
		{"non-numeric latitude", "lat=tokyo&lon=0"},
		{"non-numeric radius", "lat=0&lon=0&radius_km=near"},
		{"non-numeric days", "lat=0&lon=0&days=week"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/trending/local?"+tt.query, nil)
			if _, err := parseTrendingRequest(r, trendingDefaults()); err == nil {
				t.Errorf("query %q: expected rejection", tt.query)
			}
		})
	}
}

func TestParseTrendingRequest_BoundaryValuesAccepted(t *testing.T) {
	// Extremes of every range are valid, including the poles and the
	// antimeridian.
	queries := []string{
		"lat=90&lon=180&radius_km=500&days=30&limit=100",
		"lat=-90&lon=-180&radius_km=0.1&days=1&limit=1",
	}
	for _, q := range queries {
		r := httptest.NewRequest("GET", "/trending/local?"+q, nil)
		if _, err := parseTrendingRequest(r, trendingDefaults()); err != nil {
			t.Errorf("query %q: unexpected rejection: %v", q, err)
		}
	}
}

func TestParseTrendingRequest_ValidationMessageNamesField(t *testing.T) {
	r := httptest.NewRequest("GET", "/trending/local?lat=99&lon=0", nil)
	_, err := parseTrendingRequest(r, trendingDefaults())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Latitude") {
		t.Errorf("error %q should name the offending field", err.Error())
	}
}

func TestTrendingRequest_Query(t *testing.T) {
	req := &TrendingRequest{
		Latitude:  52.52,
		Longitude: 13.405,
		RadiusKm:  30,
		Days:      5,
		Limit:     20,
	}
	q := req.Query()
	if q.Latitude != 52.52 || q.Longitude != 13.405 {
		t.Errorf("coordinates not carried over: %+v", q)
	}
	if q.RadiusKm != 30 || q.WindowDays != 5 || q.Limit != 20 {
		t.Errorf("parameters not carried over: %+v", q)
	}
}
