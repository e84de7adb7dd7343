// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/vidpulse/vidpulse/internal/config"
	"github.com/vidpulse/vidpulse/internal/trending"
)

// validate is a reusable validator instance
var validate = validator.New()

// TrendingRequest carries the query parameters of a trending request.
// Bounds are enforced here, at the edge; downstream components assume
// validated inputs.
type TrendingRequest struct {
	Latitude  float64 `validate:"min=-90,max=90"`
	Longitude float64 `validate:"min=-180,max=180"`
	RadiusKm  float64 `validate:"gt=0,max=500"`
	Days      int     `validate:"min=1,max=30"`
	Limit     int     `validate:"min=1,max=100"`
}

// parseTrendingRequest reads and validates the trending query parameters,
// substituting configured defaults for omitted optional ones. Latitude and
// longitude are required.
func parseTrendingRequest(r *http.Request, defaults *config.TrendingConfig) (*TrendingRequest, error) {
	q := r.URL.Query()

	if q.Get("lat") == "" || q.Get("lon") == "" {
		return nil, fmt.Errorf("lat and lon query parameters are required")
	}

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid lat: %q", q.Get("lat"))
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid lon: %q", q.Get("lon"))
	}

	req := &TrendingRequest{
		Latitude:  lat,
		Longitude: lon,
		RadiusKm:  defaults.DefaultRadiusKm,
		Days:      defaults.DefaultWindowDays,
		Limit:     defaults.DefaultLimit,
	}

	if v := q.Get("radius_km"); v != "" {
		req.RadiusKm, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid radius_km: %q", v)
		}
	}
	if v := q.Get("days"); v != "" {
		req.Days, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid days: %q", v)
		}
	}
	if v := q.Get("limit"); v != "" {
		req.Limit, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid limit: %q", v)
		}
	}

	if err := validate.Struct(req); err != nil {
		return nil, validationMessage(err)
	}
	return req, nil
}

// Query converts the validated request into an engine query.
func (req *TrendingRequest) Query() trending.Query {
	return trending.Query{
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		RadiusKm:   req.RadiusKm,
		WindowDays: req.Days,
		Limit:      req.Limit,
	}
}

// decodeJSON decodes a request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// validationMessage flattens validator errors into a single client-facing
// message naming the offending fields.
func validationMessage(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msg := "validation failed:"
	for _, fe := range verrs {
		msg += fmt.Sprintf(" %s out of range;", fe.Field())
	}
	return fmt.Errorf("%s", msg[:len(msg)-1])
}
