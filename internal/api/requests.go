// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nhartono/aiswatch/internal/geo"
)

// LogRequest carries the validated historical-query parameters.
type LogRequest struct {
	MMSI      int64  `validate:"omitempty,mmsi"`
	Page      int    `validate:"min=0"`
	PageSize  int    `validate:"min=0,max=10000"`
	SortBy    string `validate:"omitempty,oneof=ts mmsi archived_at"`
	SortOrder string `validate:"omitempty,oneof=asc desc"`
}

// PlaybackRequest carries the validated track-playback parameters.
type PlaybackRequest struct {
	MMSI     int64 `validate:"required,mmsi"`
	Interval int   `validate:"min=0,max=1440"`
}

// AreaRequest carries the validated bounding-box query parameters.
type AreaRequest struct {
	MinLat   float64 `validate:"gte=-90,lte=90"`
	MaxLat   float64 `validate:"gte=-90,lte=90"`
	MinLon   float64 `validate:"gte=-180,lte=180"`
	MaxLon   float64 `validate:"gte=-180,lte=180"`
	DataType string  `validate:"omitempty,oneof=vessel track ais all"`
	Page     int     `validate:"min=0"`
	PageSize int     `validate:"min=0,max=10000"`
}

// BatchVesselsRequest is the POST body for a targeted upstream refresh.
type BatchVesselsRequest struct {
	MMSIs []int64 `json:"mmsis" validate:"required,min=1,max=100,dive,mmsi"`
}

// maxBatchReports caps the batch ingest body size.
const maxBatchReports = 1000

// getIntParam extracts an integer query parameter with a default value.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getInt64Param extracts an int64 query parameter, zero when absent or bad.
func getInt64Param(r *http.Request, key string) int64 {
	value := r.URL.Query().Get(key)
	if value == "" {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// getFloatParam extracts a float64 query parameter with a default value.
func getFloatParam(r *http.Request, key string, defaultValue float64) float64 {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// parseTimeParam parses an optional RFC3339 or "2006-01-02" query parameter.
// An absent parameter returns (nil, nil); a present but unparseable one is
// an error.
func parseTimeParam(r *http.Request, key string) (*time.Time, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid %s: %q", key, value)
}

// parseCommaSeparatedInt64s parses a comma-separated MMSI list, skipping
// blank and unparseable entries.
func parseCommaSeparatedInt64s(value string) []int64 {
	if value == "" {
		return nil
	}
	var result []int64
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			result = append(result, n)
		}
	}
	return result
}

// parseBoundingBox reads the four bounds parameters into a geo.BoundingBox.
// Range and ordering checks happen in the query service; this only decodes.
func parseBoundingBox(r *http.Request) geo.BoundingBox {
	return geo.BoundingBox{
		MinLat: getFloatParam(r, "min_lat", 0),
		MaxLat: getFloatParam(r, "max_lat", 0),
		MinLon: getFloatParam(r, "min_lon", 0),
		MaxLon: getFloatParam(r, "max_lon", 0),
	}
}
