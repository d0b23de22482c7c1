// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

// Package geo implements the pure bounding-box and time-window primitives
// used by the query service: validation, approximate area computation, and
// density classification. It has no storage or transport dependencies.
package geo

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// MaxAreaKm2 is the hard rejection threshold for bounding-box queries.
// Requests covering more than this are refused before touching storage.
const MaxAreaKm2 = 1_000_000.0

// Approximate kilometres per degree at the equator. The area formula is an
// estimate for rejection and density classification, not geodesic-exact.
const (
	kmPerDegreeLon = 111.32
	kmPerDegreeLat = 110.54
)

// Validation errors surfaced to callers before any storage access.
var (
	ErrInvalidBounds = errors.New("invalid bounding box")
	ErrInvalidDates  = errors.New("invalid date range")
	ErrAreaTooLarge  = errors.New("bounding box area exceeds limit")
)

// BoundingBox is a caller-specified rectangular geographic filter.
type BoundingBox struct {
	MinLon float64 `json:"min_longitude"`
	MaxLon float64 `json:"max_longitude"`
	MinLat float64 `json:"min_latitude"`
	MaxLat float64 `json:"max_latitude"`
}

// TimeRange is an optional [Start, End) query window. Nil pointers mean
// the bound is open.
type TimeRange struct {
	Start *time.Time
	End   *time.Time
}

// Validate checks the box invariants: min strictly below max on both axes
// and all values inside the valid coordinate ranges.
func (b BoundingBox) Validate() error {
	if b.MinLon < -180 || b.MaxLon > 180 {
		return fmt.Errorf("%w: longitude out of range [-180, 180]", ErrInvalidBounds)
	}
	if b.MinLat < -90 || b.MaxLat > 90 {
		return fmt.Errorf("%w: latitude out of range [-90, 90]", ErrInvalidBounds)
	}
	if b.MinLon >= b.MaxLon {
		return fmt.Errorf("%w: min_longitude must be less than max_longitude", ErrInvalidBounds)
	}
	if b.MinLat >= b.MaxLat {
		return fmt.Errorf("%w: min_latitude must be less than max_latitude", ErrInvalidBounds)
	}
	return nil
}

// ValidateWithLimit validates the box and rejects it when the approximate
// area exceeds MaxAreaKm2.
func (b BoundingBox) ValidateWithLimit() error {
	if err := b.Validate(); err != nil {
		return err
	}
	if area := b.AreaKm2(); area > MaxAreaKm2 {
		return fmt.Errorf("%w: %.0f km² > %.0f km²", ErrAreaTooLarge, area, MaxAreaKm2)
	}
	return nil
}

// AreaKm2 returns the approximate area of the box in square kilometres.
// Longitude distance shrinks by the cosine of the mean latitude.
func (b BoundingBox) AreaKm2() float64 {
	meanLat := (b.MinLat + b.MaxLat) / 2
	lonKm := math.Abs(b.MaxLon-b.MinLon) * kmPerDegreeLon * math.Cos(meanLat*math.Pi/180)
	latKm := math.Abs(b.MaxLat-b.MinLat) * kmPerDegreeLat
	return lonKm * latKm
}

// Contains reports whether a point lies inside the box (inclusive bounds).
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Validate checks the optional window ordering when both ends are set.
func (r TimeRange) Validate() error {
	if r.Start != nil && r.End != nil && !r.Start.Before(*r.End) {
		return fmt.Errorf("%w: start date must be before end date", ErrInvalidDates)
	}
	return nil
}

// Density classification bands, in vessels per km².
const (
	DensitySparse    = "sparse"
	DensityModerate  = "moderate"
	DensityDense     = "dense"
	DensityVeryDense = "very-dense"
	DensityUndefined = "undefined"
)

// ClassifyDensity buckets a vessel count over an area into a density class.
// A zero area yields DensityUndefined rather than dividing by zero.
func ClassifyDensity(count int64, areaKm2 float64) string {
	if areaKm2 <= 0 {
		return DensityUndefined
	}
	density := float64(count) / areaKm2
	switch {
	case density < 0.1:
		return DensitySparse
	case density < 1:
		return DensityModerate
	case density < 10:
		return DensityDense
	default:
		return DensityVeryDense
	}
}
