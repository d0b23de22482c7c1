// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package query

import (
	"context"
	"fmt"
	"time"

	"github.com/nhartono/aiswatch/internal/geo"
	"github.com/nhartono/aiswatch/internal/models"
)

// Playback returns a vessel's archived track in [start, end], time
// ascending, thinned by greedy forward sampling. intervalMinutes <= 1
// returns every point at full resolution.
func (s *Service) Playback(ctx context.Context, mmsi int64, start, end time.Time, intervalMinutes int) ([]models.TrackPoint, error) {
	defer s.observe("playback")()

	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start date must be before end date", geo.ErrInvalidDates)
	}

	points, err := s.store.TrackPoints(ctx, mmsi, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load track for vessel %d: %w", mmsi, err)
	}
	if intervalMinutes <= 1 {
		return points, nil
	}
	return samplePoints(points, time.Duration(intervalMinutes)*time.Minute), nil
}

// samplePoints thins a time-ascending track: the first point is always
// kept, and a later point is kept only when its gap since the last kept
// point is at least the interval. A single stateful pass, not a fixed-grid
// resample, so gaps can exceed the interval but never fall short of it.
func samplePoints(points []models.TrackPoint, interval time.Duration) []models.TrackPoint {
	if len(points) == 0 {
		return points
	}

	kept := []models.TrackPoint{points[0]}
	lastKept := points[0].Timestamp
	for _, p := range points[1:] {
		if p.Timestamp.Sub(lastKept) >= interval {
			kept = append(kept, p)
			lastKept = p.Timestamp
		}
	}
	return kept
}
