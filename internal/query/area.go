// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package query

import (
	"context"
	"fmt"
	"time"

	"github.com/nhartono/aiswatch/internal/database"
	"github.com/nhartono/aiswatch/internal/geo"
	"github.com/nhartono/aiswatch/internal/metrics"
	"github.com/nhartono/aiswatch/internal/models"
)

// Area data type selectors. "vessel" reads current state only, "track" and
// "ais" read the archive, "all" reads both.
const (
	DataTypeVessel = "vessel"
	DataTypeTrack  = "track"
	DataTypeAIS    = "ais"
	DataTypeAll    = "all"
)

// perPageEstimateSeconds is the rough cost of one export page, used for the
// estimated-time hint in area counts.
const perPageEstimateSeconds = 0.5

// AreaBreakdown splits an area count by source collection.
type AreaBreakdown struct {
	CurrentVessels  int64 `json:"current_vessels"`
	ArchivedVessels int64 `json:"archived_vessels"`
	UniqueVessels   int64 `json:"unique_vessels"`
}

// AreaCountResult sizes an area query before the caller commits to paging
// through it.
type AreaCountResult struct {
	TotalCount       int64         `json:"total_count"`
	TotalPages       int           `json:"total_pages"`
	EstimatedSeconds float64       `json:"estimated_seconds"`
	AreaKm2          float64       `json:"area_km2"`
	Density          string        `json:"density"`
	Breakdown        AreaBreakdown `json:"breakdown"`
}

// AreaVessel is the unified record shape of area pages: current rows and
// archive entries share the kinematic fields and are tagged by Record.
type AreaVessel struct {
	MMSI        int64      `json:"mmsi"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Course      float64    `json:"course"`
	Speed       float64    `json:"speed"`
	Heading     *float64   `json:"heading,omitempty"`
	Name        *string    `json:"name,omitempty"`
	CallSign    *string    `json:"call_sign,omitempty"`
	Destination *string    `json:"destination,omitempty"`
	VesselType  int        `json:"vessel_type"`
	NavStatus   int        `json:"nav_status"`
	Source      string     `json:"source"`
	Timestamp   time.Time  `json:"timestamp"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
	UpdateCount *int64     `json:"update_count,omitempty"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
	Record      string     `json:"record"` // current | archived
}

// AreaStatistics accompanies every area page.
type AreaStatistics struct {
	AreaKm2   float64       `json:"area_km2"`
	Density   string        `json:"density"`
	Breakdown AreaBreakdown `json:"breakdown"`
}

// AreaPageResult is one page of an area export.
type AreaPageResult struct {
	Vessels    []AreaVessel      `json:"vessels"`
	Pagination models.Pagination `json:"pagination"`
	Statistics AreaStatistics    `json:"statistics"`
}

// AreaAllResult accumulates every page of an area export.
type AreaAllResult struct {
	Vessels       []AreaVessel `json:"vessels"`
	TotalFetched  int          `json:"total_fetched"`
	ExpectedTotal int64        `json:"expected_total"`
	TotalPages    int          `json:"total_pages"`
	Errors        []string     `json:"errors,omitempty"`
	IsComplete    bool         `json:"is_complete"`
}

// AreaCount sizes an area query: combined count, per-collection breakdown,
// density class, and a paging-time estimate.
func (s *Service) AreaCount(ctx context.Context, box geo.BoundingBox, dataType string, tr geo.TimeRange) (*AreaCountResult, error) {
	defer s.observe("area_count")()

	if err := s.validateArea(box, tr, dataType); err != nil {
		return nil, err
	}

	breakdown, err := s.areaBreakdown(ctx, box, dataType, tr)
	if err != nil {
		return nil, err
	}

	total := breakdown.CurrentVessels + breakdown.ArchivedVessels
	area := box.AreaKm2()
	pagination := models.NewPagination(1, s.cfg.DefaultPageSize, total)

	return &AreaCountResult{
		TotalCount:       total,
		TotalPages:       pagination.TotalPages,
		EstimatedSeconds: float64(pagination.TotalPages) * perPageEstimateSeconds,
		AreaKm2:          area,
		Density:          geo.ClassifyDensity(total, area),
		Breakdown:        *breakdown,
	}, nil
}

// QuickCount is the count-only fast path: no breakdown, no distinct pass.
func (s *Service) QuickCount(ctx context.Context, box geo.BoundingBox, dataType string, tr geo.TimeRange) (int64, error) {
	defer s.observe("quick_count")()

	if err := s.validateArea(box, tr, dataType); err != nil {
		return 0, err
	}
	filter := database.GeoTimeFilter{Box: &box, Time: tr}

	var total int64
	if dataType == DataTypeVessel || dataType == DataTypeAll {
		n, err := s.store.CountCurrent(ctx, filter)
		if err != nil {
			return 0, fmt.Errorf("failed to count current vessels: %w", err)
		}
		total += n
	}
	if dataType == DataTypeTrack || dataType == DataTypeAIS || dataType == DataTypeAll {
		n, err := s.store.CountLog(ctx, filter)
		if err != nil {
			return 0, fmt.Errorf("failed to count log entries: %w", err)
		}
		total += n
	}
	return total, nil
}

// AreaPage returns one page of an area export. For the "all" data type the
// page is split half current, half archived, each independently sorted and
// concatenated rather than merged chronologically.
func (s *Service) AreaPage(ctx context.Context, box geo.BoundingBox, dataType string, page, pageSize int) (*AreaPageResult, error) {
	defer s.observe("area_page")()

	if err := s.validateArea(box, geo.TimeRange{}, dataType); err != nil {
		return nil, err
	}
	page, pageSize = s.clampPage(page, pageSize)
	filter := database.GeoTimeFilter{Box: &box}

	breakdown, err := s.areaBreakdown(ctx, box, dataType, geo.TimeRange{})
	if err != nil {
		return nil, err
	}
	total := breakdown.CurrentVessels + breakdown.ArchivedVessels

	var vessels []AreaVessel
	switch dataType {
	case DataTypeVessel:
		current, err := s.store.FindCurrentInFilter(ctx, filter, pageSize, (page-1)*pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to page current vessels: %w", err)
		}
		vessels = appendCurrent(vessels, current)

	case DataTypeTrack, DataTypeAIS:
		entries, err := s.store.QueryLog(ctx, filter, "timestamp", "desc", pageSize, (page-1)*pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to page log entries: %w", err)
		}
		vessels = appendArchived(vessels, entries)

	case DataTypeAll:
		currentHalf := pageSize / 2
		archivedHalf := pageSize - currentHalf

		current, err := s.store.FindCurrentInFilter(ctx, filter, currentHalf, (page-1)*currentHalf)
		if err != nil {
			return nil, fmt.Errorf("failed to page current vessels: %w", err)
		}
		entries, err := s.store.QueryLog(ctx, filter, "timestamp", "desc", archivedHalf, (page-1)*archivedHalf)
		if err != nil {
			return nil, fmt.Errorf("failed to page log entries: %w", err)
		}
		vessels = appendCurrent(vessels, current)
		vessels = appendArchived(vessels, entries)
	}
	if vessels == nil {
		vessels = []AreaVessel{}
	}

	area := box.AreaKm2()
	return &AreaPageResult{
		Vessels:    vessels,
		Pagination: models.NewPagination(page, pageSize, total),
		Statistics: AreaStatistics{
			AreaKm2:   area,
			Density:   geo.ClassifyDensity(total, area),
			Breakdown: *breakdown,
		},
	}, nil
}

// AreaAll walks every page of an area export sequentially with a short
// pause between pages. Per-page failures are accumulated, not fatal;
// IsComplete is true only when no page failed. Counts above the export
// ceiling are rejected before the first page.
func (s *Service) AreaAll(ctx context.Context, box geo.BoundingBox, dataType string) (*AreaAllResult, error) {
	defer s.observe("area_all")()

	count, err := s.AreaCount(ctx, box, dataType, geo.TimeRange{})
	if err != nil {
		return nil, err
	}
	if count.TotalCount > s.cfg.MaxExportTotal {
		metrics.AreaQueriesRejected.WithLabelValues("dataset_too_large").Inc()
		return nil, fmt.Errorf("%w: %d matches > %d limit",
			ErrDatasetTooLarge, count.TotalCount, s.cfg.MaxExportTotal)
	}

	result := &AreaAllResult{
		ExpectedTotal: count.TotalCount,
		TotalPages:    count.TotalPages,
	}

	for page := 1; page <= count.TotalPages; page++ {
		if page > 1 && s.cfg.ExportPagePause > 0 {
			timer := time.NewTimer(s.cfg.ExportPagePause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return result, ctx.Err()
			case <-timer.C:
			}
		}

		pageResult, err := s.AreaPage(ctx, box, dataType, page, s.cfg.DefaultPageSize)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("page %d: %v", page, err))
			continue
		}
		result.Vessels = append(result.Vessels, pageResult.Vessels...)
	}

	result.TotalFetched = len(result.Vessels)
	result.IsComplete = len(result.Errors) == 0
	return result, nil
}

// validateArea runs every pre-storage invariant: box shape, area ceiling,
// date ordering, and a known data type.
func (s *Service) validateArea(box geo.BoundingBox, tr geo.TimeRange, dataType string) error {
	switch dataType {
	case DataTypeVessel, DataTypeTrack, DataTypeAIS, DataTypeAll:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDataType, dataType)
	}
	if err := box.Validate(); err != nil {
		metrics.AreaQueriesRejected.WithLabelValues("invalid_bounds").Inc()
		return err
	}
	if area := box.AreaKm2(); area > geo.MaxAreaKm2 {
		metrics.AreaQueriesRejected.WithLabelValues("area_too_large").Inc()
		return fmt.Errorf("%w: %.0f km² > %.0f km²", geo.ErrAreaTooLarge, area, geo.MaxAreaKm2)
	}
	if err := tr.Validate(); err != nil {
		metrics.AreaQueriesRejected.WithLabelValues("invalid_dates").Inc()
		return err
	}
	return nil
}

// areaBreakdown counts per-collection matches and distinct vessels.
func (s *Service) areaBreakdown(ctx context.Context, box geo.BoundingBox, dataType string, tr geo.TimeRange) (*AreaBreakdown, error) {
	filter := database.GeoTimeFilter{Box: &box, Time: tr}
	breakdown := &AreaBreakdown{}

	countCurrent := dataType == DataTypeVessel || dataType == DataTypeAll
	countArchived := dataType == DataTypeTrack || dataType == DataTypeAIS || dataType == DataTypeAll

	unique := make(map[int64]struct{})
	if countCurrent {
		n, err := s.store.CountCurrent(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to count current vessels: %w", err)
		}
		breakdown.CurrentVessels = n

		mmsis, err := s.store.DistinctCurrentMMSIs(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list current mmsis: %w", err)
		}
		for _, m := range mmsis {
			unique[m] = struct{}{}
		}
	}
	if countArchived {
		n, err := s.store.CountLog(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to count log entries: %w", err)
		}
		breakdown.ArchivedVessels = n

		mmsis, err := s.store.DistinctLogMMSIs(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list log mmsis: %w", err)
		}
		for _, m := range mmsis {
			unique[m] = struct{}{}
		}
	}
	breakdown.UniqueVessels = int64(len(unique))
	return breakdown, nil
}

func appendCurrent(out []AreaVessel, vessels []models.CurrentVessel) []AreaVessel {
	for i := range vessels {
		v := &vessels[i]
		lastUpdated := v.LastUpdated
		updateCount := v.UpdateCount
		out = append(out, AreaVessel{
			MMSI:        v.MMSI,
			Latitude:    v.Latitude,
			Longitude:   v.Longitude,
			Course:      v.Course,
			Speed:       v.Speed,
			Heading:     v.Heading,
			Name:        v.Name,
			CallSign:    v.CallSign,
			Destination: v.Destination,
			VesselType:  v.VesselType,
			NavStatus:   v.NavStatus,
			Source:      v.Source,
			Timestamp:   v.Timestamp,
			LastUpdated: &lastUpdated,
			UpdateCount: &updateCount,
			Record:      "current",
		})
	}
	return out
}

func appendArchived(out []AreaVessel, entries []models.VesselLogEntry) []AreaVessel {
	for i := range entries {
		e := &entries[i]
		archivedAt := e.ArchivedAt
		out = append(out, AreaVessel{
			MMSI:        e.MMSI,
			Latitude:    e.Latitude,
			Longitude:   e.Longitude,
			Course:      e.Course,
			Speed:       e.Speed,
			Heading:     e.Heading,
			Name:        e.Name,
			CallSign:    e.CallSign,
			Destination: e.Destination,
			VesselType:  e.VesselType,
			NavStatus:   e.NavStatus,
			Source:      e.Source,
			Timestamp:   e.Timestamp,
			ArchivedAt:  &archivedAt,
			Record:      "archived",
		})
	}
	return out
}
