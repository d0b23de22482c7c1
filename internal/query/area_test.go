// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package query

import (
	"errors"
	"testing"
	"time"

	"github.com/nhartono/aiswatch/internal/config"
	"github.com/nhartono/aiswatch/internal/database"
	"github.com/nhartono/aiswatch/internal/geo"
)

// javaSeaBox covers the Jakarta roadstead seed positions.
var javaSeaBox = geo.BoundingBox{MinLon: 106, MaxLon: 108, MinLat: -7, MaxLat: -5}

func TestAreaCountCurrentOnly(t *testing.T) {
	svc, db := setupService(t)
	now := time.Now().UTC()

	seedCurrent(t, db, 525001001, -6.1, 106.85, now)
	seedCurrent(t, db, 525001002, -6.2, 106.90, now)
	seedCurrent(t, db, 311003003, 40.7, -74.0, now) // outside the box

	result, err := svc.AreaCount(t.Context(), javaSeaBox, DataTypeVessel, geo.TimeRange{})
	if err != nil {
		t.Fatalf("AreaCount failed: %v", err)
	}
	if result.TotalCount != 2 {
		t.Errorf("Expected 2 in box, got %d", result.TotalCount)
	}
	if result.Breakdown.CurrentVessels != 2 || result.Breakdown.ArchivedVessels != 0 {
		t.Errorf("Bad breakdown: %+v", result.Breakdown)
	}
	if result.Breakdown.UniqueVessels != 2 {
		t.Errorf("Expected 2 unique vessels, got %d", result.Breakdown.UniqueVessels)
	}
	if result.Density == "" || result.AreaKm2 <= 0 {
		t.Errorf("Missing density/area: %+v", result)
	}
}

func TestAreaCountAllCombinesAndDeduplicates(t *testing.T) {
	svc, db := setupService(t)
	now := time.Now().UTC()

	// Three current vessels, one of which also has two archive entries.
	seedCurrent(t, db, 525001001, -6.1, 106.85, now)
	seedCurrent(t, db, 525001002, -6.2, 106.90, now)
	seedCurrent(t, db, 525001003, -6.3, 106.95, now)
	seedLog(t, db, 525001001, -6.11, 106.86, now.Add(-time.Hour))
	seedLog(t, db, 525001001, -6.12, 106.87, now.Add(-2*time.Hour))

	result, err := svc.AreaCount(t.Context(), javaSeaBox, DataTypeAll, geo.TimeRange{})
	if err != nil {
		t.Fatalf("AreaCount failed: %v", err)
	}
	if result.TotalCount != 5 {
		t.Errorf("Expected 5 total (3 current + 2 archived), got %d", result.TotalCount)
	}
	if result.Breakdown.CurrentVessels != 3 || result.Breakdown.ArchivedVessels != 2 {
		t.Errorf("Bad breakdown: %+v", result.Breakdown)
	}
	if result.Breakdown.UniqueVessels != 3 {
		t.Errorf("Unique vessels must deduplicate across collections, got %d", result.Breakdown.UniqueVessels)
	}
}

func TestAreaCountThreeCurrentZeroArchived(t *testing.T) {
	svc, db := setupService(t)
	now := time.Now().UTC()

	seedCurrent(t, db, 525001001, -6.1, 106.85, now)
	seedCurrent(t, db, 525001002, -6.2, 106.90, now)
	seedCurrent(t, db, 525001003, -6.3, 106.95, now)

	result, err := svc.AreaCount(t.Context(), javaSeaBox, DataTypeAll, geo.TimeRange{})
	if err != nil {
		t.Fatalf("AreaCount failed: %v", err)
	}
	if result.TotalCount != 3 {
		t.Errorf("Expected total 3, got %d", result.TotalCount)
	}
	if result.Breakdown.CurrentVessels != 3 || result.Breakdown.ArchivedVessels != 0 {
		t.Errorf("Bad breakdown: %+v", result.Breakdown)
	}
}

func TestAreaValidationRejections(t *testing.T) {
	svc, _ := setupService(t)

	// Degenerate box: equal min and max longitude.
	_, err := svc.AreaCount(t.Context(),
		geo.BoundingBox{MinLon: 10, MaxLon: 10, MinLat: -5, MaxLat: 5},
		DataTypeVessel, geo.TimeRange{})
	if !errors.Is(err, geo.ErrInvalidBounds) {
		t.Errorf("Expected ErrInvalidBounds for degenerate box, got %v", err)
	}

	// Whole globe exceeds the area ceiling.
	_, err = svc.AreaCount(t.Context(),
		geo.BoundingBox{MinLon: -180, MaxLon: 180, MinLat: -90, MaxLat: 90},
		DataTypeVessel, geo.TimeRange{})
	if !errors.Is(err, geo.ErrAreaTooLarge) {
		t.Errorf("Expected ErrAreaTooLarge for whole globe, got %v", err)
	}

	// Bad date ordering.
	now := time.Now().UTC()
	earlier := now.Add(-time.Hour)
	_, err = svc.AreaCount(t.Context(), javaSeaBox, DataTypeVessel,
		geo.TimeRange{Start: &now, End: &earlier})
	if !errors.Is(err, geo.ErrInvalidDates) {
		t.Errorf("Expected ErrInvalidDates, got %v", err)
	}

	// Unknown data type selector.
	_, err = svc.AreaCount(t.Context(), javaSeaBox, "everything", geo.TimeRange{})
	if !errors.Is(err, ErrUnknownDataType) {
		t.Errorf("Expected ErrUnknownDataType, got %v", err)
	}
}

func TestAreaPageAllSplitsHalfAndHalf(t *testing.T) {
	svc, db := setupService(t)
	now := time.Now().UTC()

	for i := int64(0); i < 4; i++ {
		seedCurrent(t, db, 525001001+i, -6.1, 106.85, now.Add(-time.Duration(i)*time.Minute))
	}
	for i := int64(0); i < 4; i++ {
		seedLog(t, db, 525002001+i, -6.2, 106.90, now.Add(-time.Duration(i)*time.Hour))
	}

	result, err := svc.AreaPage(t.Context(), javaSeaBox, DataTypeAll, 1, 4)
	if err != nil {
		t.Fatalf("AreaPage failed: %v", err)
	}
	if len(result.Vessels) != 4 {
		t.Fatalf("Expected 4 vessels on the page, got %d", len(result.Vessels))
	}

	// First half current, second half archived, each independently sorted.
	if result.Vessels[0].Record != "current" || result.Vessels[1].Record != "current" {
		t.Errorf("First half must come from current state")
	}
	if result.Vessels[2].Record != "archived" || result.Vessels[3].Record != "archived" {
		t.Errorf("Second half must come from the archive")
	}
	if result.Pagination.Total != 8 {
		t.Errorf("Expected combined total 8, got %d", result.Pagination.Total)
	}
}

func TestAreaPageArchivedOnly(t *testing.T) {
	svc, db := setupService(t)
	now := time.Now().UTC()

	seedCurrent(t, db, 525001001, -6.1, 106.85, now)
	seedLog(t, db, 525002001, -6.2, 106.90, now.Add(-time.Hour))

	result, err := svc.AreaPage(t.Context(), javaSeaBox, DataTypeTrack, 1, 10)
	if err != nil {
		t.Fatalf("AreaPage failed: %v", err)
	}
	if len(result.Vessels) != 1 || result.Vessels[0].Record != "archived" {
		t.Errorf("Track data type must read archive only: %+v", result.Vessels)
	}
}

func TestAreaAllFetchesEveryPage(t *testing.T) {
	db, err := database.NewInMemory()
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})
	// Small page size forces multiple export pages.
	svc := New(db, &config.API{
		DefaultPageSize: 2,
		MaxPageSize:     1000,
		MaxExportTotal:  50_000,
		ExportPagePause: time.Millisecond,
	})
	now := time.Now().UTC()

	for i := int64(0); i < 5; i++ {
		seedCurrent(t, db, 525001001+i, -6.1, 106.85, now.Add(-time.Duration(i)*time.Minute))
	}

	result, err := svc.AreaAll(t.Context(), javaSeaBox, DataTypeVessel)
	if err != nil {
		t.Fatalf("AreaAll failed: %v", err)
	}
	if result.TotalFetched != 5 || result.ExpectedTotal != 5 {
		t.Errorf("Expected all 5 fetched, got %+v", result)
	}
	if result.TotalPages != 3 {
		t.Errorf("Expected 3 pages at size 2, got %d", result.TotalPages)
	}
	if !result.IsComplete {
		t.Errorf("Expected complete export, errors: %v", result.Errors)
	}

	seen := map[int64]bool{}
	for _, v := range result.Vessels {
		if seen[v.MMSI] {
			t.Errorf("Vessel %d fetched twice", v.MMSI)
		}
		seen[v.MMSI] = true
	}
}

func TestAreaAllRejectsOversizedDataset(t *testing.T) {
	db, err := database.NewInMemory()
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})
	svc := New(db, &config.API{
		DefaultPageSize: 100,
		MaxPageSize:     1000,
		MaxExportTotal:  2,
	})
	now := time.Now().UTC()

	for i := int64(0); i < 3; i++ {
		seedCurrent(t, db, 525001001+i, -6.1, 106.85, now)
	}

	_, err = svc.AreaAll(t.Context(), javaSeaBox, DataTypeVessel)
	if !errors.Is(err, ErrDatasetTooLarge) {
		t.Errorf("Expected ErrDatasetTooLarge, got %v", err)
	}
}

func TestQuickCount(t *testing.T) {
	svc, db := setupService(t)
	now := time.Now().UTC()

	seedCurrent(t, db, 525001001, -6.1, 106.85, now)
	seedLog(t, db, 525002001, -6.2, 106.90, now.Add(-time.Hour))

	count, err := svc.QuickCount(t.Context(), javaSeaBox, DataTypeAll, geo.TimeRange{})
	if err != nil {
		t.Fatalf("QuickCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected quick count 2, got %d", count)
	}
}
