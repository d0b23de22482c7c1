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
	"github.com/nhartono/aiswatch/internal/models"
)

func testAPIConfig() *config.API {
	return &config.API{
		DefaultPageSize: 100,
		MaxPageSize:     1000,
		MaxExportTotal:  50_000,
		ExportPagePause: 0,
	}
}

func setupService(t *testing.T) (*Service, *database.DB) {
	t.Helper()
	db, err := database.NewInMemory()
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})
	return New(db, testAPIConfig()), db
}

func seedCurrent(t *testing.T, db *database.DB, mmsi int64, lat, lon float64, ts time.Time) {
	t.Helper()
	r := &models.PositionReport{
		MMSI:      mmsi,
		Latitude:  lat,
		Longitude: lon,
		Course:    90,
		Speed:     10,
		Source:    models.SourceTelkomsat,
		Timestamp: ts,
	}
	if err := db.UpsertCurrent(t.Context(), r, ts); err != nil {
		t.Fatalf("Failed to seed vessel %d: %v", mmsi, err)
	}
}

func seedLog(t *testing.T, db *database.DB, mmsi int64, lat, lon float64, ts time.Time) {
	t.Helper()
	v := &models.CurrentVessel{
		MMSI: mmsi, Latitude: lat, Longitude: lon,
		Course: 90, Speed: 10,
		Source: models.SourceTelkomsat, Timestamp: ts,
	}
	entry := models.LogEntryFromCurrent(v, models.ArchiveReasonScheduledUpdate, ts)
	if err := db.InsertLogEntry(t.Context(), entry); err != nil {
		t.Fatalf("Failed to seed log entry for %d: %v", mmsi, err)
	}
}

func TestCurrentSortedByRecency(t *testing.T) {
	svc, db := setupService(t)
	now := time.Now().UTC()

	seedCurrent(t, db, 525001001, -6.1, 106.85, now.Add(-time.Hour))
	seedCurrent(t, db, 563002002, 1.25, 103.85, now)

	vessels, err := svc.Current(t.Context(), 0)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if len(vessels) != 2 {
		t.Fatalf("Expected 2 vessels, got %d", len(vessels))
	}
	if vessels[0].MMSI != 563002002 {
		t.Errorf("Expected most recently updated vessel first, got %d", vessels[0].MMSI)
	}

	limited, err := svc.Current(t.Context(), 1)
	if err != nil {
		t.Fatalf("Current with limit failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("Limit not applied, got %d vessels", len(limited))
	}
}

func TestQueryLogPaginationEnvelope(t *testing.T) {
	svc, db := setupService(t)
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		seedLog(t, db, 525001001, -6.1, 106.85, now.Add(-time.Duration(i)*time.Minute))
	}

	result, err := svc.QueryLog(t.Context(), LogFilter{
		MMSI:     525001001,
		Page:     2,
		PageSize: 2,
	})
	if err != nil {
		t.Fatalf("QueryLog failed: %v", err)
	}
	if len(result.Data) != 2 {
		t.Errorf("Expected page of 2, got %d", len(result.Data))
	}
	p := result.Pagination
	if p.Page != 2 || p.PageSize != 2 || p.Total != 5 || p.TotalPages != 3 {
		t.Errorf("Bad pagination block: %+v", p)
	}
	if !p.HasNext || !p.HasPrev {
		t.Errorf("Expected middle page to have both neighbors: %+v", p)
	}
}

func TestQueryLogSingleMMSIWinsOverList(t *testing.T) {
	svc, db := setupService(t)
	now := time.Now().UTC()

	seedLog(t, db, 525001001, -6.1, 106.85, now)
	seedLog(t, db, 563002002, 1.25, 103.85, now)

	result, err := svc.QueryLog(t.Context(), LogFilter{
		MMSI:  525001001,
		MMSIs: []int64{525001001, 563002002},
	})
	if err != nil {
		t.Fatalf("QueryLog failed: %v", err)
	}
	if len(result.Data) != 1 || result.Data[0].MMSI != 525001001 {
		t.Errorf("Single mmsi must take precedence over the list: %+v", result.Data)
	}
}

func TestQueryLogRejectsBadDateOrder(t *testing.T) {
	svc, _ := setupService(t)
	now := time.Now().UTC()
	earlier := now.Add(-time.Hour)

	_, err := svc.QueryLog(t.Context(), LogFilter{Start: &now, End: &earlier})
	if !errors.Is(err, geo.ErrInvalidDates) {
		t.Errorf("Expected ErrInvalidDates, got %v", err)
	}
}

func TestPlaybackFullResolution(t *testing.T) {
	svc, db := setupService(t)
	now := time.Now().UTC()

	for i := 0; i < 4; i++ {
		seedLog(t, db, 525001001, -6.1, 106.85, now.Add(-time.Duration(i)*time.Minute))
	}

	points, err := svc.Playback(t.Context(), 525001001, now.Add(-time.Hour), now, 1)
	if err != nil {
		t.Fatalf("Playback failed: %v", err)
	}
	if len(points) != 4 {
		t.Errorf("Interval <= 1 must return every point, got %d", len(points))
	}
}

func TestPlaybackGreedySampling(t *testing.T) {
	svc, db := setupService(t)
	base := time.Now().UTC().Add(-2 * time.Hour)

	// Points at 0, 2, 4, 6, 11, 12 minutes.
	for _, m := range []int{0, 2, 4, 6, 11, 12} {
		seedLog(t, db, 525001001, -6.1, 106.85, base.Add(time.Duration(m)*time.Minute))
	}

	points, err := svc.Playback(t.Context(), 525001001, base.Add(-time.Minute), base.Add(time.Hour), 5)
	if err != nil {
		t.Fatalf("Playback failed: %v", err)
	}

	// Greedy pass keeps 0, 6 (first gap >= 5m), 11.
	if len(points) != 3 {
		t.Fatalf("Expected 3 sampled points, got %d", len(points))
	}
	if !points[0].Timestamp.Equal(base) {
		t.Errorf("First raw point must always be kept")
	}
	for i := 1; i < len(points); i++ {
		gap := points[i].Timestamp.Sub(points[i-1].Timestamp)
		if gap < 5*time.Minute {
			t.Errorf("Gap %s between kept points falls short of the interval", gap)
		}
	}
}

func TestPlaybackRejectsBadWindow(t *testing.T) {
	svc, _ := setupService(t)
	now := time.Now().UTC()

	_, err := svc.Playback(t.Context(), 525001001, now, now, 5)
	if !errors.Is(err, geo.ErrInvalidDates) {
		t.Errorf("Expected ErrInvalidDates for equal bounds, got %v", err)
	}
}

func TestSamplePointsEmptyTrack(t *testing.T) {
	if got := samplePoints(nil, 5*time.Minute); len(got) != 0 {
		t.Errorf("Empty track must stay empty, got %d", len(got))
	}
}

func TestStats(t *testing.T) {
	svc, db := setupService(t)
	now := time.Now().UTC()

	seedCurrent(t, db, 525001001, -6.1, 106.85, now.Add(-10*time.Minute))
	seedCurrent(t, db, 563002002, 1.25, 103.85, now.Add(-3*time.Hour))
	seedLog(t, db, 525001001, -6.1, 106.85, now.Add(-time.Hour))

	stats, err := svc.Stats(t.Context())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.CurrentVessels != 2 || stats.LogEntries != 1 {
		t.Errorf("Bad counts: %+v", stats)
	}
	if stats.SeenLastHour != 1 || stats.SeenLastDay != 2 {
		t.Errorf("Bad recency counts: %+v", stats)
	}
	if len(stats.Sources) != 1 || stats.Sources[0] != models.SourceTelkomsat {
		t.Errorf("Bad sources: %v", stats.Sources)
	}
}
