// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package database

import (
	"testing"
	"time"

	"github.com/nhartono/aiswatch/internal/models"
)

// testDBSemaphore serializes DuckDB usage across the package. Concurrent
// CGO connections under CI resource pressure can hang, so only one test
// holds a live database at a time.
var testDBSemaphore = make(chan struct{}, 1)

// setupTestDB creates an in-memory test database held exclusively for the
// duration of the test.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	db, err := NewInMemory()
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})
	return db
}

func checkNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func float64Ptr(f float64) *float64 { return &f }
func stringVal(s string) *string    { return &s }

// testReport builds a minimal valid position report for an MMSI.
func testReport(mmsi int64, lat, lon float64, ts time.Time) *models.PositionReport {
	return &models.PositionReport{
		MMSI:       mmsi,
		Latitude:   lat,
		Longitude:  lon,
		Course:     90.0,
		Speed:      12.5,
		VesselType: 70,
		NavStatus:  0,
		Source:     models.SourceTelkomsat,
		Timestamp:  ts,
	}
}

// insertTestFleet seeds three current-state vessels spread across the
// Java Sea, Singapore Strait, and the North Atlantic.
func insertTestFleet(t *testing.T, db *DB, now time.Time) {
	t.Helper()
	ctx := t.Context()

	reports := []*models.PositionReport{
		testReport(525001001, -6.10, 106.85, now.Add(-5*time.Minute)),  // Jakarta roads
		testReport(563002002, 1.25, 103.85, now.Add(-10*time.Minute)),  // Singapore
		testReport(311003003, 40.70, -74.00, now.Add(-2*time.Hour)),    // New York
	}
	for _, r := range reports {
		checkNoError(t, db.UpsertCurrent(ctx, r, now))
	}
}
