// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nhartono/aiswatch/internal/logging"
	"github.com/nhartono/aiswatch/internal/models"
)

// ErrVesselNotFound is returned when no current-state row exists for an MMSI.
var ErrVesselNotFound = errors.New("vessel not found")

const currentColumns = `mmsi, latitude, longitude, course, speed, heading,
	name, call_sign, destination, eta, length, width,
	vessel_type, nav_status, source, ts, last_updated, update_count`

// FindCurrent looks up the current-state row for one MMSI.
func (db *DB) FindCurrent(ctx context.Context, mmsi int64) (*models.CurrentVessel, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+currentColumns+` FROM current_vessels WHERE mmsi = ?`, mmsi)

	v, err := scanCurrent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: mmsi %d", ErrVesselNotFound, mmsi)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find current vessel %d: %w", mmsi, err)
	}
	return v, nil
}

// UpsertCurrent creates or replaces the current-state row for the report's
// MMSI. On conflict every field is overwritten and update_count increments
// by exactly one; a fresh row starts at one.
func (db *DB) UpsertCurrent(ctx context.Context, r *models.PositionReport, now time.Time) error {
	source := r.Source
	if source == "" {
		source = models.SourceTelkomsat
	}

	query := `INSERT INTO current_vessels (
		mmsi, latitude, longitude, course, speed, heading,
		name, call_sign, destination, eta, length, width,
		vessel_type, nav_status, source, ts, last_updated, update_count
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	ON CONFLICT (mmsi) DO UPDATE SET
		latitude = excluded.latitude,
		longitude = excluded.longitude,
		course = excluded.course,
		speed = excluded.speed,
		heading = excluded.heading,
		name = excluded.name,
		call_sign = excluded.call_sign,
		destination = excluded.destination,
		eta = excluded.eta,
		length = excluded.length,
		width = excluded.width,
		vessel_type = excluded.vessel_type,
		nav_status = excluded.nav_status,
		source = excluded.source,
		ts = excluded.ts,
		last_updated = excluded.last_updated,
		update_count = current_vessels.update_count + 1`

	_, err := db.conn.ExecContext(ctx, query,
		r.MMSI, r.Latitude, r.Longitude, r.Course, r.Speed, nullFloat(r.Heading),
		nullString(r.Name), nullString(r.CallSign), nullString(r.Destination),
		nullString(r.ETA), nullFloat(r.Length), nullFloat(r.Width),
		r.VesselType, r.NavStatus, source, r.Timestamp, now)
	if err != nil {
		return fmt.Errorf("failed to upsert vessel %d: %w", r.MMSI, err)
	}
	return nil
}

// BulkUpsertCurrent upserts every report with continue-on-error semantics:
// a failed report is recorded and skipped, never aborting the rest.
// Returns the number of successful upserts and per-report error messages.
func (db *DB) BulkUpsertCurrent(ctx context.Context, reports []models.PositionReport, now time.Time) (int, []string) {
	stored := 0
	var errs []string
	for i := range reports {
		if err := db.UpsertCurrent(ctx, &reports[i], now); err != nil {
			errs = append(errs, fmt.Sprintf("mmsi %d: %v", reports[i].MMSI, err))
			continue
		}
		stored++
	}
	return stored, errs
}

// CurrentVessels returns the current fleet sorted by last_updated
// descending. limit <= 0 returns every row.
func (db *DB) CurrentVessels(ctx context.Context, limit int) ([]models.CurrentVessel, error) {
	query := `SELECT ` + currentColumns + ` FROM current_vessels ORDER BY last_updated DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query current vessels: %w", err)
	}
	defer closeRows(rows)

	return collectCurrent(rows)
}

// FindCurrentInFilter returns current-state rows matching the filter,
// sorted by last_updated descending with skip/limit pagination.
func (db *DB) FindCurrentInFilter(ctx context.Context, f GeoTimeFilter, limit, offset int) ([]models.CurrentVessel, error) {
	where, args := buildFilterWhereClause(f)
	query := fmt.Sprintf(
		`SELECT %s FROM current_vessels WHERE %s ORDER BY last_updated DESC LIMIT ? OFFSET ?`,
		currentColumns, where)
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query current vessels by filter: %w", err)
	}
	defer closeRows(rows)

	return collectCurrent(rows)
}

// CountCurrent counts current-state rows matching the filter.
func (db *DB) CountCurrent(ctx context.Context, f GeoTimeFilter) (int64, error) {
	where, args := buildFilterWhereClause(f)
	var count int64
	err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM current_vessels WHERE "+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count current vessels: %w", err)
	}
	return count, nil
}

// DistinctCurrentMMSIs returns the distinct MMSIs matching the filter.
func (db *DB) DistinctCurrentMMSIs(ctx context.Context, f GeoTimeFilter) ([]int64, error) {
	where, args := buildFilterWhereClause(f)
	rows, err := db.conn.QueryContext(ctx,
		"SELECT DISTINCT mmsi FROM current_vessels WHERE "+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct current mmsis: %w", err)
	}
	defer closeRows(rows)

	return collectMMSIs(rows)
}

// CountCurrentSince counts vessels whose report time falls within the last
// given duration, used by the statistics endpoint.
func (db *DB) CountCurrentSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM current_vessels WHERE ts >= ?", since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent vessels: %w", err)
	}
	return count, nil
}

// DistinctSources returns every distinct provenance tag in the current table.
func (db *DB) DistinctSources(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT DISTINCT source FROM current_vessels ORDER BY source")
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct sources: %w", err)
	}
	defer closeRows(rows)

	var sources []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows for the shared scan helpers.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCurrent(s scanner) (*models.CurrentVessel, error) {
	var v models.CurrentVessel
	var heading, length, width sql.NullFloat64
	var name, callSign, destination, eta sql.NullString

	err := s.Scan(&v.MMSI, &v.Latitude, &v.Longitude, &v.Course, &v.Speed, &heading,
		&name, &callSign, &destination, &eta, &length, &width,
		&v.VesselType, &v.NavStatus, &v.Source, &v.Timestamp, &v.LastUpdated, &v.UpdateCount)
	if err != nil {
		return nil, err
	}

	v.Heading = floatPtr(heading)
	v.Length = floatPtr(length)
	v.Width = floatPtr(width)
	v.Name = stringPtr(name)
	v.CallSign = stringPtr(callSign)
	v.Destination = stringPtr(destination)
	v.ETA = stringPtr(eta)
	return &v, nil
}

func collectCurrent(rows *sql.Rows) ([]models.CurrentVessel, error) {
	var vessels []models.CurrentVessel
	for rows.Next() {
		v, err := scanCurrent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan current vessel: %w", err)
		}
		vessels = append(vessels, *v)
	}
	return vessels, rows.Err()
}

func collectMMSIs(rows *sql.Rows) ([]int64, error) {
	var mmsis []int64
	for rows.Next() {
		var m int64
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("failed to scan mmsi: %w", err)
		}
		mmsis = append(mmsis, m)
	}
	return mmsis, rows.Err()
}

func nullFloat(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullString(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logging.Warn().Err(err).Msg("failed to close rows")
	}
}
