// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhartono/aiswatch/internal/models"
)

const logColumns = `id, mmsi, latitude, longitude, course, speed, heading,
	name, call_sign, destination, eta, length, width,
	vessel_type, nav_status, source, ts, archived_at, archive_reason, status`

// InsertLogEntry appends one archive entry. Entries are immutable after
// creation; only the retention cleanup deletes them.
func (db *DB) InsertLogEntry(ctx context.Context, e *models.VesselLogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	query := `INSERT INTO vessel_log (
		id, mmsi, latitude, longitude, course, speed, heading,
		name, call_sign, destination, eta, length, width,
		vessel_type, nav_status, source, ts, archived_at, archive_reason, status
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.conn.ExecContext(ctx, query,
		e.ID, e.MMSI, e.Latitude, e.Longitude, e.Course, e.Speed, nullFloat(e.Heading),
		nullString(e.Name), nullString(e.CallSign), nullString(e.Destination),
		nullString(e.ETA), nullFloat(e.Length), nullFloat(e.Width),
		e.VesselType, e.NavStatus, e.Source, e.Timestamp,
		e.ArchivedAt, e.ArchiveReason, e.Status)
	if err != nil {
		return fmt.Errorf("failed to insert log entry for vessel %d: %w", e.MMSI, err)
	}
	return nil
}

// QueryLog returns archive entries matching the filter with sort and
// skip/limit pagination.
func (db *DB) QueryLog(ctx context.Context, f GeoTimeFilter, sortBy, sortOrder string, limit, offset int) ([]models.VesselLogEntry, error) {
	where, args := buildFilterWhereClause(f)
	query := fmt.Sprintf(`SELECT %s FROM vessel_log WHERE %s %s LIMIT ? OFFSET ?`,
		logColumns, where, sortClause(sortBy, sortOrder))
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vessel log: %w", err)
	}
	defer closeRows(rows)

	return collectLog(rows)
}

// CountLog counts archive entries matching the filter.
func (db *DB) CountLog(ctx context.Context, f GeoTimeFilter) (int64, error) {
	where, args := buildFilterWhereClause(f)
	var count int64
	err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vessel_log WHERE "+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count vessel log: %w", err)
	}
	return count, nil
}

// DistinctLogMMSIs returns the distinct MMSIs matching the filter.
func (db *DB) DistinctLogMMSIs(ctx context.Context, f GeoTimeFilter) ([]int64, error) {
	where, args := buildFilterWhereClause(f)
	rows, err := db.conn.QueryContext(ctx,
		"SELECT DISTINCT mmsi FROM vessel_log WHERE "+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct log mmsis: %w", err)
	}
	defer closeRows(rows)

	return collectMMSIs(rows)
}

// TrackPoints returns one vessel's archived positions in a time window,
// ascending by report time. This is the raw input of playback sampling.
func (db *DB) TrackPoints(ctx context.Context, mmsi int64, start, end time.Time) ([]models.TrackPoint, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT mmsi, latitude, longitude, course, speed, ts
		 FROM vessel_log
		 WHERE mmsi = ? AND ts >= ? AND ts <= ?
		 ORDER BY ts ASC`, mmsi, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query track points for vessel %d: %w", mmsi, err)
	}
	defer closeRows(rows)

	var points []models.TrackPoint
	for rows.Next() {
		var p models.TrackPoint
		if err := rows.Scan(&p.MMSI, &p.Latitude, &p.Longitude, &p.Course, &p.Speed, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan track point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// DeleteExpiredLogEntries removes archived entries older than the cutoff.
// Only entries already in the archived state are eligible.
func (db *DB) DeleteExpiredLogEntries(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM vessel_log WHERE status = ? AND archived_at < ?`,
		models.LogStatusArchived, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired log entries: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read deleted row count: %w", err)
	}
	return deleted, nil
}

func scanLog(s scanner) (*models.VesselLogEntry, error) {
	var e models.VesselLogEntry
	var heading, length, width sql.NullFloat64
	var name, callSign, destination, eta sql.NullString

	err := s.Scan(&e.ID, &e.MMSI, &e.Latitude, &e.Longitude, &e.Course, &e.Speed, &heading,
		&name, &callSign, &destination, &eta, &length, &width,
		&e.VesselType, &e.NavStatus, &e.Source, &e.Timestamp,
		&e.ArchivedAt, &e.ArchiveReason, &e.Status)
	if err != nil {
		return nil, err
	}

	e.Heading = floatPtr(heading)
	e.Length = floatPtr(length)
	e.Width = floatPtr(width)
	e.Name = stringPtr(name)
	e.CallSign = stringPtr(callSign)
	e.Destination = stringPtr(destination)
	e.ETA = stringPtr(eta)
	return &e, nil
}

func collectLog(rows *sql.Rows) ([]models.VesselLogEntry, error) {
	var entries []models.VesselLogEntry
	for rows.Next() {
		e, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
