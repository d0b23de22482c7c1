// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core tables and indexes.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		// Current state: exactly one row per MMSI, overwritten in place.
		`CREATE TABLE IF NOT EXISTS current_vessels (
			mmsi BIGINT PRIMARY KEY,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			course DOUBLE NOT NULL,
			speed DOUBLE NOT NULL,
			heading DOUBLE,
			name TEXT,
			call_sign TEXT,
			destination TEXT,
			eta TEXT,
			length DOUBLE,
			width DOUBLE,
			vessel_type INTEGER NOT NULL DEFAULT 0,
			nav_status INTEGER NOT NULL DEFAULT 15,
			source TEXT NOT NULL DEFAULT 'telkomsat',
			ts TIMESTAMP NOT NULL,
			last_updated TIMESTAMP NOT NULL,
			update_count BIGINT NOT NULL DEFAULT 1
		)`,

		// Append-only archive of displaced current-state rows.
		`CREATE TABLE IF NOT EXISTS vessel_log (
			id UUID PRIMARY KEY,
			mmsi BIGINT NOT NULL,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			course DOUBLE NOT NULL,
			speed DOUBLE NOT NULL,
			heading DOUBLE,
			name TEXT,
			call_sign TEXT,
			destination TEXT,
			eta TEXT,
			length DOUBLE,
			width DOUBLE,
			vessel_type INTEGER NOT NULL DEFAULT 0,
			nav_status INTEGER NOT NULL DEFAULT 15,
			source TEXT NOT NULL DEFAULT 'telkomsat',
			ts TIMESTAMP NOT NULL,
			archived_at TIMESTAMP NOT NULL,
			archive_reason TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'archived'
		)`,

		`CREATE INDEX IF NOT EXISTS idx_current_last_updated ON current_vessels (last_updated DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_current_position ON current_vessels (latitude, longitude)`,
		`CREATE INDEX IF NOT EXISTS idx_log_mmsi_ts ON vessel_log (mmsi, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_log_position ON vessel_log (latitude, longitude)`,
		`CREATE INDEX IF NOT EXISTS idx_log_archived_at ON vessel_log (archived_at)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}
