// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package database

import (
	"strings"

	"github.com/nhartono/aiswatch/internal/geo"
)

// GeoTimeFilter is the predicate language shared by both vessel stores.
// All set fields combine with AND. A single MMSI takes precedence over an
// MMSI list when both are given.
type GeoTimeFilter struct {
	Box     *geo.BoundingBox
	Time    geo.TimeRange
	MMSI    int64
	MMSIs   []int64
	Source  string
	Status  string // vessel_log only
}

// timeColumn selects which timestamp column the time window applies to.
// The current table filters on report time (ts); so does the log.
const timeColumn = "ts"

// buildFilterConditions builds WHERE clause conditions and args from a
// GeoTimeFilter. Returns parallel slices usable in parameterized queries.
func buildFilterConditions(f GeoTimeFilter) ([]string, []interface{}) {
	whereClauses := []string{}
	args := []interface{}{}

	if f.Box != nil {
		whereClauses = append(whereClauses,
			"longitude >= ?", "longitude <= ?",
			"latitude >= ?", "latitude <= ?")
		args = append(args, f.Box.MinLon, f.Box.MaxLon, f.Box.MinLat, f.Box.MaxLat)
	}

	if f.Time.Start != nil {
		whereClauses = append(whereClauses, timeColumn+" >= ?")
		args = append(args, *f.Time.Start)
	}
	if f.Time.End != nil {
		whereClauses = append(whereClauses, timeColumn+" <= ?")
		args = append(args, *f.Time.End)
	}

	// Single MMSI wins over a list when both are set.
	switch {
	case f.MMSI != 0:
		whereClauses = append(whereClauses, "mmsi = ?")
		args = append(args, f.MMSI)
	case len(f.MMSIs) > 0:
		placeholders := make([]string, len(f.MMSIs))
		for i, m := range f.MMSIs {
			placeholders[i] = "?"
			args = append(args, m)
		}
		whereClauses = append(whereClauses, "mmsi IN ("+strings.Join(placeholders, ", ")+")")
	}

	if f.Source != "" {
		whereClauses = append(whereClauses, "source = ?")
		args = append(args, f.Source)
	}
	if f.Status != "" {
		whereClauses = append(whereClauses, "status = ?")
		args = append(args, f.Status)
	}

	return whereClauses, args
}

// buildFilterWhereClause wraps buildFilterConditions into a single WHERE
// clause string with a "1=1" base for safe AND concatenation.
func buildFilterWhereClause(f GeoTimeFilter) (string, []interface{}) {
	clauses, args := buildFilterConditions(f)
	if len(clauses) == 0 {
		return "1=1", args
	}
	return "1=1 AND " + strings.Join(clauses, " AND "), args
}

// logSortColumns whitelists sortable columns for log queries. Anything not
// listed falls back to report time.
var logSortColumns = map[string]string{
	"timestamp":   "ts",
	"ts":          "ts",
	"archived_at": "archived_at",
	"mmsi":        "mmsi",
	"speed":       "speed",
}

// sortClause builds an ORDER BY fragment from user-provided sort params.
// Column names never come from user input directly.
func sortClause(sortBy, sortOrder string) string {
	column, ok := logSortColumns[strings.ToLower(sortBy)]
	if !ok {
		column = "ts"
	}
	direction := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		direction = "ASC"
	}
	return "ORDER BY " + column + " " + direction
}
