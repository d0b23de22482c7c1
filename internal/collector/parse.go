// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package collector

import (
	"strconv"
	"strings"
	"time"

	"github.com/nhartono/aiswatch/internal/logging"
	"github.com/nhartono/aiswatch/internal/metrics"
	"github.com/nhartono/aiswatch/internal/models"
	"github.com/nhartono/aiswatch/internal/models/telkomsat"
)

// headingUnavailable is the raw AIS sentinel for "heading not available".
const headingUnavailable = 511

// timestampLayouts are tried in order when parsing the feed's report time.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// parseRecords converts raw feed records into validated position reports.
// Invalid records are dropped and counted; they never fail the page.
func parseRecords(records []telkomsat.Record, now time.Time) []models.PositionReport {
	reports := make([]models.PositionReport, 0, len(records))
	for i := range records {
		r, ok := parseRecord(&records[i], now)
		if !ok {
			continue
		}
		reports = append(reports, *r)
	}
	return reports
}

// parseRecord validates and normalizes one raw record. Returns false when
// the record is unusable: missing mmsi or coordinates, out-of-range
// coordinates, non-positive mmsi, or an unparseable non-empty timestamp.
func parseRecord(rec *telkomsat.Record, now time.Time) (*models.PositionReport, bool) {
	if strings.TrimSpace(rec.MMSI) == "" ||
		strings.TrimSpace(rec.Latitude) == "" ||
		strings.TrimSpace(rec.Longitude) == "" {
		metrics.RejectedReports.WithLabelValues("missing_field").Inc()
		return nil, false
	}

	mmsi, err := strconv.ParseInt(strings.TrimSpace(rec.MMSI), 10, 64)
	if err != nil || mmsi <= 0 {
		metrics.RejectedReports.WithLabelValues("bad_mmsi").Inc()
		logging.Debug().Str("mmsi", rec.MMSI).Msg("rejected record with bad mmsi")
		return nil, false
	}

	lat, latErr := strconv.ParseFloat(strings.TrimSpace(rec.Latitude), 64)
	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(rec.Longitude), 64)
	if latErr != nil || lonErr != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		metrics.RejectedReports.WithLabelValues("bad_coordinates").Inc()
		logging.Debug().
			Int64("mmsi", mmsi).
			Str("lat", rec.Latitude).
			Str("lon", rec.Longitude).
			Msg("rejected record with bad coordinates")
		return nil, false
	}

	ts, ok := parseTimestamp(rec.Timestamp, now)
	if !ok {
		metrics.RejectedReports.WithLabelValues("bad_timestamp").Inc()
		logging.Debug().Int64("mmsi", mmsi).Str("timestamp", rec.Timestamp).
			Msg("rejected record with unparseable timestamp")
		return nil, false
	}

	report := &models.PositionReport{
		MMSI:        mmsi,
		Latitude:    lat,
		Longitude:   lon,
		Course:      parseFloatOrZero(rec.Course),
		Speed:       parseFloatOrZero(rec.Speed),
		Heading:     parseHeading(rec.Heading),
		Name:        optionalString(rec.Name),
		CallSign:    optionalString(rec.CallSign),
		Destination: optionalString(rec.Destination),
		ETA:         optionalString(rec.ETA),
		VesselType:  models.NormalizeVesselType(parseIntOr(rec.VesselType, models.VesselTypeUnknown)),
		NavStatus:   models.NormalizeNavStatus(parseIntOr(rec.NavStatus, models.NavStatusUnknown)),
		Source:      models.SourceTelkomsat,
		Timestamp:   ts,
	}

	if rec.Dimension != nil {
		report.Length = optionalPositiveFloat(rec.Dimension.Length)
		report.Width = optionalPositiveFloat(rec.Dimension.Width)
	}

	return report, true
}

// parseTimestamp parses the feed's report time. An empty value falls back
// to the collection time; a non-empty value that parses under no known
// layout is a rejection.
func parseTimestamp(raw string, now time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.UTC(), true
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseHeading parses the heading field, mapping the 511 sentinel and any
// unparseable value to unset.
func parseHeading(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	h, err := strconv.ParseFloat(raw, 64)
	if err != nil || h == headingUnavailable || h < 0 || h > 360 {
		return nil
	}
	return &h
}

// optionalString trims a raw field; empty or whitespace-only becomes unset.
func optionalString(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func optionalPositiveFloat(raw string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || f <= 0 {
		return nil
	}
	return &f
}

func parseFloatOrZero(raw string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return f
}

func parseIntOr(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return n
}

// dedupeReports collapses duplicate MMSIs, keeping the report with the most
// recent timestamp on collision. Order of first appearance is preserved.
func dedupeReports(reports []models.PositionReport) []models.PositionReport {
	index := make(map[int64]int, len(reports))
	out := make([]models.PositionReport, 0, len(reports))
	for i := range reports {
		r := reports[i]
		if pos, seen := index[r.MMSI]; seen {
			if r.Timestamp.After(out[pos].Timestamp) {
				out[pos] = r
			}
			continue
		}
		index[r.MMSI] = len(out)
		out = append(out, r)
	}
	return out
}
