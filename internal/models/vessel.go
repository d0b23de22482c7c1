// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

// Package models defines the core data types shared across the application:
// the current-state vessel row, the append-only archive entry, the parsed
// position report produced by the collector, and the API response envelope.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Report provenance tags.
const (
	// SourceTelkomsat marks reports ingested from the Telkomsat AIS feed.
	SourceTelkomsat = "telkomsat"
	// SourceManual marks reports posted through the batch ingest endpoint.
	SourceManual = "manual"
)

// Vessel log lifecycle states.
const (
	LogStatusActive   = "active"
	LogStatusArchived = "archived"
	LogStatusPurged   = "purged"
)

// ArchiveReasonScheduledUpdate tags log entries created when a newer report
// displaces a vessel's current state during reconciliation.
const ArchiveReasonScheduledUpdate = "scheduled_update"

// CurrentVessel is the most recent known state of one vessel, keyed by MMSI.
// There is at most one row per MMSI at any time; rows are created on first
// sighting and overwritten in place on every subsequent sighting.
//
// Optional identity and voyage fields are pointers: nil means the upstream
// feed did not provide a usable value (empty, whitespace-only, or the
// protocol's "not available" sentinel).
type CurrentVessel struct {
	MMSI        int64      `json:"mmsi"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Course      float64    `json:"course"`
	Speed       float64    `json:"speed"`
	Heading     *float64   `json:"heading,omitempty"`
	Name        *string    `json:"name,omitempty"`
	CallSign    *string    `json:"call_sign,omitempty"`
	Destination *string    `json:"destination,omitempty"`
	ETA         *string    `json:"eta,omitempty"`
	Length      *float64   `json:"length,omitempty"`
	Width       *float64   `json:"width,omitempty"`
	VesselType  int        `json:"vessel_type"`
	NavStatus   int        `json:"nav_status"`
	Source      string     `json:"source"`
	Timestamp   time.Time  `json:"timestamp"`
	LastUpdated time.Time  `json:"last_updated"`
	UpdateCount int64      `json:"update_count"`
}

// VesselLogEntry is an immutable historical snapshot of a vessel's state,
// created when reconciliation displaces an existing CurrentVessel row.
// Entries are append-only; only the retention cleanup job deletes them.
type VesselLogEntry struct {
	ID          uuid.UUID `json:"id"`
	MMSI        int64     `json:"mmsi"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Course      float64   `json:"course"`
	Speed       float64   `json:"speed"`
	Heading     *float64  `json:"heading,omitempty"`
	Name        *string   `json:"name,omitempty"`
	CallSign    *string   `json:"call_sign,omitempty"`
	Destination *string   `json:"destination,omitempty"`
	ETA         *string   `json:"eta,omitempty"`
	Length      *float64  `json:"length,omitempty"`
	Width       *float64  `json:"width,omitempty"`
	VesselType  int       `json:"vessel_type"`
	NavStatus   int       `json:"nav_status"`
	Source      string    `json:"source"`
	Timestamp   time.Time `json:"timestamp"`

	ArchivedAt    time.Time `json:"archived_at"`
	ArchiveReason string    `json:"archive_reason"`
	Status        string    `json:"status"`
}

// PositionReport is one validated, normalized position report ready for
// reconciliation. The collector produces these from the upstream wire
// format; the batch ingest endpoint accepts them directly.
type PositionReport struct {
	MMSI        int64     `json:"mmsi"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Course      float64   `json:"course"`
	Speed       float64   `json:"speed"`
	Heading     *float64  `json:"heading,omitempty"`
	Name        *string   `json:"name,omitempty"`
	CallSign    *string   `json:"call_sign,omitempty"`
	Destination *string   `json:"destination,omitempty"`
	ETA         *string   `json:"eta,omitempty"`
	Length      *float64  `json:"length,omitempty"`
	Width       *float64  `json:"width,omitempty"`
	VesselType  int       `json:"vessel_type"`
	NavStatus   int       `json:"nav_status"`
	Source      string    `json:"source"`
	Timestamp   time.Time `json:"timestamp"`
}

// TrackPoint is one point of a vessel's historical track, returned by the
// playback query in time-ascending order.
type TrackPoint struct {
	MMSI      int64     `json:"mmsi"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Course    float64   `json:"course"`
	Speed     float64   `json:"speed"`
	Timestamp time.Time `json:"timestamp"`
}

// LogEntryFromCurrent freezes a current-state row into a new archive entry.
func LogEntryFromCurrent(v *CurrentVessel, reason string, archivedAt time.Time) *VesselLogEntry {
	return &VesselLogEntry{
		ID:            uuid.New(),
		MMSI:          v.MMSI,
		Latitude:      v.Latitude,
		Longitude:     v.Longitude,
		Course:        v.Course,
		Speed:         v.Speed,
		Heading:       v.Heading,
		Name:          v.Name,
		CallSign:      v.CallSign,
		Destination:   v.Destination,
		ETA:           v.ETA,
		Length:        v.Length,
		Width:         v.Width,
		VesselType:    v.VesselType,
		NavStatus:     v.NavStatus,
		Source:        v.Source,
		Timestamp:     v.Timestamp,
		ArchivedAt:    archivedAt,
		ArchiveReason: reason,
		Status:        LogStatusArchived,
	}
}

// CurrentFromReport builds the current-state row a report upserts to.
// updateCount is the previous counter value plus one, or one on first sighting.
func CurrentFromReport(r *PositionReport, updateCount int64, lastUpdated time.Time) *CurrentVessel {
	source := r.Source
	if source == "" {
		source = SourceTelkomsat
	}
	return &CurrentVessel{
		MMSI:        r.MMSI,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Course:      r.Course,
		Speed:       r.Speed,
		Heading:     r.Heading,
		Name:        r.Name,
		CallSign:    r.CallSign,
		Destination: r.Destination,
		ETA:         r.ETA,
		Length:      r.Length,
		Width:       r.Width,
		VesselType:  r.VesselType,
		NavStatus:   r.NavStatus,
		Source:      source,
		Timestamp:   r.Timestamp,
		LastUpdated: lastUpdated,
		UpdateCount: updateCount,
	}
}
