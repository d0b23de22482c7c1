// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

// Package telkomsat defines the wire types of the Telkomsat AIS feed.
//
// The provider returns already-decoded AIS data, but every numeric field
// arrives as a string and any of them may be empty or carry the protocol's
// "not available" sentinel. Parsing and normalization into
// models.PositionReport lives in internal/collector.
package telkomsat

// Response is the provider's paginated envelope.
type Response struct {
	Code       int      `json:"code"`
	Message    string   `json:"message"`
	Data       []Record `json:"data"`
	Count      int      `json:"count"`
	TotalCount int      `json:"total_count"`
}

// Record is one raw vessel report. All numeric values are string-typed on
// the wire; empty strings mean "unknown".
type Record struct {
	MMSI        string     `json:"mmsi"`
	Latitude    string     `json:"lat"`
	Longitude   string     `json:"lon"`
	Course      string     `json:"cog"`
	Speed       string     `json:"sog"`
	Heading     string     `json:"heading"`
	Name        string     `json:"name"`
	CallSign    string     `json:"callsign"`
	Destination string     `json:"destination"`
	ETA         string     `json:"eta"`
	VesselType  string     `json:"type"`
	NavStatus   string     `json:"navstatus"`
	Timestamp   string     `json:"timestamp"`
	Dimension   *Dimension `json:"dimension,omitempty"`
}

// Dimension is the optional hull geometry block. A, B, C, D are the raw
// AIS reference-point offsets; Width and Length are provider-computed.
type Dimension struct {
	A      string `json:"a"`
	B      string `json:"b"`
	C      string `json:"c"`
	D      string `json:"d"`
	Width  string `json:"width"`
	Length string `json:"length"`
}
