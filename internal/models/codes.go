// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package models

// Classification code defaults applied when the upstream feed reports a
// code outside the known tables.
const (
	VesselTypeUnknown = 0  // "not available" per ITU-R M.1371
	NavStatusUnknown  = 15 // "undefined" per ITU-R M.1371
)

// vesselTypeNames maps AIS ship-type codes to display names. The table is
// intentionally static; unknown codes fall back to VesselTypeUnknown.
var vesselTypeNames = map[int]string{
	0:  "Not Available",
	20: "Wing In Ground",
	30: "Fishing",
	31: "Towing",
	32: "Towing (Long)",
	33: "Dredging",
	34: "Diving Ops",
	35: "Military Ops",
	36: "Sailing",
	37: "Pleasure Craft",
	40: "High Speed Craft",
	50: "Pilot Vessel",
	51: "Search And Rescue",
	52: "Tug",
	53: "Port Tender",
	54: "Anti-Pollution",
	55: "Law Enforcement",
	58: "Medical Transport",
	60: "Passenger",
	70: "Cargo",
	71: "Cargo (Hazard A)",
	72: "Cargo (Hazard B)",
	73: "Cargo (Hazard C)",
	74: "Cargo (Hazard D)",
	80: "Tanker",
	81: "Tanker (Hazard A)",
	82: "Tanker (Hazard B)",
	83: "Tanker (Hazard C)",
	84: "Tanker (Hazard D)",
	90: "Other",
}

// navStatusNames maps AIS navigational status codes to display names.
var navStatusNames = map[int]string{
	0:  "Under Way Using Engine",
	1:  "At Anchor",
	2:  "Not Under Command",
	3:  "Restricted Manoeuvrability",
	4:  "Constrained By Draught",
	5:  "Moored",
	6:  "Aground",
	7:  "Engaged In Fishing",
	8:  "Under Way Sailing",
	11: "Towing Astern",
	12: "Pushing Ahead",
	14: "AIS-SART Active",
	15: "Undefined",
}

// NormalizeVesselType returns the code itself when known, or
// VesselTypeUnknown for codes outside the table. Passenger, cargo, and
// tanker subtype codes (61-69, 75-79, 85-89) collapse to their decade base.
func NormalizeVesselType(code int) int {
	if _, ok := vesselTypeNames[code]; ok {
		return code
	}
	base := code - code%10
	if base == 60 || base == 70 || base == 80 {
		return base
	}
	return VesselTypeUnknown
}

// NormalizeNavStatus returns the code itself when known, or
// NavStatusUnknown for codes outside the table.
func NormalizeNavStatus(code int) int {
	if _, ok := navStatusNames[code]; ok {
		return code
	}
	return NavStatusUnknown
}

// VesselTypeName returns the display name for a ship-type code.
func VesselTypeName(code int) string {
	if name, ok := vesselTypeNames[code]; ok {
		return name
	}
	return vesselTypeNames[VesselTypeUnknown]
}

// NavStatusName returns the display name for a navigational status code.
func NavStatusName(code int) string {
	if name, ok := navStatusNames[code]; ok {
		return name
	}
	return navStatusNames[NavStatusUnknown]
}
