// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package models

import (
	"time"
)

// APIResponse is the standardized envelope returned by every HTTP endpoint.
//
// Status is "success" or "error". Data carries the payload on success;
// Error is populated only on failure. Metadata is always present so callers
// can track query latency.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError carries a machine-readable code plus a human-readable message.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Pagination describes one page of a paginated result set.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// NewPagination derives the full pagination block from page, size, and total.
func NewPagination(page, pageSize int, total int64) Pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// FleetStats summarizes the stored fleet for the statistics endpoint.
type FleetStats struct {
	CurrentVessels int64      `json:"current_vessels"`
	LogEntries     int64      `json:"log_entries"`
	SeenLastHour   int64      `json:"seen_last_hour"`
	SeenLastDay    int64      `json:"seen_last_day"`
	Sources        []string   `json:"sources"`
	LastCollection *time.Time `json:"last_collection,omitempty"`
}
