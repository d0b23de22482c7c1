// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/nhartono/aiswatch/internal/collector"
)

// CollectNow triggers one standard collection run. Answers 409 when a run
// is already in progress.
//
// Method: POST
// Path: /api/v1/admin/collect
func (h *Handler) CollectNow(w http.ResponseWriter, r *http.Request) {
	if !h.requireCollector(w) {
		return
	}
	start := time.Now()

	result, err := h.collector.Collect(r.Context())
	if err != nil {
		if errors.Is(err, collector.ErrCollectionInProgress) {
			respondQueryError(w, err)
			return
		}
		respondError(w, http.StatusBadGateway, codeUpstream, "Collection failed", err)
		return
	}
	respondSuccess(w, result, start)
}

// CollectAggressive triggers one aggressive collection run with full page
// fan-out. Answers 409 when a run is already in progress.
//
// Method: POST
// Path: /api/v1/admin/collect/aggressive
func (h *Handler) CollectAggressive(w http.ResponseWriter, r *http.Request) {
	if !h.requireCollector(w) {
		return
	}
	start := time.Now()

	result, err := h.collector.RunAggressive(r.Context())
	if err != nil {
		if errors.Is(err, collector.ErrCollectionInProgress) {
			respondQueryError(w, err)
			return
		}
		respondError(w, http.StatusBadGateway, codeUpstream, "Aggressive collection failed", err)
		return
	}
	respondSuccess(w, result, start)
}

// CollectorStatus reports the busy flag and the last run's outcome.
//
// Method: GET
// Path: /api/v1/admin/collector
func (h *Handler) CollectorStatus(w http.ResponseWriter, r *http.Request) {
	if !h.requireCollector(w) {
		return
	}
	respondSuccess(w, h.collector.Status(), time.Now())
}

// Cleanup triggers one retention pass over the vessel log.
//
// Method: POST
// Path: /api/v1/admin/cleanup
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	if h.cleaner == nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Retention cleaner not available", nil)
		return
	}
	start := time.Now()

	deleted, err := h.cleaner.RunOnce(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeDatabase, "Cleanup failed", err)
		return
	}
	respondSuccess(w, map[string]interface{}{
		"deleted": deleted,
	}, start)
}
