// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/nhartono/aiswatch/internal/logging"
	"github.com/nhartono/aiswatch/internal/models"
	"github.com/nhartono/aiswatch/internal/query"
	"github.com/nhartono/aiswatch/internal/reconcile"
)

// Health reports process liveness, database reachability, and channel
// fan-out state.
//
// Method: GET
// Path: /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	httpStatus := http.StatusOK

	dbStatus := "ok"
	if h.db == nil {
		dbStatus = "unavailable"
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	} else if err := h.db.Ping(r.Context()); err != nil {
		logging.Error().Err(err).Msg("Health check database ping failed")
		dbStatus = "error"
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	payload := map[string]interface{}{
		"status":         status,
		"database":       dbStatus,
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
	}
	if h.hub != nil {
		payload["websocket_clients"] = h.hub.ClientCount()
	}
	if h.collector != nil {
		payload["collector"] = h.collector.Status()
	}

	respondJSON(w, httpStatus, &models.APIResponse{
		Status:   "success",
		Data:     payload,
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// Vessels returns the current fleet state, newest report first.
//
// Method: GET
// Path: /api/v1/vessels
// Query: limit (optional, 0 = all)
func (h *Handler) Vessels(w http.ResponseWriter, r *http.Request) {
	if !h.requireDB(w) {
		return
	}
	start := time.Now()

	limit := getIntParam(r, "limit", 0)
	vessels, err := h.query.Current(r.Context(), limit)
	if err != nil {
		respondQueryError(w, err)
		return
	}

	respondSuccess(w, map[string]interface{}{
		"vessels": vessels,
		"count":   len(vessels),
	}, start)
}

// Vessel returns one vessel's current state by MMSI.
//
// Method: GET
// Path: /api/v1/vessels/{mmsi}
func (h *Handler) Vessel(w http.ResponseWriter, r *http.Request) {
	if !h.requireDB(w) {
		return
	}
	start := time.Now()

	mmsi, ok := h.pathMMSI(w, r)
	if !ok {
		return
	}

	vessel, err := h.query.Vessel(r.Context(), mmsi)
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondSuccess(w, vessel, start)
}

// VesselsRefresh triggers a targeted upstream fetch for an explicit MMSI
// list and reconciles the results before responding.
//
// Method: POST
// Path: /api/v1/vessels/refresh
// Body: {"mmsis": [525001001, ...]}
func (h *Handler) VesselsRefresh(w http.ResponseWriter, r *http.Request) {
	if !h.requireCollector(w) {
		return
	}

	var req BatchVesselsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, "Invalid request body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	start := time.Now()
	result, err := h.collector.FetchVessels(r.Context(), req.MMSIs)
	if err != nil {
		respondError(w, http.StatusBadGateway, codeUpstream, "Targeted vessel fetch failed", err)
		return
	}
	respondSuccess(w, result, start)
}

// VesselsBatch ingests an array of position reports through the
// reconciliation engine. Reports with an invalid MMSI are rejected up
// front; per-report reconciliation failures are returned in the result
// without aborting the batch. With mode=bulk the archiving step is skipped
// and reports are upserted directly.
//
// Method: POST
// Path: /api/v1/vessels/batch
// Query: mode (optional: "bulk")
// Body: [{"mmsi": 525001001, "latitude": -6.1, ...}, ...]
func (h *Handler) VesselsBatch(w http.ResponseWriter, r *http.Request) {
	if !h.requireDB(w) {
		return
	}
	if h.engine == nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Reconciliation engine not available", nil)
		return
	}

	var reports []models.PositionReport
	if err := json.NewDecoder(r.Body).Decode(&reports); err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, "Invalid request body", err)
		return
	}
	if len(reports) == 0 || len(reports) > maxBatchReports {
		respondError(w, http.StatusBadRequest, codeValidation,
			fmt.Sprintf("batch must contain 1-%d reports", maxBatchReports), nil)
		return
	}
	for i := range reports {
		if reports[i].MMSI <= 0 || reports[i].MMSI > 999_999_999 {
			respondError(w, http.StatusBadRequest, codeValidation,
				fmt.Sprintf("report %d: invalid mmsi %d", i, reports[i].MMSI), nil)
			return
		}
		if reports[i].Timestamp.IsZero() {
			reports[i].Timestamp = time.Now().UTC()
		}
		if reports[i].Source == "" {
			reports[i].Source = models.SourceManual
		}
	}

	start := time.Now()
	var (
		result *reconcile.Result
		err    error
	)
	if r.URL.Query().Get("mode") == "bulk" {
		result, err = h.engine.ReconcileBulk(r.Context(), reports)
	} else {
		result, err = h.engine.Reconcile(r.Context(), reports)
	}
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondSuccess(w, result, start)
}

// Log returns a page of archived vessel history.
//
// Method: GET
// Path: /api/v1/log
// Query: mmsi, mmsis, start, end, source, page, page_size, sort_by, sort_order
func (h *Handler) Log(w http.ResponseWriter, r *http.Request) {
	if !h.requireDB(w) {
		return
	}

	req := LogRequest{
		MMSI:      getInt64Param(r, "mmsi"),
		Page:      getIntParam(r, "page", 0),
		PageSize:  getIntParam(r, "page_size", 0),
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("sort_order"),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	startT, err := parseTimeParam(r, "start")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	endT, err := parseTimeParam(r, "end")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}

	start := time.Now()
	result, err := h.query.QueryLog(r.Context(), query.LogFilter{
		MMSI:      req.MMSI,
		MMSIs:     parseCommaSeparatedInt64s(r.URL.Query().Get("mmsis")),
		Start:     startT,
		End:       endT,
		Source:    r.URL.Query().Get("source"),
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondSuccess(w, result, start)
}

// Playback returns a sampled historical track for one vessel.
//
// Method: GET
// Path: /api/v1/playback
// Query: mmsi (required), start (required), end (required), interval (minutes)
func (h *Handler) Playback(w http.ResponseWriter, r *http.Request) {
	if !h.requireDB(w) {
		return
	}

	req := PlaybackRequest{
		MMSI:     getInt64Param(r, "mmsi"),
		Interval: getIntParam(r, "interval", 0),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	startT, err := parseTimeParam(r, "start")
	if err != nil || startT == nil {
		respondError(w, http.StatusBadRequest, codeValidation, "start is required (RFC3339)", nil)
		return
	}
	endT, err := parseTimeParam(r, "end")
	if err != nil || endT == nil {
		respondError(w, http.StatusBadRequest, codeValidation, "end is required (RFC3339)", nil)
		return
	}

	start := time.Now()
	points, err := h.query.Playback(r.Context(), req.MMSI, *startT, *endT, req.Interval)
	if err != nil {
		respondQueryError(w, err)
		return
	}

	respondSuccess(w, map[string]interface{}{
		"mmsi":             req.MMSI,
		"points":           points,
		"count":            len(points),
		"interval_minutes": req.Interval,
	}, start)
}

// Stats returns fleet-wide statistics.
//
// Method: GET
// Path: /api/v1/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if !h.requireDB(w) {
		return
	}
	start := time.Now()

	stats, err := h.query.Stats(r.Context())
	if err != nil {
		respondQueryError(w, err)
		return
	}

	if h.collector != nil {
		if status := h.collector.Status(); status.LastRun != nil {
			stats.LastCollection = status.LastRun
		}
	}
	respondSuccess(w, stats, start)
}

// pathMMSI extracts and validates the {mmsi} path segment.
func (h *Handler) pathMMSI(w http.ResponseWriter, r *http.Request) (int64, bool) {
	mmsi, err := strconv.ParseInt(chi.URLParam(r, "mmsi"), 10, 64)
	if err != nil || mmsi <= 0 {
		respondError(w, http.StatusBadRequest, codeValidation, "mmsi must be a positive integer", nil)
		return 0, false
	}
	return mmsi, true
}
