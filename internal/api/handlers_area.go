// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package api

import (
	"net/http"
	"time"

	"github.com/nhartono/aiswatch/internal/geo"
	"github.com/nhartono/aiswatch/internal/query"
)

// parseAreaRequest decodes and validates the shared bounding-box
// parameters. dataType defaults to "all".
func (h *Handler) parseAreaRequest(w http.ResponseWriter, r *http.Request) (*AreaRequest, geo.BoundingBox, bool) {
	box := parseBoundingBox(r)
	req := AreaRequest{
		MinLat:   box.MinLat,
		MaxLat:   box.MaxLat,
		MinLon:   box.MinLon,
		MaxLon:   box.MaxLon,
		DataType: r.URL.Query().Get("data_type"),
		Page:     getIntParam(r, "page", 0),
		PageSize: getIntParam(r, "page_size", 0),
	}
	if req.DataType == "" {
		req.DataType = query.DataTypeAll
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return nil, box, false
	}
	return &req, box, true
}

// parseAreaTimeRange reads the optional start/end window.
func parseAreaTimeRange(w http.ResponseWriter, r *http.Request) (geo.TimeRange, bool) {
	start, err := parseTimeParam(r, "start")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return geo.TimeRange{}, false
	}
	end, err := parseTimeParam(r, "end")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return geo.TimeRange{}, false
	}
	return geo.TimeRange{Start: start, End: end}, true
}

// AreaCount returns the match count, page estimate, and density class for
// a bounding box without fetching any vessel rows.
//
// Method: GET
// Path: /api/v1/area/count
// Query: min_lat, max_lat, min_lon, max_lon, data_type, start, end
func (h *Handler) AreaCount(w http.ResponseWriter, r *http.Request) {
	if !h.requireDB(w) {
		return
	}
	req, box, ok := h.parseAreaRequest(w, r)
	if !ok {
		return
	}
	tr, ok := parseAreaTimeRange(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result, err := h.query.AreaCount(r.Context(), box, req.DataType, tr)
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondSuccess(w, result, start)
}

// AreaQuickCount returns only the total match count for a bounding box.
//
// Method: GET
// Path: /api/v1/area/quick-count
func (h *Handler) AreaQuickCount(w http.ResponseWriter, r *http.Request) {
	if !h.requireDB(w) {
		return
	}
	req, box, ok := h.parseAreaRequest(w, r)
	if !ok {
		return
	}
	tr, ok := parseAreaTimeRange(w, r)
	if !ok {
		return
	}

	start := time.Now()
	count, err := h.query.QuickCount(r.Context(), box, req.DataType, tr)
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondSuccess(w, map[string]interface{}{
		"total_count": count,
		"data_type":   req.DataType,
	}, start)
}

// AreaVessels returns one page of vessels inside a bounding box.
//
// Method: GET
// Path: /api/v1/area/vessels
// Query: bounds plus data_type, page, page_size
func (h *Handler) AreaVessels(w http.ResponseWriter, r *http.Request) {
	if !h.requireDB(w) {
		return
	}
	req, box, ok := h.parseAreaRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result, err := h.query.AreaPage(r.Context(), box, req.DataType, req.Page, req.PageSize)
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondSuccess(w, result, start)
}

// AreaAll exports every vessel inside a bounding box by walking all pages
// sequentially. Oversized result sets are rejected up front.
//
// Method: GET
// Path: /api/v1/area/all
func (h *Handler) AreaAll(w http.ResponseWriter, r *http.Request) {
	if !h.requireDB(w) {
		return
	}
	req, box, ok := h.parseAreaRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result, err := h.query.AreaAll(r.Context(), box, req.DataType)
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondSuccess(w, result, start)
}
