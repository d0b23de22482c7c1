// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

// Package api provides the HTTP surface: Chi routing, request validation,
// the JSON response envelope, and the websocket upgrade path.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct, constructor, websocket upgrade
//   - handlers_vessels.go: current fleet, batch ingest, history, playback, stats
//   - handlers_area.go: bounding-box query endpoints
//   - handlers_admin.go: collection triggers and maintenance
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nhartono/aiswatch/internal/collector"
	"github.com/nhartono/aiswatch/internal/config"
	"github.com/nhartono/aiswatch/internal/database"
	"github.com/nhartono/aiswatch/internal/geo"
	"github.com/nhartono/aiswatch/internal/logging"
	"github.com/nhartono/aiswatch/internal/query"
	"github.com/nhartono/aiswatch/internal/reconcile"
	"github.com/nhartono/aiswatch/internal/retention"
	ws "github.com/nhartono/aiswatch/internal/websocket"
)

// Handler holds the dependencies of every HTTP endpoint. The collector is
// nil when polling is disabled; the affected endpoints answer 503.
type Handler struct {
	db          *database.DB
	query       *query.Service
	engine      *reconcile.Engine
	collector   *collector.Collector
	cleaner     *retention.Cleaner
	hub         *ws.Hub
	broadcaster *ws.Broadcaster
	config      *config.Config
	startTime   time.Time
}

// NewHandler creates the API handler.
func NewHandler(db *database.DB, q *query.Service, engine *reconcile.Engine, col *collector.Collector, cleaner *retention.Cleaner, hub *ws.Hub, broadcaster *ws.Broadcaster, cfg *config.Config) *Handler {
	return &Handler{
		db:          db,
		query:       q,
		engine:      engine,
		collector:   col,
		cleaner:     cleaner,
		hub:         hub,
		broadcaster: broadcaster,
		config:      cfg,
		startTime:   time.Now(),
	}
}

// requireDB checks database availability, answering 503 when absent.
func (h *Handler) requireDB(w http.ResponseWriter) bool {
	if h.db == nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Database not available", nil)
		return false
	}
	return true
}

// requireCollector checks collector availability, answering 503 when the
// polling subsystem is disabled.
func (h *Handler) requireCollector(w http.ResponseWriter) bool {
	if h.collector == nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Collector not enabled", nil)
		return false
	}
	return true
}

// respondQueryError maps service-layer sentinels onto HTTP statuses.
func respondQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrVesselNotFound):
		respondError(w, http.StatusNotFound, codeNotFound, "Vessel not found", nil)
	case errors.Is(err, geo.ErrAreaTooLarge):
		respondError(w, http.StatusBadRequest, codeAreaTooLarge, err.Error(), nil)
	case errors.Is(err, geo.ErrInvalidBounds), errors.Is(err, geo.ErrInvalidDates),
		errors.Is(err, query.ErrUnknownDataType):
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
	case errors.Is(err, query.ErrDatasetTooLarge):
		respondError(w, http.StatusBadRequest, codeDatasetTooBig, err.Error(), nil)
	case errors.Is(err, collector.ErrCollectionInProgress):
		respondError(w, http.StatusConflict, codeCollectionBusy, "A collection run is already in progress", nil)
	default:
		respondError(w, http.StatusInternalServerError, codeDatabase, "Query failed", err)
	}
}

// WebSocket upgrades the connection and attaches the client to the hub.
// The initial snapshot is pushed before the read/write pumps start so the
// client's first frame is always the full recent fleet picture.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		logging.Warn().Msg("Websocket connection rejected: hub not initialized")
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Websocket service unavailable", nil)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("Websocket upgrade error")
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register <- client

	if h.broadcaster != nil {
		if err := h.broadcaster.SendInitialSnapshot(r.Context(), client); err != nil {
			logging.Error().Err(err).Msg("Failed to send initial snapshot")
		}
	}

	client.Start()
}

// getUpgrader builds a websocket upgrader with origin checking and a
// handshake timeout against slow clients.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates the Origin header against the configured
// CORS origins. Browser websockets always send Origin; an empty header
// means a non-browser client and is allowed.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if h.config == nil {
		return true
	}
	for _, allowed := range h.config.API.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("Websocket connection rejected: origin not allowed")
	return false
}
