// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nhartono/aiswatch/internal/config"
)

// Router assembles the HTTP routing tree around a Handler.
type Router struct {
	handler *Handler
	cfg     *config.API
}

// NewRouter creates a router for the given handler.
func NewRouter(handler *Handler, cfg *config.API) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup builds the Chi routing tree with the full middleware stack.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// The websocket route skips the response-wrapping middleware so
		// the upgrader can hijack the underlying connection.
		r.Get("/ws", rt.handler.WebSocket)

		r.Group(func(r chi.Router) {
			r.Use(rt.rateLimit())
			r.Use(PrometheusMetrics)
			r.Use(RequestLogging)

			r.Get("/health", rt.handler.Health)
			r.Get("/stats", rt.handler.Stats)

			r.Get("/vessels", rt.handler.Vessels)
			r.Post("/vessels/batch", rt.handler.VesselsBatch)
			r.Post("/vessels/refresh", rt.handler.VesselsRefresh)
			r.Get("/vessels/{mmsi}", rt.handler.Vessel)

			r.Get("/log", rt.handler.Log)
			r.Get("/playback", rt.handler.Playback)

			r.Route("/area", func(r chi.Router) {
				r.Get("/count", rt.handler.AreaCount)
				r.Get("/quick-count", rt.handler.AreaQuickCount)
				r.Get("/vessels", rt.handler.AreaVessels)
				r.Get("/all", rt.handler.AreaAll)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Post("/collect", rt.handler.CollectNow)
				r.Post("/collect/aggressive", rt.handler.CollectAggressive)
				r.Get("/collector", rt.handler.CollectorStatus)
				r.Post("/cleanup", rt.handler.Cleanup)
			})
		})
	})

	return r
}

// rateLimit builds the per-IP rate limiter from config. A non-positive
// request budget disables limiting.
func (rt *Router) rateLimit() func(http.Handler) http.Handler {
	if rt.cfg.RateLimitReqs <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	window := rt.cfg.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(
		rt.cfg.RateLimitReqs,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
	)
}
