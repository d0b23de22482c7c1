// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

// Package metrics exposes Prometheus instrumentation for the collector,
// reconciliation engine, query service, and websocket channel.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Collector metrics
	CollectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiswatch_collections_total",
			Help: "Total upstream collection runs by outcome",
		},
		[]string{"mode", "outcome"}, // mode: poll|aggressive, outcome: success|empty|error|busy
	)

	CollectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aiswatch_collection_duration_seconds",
			Help:    "Duration of upstream collection runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CollectedReports = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aiswatch_collected_reports",
			Help:    "Deduplicated reports yielded per collection run",
			Buckets: []float64{0, 10, 50, 100, 200, 300, 400, 500},
		},
	)

	UpstreamPageErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aiswatch_upstream_page_errors_total",
			Help: "Upstream page fetches that failed and were excluded",
		},
	)

	RejectedReports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiswatch_rejected_reports_total",
			Help: "Raw upstream records rejected during parsing",
		},
		[]string{"reason"}, // missing_field|bad_coordinates|bad_mmsi|bad_timestamp
	)

	// Reconciliation metrics
	ReconcileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aiswatch_reconcile_duration_seconds",
			Help:    "Duration of reconciliation runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"}, // batch|bulk
	)

	VesselsArchived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aiswatch_vessels_archived_total",
			Help: "Current-state rows archived into the vessel log",
		},
	)

	VesselsUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aiswatch_vessels_upserted_total",
			Help: "Current-state rows created or updated",
		},
	)

	ReconcileErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aiswatch_reconcile_errors_total",
			Help: "Per-report reconciliation failures",
		},
	)

	// Query metrics
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aiswatch_query_duration_seconds",
			Help:    "Duration of storage queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	AreaQueriesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiswatch_area_queries_rejected_total",
			Help: "Area queries rejected before storage access",
		},
		[]string{"reason"}, // invalid_bounds|invalid_dates|area_too_large|dataset_too_large
	)

	// WebSocket metrics
	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aiswatch_websocket_clients",
			Help: "Currently connected websocket clients",
		},
	)

	BroadcastsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiswatch_broadcasts_sent_total",
			Help: "Live messages pushed to the websocket hub",
		},
		[]string{"type"}, // initial|update|position
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aiswatch_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiswatch_circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker by result",
		},
		[]string{"name", "result"}, // success|failure|rejected
	)

	// Retention metrics
	LogEntriesDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aiswatch_log_entries_deleted_total",
			Help: "Vessel log entries removed by retention cleanup",
		},
	)

	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aiswatch_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route pattern, and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aiswatch_http_active_requests",
			Help: "HTTP requests currently in flight",
		},
	)
)
