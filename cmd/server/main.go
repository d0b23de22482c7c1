// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

// Package main is the entry point for the Aiswatch server.
//
// Aiswatch tracks AIS vessel positions from an upstream provider and serves
// them through a REST API and a live websocket channel. The process starts
// components in this order:
//
//  1. Configuration: layered load via Koanf v2 (defaults, YAML file,
//     environment variables)
//  2. Database: DuckDB with the current-state and vessel-log tables
//  3. Websocket hub and broadcaster for live updates
//  4. Collector: circuit-broken upstream client plus the reconciliation
//     engine (optional, COLLECTOR_ENABLED)
//  5. HTTP server: Chi-routed REST API
//
// All long-running services run under a suture supervision tree and the
// process shuts down gracefully on SIGINT and SIGTERM.
//
// Example:
//
//	export TELKOMSAT_URL=https://provider.example/api/ais
//	export TELKOMSAT_API_KEY=secret
//	export COLLECTOR_ENABLED=true
//	./aiswatch
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nhartono/aiswatch/internal/api"
	"github.com/nhartono/aiswatch/internal/collector"
	"github.com/nhartono/aiswatch/internal/config"
	"github.com/nhartono/aiswatch/internal/database"
	"github.com/nhartono/aiswatch/internal/logging"
	"github.com/nhartono/aiswatch/internal/query"
	"github.com/nhartono/aiswatch/internal/reconcile"
	"github.com/nhartono/aiswatch/internal/retention"
	"github.com/nhartono/aiswatch/internal/supervisor"
	"github.com/nhartono/aiswatch/internal/supervisor/services"
	ws "github.com/nhartono/aiswatch/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Bool("collector_enabled", cfg.Collector.Enabled).
		Msg("Starting aiswatch")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := ws.NewHub()
	broadcaster := ws.NewBroadcaster(hub, db, &cfg.Broadcast)
	engine := reconcile.New(db, &cfg.Reconcile)
	cleaner := retention.New(db, &cfg.Retention)

	var col *collector.Collector
	if cfg.Collector.Enabled {
		client := collector.NewClient(&cfg.Telkomsat)
		col = collector.New(client, engine, broadcaster, &cfg.Telkomsat)

		if err := client.Healthy(ctx); err != nil {
			logging.Warn().Err(err).Msg("Upstream provider unreachable (will retry)")
		} else {
			logging.Info().Msg("Connected to upstream provider")
		}
	} else {
		logging.Info().Msg("Collector disabled, serving stored state only")
	}

	q := query.New(db, &cfg.API)
	handler := api.NewHandler(db, q, engine, col, cleaner, hub, broadcaster, cfg)
	router := api.NewRouter(handler, &cfg.API)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.AddDataService(services.NewRetentionService(cleaner, cfg.Retention.Interval))
	tree.AddCollectionService(services.NewWebSocketHubService(hub))
	if col != nil {
		tree.AddCollectionService(services.NewPollerService(col, cfg.Collector.Interval))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Aiswatch stopped gracefully")
}
