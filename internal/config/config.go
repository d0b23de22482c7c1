// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

// Package config holds all application configuration, loaded in layers via
// Koanf v2: built-in defaults, then an optional YAML file, then environment
// variables (highest priority). Config is immutable after Load and safe for
// concurrent reads.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the process.
type Config struct {
	Telkomsat Telkomsat `koanf:"telkomsat"`
	Collector Collector `koanf:"collector"`
	Reconcile Reconcile `koanf:"reconcile"`
	Retention Retention `koanf:"retention"`
	Broadcast Broadcast `koanf:"broadcast"`
	Database  Database  `koanf:"database"`
	Server    Server    `koanf:"server"`
	API       API       `koanf:"api"`
	Logging   Logging   `koanf:"logging"`
}

// Telkomsat holds the upstream AIS provider connection settings.
//
// The provider exposes a paginated POST endpoint (api_key + page/limit form
// fields) and a second endpoint accepting an explicit MMSI list for
// targeted refresh.
type Telkomsat struct {
	URL              string        `koanf:"url"`
	VesselURL        string        `koanf:"vessel_url"`
	APIKey           string        `koanf:"api_key"`
	RequestTimeout   time.Duration `koanf:"request_timeout"`
	VesselTimeout    time.Duration `koanf:"vessel_timeout"`
	HealthTimeout    time.Duration `koanf:"health_timeout"`
	PageSize         int           `koanf:"page_size"`
	FallbackPageSize int           `koanf:"fallback_page_size"`
	ExtraPages       int           `koanf:"extra_pages"`
	// MaxRPS caps outbound requests to the provider. Zero disables pacing.
	MaxRPS float64 `koanf:"max_rps"`
}

// Collector controls the steady-state polling loop.
type Collector struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`
}

// Reconcile controls the batch reconciliation throttle.
type Reconcile struct {
	BatchSize  int           `koanf:"batch_size"`
	BatchPause time.Duration `koanf:"batch_pause"`
}

// Retention controls the vessel-log cleanup job.
type Retention struct {
	MaxAge   time.Duration `koanf:"max_age"`
	Interval time.Duration `koanf:"interval"`
}

// Broadcast holds the two freshness windows of the live channel: the long
// window served to newly connected clients and the short window applied to
// incremental updates.
type Broadcast struct {
	SnapshotWindow time.Duration `koanf:"snapshot_window"`
	UpdateWindow   time.Duration `koanf:"update_window"`
}

// Database holds DuckDB settings.
type Database struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// Server holds HTTP server settings.
type Server struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// API holds pagination and export limits.
type API struct {
	DefaultPageSize int           `koanf:"default_page_size"`
	MaxPageSize     int           `koanf:"max_page_size"`
	MaxExportTotal  int64         `koanf:"max_export_total"`
	ExportPagePause time.Duration `koanf:"export_page_pause"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// Logging holds log output settings.
type Logging struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks required fields and value sanity. Called by Load after
// all layers are merged.
func (c *Config) Validate() error {
	if c.Collector.Enabled {
		if c.Telkomsat.URL == "" {
			return fmt.Errorf("telkomsat.url is required when the collector is enabled")
		}
		if c.Telkomsat.APIKey == "" {
			return fmt.Errorf("telkomsat.api_key is required when the collector is enabled")
		}
	}
	if c.Collector.Interval <= 0 {
		return fmt.Errorf("collector.interval must be positive, got %s", c.Collector.Interval)
	}
	if c.Reconcile.BatchSize <= 0 {
		return fmt.Errorf("reconcile.batch_size must be positive, got %d", c.Reconcile.BatchSize)
	}
	if c.Retention.MaxAge <= 0 {
		return fmt.Errorf("retention.max_age must be positive, got %s", c.Retention.MaxAge)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.API.DefaultPageSize < 1 || c.API.DefaultPageSize > c.API.MaxPageSize {
		return fmt.Errorf("api.default_page_size must be in [1, %d], got %d",
			c.API.MaxPageSize, c.API.DefaultPageSize)
	}
	if c.Broadcast.UpdateWindow > c.Broadcast.SnapshotWindow {
		return fmt.Errorf("broadcast.update_window must not exceed broadcast.snapshot_window")
	}
	return nil
}
