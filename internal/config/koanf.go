// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/aiswatch/config.yaml",
	"/etc/aiswatch/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Telkomsat: Telkomsat{
			URL:              "",
			VesselURL:        "",
			APIKey:           "",
			RequestTimeout:   30 * time.Second,
			VesselTimeout:    15 * time.Second,
			HealthTimeout:    10 * time.Second,
			PageSize:         100,
			FallbackPageSize: 10,
			ExtraPages:       3, // pages 2-4 fetched concurrently after page 1
			MaxRPS:           5,
		},
		Collector: Collector{
			Enabled:  true,
			Interval: 30 * time.Second,
		},
		Reconcile: Reconcile{
			BatchSize:  50,
			BatchPause: 100 * time.Millisecond,
		},
		Retention: Retention{
			MaxAge:   90 * 24 * time.Hour,
			Interval: time.Hour,
		},
		Broadcast: Broadcast{
			SnapshotWindow: 24 * time.Hour,
			UpdateWindow:   time.Minute,
		},
		Database: Database{
			Path:      "/data/aiswatch.duckdb",
			MaxMemory: "2GB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		Server: Server{
			Host:    "0.0.0.0",
			Port:    8090,
			Timeout: 30 * time.Second,
		},
		API: API{
			DefaultPageSize: 100,
			MaxPageSize:     1000,
			MaxExportTotal:  50_000,
			ExportPagePause: 50 * time.Millisecond,
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration using Koanf v2 with layered sources:
//  1. Defaults from struct
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if origins := k.String("api.cors_origins"); origins != "" && strings.Contains(origins, ",") {
		if err := k.Set("api.cors_origins", splitTrimmed(origins)); err != nil {
			return nil, fmt.Errorf("failed to split api.cors_origins: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings translates environment variable names to koanf config paths.
// Only listed variables are honored; everything else is ignored so that
// unrelated process environment does not leak into the config tree.
var envMappings = map[string]string{
	"telkomsat_url":                "telkomsat.url",
	"telkomsat_vessel_url":         "telkomsat.vessel_url",
	"telkomsat_api_key":            "telkomsat.api_key",
	"telkomsat_request_timeout":    "telkomsat.request_timeout",
	"telkomsat_vessel_timeout":     "telkomsat.vessel_timeout",
	"telkomsat_health_timeout":     "telkomsat.health_timeout",
	"telkomsat_page_size":          "telkomsat.page_size",
	"telkomsat_fallback_page_size": "telkomsat.fallback_page_size",
	"telkomsat_extra_pages":        "telkomsat.extra_pages",
	"telkomsat_max_rps":            "telkomsat.max_rps",

	"collector_enabled":  "collector.enabled",
	"collector_interval": "collector.interval",

	"reconcile_batch_size":  "reconcile.batch_size",
	"reconcile_batch_pause": "reconcile.batch_pause",

	"retention_max_age":  "retention.max_age",
	"retention_interval": "retention.interval",

	"broadcast_snapshot_window": "broadcast.snapshot_window",
	"broadcast_update_window":   "broadcast.update_window",

	"database_path":       "database.path",
	"database_max_memory": "database.max_memory",
	"database_threads":    "database.threads",

	"server_host":    "server.host",
	"server_port":    "server.port",
	"server_timeout": "server.timeout",

	"api_default_page_size": "api.default_page_size",
	"api_max_page_size":     "api.max_page_size",
	"api_max_export_total":  "api.max_export_total",
	"api_rate_limit_reqs":   "api.rate_limit_reqs",
	"api_rate_limit_window": "api.rate_limit_window",
	"api_cors_origins":      "api.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path, or
// "" to skip the variable.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

func splitTrimmed(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
