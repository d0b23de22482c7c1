// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

// Package query serves read traffic over the two vessel stores: current
// fleet snapshots, historical log queries, playback sampling, and the POI
// area export family. Every entry point validates its inputs before
// touching storage.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhartono/aiswatch/internal/config"
	"github.com/nhartono/aiswatch/internal/database"
	"github.com/nhartono/aiswatch/internal/geo"
	"github.com/nhartono/aiswatch/internal/metrics"
	"github.com/nhartono/aiswatch/internal/models"
)

// ErrDatasetTooLarge rejects an auto-fetch-all request whose matching
// count exceeds the export ceiling.
var ErrDatasetTooLarge = errors.New("dataset too large for full export")

// ErrUnknownDataType rejects an unrecognized area data type selector.
var ErrUnknownDataType = errors.New("unknown data type")

// Store is the storage surface the service reads from, satisfied by
// database.DB.
type Store interface {
	CurrentVessels(ctx context.Context, limit int) ([]models.CurrentVessel, error)
	FindCurrent(ctx context.Context, mmsi int64) (*models.CurrentVessel, error)
	FindCurrentInFilter(ctx context.Context, f database.GeoTimeFilter, limit, offset int) ([]models.CurrentVessel, error)
	CountCurrent(ctx context.Context, f database.GeoTimeFilter) (int64, error)
	DistinctCurrentMMSIs(ctx context.Context, f database.GeoTimeFilter) ([]int64, error)
	CountCurrentSince(ctx context.Context, since time.Time) (int64, error)
	DistinctSources(ctx context.Context) ([]string, error)
	QueryLog(ctx context.Context, f database.GeoTimeFilter, sortBy, sortOrder string, limit, offset int) ([]models.VesselLogEntry, error)
	CountLog(ctx context.Context, f database.GeoTimeFilter) (int64, error)
	DistinctLogMMSIs(ctx context.Context, f database.GeoTimeFilter) ([]int64, error)
	TrackPoints(ctx context.Context, mmsi int64, start, end time.Time) ([]models.TrackPoint, error)
}

// Service answers read queries. Stateless; safe for concurrent use.
type Service struct {
	store Store
	cfg   *config.API
}

// New builds the query service.
func New(store Store, cfg *config.API) *Service {
	return &Service{store: store, cfg: cfg}
}

// Current returns the fleet snapshot sorted by last_updated descending.
// limit <= 0 returns every vessel.
func (s *Service) Current(ctx context.Context, limit int) ([]models.CurrentVessel, error) {
	defer s.observe("current")()
	return s.store.CurrentVessels(ctx, limit)
}

// Vessel returns one vessel's current state.
func (s *Service) Vessel(ctx context.Context, mmsi int64) (*models.CurrentVessel, error) {
	defer s.observe("vessel")()
	return s.store.FindCurrent(ctx, mmsi)
}

// LogFilter is the caller-facing historical query. A single MMSI takes
// precedence over the list when both are given.
type LogFilter struct {
	MMSI      int64
	MMSIs     []int64
	Start     *time.Time
	End       *time.Time
	Source    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// LogResult is one page of historical entries with its pagination block.
type LogResult struct {
	Data       []models.VesselLogEntry `json:"data"`
	Pagination models.Pagination       `json:"pagination"`
}

// QueryLog returns a page of archive entries matching the filter.
func (s *Service) QueryLog(ctx context.Context, f LogFilter) (*LogResult, error) {
	defer s.observe("log")()

	tr := geo.TimeRange{Start: f.Start, End: f.End}
	if err := tr.Validate(); err != nil {
		return nil, err
	}
	page, pageSize := s.clampPage(f.Page, f.PageSize)

	filter := database.GeoTimeFilter{
		MMSI:   f.MMSI,
		MMSIs:  f.MMSIs,
		Time:   tr,
		Source: f.Source,
	}

	total, err := s.store.CountLog(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count log entries: %w", err)
	}

	entries, err := s.store.QueryLog(ctx, filter, f.SortBy, f.SortOrder, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query log entries: %w", err)
	}
	if entries == nil {
		entries = []models.VesselLogEntry{}
	}

	return &LogResult{
		Data:       entries,
		Pagination: models.NewPagination(page, pageSize, total),
	}, nil
}

// Stats summarizes the stored fleet for the statistics endpoint.
func (s *Service) Stats(ctx context.Context) (*models.FleetStats, error) {
	defer s.observe("stats")()
	now := time.Now().UTC()

	current, err := s.store.CountCurrent(ctx, database.GeoTimeFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to count current vessels: %w", err)
	}
	logTotal, err := s.store.CountLog(ctx, database.GeoTimeFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to count log entries: %w", err)
	}
	lastHour, err := s.store.CountCurrentSince(ctx, now.Add(-time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to count recent vessels: %w", err)
	}
	lastDay, err := s.store.CountCurrentSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to count recent vessels: %w", err)
	}
	sources, err := s.store.DistinctSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}

	return &models.FleetStats{
		CurrentVessels: current,
		LogEntries:     logTotal,
		SeenLastHour:   lastHour,
		SeenLastDay:    lastDay,
		Sources:        sources,
	}, nil
}

// clampPage normalizes page/pageSize to the configured bounds.
func (s *Service) clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.cfg.DefaultPageSize
	}
	if pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}
	return page, pageSize
}

// observe returns a closure recording the operation's latency.
func (s *Service) observe(operation string) func() {
	started := time.Now()
	return func() {
		metrics.QueryDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	}
}
