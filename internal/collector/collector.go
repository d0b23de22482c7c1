// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

// Package collector polls the Telkomsat AIS feed, validates and
// deduplicates the raw records, and feeds the resulting position reports
// into the reconciliation engine. Collection runs are single-flight: a
// trigger that arrives while a run is active fails fast instead of queuing.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nhartono/aiswatch/internal/config"
	"github.com/nhartono/aiswatch/internal/logging"
	"github.com/nhartono/aiswatch/internal/metrics"
	"github.com/nhartono/aiswatch/internal/models"
	"github.com/nhartono/aiswatch/internal/models/telkomsat"
	"github.com/nhartono/aiswatch/internal/reconcile"
)

// ErrCollectionInProgress is returned when a collection trigger overlaps an
// active run. Callers retry on the next tick; triggers are never queued.
var ErrCollectionInProgress = errors.New("collection already in progress")

// feed is the upstream surface the collector consumes, satisfied by Client.
type feed interface {
	FetchPage(ctx context.Context, page, limit int) (*telkomsat.Response, error)
	FetchVessels(ctx context.Context, mmsis []int64) (*telkomsat.Response, error)
}

// Reconciler applies parsed reports to the vessel stores.
type Reconciler interface {
	Reconcile(ctx context.Context, reports []models.PositionReport) (*reconcile.Result, error)
}

// Notifier pushes the freshly reconciled subset to live subscribers. The
// broadcaster reads the affected vessels back from the current-state store,
// so only the MMSIs travel here.
type Notifier interface {
	BroadcastUpdates(ctx context.Context, mmsis []int64)
}

// CollectionResult summarizes one collection cycle.
type CollectionResult struct {
	Collected  int           `json:"collected"`
	Stored     int           `json:"stored"`
	Archived   int           `json:"archived"`
	NewCurrent int           `json:"new_current"`
	Duration   time.Duration `json:"duration"`
	Errors     []string      `json:"errors,omitempty"`
}

// Status is a point-in-time view of the collector for health reporting.
type Status struct {
	Busy       bool              `json:"busy"`
	LastRun    *time.Time        `json:"last_run,omitempty"`
	LastResult *CollectionResult `json:"last_result,omitempty"`
}

// Collector orchestrates fetch, parse, dedupe, reconcile, and broadcast.
type Collector struct {
	client   feed
	engine   Reconciler
	notifier Notifier
	cfg      *config.Telkomsat
	now      func() time.Time

	busy atomic.Bool

	mu         sync.Mutex
	lastRun    time.Time
	lastResult *CollectionResult
}

// New builds a collector. notifier may be nil when no live channel exists.
func New(client feed, engine Reconciler, notifier Notifier, cfg *config.Telkomsat) *Collector {
	return &Collector{
		client:   client,
		engine:   engine,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Collect runs one steady-state collection cycle: massive collect, then
// reconcile, then broadcast. Returns ErrCollectionInProgress when a run is
// already active.
func (c *Collector) Collect(ctx context.Context) (*CollectionResult, error) {
	return c.run(ctx, "poll", c.collectMassively)
}

// RunAggressive runs one forced-refresh cycle using the 5-way parallel
// fetch instead of the steady-state strategy.
func (c *Collector) RunAggressive(ctx context.Context) (*CollectionResult, error) {
	return c.run(ctx, "aggressive", c.collectAggressively)
}

func (c *Collector) run(ctx context.Context, mode string, fetch func(context.Context) ([]models.PositionReport, []string)) (*CollectionResult, error) {
	if !c.busy.CompareAndSwap(false, true) {
		metrics.CollectionsTotal.WithLabelValues(mode, "busy").Inc()
		return nil, ErrCollectionInProgress
	}
	defer c.busy.Store(false)

	started := c.now()
	reports, fetchErrs := fetch(ctx)
	result := &CollectionResult{
		Collected: len(reports),
		Errors:    fetchErrs,
	}

	if len(reports) == 0 {
		result.Duration = c.now().Sub(started)
		c.record(result)
		metrics.CollectionsTotal.WithLabelValues(mode, "empty").Inc()
		logging.Warn().Strs("errors", fetchErrs).Msg("collection yielded no reports")
		return result, nil
	}

	recResult, err := c.engine.Reconcile(ctx, reports)
	if recResult != nil {
		result.Stored = recResult.Processed
		result.Archived = recResult.Archived
		result.NewCurrent = recResult.NewCurrent
		result.Errors = append(result.Errors, recResult.Errors...)
	}
	result.Duration = c.now().Sub(started)
	c.record(result)

	if err != nil {
		metrics.CollectionsTotal.WithLabelValues(mode, "error").Inc()
		return result, fmt.Errorf("reconciliation failed: %w", err)
	}

	metrics.CollectionsTotal.WithLabelValues(mode, "success").Inc()
	metrics.CollectionDuration.Observe(result.Duration.Seconds())
	metrics.CollectedReports.Observe(float64(result.Collected))

	if c.notifier != nil {
		mmsis := make([]int64, 0, len(reports))
		for i := range reports {
			mmsis = append(mmsis, reports[i].MMSI)
		}
		c.notifier.BroadcastUpdates(ctx, mmsis)
	}

	logging.Info().
		Str("mode", mode).
		Int("collected", result.Collected).
		Int("stored", result.Stored).
		Int("archived", result.Archived).
		Int("new", result.NewCurrent).
		Int("errors", len(result.Errors)).
		Dur("duration", result.Duration).
		Msg("collection cycle complete")

	return result, nil
}

// collectMassively is the steady-state fetch strategy: page 1 at full size,
// one degraded retry at minimal size if it yields nothing, then the extra
// pages concurrently. A failed page is excluded, never fatal.
func (c *Collector) collectMassively(ctx context.Context) ([]models.PositionReport, []string) {
	now := c.now().UTC()
	var errs []string

	firstPage, err := c.client.FetchPage(ctx, 1, c.cfg.PageSize)
	if err != nil || len(firstPage.Data) == 0 {
		if err != nil {
			errs = append(errs, fmt.Sprintf("page 1: %v", err))
			metrics.UpstreamPageErrors.Inc()
		}
		logging.Warn().Err(err).Int("fallback_limit", c.cfg.FallbackPageSize).
			Msg("primary fetch empty, retrying with minimal request")

		firstPage, err = c.client.FetchPage(ctx, 1, c.cfg.FallbackPageSize)
		if err != nil {
			errs = append(errs, fmt.Sprintf("page 1 fallback: %v", err))
			metrics.UpstreamPageErrors.Inc()
			return nil, errs
		}
		// The degraded path stops here; extra pages are only worth
		// fetching when the upstream is behaving.
		return dedupeReports(parseRecords(firstPage.Data, now)), errs
	}

	reports := parseRecords(firstPage.Data, now)
	extra, extraErrs := c.fetchPagesConcurrently(ctx, 2, c.cfg.ExtraPages, c.cfg.PageSize, now)
	reports = append(reports, extra...)
	errs = append(errs, extraErrs...)

	return dedupeReports(reports), errs
}

// collectAggressively issues the massive collect plus four explicit paged
// fetches in parallel and deduplicates the union.
func (c *Collector) collectAggressively(ctx context.Context) ([]models.PositionReport, []string) {
	now := c.now().UTC()

	var mu sync.Mutex
	var reports []models.PositionReport
	var errs []string

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		batch, batchErrs := c.collectMassively(ctx)
		mu.Lock()
		reports = append(reports, batch...)
		errs = append(errs, batchErrs...)
		mu.Unlock()
	}()

	for page := 1; page <= 4; page++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			resp, err := c.client.FetchPage(ctx, page, c.cfg.PageSize)
			if err != nil {
				metrics.UpstreamPageErrors.Inc()
				mu.Lock()
				errs = append(errs, fmt.Sprintf("aggressive page %d: %v", page, err))
				mu.Unlock()
				return
			}
			batch := parseRecords(resp.Data, now)
			mu.Lock()
			reports = append(reports, batch...)
			mu.Unlock()
		}(page)
	}

	wg.Wait()
	return dedupeReports(reports), errs
}

// CollectAggressive exposes the 5-way fetch without the reconcile step.
func (c *Collector) CollectAggressive(ctx context.Context) ([]models.PositionReport, error) {
	reports, errs := c.collectAggressively(ctx)
	if len(reports) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("aggressive collection failed: %s", errs[0])
	}
	return reports, nil
}

// FetchVessels refreshes an explicit MMSI list through the targeted
// upstream endpoint and reconciles the result.
func (c *Collector) FetchVessels(ctx context.Context, mmsis []int64) (*CollectionResult, error) {
	started := c.now()

	resp, err := c.client.FetchVessels(ctx, mmsis)
	if err != nil {
		return nil, fmt.Errorf("targeted refresh failed: %w", err)
	}
	reports := dedupeReports(parseRecords(resp.Data, c.now().UTC()))

	result := &CollectionResult{Collected: len(reports)}
	if len(reports) > 0 {
		recResult, err := c.engine.Reconcile(ctx, reports)
		if recResult != nil {
			result.Stored = recResult.Processed
			result.Archived = recResult.Archived
			result.NewCurrent = recResult.NewCurrent
			result.Errors = append(result.Errors, recResult.Errors...)
		}
		if err != nil {
			return result, fmt.Errorf("reconciliation failed: %w", err)
		}
	}
	result.Duration = c.now().Sub(started)
	return result, nil
}

// fetchPagesConcurrently fetches count pages starting at first, collecting
// results independently. Failed pages are logged and excluded.
func (c *Collector) fetchPagesConcurrently(ctx context.Context, first, count, limit int, now time.Time) ([]models.PositionReport, []string) {
	if count <= 0 {
		return nil, nil
	}

	var mu sync.Mutex
	var reports []models.PositionReport
	var errs []string

	var wg sync.WaitGroup
	for page := first; page < first+count; page++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			resp, err := c.client.FetchPage(ctx, page, limit)
			if err != nil {
				metrics.UpstreamPageErrors.Inc()
				logging.Warn().Err(err).Int("page", page).Msg("page fetch failed, excluding")
				mu.Lock()
				errs = append(errs, fmt.Sprintf("page %d: %v", page, err))
				mu.Unlock()
				return
			}
			batch := parseRecords(resp.Data, now)
			mu.Lock()
			reports = append(reports, batch...)
			mu.Unlock()
		}(page)
	}
	wg.Wait()

	return reports, errs
}

// Busy reports whether a collection run is active.
func (c *Collector) Busy() bool {
	return c.busy.Load()
}

// Status returns the collector state for the health endpoint.
func (c *Collector) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{Busy: c.busy.Load(), LastResult: c.lastResult}
	if !c.lastRun.IsZero() {
		t := c.lastRun
		s.LastRun = &t
	}
	return s
}

func (c *Collector) record(result *CollectionResult) {
	c.mu.Lock()
	c.lastRun = c.now()
	c.lastResult = result
	c.mu.Unlock()
}
