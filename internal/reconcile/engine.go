// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

// Package reconcile merges incoming position reports into vessel state.
// For every report the engine archives the displaced current-state row into
// the vessel log, then overwrites the current state. The two writes are not
// transactional: a crash between them leaves a duplicate archive entry
// rather than a lost position, which is the acceptable failure mode for an
// append-only log.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhartono/aiswatch/internal/config"
	"github.com/nhartono/aiswatch/internal/database"
	"github.com/nhartono/aiswatch/internal/logging"
	"github.com/nhartono/aiswatch/internal/metrics"
	"github.com/nhartono/aiswatch/internal/models"
)

// Store is the subset of the database layer the engine writes through.
type Store interface {
	FindCurrent(ctx context.Context, mmsi int64) (*models.CurrentVessel, error)
	UpsertCurrent(ctx context.Context, r *models.PositionReport, now time.Time) error
	InsertLogEntry(ctx context.Context, e *models.VesselLogEntry) error
	BulkUpsertCurrent(ctx context.Context, reports []models.PositionReport, now time.Time) (int, []string)
}

// Result summarizes one reconciliation run. Errors holds one message per
// failed report; a failed report never aborts the rest of the run.
type Result struct {
	Processed  int           `json:"processed"`
	Archived   int           `json:"archived"`
	NewCurrent int           `json:"new_current"`
	Duration   time.Duration `json:"duration"`
	Errors     []string      `json:"errors,omitempty"`
}

// Engine applies position reports to the two vessel stores in throttled
// batches so a large collection run does not monopolize the database.
type Engine struct {
	store      Store
	batchSize  int
	batchPause time.Duration
	now        func() time.Time
}

// New builds an engine from the reconcile configuration.
func New(store Store, cfg *config.Reconcile) *Engine {
	return &Engine{
		store:      store,
		batchSize:  cfg.BatchSize,
		batchPause: cfg.BatchPause,
		now:        time.Now,
	}
}

// Reconcile applies reports in batches, pausing between batches. Each
// report either creates a new current-state row or archives the existing
// one before overwriting it.
func (e *Engine) Reconcile(ctx context.Context, reports []models.PositionReport) (*Result, error) {
	started := e.now()
	result := &Result{}

	for offset := 0; offset < len(reports); offset += e.batchSize {
		if offset > 0 && e.batchPause > 0 {
			if err := sleepCtx(ctx, e.batchPause); err != nil {
				result.Duration = e.now().Sub(started)
				return result, err
			}
		}

		end := offset + e.batchSize
		if end > len(reports) {
			end = len(reports)
		}
		for i := offset; i < end; i++ {
			e.reconcileOne(ctx, &reports[i], result)
			if ctx.Err() != nil {
				result.Duration = e.now().Sub(started)
				return result, ctx.Err()
			}
		}
	}

	result.Duration = e.now().Sub(started)
	metrics.ReconcileDuration.WithLabelValues("batch").Observe(result.Duration.Seconds())

	logging.Info().
		Int("processed", result.Processed).
		Int("archived", result.Archived).
		Int("new", result.NewCurrent).
		Int("errors", len(result.Errors)).
		Dur("duration", result.Duration).
		Msg("reconciliation run complete")

	return result, nil
}

// reconcileOne applies a single report, recording any failure in the result.
func (e *Engine) reconcileOne(ctx context.Context, r *models.PositionReport, result *Result) {
	now := e.now().UTC()

	var isNew bool
	existing, err := e.store.FindCurrent(ctx, r.MMSI)
	switch {
	case err == nil:
		entry := models.LogEntryFromCurrent(existing, models.ArchiveReasonScheduledUpdate, now)
		if err := e.store.InsertLogEntry(ctx, entry); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("mmsi %d: archive failed: %v", r.MMSI, err))
			metrics.ReconcileErrors.Inc()
			return
		}
	case errors.Is(err, database.ErrVesselNotFound):
		isNew = true
	default:
		result.Errors = append(result.Errors, fmt.Sprintf("mmsi %d: lookup failed: %v", r.MMSI, err))
		metrics.ReconcileErrors.Inc()
		return
	}

	if err := e.store.UpsertCurrent(ctx, r, now); err != nil {
		// The archive entry already exists at this point; the vessel's
		// current state simply keeps its previous value until the next run.
		result.Errors = append(result.Errors, fmt.Sprintf("mmsi %d: upsert failed: %v", r.MMSI, err))
		metrics.ReconcileErrors.Inc()
		return
	}

	if isNew {
		result.NewCurrent++
	} else {
		metrics.VesselsArchived.Inc()
		result.Archived++
	}
	metrics.VesselsUpserted.Inc()
	result.Processed++
}

// ReconcileBulk upserts reports directly without archiving, for callers
// that supply authoritative state and do not need history preserved.
func (e *Engine) ReconcileBulk(ctx context.Context, reports []models.PositionReport) (*Result, error) {
	started := e.now()

	stored, errs := e.store.BulkUpsertCurrent(ctx, reports, e.now().UTC())
	metrics.ReconcileErrors.Add(float64(len(errs)))
	metrics.VesselsUpserted.Add(float64(stored))

	result := &Result{
		Processed: stored,
		Duration:  e.now().Sub(started),
		Errors:    errs,
	}
	metrics.ReconcileDuration.WithLabelValues("bulk").Observe(result.Duration.Seconds())
	return result, nil
}

// sleepCtx pauses for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
