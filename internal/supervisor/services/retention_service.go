// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package services

import (
	"context"
	"time"

	"github.com/nhartono/aiswatch/internal/logging"
)

// CleanupRunner matches the retention cleaner's single-pass entry point.
type CleanupRunner interface {
	RunOnce(ctx context.Context) (int64, error)
}

// RetentionService prunes expired archive entries on a fixed interval.
// The first pass runs at startup so a long-stopped process catches up
// immediately. Failures are logged and retried on the next tick.
type RetentionService struct {
	runner   CleanupRunner
	interval time.Duration
}

// NewRetentionService wraps the cleaner in a periodic runner.
func NewRetentionService(runner CleanupRunner, interval time.Duration) *RetentionService {
	return &RetentionService{runner: runner, interval: interval}
}

// Serve implements suture.Service.
func (r *RetentionService) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", r.interval).Msg("Retention service started")

	r.runOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Retention service stopping")
			return ctx.Err()
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *RetentionService) runOnce(ctx context.Context) {
	if _, err := r.runner.RunOnce(ctx); err != nil {
		logging.Error().Err(err).Msg("Retention pass failed")
	}
}

// String implements fmt.Stringer for supervision logs.
func (r *RetentionService) String() string {
	return "retention-cleanup"
}
