// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package services

import (
	"context"
	"errors"
	"time"

	"github.com/nhartono/aiswatch/internal/collector"
	"github.com/nhartono/aiswatch/internal/logging"
)

// CollectRunner matches the collector's single-run entry point.
type CollectRunner interface {
	Collect(ctx context.Context) (*collector.CollectionResult, error)
}

// PollerService drives the steady-state collection loop: one run at
// startup, then one per interval. A run that finds the collector busy is
// skipped; upstream failures are logged and retried on the next tick so a
// flaky provider never crashes the service.
type PollerService struct {
	runner   CollectRunner
	interval time.Duration
}

// NewPollerService wraps the collector in a periodic runner.
func NewPollerService(runner CollectRunner, interval time.Duration) *PollerService {
	return &PollerService{runner: runner, interval: interval}
}

// Serve implements suture.Service.
func (p *PollerService) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", p.interval).Msg("Collection poller started")

	p.runOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Collection poller stopping")
			return ctx.Err()
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *PollerService) runOnce(ctx context.Context) {
	result, err := p.runner.Collect(ctx)
	if err != nil {
		if errors.Is(err, collector.ErrCollectionInProgress) {
			logging.Debug().Msg("Poll skipped, collection already running")
			return
		}
		logging.Error().Err(err).Msg("Scheduled collection failed")
		return
	}
	logging.Debug().
		Int("collected", result.Collected).
		Int("stored", result.Stored).
		Msg("Scheduled collection finished")
}

// String implements fmt.Stringer for supervision logs.
func (p *PollerService) String() string {
	return "collection-poller"
}
