// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

// Package retention removes archived vessel-log entries older than the
// configured maximum age. Only entries that already went through the
// archive path are eligible; the current-state table is never touched.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/nhartono/aiswatch/internal/config"
	"github.com/nhartono/aiswatch/internal/logging"
	"github.com/nhartono/aiswatch/internal/metrics"
)

// LogStore is the archive surface the cleaner prunes.
type LogStore interface {
	DeleteExpiredLogEntries(ctx context.Context, cutoff time.Time) (int64, error)
}

// Cleaner prunes expired archive entries on demand.
type Cleaner struct {
	store LogStore
	cfg   *config.Retention
	now   func() time.Time
}

// New creates a retention cleaner.
func New(store LogStore, cfg *config.Retention) *Cleaner {
	return &Cleaner{store: store, cfg: cfg, now: time.Now}
}

// RunOnce deletes every archived entry older than the retention window and
// returns the number of rows removed.
func (c *Cleaner) RunOnce(ctx context.Context) (int64, error) {
	cutoff := c.now().UTC().Add(-c.cfg.MaxAge)

	deleted, err := c.store.DeleteExpiredLogEntries(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention cleanup failed: %w", err)
	}

	if deleted > 0 {
		metrics.LogEntriesDeleted.Add(float64(deleted))
		logging.Info().
			Int64("deleted", deleted).
			Time("cutoff", cutoff).
			Msg("Retention cleanup removed expired log entries")
	} else {
		logging.Debug().Time("cutoff", cutoff).Msg("Retention cleanup found nothing to remove")
	}
	return deleted, nil
}
