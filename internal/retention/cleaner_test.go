// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package retention

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/nhartono/aiswatch/internal/config"
	"github.com/nhartono/aiswatch/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

type fakeLogStore struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (s *fakeLogStore) DeleteExpiredLogEntries(_ context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return s.deleted, s.err
}

func TestRunOnceUsesRetentionCutoff(t *testing.T) {
	store := &fakeLogStore{deleted: 7}
	cleaner := New(store, &config.Retention{MaxAge: 90 * 24 * time.Hour})

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	cleaner.now = func() time.Time { return now }

	deleted, err := cleaner.RunOnce(t.Context())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if deleted != 7 {
		t.Errorf("Expected 7 deleted, got %d", deleted)
	}

	want := now.Add(-90 * 24 * time.Hour)
	if !store.cutoff.Equal(want) {
		t.Errorf("Expected cutoff %v, got %v", want, store.cutoff)
	}
}

func TestRunOncePropagatesStoreError(t *testing.T) {
	store := &fakeLogStore{err: errors.New("disk gone")}
	cleaner := New(store, &config.Retention{MaxAge: time.Hour})

	if _, err := cleaner.RunOnce(t.Context()); err == nil {
		t.Fatal("Expected error from failing store")
	}
}
