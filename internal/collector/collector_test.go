// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nhartono/aiswatch/internal/config"
	"github.com/nhartono/aiswatch/internal/models"
	"github.com/nhartono/aiswatch/internal/models/telkomsat"
	"github.com/nhartono/aiswatch/internal/reconcile"
)

// fakeFeed serves canned pages keyed by (page, limit) with optional
// injected failures and a per-call block for concurrency tests.
type fakeFeed struct {
	mu       sync.Mutex
	pages    map[string]*telkomsat.Response
	failures map[string]error
	calls    []string
	block    chan struct{}
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		pages:    make(map[string]*telkomsat.Response),
		failures: make(map[string]error),
	}
}

func pageKey(page, limit int) string { return fmt.Sprintf("%d/%d", page, limit) }

func (f *fakeFeed) setPage(page, limit int, records ...telkomsat.Record) {
	f.pages[pageKey(page, limit)] = &telkomsat.Response{Data: records, Count: len(records)}
}

func (f *fakeFeed) FetchPage(ctx context.Context, page, limit int) (*telkomsat.Response, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	key := pageKey(page, limit)
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()

	if err, ok := f.failures[key]; ok {
		return nil, err
	}
	if resp, ok := f.pages[key]; ok {
		return resp, nil
	}
	return &telkomsat.Response{}, nil
}

func (f *fakeFeed) FetchVessels(_ context.Context, mmsis []int64) (*telkomsat.Response, error) {
	records := make([]telkomsat.Record, 0, len(mmsis))
	for _, m := range mmsis {
		rec := validRecord()
		rec.MMSI = fmt.Sprintf("%d", m)
		records = append(records, rec)
	}
	return &telkomsat.Response{Data: records, Count: len(records)}, nil
}

func (f *fakeFeed) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// recordingEngine captures reconciled reports.
type recordingEngine struct {
	mu      sync.Mutex
	reports []models.PositionReport
}

func (e *recordingEngine) Reconcile(_ context.Context, reports []models.PositionReport) (*reconcile.Result, error) {
	e.mu.Lock()
	e.reports = append(e.reports, reports...)
	e.mu.Unlock()
	return &reconcile.Result{Processed: len(reports), NewCurrent: len(reports)}, nil
}

func testCfg() *config.Telkomsat {
	return &config.Telkomsat{
		PageSize:         100,
		FallbackPageSize: 10,
		ExtraPages:       3,
		RequestTimeout:   30 * time.Second,
		VesselTimeout:    15 * time.Second,
		HealthTimeout:    10 * time.Second,
	}
}

func recordWithMMSI(mmsi string) telkomsat.Record {
	rec := validRecord()
	rec.MMSI = mmsi
	return rec
}

func TestCollectHappyPath(t *testing.T) {
	feed := newFakeFeed()
	feed.setPage(1, 100, recordWithMMSI("525001001"), recordWithMMSI("563002002"))
	feed.setPage(2, 100, recordWithMMSI("311003003"))
	// pages 3-4 empty

	engine := &recordingEngine{}
	c := New(feed, engine, nil, testCfg())

	result, err := c.Collect(t.Context())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if result.Collected != 3 || result.Stored != 3 {
		t.Errorf("Expected 3 collected and stored, got %+v", result)
	}
	if len(engine.reports) != 3 {
		t.Errorf("Engine received %d reports, want 3", len(engine.reports))
	}
}

func TestCollectFallbackOnEmptyFirstPage(t *testing.T) {
	feed := newFakeFeed()
	// Primary page 1 empty; minimal fallback request carries data.
	feed.setPage(1, 10, recordWithMMSI("525001001"))

	engine := &recordingEngine{}
	c := New(feed, engine, nil, testCfg())

	result, err := c.Collect(t.Context())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if result.Collected != 1 {
		t.Errorf("Expected 1 report via fallback, got %d", result.Collected)
	}
	// The degraded path must not fan out to extra pages.
	feed.mu.Lock()
	for _, call := range feed.calls {
		if call != "1/100" && call != "1/10" {
			t.Errorf("Unexpected page fetch in degraded mode: %s", call)
		}
	}
	feed.mu.Unlock()
}

func TestCollectPartialPageFailure(t *testing.T) {
	feed := newFakeFeed()
	feed.setPage(1, 100, recordWithMMSI("525001001"))
	feed.setPage(2, 100, recordWithMMSI("563002002"))
	feed.failures[pageKey(3, 100)] = errors.New("timeout")
	feed.setPage(4, 100, recordWithMMSI("311003003"))

	engine := &recordingEngine{}
	c := New(feed, engine, nil, testCfg())

	result, err := c.Collect(t.Context())
	if err != nil {
		t.Fatalf("Partial page failure must not fail collection: %v", err)
	}
	if result.Collected != 3 {
		t.Errorf("Expected 3 reports from surviving pages, got %d", result.Collected)
	}
	if len(result.Errors) != 1 {
		t.Errorf("Expected failed page recorded in errors, got %v", result.Errors)
	}
}

func TestCollectTotalFailureReturnsEmpty(t *testing.T) {
	feed := newFakeFeed()
	feed.failures[pageKey(1, 100)] = errors.New("connection refused")
	feed.failures[pageKey(1, 10)] = errors.New("connection refused")

	engine := &recordingEngine{}
	c := New(feed, engine, nil, testCfg())

	result, err := c.Collect(t.Context())
	if err != nil {
		t.Fatalf("Total upstream failure must return empty, not error: %v", err)
	}
	if result.Collected != 0 {
		t.Errorf("Expected 0 collected, got %d", result.Collected)
	}
	if len(result.Errors) != 2 {
		t.Errorf("Expected both failures recorded, got %v", result.Errors)
	}
	if len(engine.reports) != 0 {
		t.Error("Nothing must reach the engine on empty collection")
	}
}

func TestCollectSingleFlight(t *testing.T) {
	feed := newFakeFeed()
	feed.block = make(chan struct{})
	feed.setPage(1, 100, recordWithMMSI("525001001"))

	engine := &recordingEngine{}
	c := New(feed, engine, nil, testCfg())

	firstDone := make(chan error, 1)
	go func() {
		_, err := c.Collect(context.Background())
		firstDone <- err
	}()

	// Wait until the first run is inside the fetch.
	deadline := time.After(2 * time.Second)
	for !c.Busy() {
		select {
		case <-deadline:
			t.Fatal("First collection never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	_, err := c.Collect(t.Context())
	if !errors.Is(err, ErrCollectionInProgress) {
		t.Errorf("Expected ErrCollectionInProgress, got %v", err)
	}

	close(feed.block)
	if err := <-firstDone; err != nil {
		t.Errorf("First collection failed: %v", err)
	}
	if c.Busy() {
		t.Error("Busy flag not cleared after completion")
	}
}

func TestCollectAggressiveDeduplicatesUnion(t *testing.T) {
	feed := newFakeFeed()
	// The same vessel appears on multiple pages; union must dedupe.
	feed.setPage(1, 100, recordWithMMSI("525001001"), recordWithMMSI("563002002"))
	feed.setPage(2, 100, recordWithMMSI("525001001"))
	feed.setPage(3, 100, recordWithMMSI("311003003"))

	engine := &recordingEngine{}
	c := New(feed, engine, nil, testCfg())

	reports, err := c.CollectAggressive(t.Context())
	if err != nil {
		t.Fatalf("CollectAggressive failed: %v", err)
	}
	seen := map[int64]int{}
	for _, r := range reports {
		seen[r.MMSI]++
	}
	for mmsi, n := range seen {
		if n != 1 {
			t.Errorf("Vessel %d appears %d times after dedupe", mmsi, n)
		}
	}
	if len(seen) != 3 {
		t.Errorf("Expected 3 distinct vessels, got %d", len(seen))
	}
}

func TestFetchVesselsTargetedRefresh(t *testing.T) {
	feed := newFakeFeed()
	engine := &recordingEngine{}
	c := New(feed, engine, nil, testCfg())

	result, err := c.FetchVessels(t.Context(), []int64{525001001, 563002002})
	if err != nil {
		t.Fatalf("FetchVessels failed: %v", err)
	}
	if result.Collected != 2 || result.Stored != 2 {
		t.Errorf("Expected both vessels refreshed, got %+v", result)
	}
}

func TestStatusReflectsLastRun(t *testing.T) {
	feed := newFakeFeed()
	feed.setPage(1, 100, recordWithMMSI("525001001"))
	engine := &recordingEngine{}
	c := New(feed, engine, nil, testCfg())

	if s := c.Status(); s.LastRun != nil || s.Busy {
		t.Errorf("Fresh collector must report no runs, got %+v", s)
	}

	if _, err := c.Collect(t.Context()); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	s := c.Status()
	if s.LastRun == nil || s.LastResult == nil {
		t.Fatalf("Status missing last run data: %+v", s)
	}
	if s.LastResult.Collected != 1 {
		t.Errorf("Last result not recorded: %+v", s.LastResult)
	}
}
