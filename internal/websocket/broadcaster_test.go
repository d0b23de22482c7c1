// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/nhartono/aiswatch/internal/config"
	"github.com/nhartono/aiswatch/internal/database"
	"github.com/nhartono/aiswatch/internal/models"
)

// fakeReader serves a fixed fleet, applying the filter's MMSI list and
// time window the way the real store would.
type fakeReader struct {
	vessels []models.CurrentVessel
}

func (r *fakeReader) CurrentVessels(_ context.Context, limit int) ([]models.CurrentVessel, error) {
	out := append([]models.CurrentVessel(nil), r.vessels...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeReader) FindCurrentInFilter(_ context.Context, f database.GeoTimeFilter, limit, _ int) ([]models.CurrentVessel, error) {
	wanted := make(map[int64]bool, len(f.MMSIs))
	for _, m := range f.MMSIs {
		wanted[m] = true
	}
	var out []models.CurrentVessel
	for _, v := range r.vessels {
		if len(wanted) > 0 && !wanted[v.MMSI] {
			continue
		}
		if f.Time.Start != nil && v.Timestamp.Before(*f.Time.Start) {
			continue
		}
		if f.Time.End != nil && v.Timestamp.After(*f.Time.End) {
			continue
		}
		out = append(out, v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func testBroadcastConfig() *config.Broadcast {
	return &config.Broadcast{
		SnapshotWindow: 24 * time.Hour,
		UpdateWindow:   time.Minute,
	}
}

func vesselAt(mmsi int64, age time.Duration, now time.Time) models.CurrentVessel {
	return models.CurrentVessel{
		MMSI:      mmsi,
		Latitude:  -6.1,
		Longitude: 106.85,
		Timestamp: now.Add(-age),
	}
}

func setupBroadcaster(t *testing.T, reader VesselReader, now time.Time) (*Broadcaster, *Hub) {
	t.Helper()
	hub := setupHub(t)
	b := NewBroadcaster(hub, reader, testBroadcastConfig())
	b.now = func() time.Time { return now }
	return b, hub
}

func TestSendInitialSnapshotWindowAndOrder(t *testing.T) {
	now := time.Now().UTC()
	reader := &fakeReader{vessels: []models.CurrentVessel{
		vesselAt(1, 2*time.Hour, now),   // fresh but idle
		vesselAt(2, 30*time.Second, now), // active
		vesselAt(3, 48*time.Hour, now),  // outside snapshot window
		vesselAt(4, 10*time.Minute, now), // fresh but idle, newer than 1
	}}
	b, hub := setupBroadcaster(t, reader, now)

	client := testClient(hub)
	registerClient(hub, client)

	if err := b.SendInitialSnapshot(t.Context(), client); err != nil {
		t.Fatalf("SendInitialSnapshot failed: %v", err)
	}

	var msg Message
	select {
	case msg = <-client.send:
	case <-time.After(time.Second):
		t.Fatal("Snapshot never arrived")
	}
	if msg.Type != MessageTypeSnapshot {
		t.Errorf("Expected snapshot type, got %q", msg.Type)
	}

	payload, ok := msg.Data.(VesselPayload)
	if !ok {
		t.Fatalf("Unexpected payload type %T", msg.Data)
	}
	if payload.Count != 3 {
		t.Fatalf("Expected 3 vessels inside the 24h window, got %d", payload.Count)
	}
	// Active vessel first, then idle ones by recency.
	if payload.Vessels[0].MMSI != 2 {
		t.Errorf("Active vessel must sort first, got %d", payload.Vessels[0].MMSI)
	}
	if payload.Vessels[1].MMSI != 4 || payload.Vessels[2].MMSI != 1 {
		t.Errorf("Idle vessels must sort by recency: %d, %d",
			payload.Vessels[1].MMSI, payload.Vessels[2].MMSI)
	}
}

func TestSnapshotFailsClosedOnBadTimestamps(t *testing.T) {
	now := time.Now().UTC()
	future := vesselAt(7, 0, now)
	future.Timestamp = now.Add(time.Hour)
	zero := vesselAt(8, 0, now)
	zero.Timestamp = time.Time{}

	reader := &fakeReader{vessels: []models.CurrentVessel{future, zero, vesselAt(9, time.Minute, now)}}
	b, hub := setupBroadcaster(t, reader, now)

	client := testClient(hub)
	registerClient(hub, client)

	if err := b.SendInitialSnapshot(t.Context(), client); err != nil {
		t.Fatalf("SendInitialSnapshot failed: %v", err)
	}

	msg := <-client.send
	payload := msg.Data.(VesselPayload)
	if payload.Count != 1 || payload.Vessels[0].MMSI != 9 {
		t.Errorf("Future and zero timestamps must be excluded: %+v", payload.Vessels)
	}
}

func TestBroadcastUpdatesShortWindow(t *testing.T) {
	now := time.Now().UTC()
	reader := &fakeReader{vessels: []models.CurrentVessel{
		vesselAt(1, 30*time.Second, now), // inside update window
		vesselAt(2, 5*time.Minute, now),  // too old for updates
	}}
	b, hub := setupBroadcaster(t, reader, now)

	client := testClient(hub)
	registerClient(hub, client)

	b.BroadcastUpdates(t.Context(), []int64{1, 2})

	select {
	case msg := <-client.send:
		payload := msg.Data.(VesselPayload)
		if payload.Count != 1 || payload.Vessels[0].MMSI != 1 {
			t.Errorf("Only the fresh vessel belongs in the update: %+v", payload.Vessels)
		}
	case <-time.After(time.Second):
		t.Fatal("Update never arrived")
	}
}

func TestBroadcastUpdatesSilentSkipWhenStale(t *testing.T) {
	now := time.Now().UTC()
	reader := &fakeReader{vessels: []models.CurrentVessel{
		vesselAt(1, 10*time.Minute, now),
	}}
	b, hub := setupBroadcaster(t, reader, now)

	client := testClient(hub)
	registerClient(hub, client)

	b.BroadcastUpdates(t.Context(), []int64{1})

	select {
	case msg := <-client.send:
		t.Errorf("Expected silent skip, got message %q", msg.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroadcastPositionFreshnessCheck(t *testing.T) {
	now := time.Now().UTC()
	b, hub := setupBroadcaster(t, &fakeReader{}, now)

	client := testClient(hub)
	registerClient(hub, client)

	fresh := vesselAt(1, 10*time.Second, now)
	b.BroadcastPosition(&fresh)

	select {
	case msg := <-client.send:
		if msg.Type != MessageTypePosition {
			t.Errorf("Expected position message, got %q", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("Position never arrived")
	}

	stale := vesselAt(2, 2*time.Minute, now)
	b.BroadcastPosition(&stale)

	select {
	case msg := <-client.send:
		t.Errorf("Stale position must be skipped, got %q", msg.Type)
	case <-time.After(100 * time.Millisecond):
	}
}
