// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package websocket

import (
	"context"
	"sort"
	"time"

	"github.com/nhartono/aiswatch/internal/config"
	"github.com/nhartono/aiswatch/internal/database"
	"github.com/nhartono/aiswatch/internal/geo"
	"github.com/nhartono/aiswatch/internal/logging"
	"github.com/nhartono/aiswatch/internal/metrics"
	"github.com/nhartono/aiswatch/internal/models"
)

// VesselReader is the current-state surface the broadcaster reads from.
type VesselReader interface {
	CurrentVessels(ctx context.Context, limit int) ([]models.CurrentVessel, error)
	FindCurrentInFilter(ctx context.Context, f database.GeoTimeFilter, limit, offset int) ([]models.CurrentVessel, error)
}

// VesselPayload is the body of every outbound vessel message.
type VesselPayload struct {
	Timestamp     time.Time              `json:"timestamp"`
	Count         int                    `json:"count"`
	WindowSeconds float64                `json:"window_seconds"`
	Vessels       []models.CurrentVessel `json:"vessels"`
}

// Broadcaster applies the two freshness windows to the live channel: a
// long snapshot window for newly connected clients and a short update
// window for steady-state deltas. The two windows decouple "give a
// newcomer the full picture" from "keep everyone's bandwidth low".
type Broadcaster struct {
	hub    *Hub
	reader VesselReader
	cfg    *config.Broadcast
	now    func() time.Time
}

// NewBroadcaster wires the hub to the current-state store.
func NewBroadcaster(hub *Hub, reader VesselReader, cfg *config.Broadcast) *Broadcaster {
	return &Broadcaster{hub: hub, reader: reader, cfg: cfg, now: time.Now}
}

// SendInitialSnapshot pushes the full recent-window fleet picture to one
// newly connected client: every current vessel inside the snapshot window,
// active vessels (inside the update window) first, then by recency.
func (b *Broadcaster) SendInitialSnapshot(ctx context.Context, client *Client) error {
	now := b.now().UTC()

	vessels, err := b.reader.CurrentVessels(ctx, 0)
	if err != nil {
		return err
	}

	fresh := make([]models.CurrentVessel, 0, len(vessels))
	for i := range vessels {
		if b.withinWindow(&vessels[i], b.cfg.SnapshotWindow, now) {
			fresh = append(fresh, vessels[i])
		}
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		activeI := b.withinWindow(&fresh[i], b.cfg.UpdateWindow, now)
		activeJ := b.withinWindow(&fresh[j], b.cfg.UpdateWindow, now)
		if activeI != activeJ {
			return activeI
		}
		return fresh[i].Timestamp.After(fresh[j].Timestamp)
	})

	ok := client.Send(Message{
		Type: MessageTypeSnapshot,
		Data: VesselPayload{
			Timestamp:     now,
			Count:         len(fresh),
			WindowSeconds: b.cfg.SnapshotWindow.Seconds(),
			Vessels:       fresh,
		},
	})
	if !ok {
		logging.Warn().Uint64("client", client.id).Msg("client queue full, snapshot dropped")
		return nil
	}

	metrics.BroadcastsSent.WithLabelValues("initial").Inc()
	logging.Debug().Uint64("client", client.id).Int("vessels", len(fresh)).
		Msg("initial snapshot sent")
	return nil
}

// BroadcastUpdates pushes the freshly reconciled subset to every client:
// only the affected vessels whose age is inside the update window. An
// empty subset is a silent skip, not an error.
func (b *Broadcaster) BroadcastUpdates(ctx context.Context, mmsis []int64) {
	if len(mmsis) == 0 || b.hub.ClientCount() == 0 {
		return
	}
	now := b.now().UTC()

	start := now.Add(-b.cfg.UpdateWindow)
	vessels, err := b.reader.FindCurrentInFilter(ctx, database.GeoTimeFilter{
		MMSIs: mmsis,
		Time:  geo.TimeRange{Start: &start, End: &now},
	}, len(mmsis), 0)
	if err != nil {
		logging.Error().Err(err).Msg("failed to load vessels for update broadcast")
		return
	}

	// The time filter bounds both sides, so future-dated reports are
	// already excluded; re-check here to stay fail-closed regardless of
	// the storage path.
	fresh := make([]models.CurrentVessel, 0, len(vessels))
	for i := range vessels {
		if b.withinWindow(&vessels[i], b.cfg.UpdateWindow, now) {
			fresh = append(fresh, vessels[i])
		}
	}
	if len(fresh) == 0 {
		return
	}

	b.hub.Broadcast(Message{
		Type: MessageTypeUpdate,
		Data: VesselPayload{
			Timestamp:     now,
			Count:         len(fresh),
			WindowSeconds: b.cfg.UpdateWindow.Seconds(),
			Vessels:       fresh,
		},
	})
	metrics.BroadcastsSent.WithLabelValues("update").Inc()
}

// BroadcastPosition pushes a single vessel using the update-window
// freshness check. Stale or future-dated positions are silently skipped.
func (b *Broadcaster) BroadcastPosition(vessel *models.CurrentVessel) {
	now := b.now().UTC()
	if !b.withinWindow(vessel, b.cfg.UpdateWindow, now) {
		return
	}

	b.hub.Broadcast(Message{
		Type: MessageTypePosition,
		Data: VesselPayload{
			Timestamp:     now,
			Count:         1,
			WindowSeconds: b.cfg.UpdateWindow.Seconds(),
			Vessels:       []models.CurrentVessel{*vessel},
		},
	})
	metrics.BroadcastsSent.WithLabelValues("position").Inc()
}

// withinWindow reports whether a vessel's report age is inside the window.
// Fails closed: a zero or future timestamp is never fresh.
func (b *Broadcaster) withinWindow(v *models.CurrentVessel, window time.Duration, now time.Time) bool {
	if v.Timestamp.IsZero() || v.Timestamp.After(now) {
		return false
	}
	return now.Sub(v.Timestamp) <= window
}
