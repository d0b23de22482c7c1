// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

// Package websocket implements the live vessel channel: a hub fanning
// messages out to connected clients, and the dual-window broadcaster that
// decides which vessels each message carries.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/nhartono/aiswatch/internal/logging"
	"github.com/nhartono/aiswatch/internal/metrics"
)

// Outbound and inbound message types on the live channel.
const (
	MessageTypeSnapshot       = "initial_snapshot"
	MessageTypeUpdate         = "vessel_update"
	MessageTypePosition       = "vessel_position"
	MessageTypePing           = "ping"
	MessageTypePong           = "pong"
	MessageTypeSubscribe      = "subscribe"
	MessageTypeUnsubscribe    = "unsubscribe"
	MessageTypeSubscribeAck   = "subscribe_ack"
	MessageTypeUnsubscribeAck = "unsubscribe_ack"
)

// Message is one frame on the live channel.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of connected clients and fans broadcast messages
// out to them. Lifecycle events take priority over broadcasts so client
// state is consistent before any message is delivered.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates an empty hub. Run it under a supervisor via RunWithContext.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Broadcast enqueues a message for every connected client. Drops the
// message when the hub's queue is full rather than blocking the caller.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		logging.Warn().Str("type", msg.Type).Msg("hub broadcast queue full, dropping message")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RunWithContext runs the hub loop until the context is cancelled, then
// closes every client and returns ctx.Err(). Selection is priority-ordered:
// shutdown, then lifecycle events, then broadcasts.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case msg := <-h.broadcast:
			h.broadcastToClients(msg)
		}
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WebsocketClients.Set(float64(total))
	logging.Info().Uint64("client", client.id).Int("total_clients", total).
		Msg("websocket client connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WebsocketClients.Set(float64(total))
	logging.Info().Uint64("client", client.id).Int("total_clients", total).
		Msg("websocket client disconnected")
}

// broadcastToClients delivers a message to every client in id order. A
// client whose send queue is full is dropped: a stalled reader must not
// hold back the rest of the fan-out.
func (h *Hub) broadcastToClients(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	var stalled []*Client
	for _, client := range clients {
		select {
		case client.send <- msg:
		default:
			stalled = append(stalled, client)
		}
	}
	for _, client := range stalled {
		close(client.send)
		delete(h.clients, client)
		logging.Warn().Uint64("client", client.id).Msg("dropped stalled websocket client")
	}
	if len(stalled) > 0 {
		metrics.WebsocketClients.Set(float64(len(h.clients)))
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	count := len(h.clients)
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	metrics.WebsocketClients.Set(0)
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", ctx.Err().Error()).
		Int("clients_closed", count).
		Msg("websocket hub stopped")
}
