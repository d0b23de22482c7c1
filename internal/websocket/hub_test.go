// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package websocket

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

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

// setupHub starts a hub and stops it when the test ends.
func setupHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(10 * time.Millisecond)
	return hub
}

// testClient builds a hub-only client with no underlying connection.
func testClient(hub *Hub) *Client {
	return &Client{id: clientIDCounter.Add(1), hub: hub, send: make(chan Message, 256)}
}

func registerClient(hub *Hub, client *Client) {
	hub.Register <- client
	time.Sleep(20 * time.Millisecond)
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := setupHub(t)
	client := testClient(hub)

	registerClient(hub, client)
	if hub.ClientCount() != 1 {
		t.Errorf("Expected 1 client, got %d", hub.ClientCount())
	}

	hub.Unregister <- client
	time.Sleep(20 * time.Millisecond)
	if hub.ClientCount() != 0 {
		t.Errorf("Expected 0 clients after unregister, got %d", hub.ClientCount())
	}

	// The hub closes the send channel on unregister.
	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("Expected closed send channel")
		}
	case <-time.After(time.Second):
		t.Error("Send channel not closed")
	}
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	hub := setupHub(t)
	first := testClient(hub)
	second := testClient(hub)
	registerClient(hub, first)
	registerClient(hub, second)

	hub.Broadcast(Message{Type: MessageTypeUpdate, Data: "payload"})

	for _, client := range []*Client{first, second} {
		select {
		case msg := <-client.send:
			if msg.Type != MessageTypeUpdate {
				t.Errorf("Unexpected message type %q", msg.Type)
			}
		case <-time.After(time.Second):
			t.Errorf("Client %d never received the broadcast", client.id)
		}
	}
}

func TestHubDropsStalledClient(t *testing.T) {
	hub := setupHub(t)

	stalled := &Client{id: clientIDCounter.Add(1), hub: hub, send: make(chan Message)} // no buffer
	healthy := testClient(hub)
	registerClient(hub, stalled)
	registerClient(hub, healthy)

	hub.Broadcast(Message{Type: MessageTypeUpdate})
	time.Sleep(50 * time.Millisecond)

	if hub.ClientCount() != 1 {
		t.Errorf("Expected stalled client dropped, got %d clients", hub.ClientCount())
	}
	select {
	case msg := <-healthy.send:
		if msg.Type != MessageTypeUpdate {
			t.Errorf("Unexpected message type %q", msg.Type)
		}
	case <-time.After(time.Second):
		t.Error("Healthy client never received the broadcast")
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- hub.RunWithContext(ctx)
	}()
	time.Sleep(10 * time.Millisecond)

	client := testClient(hub)
	registerClient(hub, client)

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Hub did not stop on cancellation")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("Expected all clients closed, got %d", hub.ClientCount())
	}
}
