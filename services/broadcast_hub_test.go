package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newHubServer(t *testing.T) (*BroadcastHub, *httptest.Server) {
	t.Helper()
	hub := NewBroadcastHub()
	go hub.Run()
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		server.Close()
		hub.Shutdown()
	})
	return hub, server
}

func dialHub(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial hub: %v", err)
	}
	return conn
}

func waitForClients(t *testing.T, hub *BroadcastHub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d clients, got %d", want, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) ChangeEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read broadcast: %v", err)
	}
	var event ChangeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("Broadcast is not valid JSON: %v", err)
	}
	return event
}

func TestHubFansOutToAllSubscribers(t *testing.T) {
	hub, server := newHubServer(t)

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dialHub(t, server)
		defer conns[i].Close()
	}
	waitForClients(t, hub, 3)

	hub.Publish(ChangeEvent{
		Type:    EventAlertsUpdate,
		Payload: map[string]interface{}{"email": "user@example.com", "symbol": "AAPL", "action": "create"},
	})

	for i, conn := range conns {
		event := readEvent(t, conn)
		if event.Type != EventAlertsUpdate {
			t.Errorf("Client %d: expected type %q, got %q", i, EventAlertsUpdate, event.Type)
		}
		if event.Payload["symbol"] != "AAPL" {
			t.Errorf("Client %d: unexpected payload %v", i, event.Payload)
		}
	}
}

func TestHubSurvivesSubscriberDisconnect(t *testing.T) {
	hub, server := newHubServer(t)

	leaver := dialHub(t, server)
	stayer := dialHub(t, server)
	defer stayer.Close()
	waitForClients(t, hub, 2)

	leaver.Close()
	waitForClients(t, hub, 1)

	hub.Publish(ChangeEvent{
		Type:    EventWatchlistUpdate,
		Payload: map[string]interface{}{"email": "user@example.com", "symbol": "TSLA", "action": "add"},
	})

	event := readEvent(t, stayer)
	if event.Type != EventWatchlistUpdate {
		t.Errorf("Expected type %q, got %q", EventWatchlistUpdate, event.Type)
	}
}

func TestHubRejectsConnectionsAfterShutdown(t *testing.T) {
	hub := NewBroadcastHub()
	go hub.Run()
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	hub.Shutdown()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// The upgrade may succeed before the hub closes the socket; any
	// read must fail promptly
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected the connection to be closed after shutdown")
	}
}

func TestHubPublishAfterShutdownDoesNotBlock(t *testing.T) {
	hub := NewBroadcastHub()
	go hub.Run()
	hub.Shutdown()

	done := make(chan struct{})
	go func() {
		hub.Publish(ChangeEvent{Type: EventAlertsUpdate})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked after shutdown")
	}
}
