package services

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBridgePostsChangeEvent(t *testing.T) {
	received := make(chan ChangeEvent, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected application/json, got %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		var event ChangeEvent
		if err := json.Unmarshal(body, &event); err != nil {
			t.Errorf("Body is not valid JSON: %v", err)
		}
		received <- event
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	bridge := NewBroadcastBridge(server.URL, time.Second)
	bridge.Notify(EventWatchlistUpdate, map[string]interface{}{
		"email":  "user@example.com",
		"symbol": "AAPL",
		"action": "add",
	})

	select {
	case event := <-received:
		if event.Type != EventWatchlistUpdate {
			t.Errorf("Expected type %q, got %q", EventWatchlistUpdate, event.Type)
		}
		if event.Payload["email"] != "user@example.com" || event.Payload["symbol"] != "AAPL" || event.Payload["action"] != "add" {
			t.Errorf("Unexpected payload: %v", event.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Bridge never reached the endpoint")
	}
}

func TestBridgeDegradesSilently(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	bridge := NewBroadcastBridge(server.URL, 500*time.Millisecond)

	done := make(chan struct{})
	go func() {
		bridge.Notify(EventAlertsUpdate, map[string]interface{}{"symbol": "AAPL"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify must return promptly when the endpoint is down")
	}
}

func TestBridgeLogsRejectionWithoutError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	bridge := NewBroadcastBridge(server.URL, time.Second)
	bridge.Notify(EventAlertsUpdate, nil)
}
