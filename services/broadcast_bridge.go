package services

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/marketinni/backend/config"
)

// BroadcastBridge forwards change notifications from request-scoped
// CRUD handlers to the broadcast hub over HTTP. The hub may live in
// the same process (the default endpoint loops back) or in a separate
// one; either way the call is fire-and-forget with a short timeout so
// a down or slow hub never delays the triggering request.
type BroadcastBridge struct {
	endpoint string
	client   *http.Client
}

// Global broadcast bridge instance
var GlobalBroadcastBridge *BroadcastBridge

// InitBroadcastBridge initializes the global broadcast bridge
func InitBroadcastBridge() error {
	cfg := config.AppConfig

	GlobalBroadcastBridge = NewBroadcastBridge(cfg.BroadcastURL, cfg.BroadcastTimeout)

	log.Printf("Broadcast bridge initialized (endpoint: %s)", cfg.BroadcastURL)
	return nil
}

// NewBroadcastBridge creates a bridge targeting the given endpoint
func NewBroadcastBridge(endpoint string, timeout time.Duration) *BroadcastBridge {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &BroadcastBridge{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Notify pushes one change event toward the hub. Degrades silently:
// failures are logged, never surfaced to the caller.
func (b *BroadcastBridge) Notify(eventType string, payload map[string]interface{}) {
	body, err := json.Marshal(ChangeEvent{Type: eventType, Payload: payload})
	if err != nil {
		log.Printf("Broadcast notify marshal failed: %v", err)
		return
	}

	resp, err := b.client.Post(b.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("Broadcast notify failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("Broadcast notify rejected with status %d", resp.StatusCode)
	}
}
