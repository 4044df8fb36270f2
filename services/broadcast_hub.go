package services

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub configuration
const (
	MaxWebSocketClients   = 100 // Maximum concurrent subscriber connections
	WebSocketWriteTimeout = 10 * time.Second
	WebSocketPongTimeout  = 60 * time.Second
	WebSocketPingInterval = 30 * time.Second
	ClientSendBufferSize  = 64
)

// ChangeEvent is the fan-out message pushed to subscribers. Payload is
// loosely typed; subscribers pattern-match by Type and re-query CRUD
// state on receipt. The event is a "something changed" nudge, not the
// payload of record.
type ChangeEvent struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

// Change event types
const (
	EventAlertsUpdate    = "alerts:update"
	EventWatchlistUpdate = "watchlist:update"
)

// Client represents one subscriber connection
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// BroadcastHub maintains the set of live subscriber connections and
// fans change events out to all of them. Best-effort only: no
// buffering, no replay, a subscriber that connects after publish never
// sees the event.
type BroadcastHub struct {
	clients    map[*Client]bool
	broadcast  chan ChangeEvent
	register   chan *Client
	unregister chan *Client
	shutdown   chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader

	closeOnce sync.Once
}

// Global broadcast hub instance
var GlobalBroadcastHub *BroadcastHub

// InitBroadcastHub initializes and starts the global broadcast hub
func InitBroadcastHub() error {
	GlobalBroadcastHub = NewBroadcastHub()
	go GlobalBroadcastHub.Run()

	log.Println("Broadcast hub initialized")
	return nil
}

// NewBroadcastHub creates a hub; call Run to start it
func NewBroadcastHub() *BroadcastHub {
	return &BroadcastHub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan ChangeEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		shutdown:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Run processes subscribe, unsubscribe and publish requests until
// Shutdown is called
func (h *BroadcastHub) Run() {
	for {
		select {
		case <-h.shutdown:
			return

		case client := <-h.register:
			h.mu.Lock()
			if len(h.clients) >= MaxWebSocketClients {
				h.mu.Unlock()
				client.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "Server at capacity"))
				client.conn.Close()
				log.Printf("Subscriber rejected: max clients reached (%d)", MaxWebSocketClients)
				continue
			}
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			log.Printf("Subscriber connected. Total clients: %d", clientCount)

		case client := <-h.unregister:
			// Idempotent: removing an already-removed client is a no-op
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			clientCount := len(h.clients)
			h.mu.Unlock()
			log.Printf("Subscriber disconnected. Total clients: %d", clientCount)

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				log.Printf("Error marshaling change event: %v", err)
				continue
			}

			// The lock guards only the set mutation. The handoff to each
			// client is a non-blocking channel send; the blocking socket
			// write happens in that client's writePump. A client whose
			// buffer is full is evicted rather than slowing the others.
			h.mu.Lock()
			deadClients := make([]*Client, 0)
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					deadClients = append(deadClients, client)
				}
			}
			for _, client := range deadClients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

			if len(deadClients) > 0 {
				log.Printf("Evicted %d slow subscribers during broadcast", len(deadClients))
			}
		}
	}
}

// Publish fans one change event out to every connected subscriber.
// Never returns an error; delivery is at-most-once best-effort.
func (h *BroadcastHub) Publish(event ChangeEvent) {
	select {
	case h.broadcast <- event:
	case <-h.shutdown:
	}
}

// HandleWebSocket upgrades an HTTP request into a subscriber
// connection. No handshake payload is required; the server only pushes.
func (h *BroadcastHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	atCapacity := len(h.clients) >= MaxWebSocketClients
	h.mu.RUnlock()

	if atCapacity {
		http.Error(w, "Server at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, ClientSendBufferSize),
	}

	select {
	case h.register <- client:
	case <-h.shutdown:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h)
}

// ClientCount returns the number of connected subscribers
func (h *BroadcastHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown stops the hub and closes all subscriber connections
func (h *BroadcastHub) Shutdown() {
	h.closeOnce.Do(func() {
		close(h.shutdown)
	})

	h.mu.Lock()
	for client := range h.clients {
		close(client.send)
		client.conn.Close()
	}
	h.clients = make(map[*Client]bool)
	h.mu.Unlock()

	log.Println("Broadcast hub shutdown complete")
}

// writePump writes queued events and keepalive pings to the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(WebSocketPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(WebSocketWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(WebSocketWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection to detect disconnects and answer
// pongs. Subscribers never send application messages; anything
// received is discarded.
func (c *Client) readPump(h *BroadcastHub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.shutdown:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(WebSocketPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(WebSocketPongTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}
	}
}
