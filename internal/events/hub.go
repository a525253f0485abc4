// Package events pushes service events to connected desktop UI clients over
// websockets. The hub implements the event-sink capability the watcher and
// pipeline are constructed with.
package events

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 32 * 1024
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:   4096,
	WriteBufferSize:  4096,
	HandshakeTimeout: 10 * time.Second,
	// The service binds locally for a single operator; any origin may attach.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Event is one message pushed to UI clients.
type Event struct {
	Type      string `json:"type"`
	Payload   any    `json:"payload,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Client is one connected UI client.
type Client struct {
	conn *websocket.Conn
	send chan Event
	hub  *Hub

	closeMu  sync.Mutex
	isClosed bool
}

// Hub fans events out to all connected clients. Notify never blocks: events
// for slow clients are dropped, not queued without bound.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event

	mu         sync.Mutex
	shutdown   chan struct{}
	isShutdown bool

	log *zap.Logger
}

// NewHub creates a Hub. Call Run to start it.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, sendBuffer),
		shutdown:   make(chan struct{}),
		log:        log,
	}
}

// Run services the hub loop until Shutdown.
func (h *Hub) Run() {
	go func() {
		clients := make(map[*Client]bool)
		for {
			select {
			case <-h.shutdown:
				for client := range clients {
					close(client.send)
				}
				return

			case client := <-h.register:
				clients[client] = true

			case client := <-h.unregister:
				if clients[client] {
					delete(clients, client)
					close(client.send)
				}

			case event := <-h.broadcast:
				for client := range clients {
					select {
					case client.send <- event:
					default:
						delete(clients, client)
						close(client.send)
					}
				}
			}
		}
	}()
}

// Notify broadcasts an event to every connected client. Safe to call from any
// goroutine; drops the event when the hub is saturated or shut down.
func (h *Hub) Notify(eventType string, payload any) {
	event := Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
	select {
	case h.broadcast <- event:
	case <-h.shutdown:
	default:
		h.log.Warn("event dropped, hub saturated", zap.String("type", eventType))
	}
}

// Shutdown stops the hub loop and disconnects all clients.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.isShutdown {
		h.isShutdown = true
		close(h.shutdown)
	}
}

// ServeWS upgrades an HTTP request and attaches the client to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	down := h.isShutdown
	h.mu.Unlock()
	if down {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{conn: conn, send: make(chan Event, sendBuffer), hub: h}
	select {
	case h.register <- client:
	case <-h.shutdown:
		conn.Close()
		return
	}

	go client.readPump()
	go client.writePump()
}

// readPump drains incoming frames so pings/pongs and close messages are
// handled; the UI never sends application data.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.shutdown:
		}
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				c.hub.log.Warn("failed to encode event", zap.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) close() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if !c.isClosed {
		c.conn.Close()
		c.isClosed = true
	}
}
