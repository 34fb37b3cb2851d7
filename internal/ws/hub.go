// Package ws streams orchestrator events to websocket subscribers.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"konbata/internal/entity"
	"konbata/internal/observability"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Clients only listen, so
	// anything beyond control frames is noise.
	maxMessageSize = 512

	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans orchestrator events out to every connected subscriber. Slow
// subscribers are dropped rather than allowed to stall the stream.
type Hub struct {
	log     *slog.Logger
	metrics *observability.Metrics

	clients    map[*client]bool
	count      atomic.Int64
	events     <-chan entity.Event
	register   chan *client
	unregister chan *client
	done       chan struct{}
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub reading from the given event stream.
func NewHub(log *slog.Logger, events <-chan entity.Event, metrics *observability.Metrics) *Hub {
	return &Hub{
		log:        log.With(slog.String("package", "ws")),
		metrics:    metrics,
		clients:    make(map[*client]bool),
		events:     events,
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.setCount(len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.setCount(len(h.clients))

		case event := <-h.events:
			h.broadcast(ctx, event)

		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.setCount(0)
			close(h.done)
			h.log.InfoContext(ctx, "hub stopped", slog.Any("error", ctx.Err()))

			return
		}
	}
}

func (h *Hub) setCount(n int) {
	h.count.Store(int64(n))
	h.metrics.SetEventSubscribers(n)
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

func (h *Hub) broadcast(ctx context.Context, event entity.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.ErrorContext(ctx, "marshal event", slog.Any("error", err))

		return
	}

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			delete(h.clients, c)
			close(c.send)
			h.log.WarnContext(ctx, "dropping slow subscriber")
		}
	}

	h.setCount(len(h.clients))
}

// ServeHTTP upgrades the connection and registers the subscriber.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WarnContext(r.Context(), "websocket upgrade", slog.Any("error", err))

		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()

		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump drains the connection so control frames are processed and a
// closed peer unregisters itself. Payloads from the peer are discarded.
// The unregister send also watches the hub's done channel: once the hub
// has stopped, nobody reads unregister anymore and the pump must not
// block on it forever.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump pumps hub messages to the connection and keeps it alive with
// periodic pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})

				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// flush queued messages as separate frames
			n := len(c.send)
			for range n {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
