package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/luxfi/sealbid/pkg/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

var ErrHubClosed = errors.New("websocket hub closed")

// Hub is a Sink that pushes envelopes to websocket clients. A client watches
// one auction, or every auction when it subscribes without an id.
type Hub struct {
	log log.Logger

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Envelope
	done       chan struct{}
	closeOnce  sync.Once

	// owned by Run
	clients map[*Client]struct{}
	count   atomic.Int64

	upgrader websocket.Upgrader
}

// Client is one websocket subscriber
type Client struct {
	ID      string
	Auction uint64
	All     bool

	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub; Run must be started before clients connect
func NewHub(logger log.Logger) *Hub {
	return &Hub{
		log:        logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Envelope, sendBuffer),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Run is the hub's main loop
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		_ = h.Close()
		for c := range h.clients {
			h.remove(c)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Add(1)
			go c.writePump()
			h.log.Debug("websocket client subscribed", log.String("client", c.ID), log.Uint64("auction", c.Auction), log.Bool("all", c.All))
		case c := <-h.unregister:
			h.remove(c)
		case env := <-h.broadcast:
			h.fanout(env)
		}
	}
}

func (h *Hub) fanout(env *Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		h.log.Error("failed to encode envelope", log.Error(err))
		return
	}
	for c := range h.clients {
		if !c.All && c.Auction != env.AuctionID {
			continue
		}
		select {
		case c.send <- payload:
		default:
			// slow client
			h.remove(c)
		}
	}
}

func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	h.count.Add(-1)
	close(c.send)
	h.log.Debug("websocket client unsubscribed", log.String("client", c.ID))
}

// Subscribers returns the number of connected clients
func (h *Hub) Subscribers() int {
	return int(h.count.Load())
}

func (*Hub) Name() string { return "websocket" }

// Deliver implements Sink
func (h *Hub) Deliver(ctx context.Context, env *Envelope) error {
	select {
	case h.broadcast <- env:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops Run and disconnects every client
func (h *Hub) Close() error {
	h.closeOnce.Do(func() { close(h.done) })
	return nil
}

// ServeHTTP upgrades the request. The optional "auction" query parameter
// restricts the subscription to one auction.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c := &Client{
		ID:   uuid.New().String(),
		All:  true,
		send: make(chan []byte, sendBuffer),
	}
	if raw := r.URL.Query().Get("auction"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid auction id", http.StatusBadRequest)
			return
		}
		c.Auction = id
		c.All = false
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", log.Error(err))
		return
	}
	c.conn = conn

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}
	go h.readPump(c)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only exists to process control frames and notice disconnects
func (h *Hub) readPump(c *Client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug("websocket read error", log.String("client", c.ID), log.Error(err))
			}
			return
		}
	}
}
