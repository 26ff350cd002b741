package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/mcp-training/raceroom/game/registry"
	"github.com/wricardo/mcp-training/raceroom/game/room"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. start-game carries the whole
	// power-up and obstacle layout.
	maxMessageSize = 64 * 1024

	sendBufferSize = 256

	DefaultRoomTimeout   = 30 * time.Minute
	DefaultSweepInterval = 10 * time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The game client may be served from any origin
		return true
	},
}

// Client is one websocket connection. Its id doubles as the participant id.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

// ID returns the connection identifier
func (c *Client) ID() string {
	return c.id
}

// inboundFrame is one read from a connection. A closed frame is queued after
// the connection's last data frame so its disconnect is handled in order.
type inboundFrame struct {
	client *Client
	data   []byte
	closed bool
}

// Hub owns every connection and is the only goroutine that mutates rooms.
// Registration, inbound frames, disconnects and the expiry sweep are all
// handled one at a time by Run.
type Hub struct {
	registry *registry.Registry

	// Connected clients by id. Only touched from Run.
	clients     map[string]*Client
	connections atomic.Int64

	register chan *Client
	inbound  chan inboundFrame
	done     chan struct{}

	roomTimeout   time.Duration
	sweepInterval time.Duration

	log *logrus.Entry
}

// Option configures a Hub
type Option func(*Hub)

// WithRoomTimeout sets the age after which rooms are swept
func WithRoomTimeout(d time.Duration) Option {
	return func(h *Hub) {
		h.roomTimeout = d
	}
}

// WithSweepInterval sets how often stale rooms are swept. Non-positive
// intervals are ignored.
func WithSweepInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.sweepInterval = d
		}
	}
}

// NewHub creates a new websocket hub backed by the given registry
func NewHub(reg *registry.Registry, opts ...Option) *Hub {
	h := &Hub{
		registry:      reg,
		clients:       make(map[string]*Client),
		register:      make(chan *Client),
		inbound:       make(chan inboundFrame, 256),
		done:          make(chan struct{}),
		roomTimeout:   DefaultRoomTimeout,
		sweepInterval: DefaultSweepInterval,
		log:           logrus.WithField("component", "hub"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run starts the hub's event loop and blocks until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.sweepInterval)
	defer ticker.Stop()

	h.log.WithFields(logrus.Fields{
		"room_timeout":   h.roomTimeout,
		"sweep_interval": h.sweepInterval,
	}).Info("Hub is running")

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case frame := <-h.inbound:
			if frame.closed {
				h.unregisterClient(frame.client)
				continue
			}
			h.dispatch(frame.client, frame.data)

		case <-ticker.C:
			h.sweepExpired()

		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

// ConnectionCount returns the number of registered connections
func (h *Hub) ConnectionCount() int {
	return int(h.connections.Load())
}

// ServeWS upgrades an HTTP request and attaches the connection to the hub
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		id:   uuid.NewString(),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// registerClient adds a connection
func (h *Hub) registerClient(client *Client) {
	h.clients[client.id] = client
	h.connections.Add(1)

	h.log.WithFields(logrus.Fields{
		"conn_id": client.id,
		"total":   len(h.clients),
	}).Info("Player connected")
}

// unregisterClient removes a connection and its participant
func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client.id]; !ok {
		return
	}

	h.handleDisconnect(client.id)

	delete(h.clients, client.id)
	close(client.send)
	h.connections.Add(-1)

	h.log.WithFields(logrus.Fields{
		"conn_id":   client.id,
		"remaining": len(h.clients),
	}).Info("Player disconnected")
}

// shutdown closes every connection's send channel so the write pumps send a
// close frame and exit.
func (h *Hub) shutdown() {
	close(h.done)
	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.send)
	}
	h.connections.Store(0)
	h.log.Info("Hub stopped")
}

// reply sends an event to a single connection
func (h *Hub) reply(client *Client, event string, data any) {
	payload, err := encode(event, data)
	if err != nil {
		h.log.WithError(err).WithField("event", event).Error("Failed to marshal message")
		return
	}
	h.enqueue(client, payload)
}

// broadcastRoom sends an event to every participant currently in rm except
// exceptID. Recipients come from the room's roster, so traffic never leaves
// the room.
func (h *Hub) broadcastRoom(rm *room.Room, event string, data any, exceptID string) {
	payload, err := encode(event, data)
	if err != nil {
		h.log.WithError(err).WithField("event", event).Error("Failed to marshal broadcast")
		return
	}

	for _, p := range rm.Players() {
		if p.ID == exceptID {
			continue
		}
		if client, ok := h.clients[p.ID]; ok {
			h.enqueue(client, payload)
		}
	}
}

// enqueue never blocks the hub; a client that cannot keep up loses the frame.
func (h *Hub) enqueue(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		h.log.WithField("conn_id", client.id).Warn("Client send buffer full, dropping message")
	}
}

func encode(event string, data any) ([]byte, error) {
	return json.Marshal(outboundMessage{Event: event, Data: data})
}

// readPump pumps frames from the websocket connection into the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.inbound <- inboundFrame{client: c, closed: true}:
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
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).WithField("conn_id", c.id).Warn("WebSocket read error")
			}
			return
		}

		select {
		case c.hub.inbound <- inboundFrame{client: c, data: data}:
		case <-c.hub.done:
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection, one
// frame per message.
func (c *Client) writePump() {
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
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
