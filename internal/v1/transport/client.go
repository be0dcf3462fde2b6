package transport

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/quizdome/quizdome/backend/go/internal/v1/logging"
	"github.com/quizdome/quizdome/backend/go/internal/v1/metrics"
	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

const (
	// writeWait bounds a single frame write to a slow client.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before the read
	// deadline kills it. A killed socket enters the normal disconnect path,
	// so the participant gets the usual grace window.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize caps inbound frames; every request payload is a small
	// JSON object.
	maxMessageSize = 4096

	sendBufferSize = 256
)

// wsConnection defines the interface for WebSocket connection operations.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
}

// Client represents a single socket connected to the hub. A socket holds at
// most one role in one room at a time; the store's socket index is the
// authority on that binding, the client only carries identity.
type Client struct {
	socketID types.SocketIDType

	// userID is the JWT subject when the upgrade carried a valid token.
	// Anonymous players and spectators leave it empty.
	userID string

	conn wsConnection
	hub  *Hub

	mu     sync.RWMutex
	closed bool

	// send holds pre-marshaled envelopes. A single queue keeps delivery in
	// emission order; events within a room must not overtake each other.
	send chan []byte
}

func newClient(hub *Hub, conn wsConnection, socketID types.SocketIDType, userID string) *Client {
	return &Client{
		socketID: socketID,
		userID:   userID,
		conn:     conn,
		hub:      hub,
		send:     make(chan []byte, sendBufferSize),
	}
}

// SocketID returns the connection's stable identifier.
func (c *Client) SocketID() types.SocketIDType {
	return c.socketID
}

// UserID returns the authenticated subject, or "" for anonymous sockets.
func (c *Client) UserID() string {
	return c.userID
}

// Disconnect closes the send channel exactly once. The writePump drains the
// remaining buffer, sends a close frame, and closes the connection.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.send)
}

// readPump pulls frames off the wire and hands them to the hub's router.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
		metrics.DecConnection()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.hub.route(context.Background(), c, data)
	}
}

// writePump serializes all writes to the connection. Pings detect dead
// peers; a closed send channel turns into a close frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logging.Error(context.Background(), "error writing message",
					zap.String("socketId", string(c.socketID)), zap.Error(err))
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

// enqueue hands a pre-marshaled envelope to the writePump without blocking.
// A slow consumer loses frames rather than stalling the emitting room.
func (c *Client) enqueue(data []byte) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return
	}
	c.mu.RUnlock()

	// The closed check races a concurrent Disconnect; recover covers the
	// send-on-closed-channel window.
	defer func() {
		if r := recover(); r != nil {
			logging.GetLogger().Debug("dropped frame for closing client",
				zap.String("socketId", string(c.socketID)))
		}
	}()

	select {
	case c.send <- data:
	default:
		logging.Warn(context.Background(), "client send buffer full, dropping frame",
			zap.String("socketId", string(c.socketID)))
	}
}

// sendEvent marshals and enqueues a single-recipient event.
func (c *Client) sendEvent(event types.EventType, payload any) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		logging.Error(context.Background(), "failed to encode event",
			zap.String("event", string(event)), zap.Error(err))
		return
	}
	c.enqueue(data)
}
