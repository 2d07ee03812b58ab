// Package client implements the connection-side session controller: a
// reconnecting websocket client that re-authenticates and re-joins its
// rooms after a drop. Sending a message is a two-step protocol: the
// durable write goes through the HTTP API first, and only the returned
// canonical message is handed to BroadcastMessage.
package client

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	ws "relaychat/internal/websocket"
)

const (
	handshakeTimeout     = 20 * time.Second
	reconnectDelay       = 1 * time.Second
	maxReconnectAttempts = 5
)

var ErrClosed = errors.New("client is closed")

// Handler receives server events.
type Handler func(event string, data json.RawMessage)

type Client struct {
	url     string
	userID  uuid.UUID
	handler Handler

	// OnDisconnect fires once reconnection is exhausted, so the UI can
	// surface a disconnected state. Optional.
	OnDisconnect func()

	mu     sync.Mutex
	conn   *websocket.Conn
	rooms  map[uuid.UUID]bool
	closed bool
}

// Dial connects, authenticates as userID and starts dispatching server
// events to handler.
func Dial(url string, userID uuid.UUID, handler Handler) (*Client, error) {
	c := &Client{
		url:     url,
		userID:  userID,
		handler: handler,
		rooms:   make(map[uuid.UUID]bool),
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	go c.readLoop()
	return c, nil
}

// connect dials and replays session state: authenticate, then re-join
// every tracked room.
func (c *Client) connect() error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	rooms := make([]uuid.UUID, 0, len(c.rooms))
	for id := range c.rooms {
		rooms = append(rooms, id)
	}
	c.mu.Unlock()

	if err := c.emit(ws.EventAuthenticate, c.userID); err != nil {
		return err
	}
	for _, id := range rooms {
		if err := c.emit(ws.EventJoinConversation, id); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) readLoop() {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		var evt ws.Event
		if err := conn.ReadJSON(&evt); err != nil {
			if c.isClosed() {
				return
			}
			if !c.reconnect() {
				if c.OnDisconnect != nil {
					c.OnDisconnect()
				}
				return
			}
			continue
		}

		if c.handler != nil {
			c.handler(evt.Event, evt.Data)
		}
	}
}

// reconnect retries with a fixed delay, bounded. Reports whether a new
// connection is live.
func (c *Client) reconnect() bool {
	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		time.Sleep(reconnectDelay)
		if c.isClosed() {
			return false
		}
		if err := c.connect(); err == nil {
			return true
		}
	}
	return false
}

// JoinConversation subscribes to a room; the subscription survives
// reconnects.
func (c *Client) JoinConversation(conversationID uuid.UUID) error {
	c.mu.Lock()
	c.rooms[conversationID] = true
	c.mu.Unlock()

	return c.emit(ws.EventJoinConversation, conversationID)
}

func (c *Client) LeaveConversation(conversationID uuid.UUID) error {
	c.mu.Lock()
	delete(c.rooms, conversationID)
	c.mu.Unlock()

	return c.emit(ws.EventLeaveConversation, conversationID)
}

// BroadcastMessage fans a ledger-accepted message out to the room. It
// must only be called after the durable write succeeded.
func (c *Client) BroadcastMessage(conversationID uuid.UUID, message interface{}) error {
	return c.emit(ws.EventSendMessage, map[string]interface{}{
		"conversationId": conversationID,
		"message":        message,
	})
}

func (c *Client) Typing(conversationID uuid.UUID, userName string) error {
	return c.emit(ws.EventTyping, map[string]interface{}{
		"conversationId": conversationID,
		"userName":       userName,
	})
}

func (c *Client) StopTyping(conversationID uuid.UUID) error {
	return c.emit(ws.EventStopTyping, map[string]interface{}{
		"conversationId": conversationID,
	})
}

func (c *Client) emit(event string, data interface{}) error {
	payload, err := ws.MarshalEvent(event, data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close tears the connection down without reconnecting.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}
