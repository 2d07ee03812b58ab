package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second

	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512 * 1024 // 512KB
)

// Client is one live connection. It starts anonymous and acquires a user
// identity through the authenticate event. Per-connection state never
// outlives the connection.
type Client struct {
	ID   uuid.UUID
	Conn *websocket.Conn
	Send chan []byte
	Hub  *Hub

	// user is uuid.Nil until the client authenticates.
	user  uuid.UUID
	rooms map[uuid.UUID]bool
	mu    sync.RWMutex
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:    uuid.New(),
		Conn:  conn,
		Send:  make(chan []byte, 256),
		rooms: make(map[uuid.UUID]bool),
		Hub:   hub,
	}
}

func (c *Client) userID() uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

func (c *Client) setUserID(id uuid.UUID) {
	c.mu.Lock()
	c.user = id
	c.mu.Unlock()
}

func (c *Client) roomSet() map[uuid.UUID]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	set := make(map[uuid.UUID]bool, len(c.rooms))
	for id := range c.rooms {
		set[id] = true
	}
	return set
}

// IsInRoom reports room membership of this connection.
func (c *Client) IsInRoom(conversationID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[conversationID]
}

// ReadPump reads and dispatches client events until the connection
// drops, then unregisters the connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var evt Event
		if err := c.Conn.ReadJSON(&evt); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Debug().Err(err).Str("client_id", c.ID.String()).Msg("read error")
			}
			break
		}

		if err := c.handleEvent(&evt); err != nil {
			c.SendError(err.Error())
		}
	}
}

func (c *Client) handleEvent(evt *Event) error {
	switch evt.Event {
	case EventAuthenticate:
		var userID uuid.UUID
		if err := json.Unmarshal(evt.Data, &userID); err != nil {
			return ErrInvalidEvent
		}
		c.Hub.Authenticate(c, userID)
		return nil

	case EventJoinConversation:
		conversationID, err := conversationIDFrom(evt.Data)
		if err != nil {
			return err
		}
		c.Hub.JoinRoom(c, conversationID)
		return nil

	case EventLeaveConversation:
		conversationID, err := conversationIDFrom(evt.Data)
		if err != nil {
			return err
		}
		c.Hub.LeaveRoom(c, conversationID)
		return nil

	case EventSendMessage:
		// The durable write already happened over HTTP; the payload is
		// the ledger-accepted message and is only re-broadcast here.
		var payload struct {
			ConversationID uuid.UUID       `json:"conversationId"`
			Message        json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal(evt.Data, &payload); err != nil || payload.ConversationID == uuid.Nil {
			return ErrInvalidEvent
		}
		out, err := MarshalEvent(EventNewMessage, payload.Message)
		if err != nil {
			return err
		}
		c.Hub.BroadcastToRoom(payload.ConversationID, out)
		return nil

	case EventTyping:
		var payload struct {
			ConversationID uuid.UUID `json:"conversationId"`
			UserName       string    `json:"userName"`
		}
		if err := json.Unmarshal(evt.Data, &payload); err != nil || payload.ConversationID == uuid.Nil {
			return ErrInvalidEvent
		}
		out, err := MarshalEvent(EventUserTyping, payload)
		if err != nil {
			return err
		}
		c.Hub.BroadcastToRoomExcept(payload.ConversationID, out, c.ID)
		return nil

	case EventStopTyping:
		var payload struct {
			ConversationID uuid.UUID `json:"conversationId"`
		}
		if err := json.Unmarshal(evt.Data, &payload); err != nil || payload.ConversationID == uuid.Nil {
			return ErrInvalidEvent
		}
		out, err := MarshalEvent(EventUserStopTyping, payload)
		if err != nil {
			return err
		}
		c.Hub.BroadcastToRoomExcept(payload.ConversationID, out, c.ID)
		return nil

	default:
		return ErrUnknownEvent
	}
}

func conversationIDFrom(data json.RawMessage) (uuid.UUID, error) {
	var id uuid.UUID
	if err := json.Unmarshal(data, &id); err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidEvent
	}
	return id, nil
}

// WritePump drains the send queue to the connection and keeps the
// transport alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendEvent queues an event for this connection. Best effort: a full
// queue drops the event.
func (c *Client) SendEvent(event string, data interface{}) error {
	payload, err := MarshalEvent(event, data)
	if err != nil {
		return err
	}

	select {
	case c.Send <- payload:
		return nil
	default:
		return ErrClientQueueFull
	}
}

func (c *Client) SendError(message string) {
	c.SendEvent(EventError, map[string]string{"error": message})
}
