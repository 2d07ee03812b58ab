package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Client -> server events.
const (
	EventAuthenticate      = "authenticate"
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventSendMessage       = "send_message"
	EventTyping            = "typing"
	EventStopTyping        = "stop_typing"
)

// Server -> client events.
const (
	EventNewMessage     = "new_message"
	EventUserTyping     = "user_typing"
	EventUserStopTyping = "user_stop_typing"
	EventError          = "error"
)

// Event is the wire envelope for both directions.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// MarshalEvent builds a wire-ready envelope.
func MarshalEvent(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Event: event, Data: raw})
}

// Hub owns all live connections and the room-membership table. It holds
// no durable state: everything here is routing, rebuilt from zero on
// restart. Membership checks against the store are deliberately absent.
// Authorization happens at message-append time in the ledger, and the
// hub only re-broadcasts what the ledger already accepted.
type Hub struct {
	// clients by connection id.
	clients map[uuid.UUID]*Client

	// userConns maps a user to their most recent connection
	// (last-writer-wins). Room broadcasts reach every connection in the
	// room regardless of this map.
	userConns map[uuid.UUID]*Client

	// rooms maps a conversation id to the set of connections joined to it.
	rooms map[uuid.UUID]map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	log zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(log zerolog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		userConns:  make(map[uuid.UUID]*Client),
		rooms:      make(map[uuid.UUID]map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log.With().Str("component", "hub").Logger(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run processes registrations until Stop.
func (h *Hub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			// Transport pings are written by the per-client write pumps;
			// the ticker only reports liveness.
			h.mu.RLock()
			h.log.Debug().Int("clients", len(h.clients)).Msg("hub alive")
			h.mu.RUnlock()
		}
	}
}

// Stop closes every connection and ends the run loop. Equivalent to all
// clients disconnecting at once.
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.Send)
		if client.Conn != nil {
			client.Conn.Close()
		}
	}
	h.clients = make(map[uuid.UUID]*Client)
	h.userConns = make(map[uuid.UUID]*Client)
	h.rooms = make(map[uuid.UUID]map[uuid.UUID]*Client)
}

// Register and Unregister hand the client to the run loop. After Stop
// the loop is gone, so both bail out instead of blocking the caller's
// pump goroutine forever.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	h.log.Debug().Str("client_id", client.ID.String()).Msg("client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	for roomID := range client.roomSet() {
		h.removeFromRoomLocked(client, roomID)
	}

	if userID := client.userID(); userID != uuid.Nil {
		// Only drop the mapping if it still points at this connection; a
		// newer connection of the same user may have replaced it.
		if h.userConns[userID] == client {
			delete(h.userConns, userID)
		}
	}

	delete(h.clients, client.ID)
	close(client.Send)

	h.log.Debug().Str("client_id", client.ID.String()).Msg("client unregistered")
}

// Authenticate binds a user identity to the connection. The most recent
// connection wins any user-targeted addressing.
func (h *Hub) Authenticate(client *Client, userID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.setUserID(userID)
	h.userConns[userID] = client

	h.log.Debug().
		Str("client_id", client.ID.String()).
		Str("user_id", userID.String()).
		Msg("client authenticated")
}

// JoinRoom adds the connection to the conversation's member set. A
// connection may be in any number of rooms at once.
func (h *Hub) JoinRoom(client *Client, conversationID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[conversationID]; !ok {
		h.rooms[conversationID] = make(map[uuid.UUID]*Client)
	}
	h.rooms[conversationID][client.ID] = client

	client.mu.Lock()
	client.rooms[conversationID] = true
	client.mu.Unlock()
}

func (h *Hub) LeaveRoom(client *Client, conversationID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoomLocked(client, conversationID)
}

func (h *Hub) removeFromRoomLocked(client *Client, conversationID uuid.UUID) {
	room, ok := h.rooms[conversationID]
	if !ok {
		return
	}

	delete(room, client.ID)
	client.mu.Lock()
	delete(client.rooms, conversationID)
	client.mu.Unlock()

	if len(room) == 0 {
		delete(h.rooms, conversationID)
	}
}

// BroadcastToRoom delivers payload to every connection in the room,
// including the sender's own. Connections with a full send queue are
// skipped; the ledger read path is authoritative and clients reconcile
// by message id.
func (h *Hub) BroadcastToRoom(conversationID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.broadcastLocked(conversationID, payload, uuid.Nil)
}

// BroadcastToRoomExcept is BroadcastToRoom minus one connection, used
// for typing signals which never echo back to their origin.
func (h *Hub) BroadcastToRoomExcept(conversationID uuid.UUID, payload []byte, excludeID uuid.UUID) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.broadcastLocked(conversationID, payload, excludeID)
}

func (h *Hub) broadcastLocked(conversationID uuid.UUID, payload []byte, excludeID uuid.UUID) {
	room, ok := h.rooms[conversationID]
	if !ok {
		return
	}
	for _, client := range room {
		if client.ID == excludeID {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			h.log.Warn().
				Str("client_id", client.ID.String()).
				Msg("send queue full, dropping broadcast")
		}
	}
}

// UserConnected reports whether the user currently has a tracked
// connection.
func (h *Hub) UserConnected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.userConns[userID]
	return ok
}

// RoomSize returns how many connections are joined to the conversation.
func (h *Hub) RoomSize(conversationID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms[conversationID])
}
