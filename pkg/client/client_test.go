package client_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "relaychat/internal/websocket"
	"relaychat/pkg/client"
)

// testGateway is a bare websocket endpoint in front of a hub, with the
// server side of every connection captured so tests can sever them.
type testGateway struct {
	hub *ws.Hub
	srv *httptest.Server

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()

	g := &testGateway{hub: ws.NewHub(zerolog.Nop())}
	go g.hub.Run()
	t.Cleanup(g.hub.Stop)

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		g.mu.Lock()
		g.conns = append(g.conns, conn)
		g.mu.Unlock()

		c := ws.NewClient(g.hub, conn)
		g.hub.Register(c)
		go c.WritePump()
		go c.ReadPump()
	}))
	t.Cleanup(g.srv.Close)
	return g
}

func (g *testGateway) url() string {
	return "ws" + strings.TrimPrefix(g.srv.URL, "http")
}

// severAll closes every server-side connection, simulating a dropped
// network path.
func (g *testGateway) severAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, conn := range g.conns {
		conn.Close()
	}
	g.conns = nil
}

func TestDialAuthenticatesAndJoins(t *testing.T) {
	g := newTestGateway(t)
	userID := uuid.New()
	room := uuid.New()

	events := make(chan string, 16)
	c, err := client.Dial(g.url(), userID, func(event string, _ json.RawMessage) {
		events <- event
	})
	require.NoError(t, err)
	defer c.Close()

	require.Eventually(t, func() bool {
		return g.hub.UserConnected(userID)
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.JoinConversation(room))
	require.Eventually(t, func() bool {
		return g.hub.RoomSize(room) == 1
	}, 2*time.Second, 10*time.Millisecond)

	payload, err := ws.MarshalEvent(ws.EventNewMessage, map[string]string{"content": "ping"})
	require.NoError(t, err)
	g.hub.BroadcastToRoom(room, payload)

	select {
	case event := <-events:
		assert.Equal(t, ws.EventNewMessage, event)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestReconnectRejoinsRooms(t *testing.T) {
	g := newTestGateway(t)
	userID := uuid.New()
	room := uuid.New()

	events := make(chan string, 16)
	c, err := client.Dial(g.url(), userID, func(event string, _ json.RawMessage) {
		events <- event
	})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.JoinConversation(room))
	require.Eventually(t, func() bool {
		return g.hub.RoomSize(room) == 1
	}, 2*time.Second, 10*time.Millisecond)

	g.severAll()
	require.Eventually(t, func() bool {
		return g.hub.RoomSize(room) == 0
	}, 2*time.Second, 10*time.Millisecond)

	// The client redials on its own and replays authenticate plus the
	// tracked room, so the fresh connection lands back in the room.
	require.Eventually(t, func() bool {
		return g.hub.RoomSize(room) == 1 && g.hub.UserConnected(userID)
	}, 10*time.Second, 50*time.Millisecond)

	payload, err := ws.MarshalEvent(ws.EventNewMessage, map[string]string{"content": "after reconnect"})
	require.NoError(t, err)
	g.hub.BroadcastToRoom(room, payload)

	select {
	case event := <-events:
		assert.Equal(t, ws.EventNewMessage, event)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for post-reconnect broadcast")
	}
}

func TestEmitAfterClose(t *testing.T) {
	g := newTestGateway(t)

	c, err := client.Dial(g.url(), uuid.New(), nil)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.BroadcastMessage(uuid.New(), map[string]string{"content": "x"}), client.ErrClosed)
	assert.NoError(t, c.Close())
}
