package handlers_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaychat/internal/services"
	ws "relaychat/internal/websocket"
	"relaychat/pkg/client"
)

type wsEvent struct {
	event string
	data  json.RawMessage
}

func newCollector() (client.Handler, chan wsEvent) {
	events := make(chan wsEvent, 16)
	return func(event string, data json.RawMessage) {
		events <- wsEvent{event: event, data: data}
	}, events
}

func waitEvent(t *testing.T, events chan wsEvent, want string) json.RawMessage {
	t.Helper()
	select {
	case evt := <-events:
		require.Equal(t, want, evt.event)
		return evt.data
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", want)
		return nil
	}
}

func assertNoEvent(t *testing.T, events chan wsEvent) {
	t.Helper()
	select {
	case evt := <-events:
		t.Fatalf("unexpected %s event", evt.event)
	case <-time.After(100 * time.Millisecond):
	}
}

func (ts *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"
}

// Write through the API, then fan the canonical message out over the
// socket. Everyone in the room, sender included, sees new_message.
func TestMessageFanout(t *testing.T) {
	ts := newTestServer(t)
	aliceID, aliceToken := ts.register(t, "Alice", "alice@example.com")
	bobID, _ := ts.register(t, "Bob", "bob@example.com")
	conv, _ := ts.createDirect(t, aliceToken, bobID)

	aliceHandler, aliceEvents := newCollector()
	alice, err := client.Dial(ts.wsURL(), aliceID, aliceHandler)
	require.NoError(t, err)
	defer alice.Close()

	bobHandler, bobEvents := newCollector()
	bob, err := client.Dial(ts.wsURL(), bobID, bobHandler)
	require.NoError(t, err)
	defer bob.Close()

	require.NoError(t, alice.JoinConversation(conv))
	require.NoError(t, bob.JoinConversation(conv))
	require.Eventually(t, func() bool {
		return ts.hub.RoomSize(conv) == 2
	}, 2*time.Second, 10*time.Millisecond)

	// Durable write first.
	resp, fields := ts.do(t, http.MethodPost, "/api/conversations/"+conv.String()+"/messages", aliceToken, map[string]string{
		"content": "hello over the wire",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sent services.HydratedMessage
	require.NoError(t, json.Unmarshal(fields["message"], &sent))

	require.NoError(t, alice.BroadcastMessage(conv, sent))

	for _, events := range []chan wsEvent{aliceEvents, bobEvents} {
		data := waitEvent(t, events, ws.EventNewMessage)
		var got services.HydratedMessage
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, "hello over the wire", got.Content)
		assert.Equal(t, "Alice", got.SenderName)
	}
}

func TestTypingSkipsSender(t *testing.T) {
	ts := newTestServer(t)
	aliceID, aliceToken := ts.register(t, "Alice", "alice@example.com")
	bobID, _ := ts.register(t, "Bob", "bob@example.com")
	conv, _ := ts.createDirect(t, aliceToken, bobID)

	aliceHandler, aliceEvents := newCollector()
	alice, err := client.Dial(ts.wsURL(), aliceID, aliceHandler)
	require.NoError(t, err)
	defer alice.Close()

	bobHandler, bobEvents := newCollector()
	bob, err := client.Dial(ts.wsURL(), bobID, bobHandler)
	require.NoError(t, err)
	defer bob.Close()

	require.NoError(t, alice.JoinConversation(conv))
	require.NoError(t, bob.JoinConversation(conv))
	require.Eventually(t, func() bool {
		return ts.hub.RoomSize(conv) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, alice.Typing(conv, "Alice"))

	data := waitEvent(t, bobEvents, ws.EventUserTyping)
	var notice struct {
		ConversationID uuid.UUID `json:"conversationId"`
		UserName       string    `json:"userName"`
	}
	require.NoError(t, json.Unmarshal(data, &notice))
	assert.Equal(t, conv, notice.ConversationID)
	assert.Equal(t, "Alice", notice.UserName)
	assertNoEvent(t, aliceEvents)

	require.NoError(t, alice.StopTyping(conv))
	waitEvent(t, bobEvents, ws.EventUserStopTyping)
}

func TestRoomScopedDelivery(t *testing.T) {
	ts := newTestServer(t)
	aliceID, aliceToken := ts.register(t, "Alice", "alice@example.com")
	bobID, _ := ts.register(t, "Bob", "bob@example.com")
	carolID, _ := ts.register(t, "Carol", "carol@example.com")
	conv, _ := ts.createDirect(t, aliceToken, bobID)

	aliceHandler, _ := newCollector()
	alice, err := client.Dial(ts.wsURL(), aliceID, aliceHandler)
	require.NoError(t, err)
	defer alice.Close()

	bobHandler, bobEvents := newCollector()
	bob, err := client.Dial(ts.wsURL(), bobID, bobHandler)
	require.NoError(t, err)
	defer bob.Close()

	// Carol is connected but never joined the room.
	carolHandler, carolEvents := newCollector()
	carol, err := client.Dial(ts.wsURL(), carolID, carolHandler)
	require.NoError(t, err)
	defer carol.Close()

	require.NoError(t, alice.JoinConversation(conv))
	require.NoError(t, bob.JoinConversation(conv))
	require.Eventually(t, func() bool {
		return ts.hub.RoomSize(conv) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, alice.BroadcastMessage(conv, map[string]string{
		"id":      uuid.NewString(),
		"content": "room only",
	}))

	waitEvent(t, bobEvents, ws.EventNewMessage)
	assertNoEvent(t, carolEvents)
}
