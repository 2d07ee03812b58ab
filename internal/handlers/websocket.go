package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	ws "relaychat/internal/websocket"
)

// WebSocketHandler upgrades connections into the fan-out hub. The
// connection starts anonymous; identity arrives in-band via the
// authenticate event.
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWebSocketHandler(hub *ws.Hub, log zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// TODO: restrict origin once the deployment domain is fixed
				return true
			},
		},
		log: log.With().Str("handler", "websocket").Logger(),
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
