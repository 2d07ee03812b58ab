package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"relaychat/internal/handlers/dto"
	"relaychat/internal/middleware"
	"relaychat/internal/services"
)

type MessageHandler struct {
	ledger *services.Ledger
	log    zerolog.Logger
}

func NewMessageHandler(ledger *services.Ledger, log zerolog.Logger) *MessageHandler {
	return &MessageHandler{ledger: ledger, log: log.With().Str("handler", "message").Logger()}
}

// List returns up to 100 messages in ascending sent-at order, with a
// has_more flag for anything past the page.
func (h *MessageHandler) List(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid conversation id"})
		return
	}

	limit := services.DefaultPageSize
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	messages, hasMore, err := h.ledger.List(conversationID, userID, limit)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"has_more": hasMore,
	})
}

// Send appends a message through the ledger. The caller broadcasts the
// returned canonical message over its socket afterwards; the two steps
// are deliberately decoupled.
func (h *MessageHandler) Send(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid conversation id"})
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	message, err := h.ledger.Append(conversationID, userID, req.Content, req.MediaURL, req.MediaType)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": message})
}
