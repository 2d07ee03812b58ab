package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"relaychat/internal/handlers/dto"
	"relaychat/internal/middleware"
	"relaychat/internal/services"
)

type ConversationHandler struct {
	directory *services.Directory
	log       zerolog.Logger
}

func NewConversationHandler(directory *services.Directory, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		directory: directory,
		log:       log.With().Str("handler", "conversation").Logger(),
	}
}

// List returns the requester's conversation summaries.
func (h *ConversationHandler) List(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	summaries, err := h.directory.ListForUser(userID)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// Create starts a group conversation, or finds-or-creates the direct
// conversation with the single given participant. Direct creation is
// idempotent; the existed flag tells the caller which happened.
func (h *ConversationHandler) Create(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req dto.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	if req.IsGroup {
		conv, err := h.directory.CreateGroup(userID, req.Name, req.ParticipantIDs)
		if err != nil {
			respondServiceError(c, h.log, err)
			return
		}
		c.JSON(http.StatusCreated, dto.CreateConversationResponse{
			Conversation: dto.ConversationRef{ID: conv.ID},
			Existed:      false,
		})
		return
	}

	if len(req.ParticipantIDs) != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "direct conversations take exactly one participant id"})
		return
	}

	conv, existed, err := h.directory.CreateOrReuseDirect(userID, req.ParticipantIDs[0])
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	c.JSON(status, dto.CreateConversationResponse{
		Conversation: dto.ConversationRef{ID: conv.ID},
		Existed:      existed,
	})
}

// AddParticipants adds users to a group conversation; already-present
// users are skipped and only actual inserts are counted.
func (h *ConversationHandler) AddParticipants(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid conversation id"})
		return
	}

	var req dto.AddParticipantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	added, err := h.directory.AddParticipants(conversationID, userID, req.UserIDs)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"addedCount": added})
}

// RemoveParticipant removes the user named by the userId query
// parameter. Any current member may remove any other member; there is no
// owner or admin role.
func (h *ConversationHandler) RemoveParticipant(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid conversation id"})
		return
	}

	targetID, err := uuid.Parse(c.Query("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "userId query parameter is required"})
		return
	}

	if err := h.directory.RemoveParticipant(conversationID, userID, targetID); err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "participant removed"})
}
