package dto

import "github.com/google/uuid"

type CreateConversationRequest struct {
	ParticipantIDs []uuid.UUID `json:"participantIds" binding:"required"`
	IsGroup        bool        `json:"isGroup"`
	Name           string      `json:"name"`
}

type ConversationRef struct {
	ID uuid.UUID `json:"id"`
}

type CreateConversationResponse struct {
	Conversation ConversationRef `json:"conversation"`
	Existed      bool            `json:"existed"`
}

type AddParticipantsRequest struct {
	UserIDs []uuid.UUID `json:"userIds" binding:"required"`
}
