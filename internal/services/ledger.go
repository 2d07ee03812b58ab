package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"relaychat/internal/database"
	"relaychat/internal/models"
)

// DefaultPageSize caps how many messages a single List call returns.
const DefaultPageSize = 100

// HydratedMessage is a message row enriched with the sender's display
// name and avatar.
type HydratedMessage struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversationId"`
	SenderID       uuid.UUID `json:"senderId"`
	SenderName     string    `json:"senderName"`
	SenderAvatar   string    `json:"senderAvatar,omitempty"`
	Content        string    `json:"content"`
	MediaURL       string    `json:"mediaUrl,omitempty"`
	MediaType      string    `json:"mediaType,omitempty"`
	SentAt         time.Time `json:"sentAt"`
}

// Ledger is the source of truth for messages: it appends durable rows
// and reads them back in stable chronological order. It never pushes to
// live connections; fan-out is the hub's job and happens after a
// successful append.
type Ledger struct {
	db  *database.Database
	log zerolog.Logger
}

func NewLedger(db *database.Database, log zerolog.Logger) *Ledger {
	return &Ledger{db: db, log: log.With().Str("component", "ledger").Logger()}
}

// Append durably writes a message and returns it hydrated with the
// sender profile read at write time. The sender must be a current
// participant, and content and media cannot both be absent.
func (l *Ledger) Append(conversationID, senderID uuid.UUID, content, mediaURL, mediaType string) (*HydratedMessage, error) {
	if content == "" && mediaURL == "" {
		return nil, fmt.Errorf("%w: message content or media is required", ErrInvalidArgument)
	}

	isMember, err := l.db.IsParticipant(conversationID, senderID)
	if err != nil {
		return nil, fmt.Errorf("check participation: %w", err)
	}
	if !isMember {
		return nil, fmt.Errorf("%w: sender is not a participant", ErrForbidden)
	}

	sender, err := l.db.GetUser(senderID)
	if err != nil {
		return nil, fmt.Errorf("load sender: %w", err)
	}

	message := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		MediaURL:       mediaURL,
		MediaType:      mediaType,
		SentAt:         time.Now(),
	}
	if err := l.db.SaveMessage(message); err != nil {
		if errors.Is(err, database.ErrNotParticipant) {
			return nil, fmt.Errorf("%w: sender is not a participant", ErrForbidden)
		}
		return nil, fmt.Errorf("save message: %w", err)
	}

	l.log.Debug().
		Str("conversation_id", conversationID.String()).
		Str("message_id", message.ID.String()).
		Msg("message appended")

	message.Sender = *sender
	return hydrate(message), nil
}

// List returns up to limit messages of the conversation in ascending
// sent-at order, hydrated with live sender data. The second return value
// reports whether more messages exist past the page.
func (l *Ledger) List(conversationID, requesterID uuid.UUID, limit int) ([]HydratedMessage, bool, error) {
	if limit <= 0 || limit > DefaultPageSize {
		limit = DefaultPageSize
	}

	isMember, err := l.db.IsParticipant(conversationID, requesterID)
	if err != nil {
		return nil, false, fmt.Errorf("check participation: %w", err)
	}
	if !isMember {
		return nil, false, fmt.Errorf("%w: requester is not a participant", ErrForbidden)
	}

	// One extra row decides hasMore without a count query.
	messages, err := l.db.GetConversationMessages(conversationID, limit+1)
	if err != nil {
		return nil, false, fmt.Errorf("list messages: %w", err)
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}

	hydrated := lo.Map(messages, func(m models.Message, _ int) HydratedMessage {
		return *hydrate(&m)
	})
	return hydrated, hasMore, nil
}

func hydrate(m *models.Message) *HydratedMessage {
	return &HydratedMessage{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     m.Sender.Name,
		SenderAvatar:   m.Sender.AvatarURL,
		Content:        m.Content,
		MediaURL:       m.MediaURL,
		MediaType:      m.MediaType,
		SentAt:         m.SentAt,
	}
}
