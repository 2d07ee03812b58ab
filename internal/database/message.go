package database

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"relaychat/internal/models"
)

// ErrNotParticipant reports that the sender's membership row was gone
// at write time.
var ErrNotParticipant = errors.New("sender is not a participant of the conversation")

// SaveMessage inserts the message and re-checks the sender's membership
// inside the same transaction. A removal that lands while the insert is
// in flight rolls the message back with ErrNotParticipant.
func (d *Database) SaveMessage(message *models.Message) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}

		var count int64
		err := tx.Model(&models.Participant{}).
			Where("conversation_id = ? AND user_id = ?", message.ConversationID, message.SenderID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrNotParticipant
		}
		return nil
	})
}

// GetConversationMessages returns up to limit messages in ascending
// sent-at order, sender profiles loaded. The id column breaks sent-at
// ties so repeated reads always see the same order.
func (d *Database) GetConversationMessages(conversationID uuid.UUID, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := d.db.
		Where("conversation_id = ?", conversationID).
		Order("sent_at ASC, id ASC").
		Limit(limit).
		Preload("Sender").
		Find(&messages).Error
	return messages, err
}

// GetLastMessage returns the newest message of the conversation, or nil
// when there is none.
func (d *Database) GetLastMessage(conversationID uuid.UUID) (*models.Message, error) {
	var messages []models.Message
	err := d.db.
		Where("conversation_id = ?", conversationID).
		Order("sent_at DESC, id DESC").
		Limit(1).
		Preload("Sender").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return &messages[0], nil
}
