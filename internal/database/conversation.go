package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"relaychat/internal/models"
)

func (d *Database) GetConversation(id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	if err := d.db.First(&conv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// CreateGroupConversation creates the conversation row plus one
// participant row per member in a single transaction.
func (d *Database) CreateGroupConversation(name string, memberIDs []uuid.UUID) (*models.Conversation, error) {
	conv := models.Conversation{
		Name:      name,
		IsGroup:   true,
		CreatedAt: time.Now(),
	}

	err := d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		for _, userID := range memberIDs {
			p := models.Participant{
				UserID:         userID,
				ConversationID: conv.ID,
				JoinedAt:       time.Now(),
			}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// CreateDirectConversation inserts a non-group conversation with exactly
// the two given participants, atomically.
func (d *Database) CreateDirectConversation(userA, userB uuid.UUID) (*models.Conversation, error) {
	conv := models.Conversation{
		IsGroup:   false,
		CreatedAt: time.Now(),
	}

	err := d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		for _, userID := range []uuid.UUID{userA, userB} {
			p := models.Participant{
				UserID:         userID,
				ConversationID: conv.ID,
				JoinedAt:       time.Now(),
			}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindDirectConversation returns the non-group conversation both users
// participate in, oldest first when the data holds more than one.
func (d *Database) FindDirectConversation(userA, userB uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := d.db.
		Joins("JOIN participants p1 ON p1.conversation_id = conversations.id AND p1.user_id = ?", userA).
		Joins("JOIN participants p2 ON p2.conversation_id = conversations.id AND p2.user_id = ?", userB).
		Where("conversations.is_group = ?", false).
		Order("conversations.created_at").
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (d *Database) AddParticipant(conversationID, userID uuid.UUID) error {
	p := models.Participant{
		UserID:         userID,
		ConversationID: conversationID,
		JoinedAt:       time.Now(),
	}
	return d.db.Create(&p).Error
}

// AddParticipants inserts membership rows for all the given users in
// one statement. Users who already hold a row are skipped by the
// conflict clause, so a concurrent caller winning the insert is not an
// error. Returns the number of rows actually inserted.
func (d *Database) AddParticipants(conversationID uuid.UUID, userIDs []uuid.UUID) (int, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}

	now := time.Now()
	rows := make([]models.Participant, 0, len(userIDs))
	for _, userID := range userIDs {
		rows = append(rows, models.Participant{
			UserID:         userID,
			ConversationID: conversationID,
			JoinedAt:       now,
		})
	}

	res := d.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func (d *Database) RemoveParticipant(conversationID, userID uuid.UUID) error {
	return d.db.
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Delete(&models.Participant{}).Error
}

func (d *Database) IsParticipant(conversationID, userID uuid.UUID) (bool, error) {
	var count int64
	err := d.db.Model(&models.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	return count > 0, err
}

// GetParticipants returns the membership rows with user profiles loaded.
func (d *Database) GetParticipants(conversationID uuid.UUID) ([]models.Participant, error) {
	var participants []models.Participant
	err := d.db.
		Where("conversation_id = ?", conversationID).
		Preload("User").
		Find(&participants).Error
	return participants, err
}

// GetUserConversations returns every conversation the user participates in.
func (d *Database) GetUserConversations(userID uuid.UUID) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := d.db.
		Joins("JOIN participants ON participants.conversation_id = conversations.id").
		Where("participants.user_id = ?", userID).
		Find(&convs).Error
	return convs, err
}
