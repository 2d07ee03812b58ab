package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is immutable once written. Content may be empty when media is
// attached, never both.
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Content        string
	MediaURL       string
	MediaType      string
	SentAt         time.Time `gorm:"index"`

	Sender User `gorm:"foreignKey:SenderID"`
}

func (m *Message) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
