package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is a direct (two-user) or group thread. Group
// conversations carry a name; direct ones resolve their display name
// from the counterpart participant at read time.
type Conversation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string
	IsGroup   bool `gorm:"not null;default:false"`
	CreatedAt time.Time
}

func (c *Conversation) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Participant is the membership join row. At most one row may exist per
// (user, conversation) pair, enforced by the composite unique index.
type Participant struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_participant_user_conv"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_participant_user_conv;index"`
	JoinedAt       time.Time

	User User `gorm:"foreignKey:UserID"`
}

func (p *Participant) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
