package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Notification struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"userId"`
	TeamID       uuid.UUID  `gorm:"type:uuid;not null" json:"teamId"`
	TopicID      *uuid.UUID `gorm:"type:uuid;index" json:"topicId,omitempty"`
	DiscussionID *uuid.UUID `gorm:"type:uuid;index" json:"discussionId,omitempty"`
	Content      string     `gorm:"type:text;not null" json:"content"`
	CreatedAt    time.Time  `gorm:"index" json:"createdAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
