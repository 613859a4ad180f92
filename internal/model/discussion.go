package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Discussion struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TeamID        uuid.UUID `gorm:"type:uuid;not null;index" json:"teamId"`
	TopicID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_discussions_topic_slug,priority:1" json:"topicId"`
	CreatedUserID uuid.UUID `gorm:"type:uuid;not null" json:"createdUserId"`
	Name          string    `gorm:"type:text;not null" json:"name"`
	Slug          string    `gorm:"type:text;not null;uniqueIndex:idx_discussions_topic_slug,priority:2" json:"slug"`
	MemberIDs     IDList    `gorm:"type:text;not null" json:"memberIds"`
	IsPrivate     bool      `gorm:"not null;default:false" json:"isPrivate"`
	IsPinned      bool      `gorm:"not null;default:false" json:"isPinned"`
	CreatedAt     time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (d *Discussion) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// CanView reports whether userID may see the discussion, assuming team
// membership was already established.
func (d *Discussion) CanView(userID uuid.UUID) bool {
	return !d.IsPrivate || d.MemberIDs.Contains(userID)
}

type Post struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TeamID        uuid.UUID `gorm:"type:uuid;not null" json:"teamId"`
	TopicID       uuid.UUID `gorm:"type:uuid;not null;index" json:"topicId"`
	DiscussionID  uuid.UUID `gorm:"type:uuid;not null;index" json:"discussionId"`
	CreatedUserID uuid.UUID `gorm:"type:uuid;not null" json:"createdUserId"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	HTMLContent   string    `gorm:"type:text;not null" json:"htmlContent"`
	IsEdited      bool      `gorm:"not null;default:false" json:"isEdited"`
	CreatedAt     time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
