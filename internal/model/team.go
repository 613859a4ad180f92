// internal/model/team.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Team struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TeamLeaderID uuid.UUID `gorm:"type:uuid;not null;index" json:"teamLeaderId"`
	Name         string    `gorm:"type:text;not null" json:"name"`
	AvatarURL    string    `gorm:"type:text" json:"avatarUrl"`
	Slug         string    `gorm:"type:text;uniqueIndex;not null" json:"slug"`
	MemberIDs    IDList    `gorm:"type:text;not null" json:"memberIds"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (t *Team) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (t *Team) IsMember(userID uuid.UUID) bool {
	return t.MemberIDs.Contains(userID)
}

func (t *Team) IsLeader(userID uuid.UUID) bool {
	return t.TeamLeaderID == userID
}

type Topic struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TeamID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_topics_team_slug,priority:1" json:"teamId"`
	CreatedUserID uuid.UUID `gorm:"type:uuid;not null" json:"createdUserId"`
	Name          string    `gorm:"type:text;not null" json:"name"`
	Slug          string    `gorm:"type:text;not null;uniqueIndex:idx_topics_team_slug,priority:2" json:"slug"`
	IsProjects    bool      `gorm:"not null;default:false" json:"isProjects"`
	CreatedAt     time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (t *Topic) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
