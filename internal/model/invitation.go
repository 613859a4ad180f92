package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Invitation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TeamID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_invitations_team_email,priority:1" json:"teamId"`
	Email     string    `gorm:"type:text;not null;uniqueIndex:idx_invitations_team_email,priority:2" json:"email"`
	Token     string    `gorm:"type:text;not null;uniqueIndex" json:"-"`
	InvitedBy uuid.UUID `gorm:"type:uuid;not null" json:"invitedBy"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `gorm:"not null" json:"expiresAt"`
}

func (i *Invitation) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (i *Invitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
