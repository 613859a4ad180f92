// internal/model/user.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email       string    `gorm:"type:text;uniqueIndex;not null" json:"email"`
	DisplayName string    `gorm:"type:text;not null" json:"displayName"`
	Slug        string    `gorm:"type:text;uniqueIndex;not null" json:"slug"`
	AvatarURL   string    `gorm:"type:text" json:"avatarUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
