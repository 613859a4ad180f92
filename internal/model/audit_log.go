package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog records an authorization decision or a mutation of the team hierarchy
type AuditLog struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Timestamp  time.Time  `json:"timestamp" gorm:"index"`
	ActionType string     `json:"actionType" gorm:"type:text;not null"`
	Result     *bool      `json:"result"`
	EntityType EntityKind `json:"entityType" gorm:"type:text"`
	EntityID   string     `json:"entityId" gorm:"type:text"`
	SubjectID  string     `json:"subjectId" gorm:"type:text;index"`
	TeamID     *uuid.UUID `json:"teamId,omitempty" gorm:"type:uuid;index"`
	Permission string     `json:"permission" gorm:"type:text"`
	Context    JSONMap    `json:"context" gorm:"type:jsonb"`
	RequestID  string     `json:"requestId" gorm:"type:text"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	return nil
}

// JSONMap represents a generic map stored as JSON in the database
type JSONMap map[string]interface{}

// Value implements the driver.Valuer interface for JSONMap
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for JSONMap
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = make(JSONMap)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion failed: failed to decode json map")
	}

	return json.Unmarshal(bytes, m)
}

// Audit action types
const (
	ActionPermissionCheck = "permission_check"
	ActionEntityCreate    = "entity_create"
	ActionEntityUpdate    = "entity_update"
	ActionEntityDelete    = "entity_delete"
)
