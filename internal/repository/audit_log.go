package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLogRepository handles database operations for audit logs
type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Create inserts a new audit log entry
func (r *AuditLogRepository) Create(ctx context.Context, log *model.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// AuditQuery holds parameters for querying audit logs
type AuditQuery struct {
	TeamID     uuid.UUID
	ActionType string
	EntityType model.EntityKind
	SubjectID  string
	Result     *bool
	StartTime  time.Time
	EndTime    time.Time
	Limit      int
	Offset     int
}

// Query retrieves audit logs matching params, newest first
func (r *AuditLogRepository) Query(ctx context.Context, params AuditQuery) ([]model.AuditLog, int64, error) {
	var (
		logs  []model.AuditLog
		count int64
	)

	query := r.db.WithContext(ctx).Model(&model.AuditLog{})
	if params.TeamID != uuid.Nil {
		query = query.Where("team_id = ?", params.TeamID)
	}
	if params.ActionType != "" {
		query = query.Where("action_type = ?", params.ActionType)
	}
	if params.EntityType != "" {
		query = query.Where("entity_type = ?", params.EntityType)
	}
	if params.SubjectID != "" {
		query = query.Where("subject_id = ?", params.SubjectID)
	}
	if params.Result != nil {
		query = query.Where("result = ?", *params.Result)
	}
	if !params.StartTime.IsZero() {
		query = query.Where("timestamp >= ?", params.StartTime)
	}
	if !params.EndTime.IsZero() {
		query = query.Where("timestamp <= ?", params.EndTime)
	}

	if err := query.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	} else {
		query = query.Limit(100)
	}
	if params.Offset > 0 {
		query = query.Offset(params.Offset)
	}

	if err := query.Order("timestamp DESC").Order("id DESC").Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to query audit logs: %w", err)
	}
	return logs, count, nil
}
