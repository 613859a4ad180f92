// internal/repository/notification.go
package repository

import (
	"context"
	"fmt"

	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepositoryIface interface {
	CreateBatch(ctx context.Context, notifications []*model.Notification) error
	FindByUser(ctx context.Context, userID uuid.UUID, page Page) ([]model.Notification, error)
	DeleteForUser(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error)
}

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) CreateBatch(ctx context.Context, notifications []*model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&notifications).Error; err != nil {
		return fmt.Errorf("creating notifications: %w", err)
	}
	return nil
}

func (r *NotificationRepository) FindByUser(ctx context.Context, userID uuid.UUID, page Page) ([]model.Notification, error) {
	var notifications []model.Notification
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if err := page.apply(q).Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("finding notifications: %w", err)
	}
	return notifications, nil
}

// DeleteForUser removes the listed notifications owned by userID; ids owned by
// other users are left alone.
func (r *NotificationRepository) DeleteForUser(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Delete(&model.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}
