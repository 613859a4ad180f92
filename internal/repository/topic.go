// internal/repository/topic.go
package repository

import (
	"context"
	"fmt"

	"github.com/dangerclosesec/huddle/internal/domain"
	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TopicRepositoryIface interface {
	Create(ctx context.Context, topic *model.Topic) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Topic, error)
	FindByTeam(ctx context.Context, teamID uuid.UUID) ([]model.Topic, error)
	Update(ctx context.Context, topic *model.Topic) error
	Delete(ctx context.Context, id uuid.UUID) error
	SlugExists(ctx context.Context, teamID uuid.UUID, slug string, excludeID uuid.UUID) (bool, error)
}

type TopicRepository struct {
	db *gorm.DB
}

func NewTopicRepository(db *gorm.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

func (r *TopicRepository) Create(ctx context.Context, topic *model.Topic) error {
	err := r.db.WithContext(ctx).Create(topic).Error
	return translate(err, "creating topic", nil, domain.ErrSlugTaken)
}

func (r *TopicRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Topic, error) {
	var topic model.Topic
	if err := r.db.WithContext(ctx).First(&topic, "id = ?", id).Error; err != nil {
		return nil, translate(err, "finding topic", domain.ErrTopicNotFound, nil)
	}
	return &topic, nil
}

func (r *TopicRepository) FindByTeam(ctx context.Context, teamID uuid.UUID) ([]model.Topic, error) {
	var topics []model.Topic
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at DESC").Order("id DESC").
		Find(&topics).Error
	if err != nil {
		return nil, fmt.Errorf("finding team topics: %w", err)
	}
	return topics, nil
}

func (r *TopicRepository) Update(ctx context.Context, topic *model.Topic) error {
	err := r.db.WithContext(ctx).Save(topic).Error
	return translate(err, "updating topic", nil, domain.ErrSlugTaken)
}

// Delete removes the topic together with its discussions, their posts and
// the notifications pointing at them.
func (r *TopicRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("topic_id = ?", id).Delete(&model.Notification{}).Error; err != nil {
			return fmt.Errorf("deleting topic notifications: %w", err)
		}
		if err := tx.Where("topic_id = ?", id).Delete(&model.Post{}).Error; err != nil {
			return fmt.Errorf("deleting topic posts: %w", err)
		}
		if err := tx.Where("topic_id = ?", id).Delete(&model.Discussion{}).Error; err != nil {
			return fmt.Errorf("deleting topic discussions: %w", err)
		}
		result := tx.Delete(&model.Topic{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("deleting topic: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.ErrTopicNotFound
		}
		return nil
	})
	return err
}

func (r *TopicRepository) SlugExists(ctx context.Context, teamID uuid.UUID, slug string, excludeID uuid.UUID) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.Topic{}).Where("team_id = ? AND slug = ?", teamID, slug)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking topic slug: %w", err)
	}
	return count > 0, nil
}
