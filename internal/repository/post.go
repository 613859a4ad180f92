// internal/repository/post.go
package repository

import (
	"context"
	"fmt"

	"github.com/dangerclosesec/huddle/internal/domain"
	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostRepositoryIface interface {
	Create(ctx context.Context, post *model.Post) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error)
	FindByDiscussion(ctx context.Context, discussionID uuid.UUID, page Page) ([]model.Post, error)
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return fmt.Errorf("creating post: %w", err)
	}
	return nil
}

func (r *PostRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	var post model.Post
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, translate(err, "finding post", domain.ErrPostNotFound, nil)
	}
	return &post, nil
}

func (r *PostRepository) FindByDiscussion(ctx context.Context, discussionID uuid.UUID, page Page) ([]model.Post, error) {
	var posts []model.Post
	q := r.db.WithContext(ctx).Where("discussion_id = ?", discussionID)
	if err := page.apply(q).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("finding discussion posts: %w", err)
	}
	return posts, nil
}

func (r *PostRepository) Update(ctx context.Context, post *model.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return fmt.Errorf("updating post: %w", err)
	}
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.Post{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("deleting post: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}
