// internal/repository/discussion.go
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/dangerclosesec/huddle/internal/domain"
	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DiscussionFilter selects the discussions of a topic visible to a user.
type DiscussionFilter struct {
	TopicID   uuid.UUID
	UserID    uuid.UUID
	Search    string
	ExcludeID uuid.UUID
}

type DiscussionRepositoryIface interface {
	Create(ctx context.Context, discussion *model.Discussion) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Discussion, error)
	FindBySlug(ctx context.Context, topicID uuid.UUID, slug string) (*model.Discussion, error)
	Update(ctx context.Context, discussion *model.Discussion) error
	TogglePin(ctx context.Context, id uuid.UUID) (*model.Discussion, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SlugExists(ctx context.Context, topicID uuid.UUID, slug string) (bool, error)
	Count(ctx context.Context, filter DiscussionFilter, pinned *bool) (int64, error)
	List(ctx context.Context, filter DiscussionFilter, pinned bool, page Page) ([]model.Discussion, error)
}

type DiscussionRepository struct {
	db *gorm.DB
}

func NewDiscussionRepository(db *gorm.DB) *DiscussionRepository {
	return &DiscussionRepository{db: db}
}

func (r *DiscussionRepository) Create(ctx context.Context, discussion *model.Discussion) error {
	err := r.db.WithContext(ctx).Create(discussion).Error
	return translate(err, "creating discussion", nil, domain.ErrSlugTaken)
}

func (r *DiscussionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Discussion, error) {
	var discussion model.Discussion
	if err := r.db.WithContext(ctx).First(&discussion, "id = ?", id).Error; err != nil {
		return nil, translate(err, "finding discussion", domain.ErrDiscussionNotFound, nil)
	}
	return &discussion, nil
}

func (r *DiscussionRepository) FindBySlug(ctx context.Context, topicID uuid.UUID, slug string) (*model.Discussion, error) {
	var discussion model.Discussion
	err := r.db.WithContext(ctx).First(&discussion, "topic_id = ? AND slug = ?", topicID, slug).Error
	if err != nil {
		return nil, translate(err, "finding discussion", domain.ErrDiscussionNotFound, nil)
	}
	return &discussion, nil
}

// Update writes the name, members and privacy of discussion and reloads it.
// The team row is locked first so a concurrent member removal either lands
// before the write, and its user is dropped here, or waits for it.
func (r *DiscussionRepository) Update(ctx context.Context, discussion *model.Discussion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var team model.Team
		if err := forUpdate(tx).First(&team, "id = ?", discussion.TeamID).Error; err != nil {
			return translate(err, "locking team", domain.ErrTeamNotFound, nil)
		}
		members := make(model.IDList, 0, len(discussion.MemberIDs))
		for _, id := range discussion.MemberIDs {
			if team.IsMember(id) {
				members = append(members, id)
			}
		}
		discussion.MemberIDs = members

		result := tx.Model(discussion).
			Select("name", "member_ids", "is_private", "updated_at").
			Updates(discussion)
		if err := translate(result.Error, "updating discussion", nil, domain.ErrSlugTaken); err != nil {
			return err
		}
		if result.RowsAffected == 0 {
			return domain.ErrDiscussionNotFound
		}
		if err := tx.First(discussion, "id = ?", discussion.ID).Error; err != nil {
			return translate(err, "reloading discussion", domain.ErrDiscussionNotFound, nil)
		}
		return nil
	})
}

// TogglePin flips the pinned flag in place and returns the stored discussion.
func (r *DiscussionRepository) TogglePin(ctx context.Context, id uuid.UUID) (*model.Discussion, error) {
	var discussion model.Discussion
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Discussion{}).Where("id = ?", id).
			Updates(map[string]interface{}{
				"is_pinned":  gorm.Expr("NOT is_pinned"),
				"updated_at": tx.NowFunc(),
			})
		if result.Error != nil {
			return fmt.Errorf("toggling pin: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.ErrDiscussionNotFound
		}
		if err := tx.First(&discussion, "id = ?", id).Error; err != nil {
			return translate(err, "reloading discussion", domain.ErrDiscussionNotFound, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &discussion, nil
}

// Delete removes the discussion, its posts and the notifications pointing at it.
func (r *DiscussionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("discussion_id = ?", id).Delete(&model.Notification{}).Error; err != nil {
			return fmt.Errorf("deleting discussion notifications: %w", err)
		}
		if err := tx.Where("discussion_id = ?", id).Delete(&model.Post{}).Error; err != nil {
			return fmt.Errorf("deleting discussion posts: %w", err)
		}
		result := tx.Delete(&model.Discussion{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("deleting discussion: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.ErrDiscussionNotFound
		}
		return nil
	})
}

func (r *DiscussionRepository) SlugExists(ctx context.Context, topicID uuid.UUID, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Discussion{}).
		Where("topic_id = ? AND slug = ?", topicID, slug).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking discussion slug: %w", err)
	}
	return count > 0, nil
}

// Count returns the number of visible discussions. A nil pinned counts both
// pinned and unpinned ones.
func (r *DiscussionRepository) Count(ctx context.Context, filter DiscussionFilter, pinned *bool) (int64, error) {
	var count int64
	q := r.visible(ctx, filter)
	if pinned != nil {
		q = q.Where("is_pinned = ?", *pinned)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting discussions: %w", err)
	}
	return count, nil
}

func (r *DiscussionRepository) List(ctx context.Context, filter DiscussionFilter, pinned bool, page Page) ([]model.Discussion, error) {
	var discussions []model.Discussion
	q := r.visible(ctx, filter).Where("is_pinned = ?", pinned)
	if err := page.apply(q).Find(&discussions).Error; err != nil {
		return nil, fmt.Errorf("listing discussions: %w", err)
	}
	return discussions, nil
}

func (r *DiscussionRepository) visible(ctx context.Context, filter DiscussionFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Discussion{}).
		Where("topic_id = ?", filter.TopicID).
		Where("(is_private = ? OR member_ids LIKE ?)", false, memberPattern(filter.UserID))
	if search := strings.TrimSpace(filter.Search); search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if filter.ExcludeID != uuid.Nil {
		q = q.Where("id <> ?", filter.ExcludeID)
	}
	return q
}
