package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dangerclosesec/huddle/internal/domain"
	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/dangerclosesec/huddle/internal/permission"
	"github.com/dangerclosesec/huddle/internal/repository"
	"github.com/google/uuid"
)

type NotificationService struct {
	repo repository.NotificationRepositoryIface
}

func NewNotificationService(repo repository.NotificationRepositoryIface) *NotificationService {
	return &NotificationService{repo: repo}
}

// NotifyPost tells everyone who can see the post's discussion, except its
// author, that something was posted. Failures are logged and swallowed.
func (s *NotificationService) NotifyPost(ctx context.Context, chain *permission.Chain, post *model.Post) []*model.Notification {
	recipients := chain.Team.MemberIDs
	if chain.Discussion.IsPrivate {
		recipients = chain.Discussion.MemberIDs
	}

	topicID, discussionID := post.TopicID, post.DiscussionID
	content := fmt.Sprintf("New post in %q", chain.Discussion.Name)

	notifications := make([]*model.Notification, 0, len(recipients))
	for _, id := range recipients {
		if id == post.CreatedUserID {
			continue
		}
		notifications = append(notifications, &model.Notification{
			UserID:       id,
			TeamID:       post.TeamID,
			TopicID:      &topicID,
			DiscussionID: &discussionID,
			Content:      content,
		})
	}

	if err := s.repo.CreateBatch(ctx, notifications); err != nil {
		slog.ErrorContext(ctx, "failed to create post notifications", "post_id", post.ID, "error", err)
		return nil
	}
	return notifications
}

type ListNotificationsInput struct {
	Skip  int
	Limit int
}

func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, input ListNotificationsInput) ([]model.Notification, error) {
	if userID == uuid.Nil {
		return nil, domain.ErrMissingUser
	}
	p, err := page(input.Skip, input.Limit)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByUser(ctx, userID, p)
}

type DeleteNotificationsInput struct {
	NotificationIDs []uuid.UUID `json:"notificationIds" validate:"required,min=1"`
}

// Delete removes the caller's own notifications among the given ids.
func (s *NotificationService) Delete(ctx context.Context, userID uuid.UUID, input DeleteNotificationsInput) (int64, error) {
	if userID == uuid.Nil {
		return 0, domain.ErrMissingUser
	}
	if err := validateInput(input); err != nil {
		return 0, err
	}
	return s.repo.DeleteForUser(ctx, userID, input.NotificationIDs)
}
