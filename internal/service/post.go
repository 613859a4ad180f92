package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/dangerclosesec/huddle/internal/audit"
	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/dangerclosesec/huddle/internal/permission"
	"github.com/dangerclosesec/huddle/internal/repository"
	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

type PostService struct {
	posts         repository.PostRepositoryIface
	checker       *permission.Checker
	notifications *NotificationService
	markdown      goldmark.Markdown
	audit         audit.Logger
}

func NewPostService(posts repository.PostRepositoryIface, checker *permission.Checker, notifications *NotificationService, auditLogger audit.Logger) *PostService {
	return &PostService{
		posts:         posts,
		checker:       checker,
		notifications: notifications,
		markdown:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
		audit:         orNoop(auditLogger),
	}
}

type AddPostInput struct {
	DiscussionID uuid.UUID `json:"discussionId" validate:"required"`
	Content      string    `json:"content" validate:"required,max=20000"`
}

type EditPostInput struct {
	ID      uuid.UUID `json:"id" validate:"required"`
	Content string    `json:"content" validate:"required,max=20000"`
}

type PostIDInput struct {
	ID uuid.UUID `json:"id" validate:"required"`
}

type ListPostsInput struct {
	DiscussionID uuid.UUID `validate:"required"`
	Skip         int
	Limit        int
}

// render converts markdown to HTML. Raw HTML in the source is dropped.
func (s *PostService) render(content string) (string, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

// Add posts to a discussion and notifies the other members. The created
// notifications are returned for delivery.
func (s *PostService) Add(ctx context.Context, userID uuid.UUID, input AddPostInput) (*model.Post, []*model.Notification, error) {
	input.Content = strings.TrimSpace(input.Content)
	if err := validateInput(input); err != nil {
		return nil, nil, err
	}
	chain, err := s.checker.Check(ctx, userID, model.DiscussionRef(input.DiscussionID), permission.Read)
	if err != nil {
		return nil, nil, err
	}

	html, err := s.render(input.Content)
	if err != nil {
		return nil, nil, err
	}
	post := &model.Post{
		TeamID:        chain.Team.ID,
		TopicID:       chain.Topic.ID,
		DiscussionID:  chain.Discussion.ID,
		CreatedUserID: userID,
		Content:       input.Content,
		HTMLContent:   html,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, nil, err
	}

	recordCreate(ctx, s.audit, userID, model.PostRef(post.ID), post.TeamID, nil)

	var notifications []*model.Notification
	if s.notifications != nil {
		notifications = s.notifications.NotifyPost(ctx, chain, post)
	}
	return post, notifications, nil
}

func (s *PostService) Edit(ctx context.Context, userID uuid.UUID, input EditPostInput) (*model.Post, error) {
	input.Content = strings.TrimSpace(input.Content)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	chain, err := s.checker.Check(ctx, userID, model.PostRef(input.ID), permission.Author)
	if err != nil {
		return nil, err
	}

	html, err := s.render(input.Content)
	if err != nil {
		return nil, err
	}
	post := chain.Post
	post.Content = input.Content
	post.HTMLContent = html
	post.IsEdited = true
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}

	recordUpdate(ctx, s.audit, userID, model.PostRef(post.ID), post.TeamID, nil)
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, userID uuid.UUID, input PostIDInput) (*model.Post, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	chain, err := s.checker.Check(ctx, userID, model.PostRef(input.ID), permission.Author)
	if err != nil {
		return nil, err
	}
	if err := s.posts.Delete(ctx, input.ID); err != nil {
		return nil, err
	}

	recordDelete(ctx, s.audit, userID, model.PostRef(input.ID), chain.Team.ID)
	return chain.Post, nil
}

// List returns a page of a discussion's posts, newest first.
func (s *PostService) List(ctx context.Context, userID uuid.UUID, input ListPostsInput) ([]model.Post, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	p, err := page(input.Skip, input.Limit)
	if err != nil {
		return nil, err
	}
	if _, err := s.checker.Check(ctx, userID, model.DiscussionRef(input.DiscussionID), permission.Read); err != nil {
		return nil, err
	}
	return s.posts.FindByDiscussion(ctx, input.DiscussionID, p)
}
