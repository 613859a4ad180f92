// internal/service/user.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dangerclosesec/huddle/internal/domain"
	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/dangerclosesec/huddle/internal/repository"
	"github.com/dangerclosesec/huddle/internal/slug"
	"github.com/google/uuid"
)

type UserService struct {
	repo repository.UserRepositoryIface
}

func NewUserService(repo repository.UserRepositoryIface) *UserService {
	return &UserService{repo: repo}
}

type RegisterInput struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"displayName" validate:"max=100"`
	AvatarURL   string `json:"avatarUrl" validate:"omitempty,url"`
}

// Register creates a user with a globally unique slug derived from the
// display name, or from the email local part when no name is given.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailAlreadyTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	name := strings.TrimSpace(input.DisplayName)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	user := &model.User{Email: email, DisplayName: name, AvatarURL: input.AvatarURL}
	err := slug.Assign(ctx,
		func(ctx context.Context) (string, error) {
			return slug.Generate(ctx, slug.ScopeFunc(s.repo.SlugExists), name)
		},
		func(candidate string) error {
			user.Slug = candidate
			return s.repo.Create(ctx, user)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("registering user: %w", err)
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if id == uuid.Nil {
		return nil, domain.ErrMissingUser
	}
	return s.repo.FindByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}
