package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dangerclosesec/huddle/internal/audit"
	"github.com/dangerclosesec/huddle/internal/domain"
	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/dangerclosesec/huddle/internal/permission"
	"github.com/dangerclosesec/huddle/internal/repository"
	"github.com/dangerclosesec/huddle/internal/slug"
	"github.com/google/uuid"
)

type DiscussionService struct {
	discussions repository.DiscussionRepositoryIface
	checker     *permission.Checker
	audit       audit.Logger
}

func NewDiscussionService(discussions repository.DiscussionRepositoryIface, checker *permission.Checker, auditLogger audit.Logger) *DiscussionService {
	return &DiscussionService{discussions: discussions, checker: checker, audit: orNoop(auditLogger)}
}

type AddDiscussionInput struct {
	TopicID   uuid.UUID   `json:"topicId" validate:"required"`
	Name      string      `json:"name" validate:"required,max=200"`
	MemberIDs []uuid.UUID `json:"memberIds"`
	IsPrivate bool        `json:"isPrivate"`
}

type EditDiscussionInput struct {
	ID        uuid.UUID   `json:"id" validate:"required"`
	Name      string      `json:"name" validate:"required,max=200"`
	MemberIDs []uuid.UUID `json:"memberIds"`
	IsPrivate bool        `json:"isPrivate"`
}

type DiscussionIDInput struct {
	ID uuid.UUID `json:"id" validate:"required"`
}

type ListDiscussionsInput struct {
	TopicID               uuid.UUID `validate:"required"`
	SearchQuery           string
	Skip                  int
	Limit                 int
	PinnedDiscussionCount *int
	InitialDiscussionSlug string
}

type DiscussionPage struct {
	Discussions []model.Discussion `json:"discussions"`
	TotalCount  int64              `json:"totalCount"`
}

// Add opens a discussion in a topic. The creator always heads the member list
// and every other member must belong to the team.
func (s *DiscussionService) Add(ctx context.Context, userID uuid.UUID, input AddDiscussionInput) (*model.Discussion, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	chain, err := s.checker.Check(ctx, userID, model.TopicRef(input.TopicID), permission.Read)
	if err != nil {
		return nil, err
	}
	if err := s.checker.CheckMembers(chain.Team, input.MemberIDs); err != nil {
		return nil, err
	}

	discussion := &model.Discussion{
		TeamID:        chain.Team.ID,
		TopicID:       chain.Topic.ID,
		CreatedUserID: userID,
		Name:          input.Name,
		MemberIDs:     model.Normalize(userID, input.MemberIDs),
		IsPrivate:     input.IsPrivate,
	}
	scope := slug.ScopeFunc(func(ctx context.Context, candidate string) (bool, error) {
		return s.discussions.SlugExists(ctx, discussion.TopicID, candidate)
	})
	err = slug.Assign(ctx,
		func(ctx context.Context) (string, error) { return slug.GenerateNumeric(ctx, scope) },
		func(candidate string) error {
			discussion.Slug = candidate
			return s.discussions.Create(ctx, discussion)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("adding discussion: %w", err)
	}

	recordCreate(ctx, s.audit, userID, model.DiscussionRef(discussion.ID), discussion.TeamID, map[string]interface{}{
		"name":      discussion.Name,
		"isPrivate": discussion.IsPrivate,
	})
	return discussion, nil
}

// Edit replaces the name, members and privacy of a discussion.
func (s *DiscussionService) Edit(ctx context.Context, userID uuid.UUID, input EditDiscussionInput) (*model.Discussion, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	chain, err := s.checker.Check(ctx, userID, model.DiscussionRef(input.ID), permission.Moderate)
	if err != nil {
		return nil, err
	}
	if err := s.checker.CheckMembers(chain.Team, input.MemberIDs); err != nil {
		return nil, err
	}

	discussion := *chain.Discussion
	discussion.Name = input.Name
	discussion.MemberIDs = model.Normalize(discussion.CreatedUserID, input.MemberIDs)
	discussion.IsPrivate = input.IsPrivate
	if err := s.discussions.Update(ctx, &discussion); err != nil {
		return nil, err
	}

	recordUpdate(ctx, s.audit, userID, model.DiscussionRef(discussion.ID), discussion.TeamID, map[string]interface{}{
		"name":      discussion.Name,
		"isPrivate": discussion.IsPrivate,
	})
	return &discussion, nil
}

// Delete removes the discussion with its posts and returns what was deleted.
func (s *DiscussionService) Delete(ctx context.Context, userID uuid.UUID, input DiscussionIDInput) (*model.Discussion, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	chain, err := s.checker.Check(ctx, userID, model.DiscussionRef(input.ID), permission.Moderate)
	if err != nil {
		return nil, err
	}
	if err := s.discussions.Delete(ctx, input.ID); err != nil {
		return nil, err
	}

	recordDelete(ctx, s.audit, userID, model.DiscussionRef(input.ID), chain.Team.ID)
	return chain.Discussion, nil
}

func (s *DiscussionService) TogglePin(ctx context.Context, userID uuid.UUID, input DiscussionIDInput) (*model.Discussion, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	chain, err := s.checker.Check(ctx, userID, model.DiscussionRef(input.ID), permission.Moderate)
	if err != nil {
		return nil, err
	}

	discussion, err := s.discussions.TogglePin(ctx, chain.Discussion.ID)
	if err != nil {
		return nil, err
	}

	recordUpdate(ctx, s.audit, userID, model.DiscussionRef(discussion.ID), discussion.TeamID, map[string]interface{}{"isPinned": discussion.IsPinned})
	return discussion, nil
}

func (s *DiscussionService) Get(ctx context.Context, userID, id uuid.UUID) (*model.Discussion, error) {
	chain, err := s.checker.Check(ctx, userID, model.DiscussionRef(id), permission.Read)
	if err != nil {
		return nil, err
	}
	return chain.Discussion, nil
}

// List pages through the discussions of a topic the user can see. Pinned
// discussions come first, then the rest, each newest first. When the client
// opened a discussion by slug it heads the first page and is excluded from
// both phases; on later pages the client already holds it, so skip shrinks
// by one.
func (s *DiscussionService) List(ctx context.Context, userID uuid.UUID, input ListDiscussionsInput) (*DiscussionPage, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	p, err := page(input.Skip, input.Limit)
	if err != nil {
		return nil, err
	}
	if input.PinnedDiscussionCount != nil && *input.PinnedDiscussionCount < 0 {
		return nil, domain.BadRequestf("pinnedDiscussionCount must not be negative")
	}
	if _, err := s.checker.Check(ctx, userID, model.TopicRef(input.TopicID), permission.Read); err != nil {
		return nil, err
	}

	filter := repository.DiscussionFilter{
		TopicID: input.TopicID,
		UserID:  userID,
		Search:  strings.TrimSpace(input.SearchQuery),
	}
	total, err := s.discussions.Count(ctx, filter, nil)
	if err != nil {
		return nil, err
	}

	result := make([]model.Discussion, 0, p.Limit)
	skip, limit := p.Skip, p.Limit

	if input.InitialDiscussionSlug != "" && filter.Search == "" {
		initial, err := s.discussions.FindBySlug(ctx, input.TopicID, input.InitialDiscussionSlug)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			// stale links are ignored
		case err != nil:
			return nil, err
		case initial.CanView(userID):
			filter.ExcludeID = initial.ID
			if skip == 0 {
				result = append(result, *initial)
				limit--
			} else {
				skip--
			}
		}
	}

	pinned := true
	pinnedTotal, err := s.discussions.Count(ctx, filter, &pinned)
	if err != nil {
		return nil, err
	}
	pinnedSkip := int64(skip)
	if input.PinnedDiscussionCount != nil {
		pinnedSkip = int64(*input.PinnedDiscussionCount)
	} else if pinnedSkip > pinnedTotal {
		pinnedSkip = pinnedTotal
	}

	if limit > 0 && pinnedSkip < pinnedTotal {
		items, err := s.discussions.List(ctx, filter, true, repository.Page{Skip: int(pinnedSkip), Limit: limit})
		if err != nil {
			return nil, err
		}
		result = append(result, items...)
		limit -= len(items)
	}

	if limit > 0 {
		rest := int64(skip) - pinnedSkip
		if rest < 0 {
			rest = 0
		}
		items, err := s.discussions.List(ctx, filter, false, repository.Page{Skip: int(rest), Limit: limit})
		if err != nil {
			return nil, err
		}
		result = append(result, items...)
	}

	return &DiscussionPage{Discussions: result, TotalCount: total}, nil
}
