package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dangerclosesec/huddle/internal/audit"
	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/dangerclosesec/huddle/internal/permission"
	"github.com/dangerclosesec/huddle/internal/repository"
	"github.com/dangerclosesec/huddle/internal/slug"
	"github.com/google/uuid"
)

type TopicService struct {
	topics  repository.TopicRepositoryIface
	checker *permission.Checker
	audit   audit.Logger
}

func NewTopicService(topics repository.TopicRepositoryIface, checker *permission.Checker, auditLogger audit.Logger) *TopicService {
	return &TopicService{topics: topics, checker: checker, audit: orNoop(auditLogger)}
}

type AddTopicInput struct {
	TeamID     uuid.UUID `json:"teamId" validate:"required"`
	Name       string    `json:"name" validate:"required,max=100"`
	IsProjects bool      `json:"isProjects"`
}

type EditTopicInput struct {
	ID   uuid.UUID `json:"id" validate:"required"`
	Name string    `json:"name" validate:"required,max=100"`
}

type DeleteTopicInput struct {
	ID uuid.UUID `json:"id" validate:"required"`
}

func (s *TopicService) topicScope(teamID, excludeID uuid.UUID) slug.Scope {
	return slug.ScopeFunc(func(ctx context.Context, candidate string) (bool, error) {
		return s.topics.SlugExists(ctx, teamID, candidate, excludeID)
	})
}

func (s *TopicService) Add(ctx context.Context, userID uuid.UUID, input AddTopicInput) (*model.Topic, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if _, err := s.checker.Check(ctx, userID, model.TeamRef(input.TeamID), permission.Lead); err != nil {
		return nil, err
	}

	topic := &model.Topic{
		TeamID:        input.TeamID,
		CreatedUserID: userID,
		Name:          input.Name,
		IsProjects:    input.IsProjects,
	}
	err := slug.Assign(ctx,
		func(ctx context.Context) (string, error) {
			return slug.Generate(ctx, s.topicScope(topic.TeamID, uuid.Nil), topic.Name)
		},
		func(candidate string) error {
			topic.Slug = candidate
			return s.topics.Create(ctx, topic)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("adding topic: %w", err)
	}

	recordCreate(ctx, s.audit, userID, model.TopicRef(topic.ID), topic.TeamID, map[string]interface{}{"name": topic.Name, "slug": topic.Slug})
	return topic, nil
}

// Edit renames a topic; its slug follows the new name.
func (s *TopicService) Edit(ctx context.Context, userID uuid.UUID, input EditTopicInput) (*model.Topic, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	chain, err := s.checker.Check(ctx, userID, model.TopicRef(input.ID), permission.Lead)
	if err != nil {
		return nil, err
	}

	topic := chain.Topic
	if topic.Name == input.Name {
		return topic, nil
	}
	topic.Name = input.Name
	err = slug.Assign(ctx,
		func(ctx context.Context) (string, error) {
			return slug.Generate(ctx, s.topicScope(topic.TeamID, topic.ID), topic.Name)
		},
		func(candidate string) error {
			topic.Slug = candidate
			return s.topics.Update(ctx, topic)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("editing topic: %w", err)
	}

	recordUpdate(ctx, s.audit, userID, model.TopicRef(topic.ID), topic.TeamID, map[string]interface{}{"name": topic.Name, "slug": topic.Slug})
	return topic, nil
}

// Delete removes the topic and everything below it. The deleted topic is
// returned so callers can announce it.
func (s *TopicService) Delete(ctx context.Context, userID uuid.UUID, input DeleteTopicInput) (*model.Topic, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	chain, err := s.checker.Check(ctx, userID, model.TopicRef(input.ID), permission.Lead)
	if err != nil {
		return nil, err
	}
	if err := s.topics.Delete(ctx, input.ID); err != nil {
		return nil, err
	}

	recordDelete(ctx, s.audit, userID, model.TopicRef(input.ID), chain.Team.ID)
	return chain.Topic, nil
}

func (s *TopicService) List(ctx context.Context, userID, teamID uuid.UUID) ([]model.Topic, error) {
	if _, err := s.checker.Check(ctx, userID, model.TeamRef(teamID), permission.Read); err != nil {
		return nil, err
	}
	return s.topics.FindByTeam(ctx, teamID)
}
