package service

import (
	"context"
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

type TeamService struct {
	teams   repository.TeamRepositoryIface
	users   repository.UserRepositoryIface
	checker *permission.Checker
	audit   audit.Logger
}

func NewTeamService(teams repository.TeamRepositoryIface, users repository.UserRepositoryIface, checker *permission.Checker, auditLogger audit.Logger) *TeamService {
	return &TeamService{teams: teams, users: users, checker: checker, audit: orNoop(auditLogger)}
}

type AddTeamInput struct {
	Name      string `json:"name" validate:"required,max=100"`
	AvatarURL string `json:"avatarUrl" validate:"omitempty,url"`
}

type UpdateTeamInput struct {
	TeamID    uuid.UUID `json:"teamId" validate:"required"`
	Name      string    `json:"name" validate:"required,max=100"`
	AvatarURL string    `json:"avatarUrl" validate:"omitempty,url"`
}

type RemoveMemberInput struct {
	TeamID uuid.UUID `json:"teamId" validate:"required"`
	UserID uuid.UUID `json:"userId" validate:"required"`
}

func (s *TeamService) teamScope(excludeID uuid.UUID) slug.Scope {
	return slug.ScopeFunc(func(ctx context.Context, candidate string) (bool, error) {
		return s.teams.SlugExists(ctx, candidate, excludeID)
	})
}

// Add creates a team led by userID, who is its first member.
func (s *TeamService) Add(ctx context.Context, userID uuid.UUID, input AddTeamInput) (*model.Team, error) {
	if userID == uuid.Nil {
		return nil, domain.ErrMissingUser
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	team := &model.Team{
		TeamLeaderID: userID,
		Name:         input.Name,
		AvatarURL:    input.AvatarURL,
		MemberIDs:    model.IDList{userID},
	}
	err := slug.Assign(ctx,
		func(ctx context.Context) (string, error) { return slug.Generate(ctx, s.teamScope(uuid.Nil), team.Name) },
		func(candidate string) error {
			team.Slug = candidate
			return s.teams.Create(ctx, team)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("adding team: %w", err)
	}

	recordCreate(ctx, s.audit, userID, model.TeamRef(team.ID), team.ID, map[string]interface{}{"name": team.Name, "slug": team.Slug})
	return team, nil
}

// Update renames the team or changes its avatar. A new name gets a new slug.
func (s *TeamService) Update(ctx context.Context, userID uuid.UUID, input UpdateTeamInput) (*model.Team, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	chain, err := s.checker.Check(ctx, userID, model.TeamRef(input.TeamID), permission.Lead)
	if err != nil {
		return nil, err
	}

	team := chain.Team
	team.AvatarURL = input.AvatarURL
	if team.Name == input.Name {
		if err := s.teams.Update(ctx, team); err != nil {
			return nil, err
		}
	} else {
		team.Name = input.Name
		err = slug.Assign(ctx,
			func(ctx context.Context) (string, error) { return slug.Generate(ctx, s.teamScope(team.ID), team.Name) },
			func(candidate string) error {
				team.Slug = candidate
				return s.teams.Update(ctx, team)
			},
		)
		if err != nil {
			return nil, fmt.Errorf("updating team: %w", err)
		}
	}

	recordUpdate(ctx, s.audit, userID, model.TeamRef(team.ID), team.ID, map[string]interface{}{"name": team.Name, "slug": team.Slug})
	return team, nil
}

// List returns the teams userID belongs to, newest first.
func (s *TeamService) List(ctx context.Context, userID uuid.UUID) ([]model.Team, error) {
	if userID == uuid.Nil {
		return nil, domain.ErrMissingUser
	}
	return s.teams.FindByUser(ctx, userID)
}

func (s *TeamService) Get(ctx context.Context, userID, teamID uuid.UUID) (*model.Team, error) {
	chain, err := s.checker.Check(ctx, userID, model.TeamRef(teamID), permission.Read)
	if err != nil {
		return nil, err
	}
	return chain.Team, nil
}

func (s *TeamService) GetBySlug(ctx context.Context, userID uuid.UUID, teamSlug string) (*model.Team, error) {
	if teamSlug == "" {
		return nil, domain.ErrMissingID
	}
	team, err := s.teams.FindBySlug(ctx, teamSlug)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, team.ID)
}

// Members returns the users of a team in membership order.
func (s *TeamService) Members(ctx context.Context, userID, teamID uuid.UUID) ([]model.User, error) {
	team, err := s.Get(ctx, userID, teamID)
	if err != nil {
		return nil, err
	}
	users, err := s.users.FindByIDs(ctx, team.MemberIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	ordered := make([]model.User, 0, len(users))
	for _, id := range team.MemberIDs {
		if u, ok := byID[id]; ok {
			ordered = append(ordered, u)
		}
	}
	return ordered, nil
}

// RemoveMember drops a user from the team and from the member lists of the
// team's discussions.
func (s *TeamService) RemoveMember(ctx context.Context, userID uuid.UUID, input RemoveMemberInput) (*repository.MemberRemoval, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	chain, err := s.checker.Check(ctx, userID, model.TeamRef(input.TeamID), permission.Lead)
	if err != nil {
		return nil, err
	}
	if chain.Team.IsLeader(input.UserID) {
		return nil, domain.ErrRemoveLeader
	}

	removal, err := s.teams.RemoveMember(ctx, input.TeamID, input.UserID)
	if err != nil {
		return nil, err
	}

	recordUpdate(ctx, s.audit, userID, model.TeamRef(input.TeamID), input.TeamID, map[string]interface{}{"removedUserId": input.UserID.String()})
	return removal, nil
}
