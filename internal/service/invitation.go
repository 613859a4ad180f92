package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dangerclosesec/huddle/internal/audit"
	"github.com/dangerclosesec/huddle/internal/domain"
	"github.com/dangerclosesec/huddle/internal/email/mailer"
	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/dangerclosesec/huddle/internal/permission"
	"github.com/dangerclosesec/huddle/internal/repository"
	"github.com/google/uuid"
)

// Mailer delivers invitation emails.
type Mailer interface {
	SendTeamInvitation(ctx context.Context, invitation mailer.TeamInvitation) error
}

type InvitationService struct {
	invitations repository.InvitationRepositoryIface
	teams       repository.TeamRepositoryIface
	users       repository.UserRepositoryIface
	checker     *permission.Checker
	mailer      Mailer
	audit       audit.Logger
	baseURL     string
	ttl         time.Duration
	now         func() time.Time
}

func NewInvitationService(
	invitations repository.InvitationRepositoryIface,
	teams repository.TeamRepositoryIface,
	users repository.UserRepositoryIface,
	checker *permission.Checker,
	mailer Mailer,
	auditLogger audit.Logger,
	baseURL string,
	ttl time.Duration,
) *InvitationService {
	return &InvitationService{
		invitations: invitations,
		teams:       teams,
		users:       users,
		checker:     checker,
		mailer:      mailer,
		audit:       orNoop(auditLogger),
		baseURL:     strings.TrimRight(baseURL, "/"),
		ttl:         ttl,
		now:         time.Now,
	}
}

type InviteInput struct {
	TeamID uuid.UUID `json:"teamId" validate:"required"`
	Email  string    `json:"email" validate:"required,email"`
}

type AcceptInvitationInput struct {
	Token string `json:"token" validate:"required,len=64,hexadecimal"`
}

func newInvitationToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating invitation token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Invite asks someone to join a team by email. Inviting the same address
// twice refreshes the pending invitation and sends it again.
func (s *InvitationService) Invite(ctx context.Context, userID uuid.UUID, input InviteInput) (*model.Invitation, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := validateInput(input); err != nil {
		return nil, err
	}
	chain, err := s.checker.Check(ctx, userID, model.TeamRef(input.TeamID), permission.Lead)
	if err != nil {
		return nil, err
	}
	team := chain.Team

	invitee, err := s.users.FindByEmail(ctx, input.Email)
	switch {
	case err == nil:
		if team.IsMember(invitee.ID) {
			return nil, domain.ErrAlreadyMember
		}
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, err
	}

	token, err := newInvitationToken()
	if err != nil {
		return nil, err
	}
	expiresAt := s.now().Add(s.ttl).UTC()

	invitation, err := s.invitations.FindByTeamAndEmail(ctx, team.ID, input.Email)
	switch {
	case err == nil:
		invitation.Token = token
		invitation.InvitedBy = userID
		invitation.ExpiresAt = expiresAt
		if err := s.invitations.Update(ctx, invitation); err != nil {
			return nil, err
		}
	case errors.Is(err, domain.ErrInvitationNotFound):
		invitation = &model.Invitation{
			TeamID:    team.ID,
			Email:     input.Email,
			Token:     token,
			InvitedBy: userID,
			ExpiresAt: expiresAt,
		}
		if err := s.invitations.Create(ctx, invitation); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	s.send(ctx, userID, team, invitation)
	recordCreate(ctx, s.audit, userID, model.TeamRef(team.ID), team.ID, map[string]interface{}{"invited": invitation.Email})
	return invitation, nil
}

func (s *InvitationService) send(ctx context.Context, inviterID uuid.UUID, team *model.Team, invitation *model.Invitation) {
	if s.mailer == nil {
		return
	}
	inviterName := "A teammate"
	if inviter, err := s.users.FindByID(ctx, inviterID); err == nil {
		inviterName = inviter.DisplayName
	}
	err := s.mailer.SendTeamInvitation(ctx, mailer.TeamInvitation{
		To:             invitation.Email,
		TeamName:       team.Name,
		InviterName:    inviterName,
		InvitationLink: s.baseURL + "/invitations/" + invitation.Token,
		ExpiresAt:      invitation.ExpiresAt,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to send team invitation", "team_id", team.ID, "invitation_id", invitation.ID, "error", err)
	}
}

func (s *InvitationService) pending(ctx context.Context, token string) (*model.Invitation, error) {
	if err := validateInput(AcceptInvitationInput{Token: token}); err != nil {
		return nil, err
	}
	invitation, err := s.invitations.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if invitation.Expired(s.now()) {
		return nil, domain.ErrInvitationGone
	}
	return invitation, nil
}

// Accept adds the caller to the invitation's team. The caller must own the
// invited email address.
func (s *InvitationService) Accept(ctx context.Context, userID uuid.UUID, input AcceptInvitationInput) (*model.Team, error) {
	if userID == uuid.Nil {
		return nil, domain.ErrMissingUser
	}
	invitation, err := s.pending(ctx, input.Token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(user.Email, invitation.Email) {
		return nil, domain.ErrWrongInvitee
	}

	team, err := s.teams.AddMember(ctx, invitation.TeamID, userID)
	if errors.Is(err, domain.ErrAlreadyMember) {
		team, err = s.teams.FindByID(ctx, invitation.TeamID)
	}
	if err != nil {
		return nil, err
	}
	if err := s.invitations.Delete(ctx, invitation.ID); err != nil {
		return nil, err
	}

	recordUpdate(ctx, s.audit, userID, model.TeamRef(team.ID), team.ID, map[string]interface{}{"joinedUserId": userID.String()})
	return team, nil
}

// TeamByToken shows the team behind a pending invitation to the invitee,
// who is not a member yet.
func (s *InvitationService) TeamByToken(ctx context.Context, token string) (*model.Team, error) {
	invitation, err := s.pending(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.teams.FindByID(ctx, invitation.TeamID)
}

func (s *InvitationService) List(ctx context.Context, userID, teamID uuid.UUID) ([]model.Invitation, error) {
	if _, err := s.checker.Check(ctx, userID, model.TeamRef(teamID), permission.Lead); err != nil {
		return nil, err
	}
	return s.invitations.FindByTeam(ctx, teamID)
}

// PruneExpired deletes invitations past their expiry in batches of batchSize
// and returns how many were (or, in a dry run, would be) removed.
func (s *InvitationService) PruneExpired(ctx context.Context, batchSize int, dryRun bool) (int64, error) {
	if batchSize <= 0 {
		return 0, domain.BadRequestf("batch size must be positive")
	}
	cutoff := s.now()
	if dryRun {
		return s.invitations.CountExpired(ctx, cutoff)
	}

	var total int64
	for {
		deleted, err := s.invitations.DeleteExpired(ctx, cutoff, batchSize)
		if err != nil {
			return total, err
		}
		total += deleted
		if deleted < int64(batchSize) {
			return total, nil
		}
		slog.DebugContext(ctx, "pruned invitation batch", "deleted", deleted, "total", total)
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}
