package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dangerclosesec/huddle/internal/domain"
	"github.com/dangerclosesec/huddle/internal/email/mailer"
	"github.com/dangerclosesec/huddle/internal/mocks"
	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/dangerclosesec/huddle/internal/service"
	"github.com/dangerclosesec/huddle/internal/testdb"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestInvitationService(t *testing.T) {
	ctrl := gomock.NewController(t)
	mail := mocks.NewMockMailer(ctrl)
	s := newServices(t, mail)
	ctx := context.Background()

	alice := testdb.User(t, s.db, "alice@example.com")
	bob := testdb.User(t, s.db, "bob@example.com")
	carol := testdb.User(t, s.db, "carol@example.com")
	team := testdb.Team(t, s.db, "Acme", alice, bob)

	var sent []mailer.TeamInvitation
	mail.EXPECT().
		SendTeamInvitation(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inv mailer.TeamInvitation) error {
			sent = append(sent, inv)
			return nil
		}).
		Times(2)

	_, err := s.invitations.Invite(ctx, bob.ID, service.InviteInput{TeamID: team.ID, Email: "carol@example.com"})
	assert.ErrorIs(t, err, domain.ErrNotTeamLeader)

	_, err = s.invitations.Invite(ctx, alice.ID, service.InviteInput{TeamID: team.ID, Email: "bob@example.com"})
	assert.ErrorIs(t, err, domain.ErrAlreadyMember)

	_, err = s.invitations.Invite(ctx, alice.ID, service.InviteInput{TeamID: team.ID, Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	first, err := s.invitations.Invite(ctx, alice.ID, service.InviteInput{TeamID: team.ID, Email: " Carol@Example.com "})
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", first.Email)
	assert.Len(t, first.Token, 64)
	firstToken := first.Token

	again, err := s.invitations.Invite(ctx, alice.ID, service.InviteInput{TeamID: team.ID, Email: "carol@example.com"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.NotEqual(t, firstToken, again.Token)

	require.Len(t, sent, 2)
	assert.Equal(t, "carol@example.com", sent[1].To)
	assert.Equal(t, "Acme", sent[1].TeamName)
	assert.Equal(t, "alice", sent[1].InviterName)
	assert.Equal(t, "https://huddle.test/invitations/"+again.Token, sent[1].InvitationLink)

	pending, err := s.invitations.List(ctx, alice.ID, team.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	t.Run("stale token", func(t *testing.T) {
		_, err := s.invitations.TeamByToken(ctx, firstToken)
		assert.ErrorIs(t, err, domain.ErrInvitationNotFound)
	})

	t.Run("team by token", func(t *testing.T) {
		shown, err := s.invitations.TeamByToken(ctx, again.Token)
		require.NoError(t, err)
		assert.Equal(t, team.ID, shown.ID)
	})

	t.Run("wrong invitee", func(t *testing.T) {
		_, err := s.invitations.Accept(ctx, bob.ID, service.AcceptInvitationInput{Token: again.Token})
		assert.ErrorIs(t, err, domain.ErrWrongInvitee)
	})

	t.Run("accept", func(t *testing.T) {
		joined, err := s.invitations.Accept(ctx, carol.ID, service.AcceptInvitationInput{Token: again.Token})
		require.NoError(t, err)
		assert.True(t, joined.IsMember(carol.ID))

		_, err = s.invitations.Accept(ctx, carol.ID, service.AcceptInvitationInput{Token: again.Token})
		assert.ErrorIs(t, err, domain.ErrInvitationNotFound)

		topics, err := s.topics.List(ctx, carol.ID, team.ID)
		require.NoError(t, err)
		assert.Empty(t, topics)
	})

	t.Run("malformed token", func(t *testing.T) {
		_, err := s.invitations.TeamByToken(ctx, strings.Repeat("z", 64))
		assert.ErrorIs(t, err, domain.ErrBadRequest)
	})
}

func TestInvitationService_Expired(t *testing.T) {
	ctrl := gomock.NewController(t)
	mail := mocks.NewMockMailer(ctrl)
	s := newServices(t, mail)
	ctx := context.Background()

	alice := testdb.User(t, s.db, "alice@example.com")
	carol := testdb.User(t, s.db, "carol@example.com")
	team := testdb.Team(t, s.db, "Acme", alice)

	// delivery failures do not fail the invitation
	mail.EXPECT().SendTeamInvitation(gomock.Any(), gomock.Any()).Return(errors.New("smtp down"))

	invitation, err := s.invitations.Invite(ctx, alice.ID, service.InviteInput{TeamID: team.ID, Email: carol.Email})
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute).UTC()
	require.NoError(t, s.db.Model(&model.Invitation{}).Where("id = ?", invitation.ID).Update("expires_at", past).Error)

	_, err = s.invitations.Accept(ctx, carol.ID, service.AcceptInvitationInput{Token: invitation.Token})
	assert.ErrorIs(t, err, domain.ErrInvitationGone)
}

func TestInvitationService_PruneExpired(t *testing.T) {
	ctrl := gomock.NewController(t)
	mail := mocks.NewMockMailer(ctrl)
	mail.EXPECT().SendTeamInvitation(gomock.Any(), gomock.Any()).Return(nil).Times(3)
	s := newServices(t, mail)
	ctx := context.Background()

	alice := testdb.User(t, s.db, "alice@example.com")
	team := testdb.Team(t, s.db, "Acme", alice)

	var stale []uuid.UUID
	for _, addr := range []string{"x@example.com", "y@example.com", "z@example.com"} {
		invitation, err := s.invitations.Invite(ctx, alice.ID, service.InviteInput{TeamID: team.ID, Email: addr})
		require.NoError(t, err)
		if addr != "z@example.com" {
			stale = append(stale, invitation.ID)
		}
	}
	past := time.Now().Add(-time.Hour).UTC()
	require.NoError(t, s.db.Model(&model.Invitation{}).Where("id IN ?", stale).Update("expires_at", past).Error)

	_, err := s.invitations.PruneExpired(ctx, 0, false)
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	count, err := s.invitations.PruneExpired(ctx, 1, true)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	count, err = s.invitations.PruneExpired(ctx, 1, false)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	remaining, err := s.invitations.List(ctx, alice.ID, team.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "z@example.com", remaining[0].Email)
}
