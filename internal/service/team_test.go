package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/dangerclosesec/huddle/internal/domain"
	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/dangerclosesec/huddle/internal/repository"
	"github.com/dangerclosesec/huddle/internal/service"
	"github.com/dangerclosesec/huddle/internal/slug"
	"github.com/dangerclosesec/huddle/internal/testdb"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamService_AddAssignsUniqueSlugs(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()
	alice := testdb.User(t, s.db, "alice@example.com")
	bob := testdb.User(t, s.db, "bob@example.com")

	first, err := s.teams.Add(ctx, alice.ID, service.AddTeamInput{Name: "Acme & Co"})
	require.NoError(t, err)
	assert.Equal(t, "acme-co", first.Slug)
	assert.Equal(t, alice.ID, first.TeamLeaderID)
	assert.Equal(t, model.IDList{alice.ID}, first.MemberIDs)

	second, err := s.teams.Add(ctx, bob.ID, service.AddTeamInput{Name: "ACME co"})
	require.NoError(t, err)
	assert.Equal(t, "acme-co-1", second.Slug)

	numeric, err := s.teams.Add(ctx, bob.ID, service.AddTeamInput{Name: "!!!"})
	require.NoError(t, err)
	assert.Equal(t, "1", numeric.Slug)

	_, err = s.teams.Add(ctx, bob.ID, service.AddTeamInput{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestTeamService_AddConcurrentSameName(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()

	// every loser of a slug race lost it to a distinct winner, so this many
	// callers always fit in the retry budget
	const callers = slug.MaxAttempts
	users := make([]*model.User, callers)
	for i := range users {
		users[i] = testdb.User(t, s.db, fmt.Sprintf("user%d@example.com", i))
	}

	slugs := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			team, err := s.teams.Add(ctx, users[i].ID, service.AddTeamInput{Name: "Launch Crew"})
			errs[i] = err
			if err == nil {
				slugs[i] = team.Slug
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, callers)
	plain := 0
	for i, got := range slugs {
		require.NoError(t, errs[i])
		assert.False(t, seen[got], "slug %q assigned twice", got)
		seen[got] = true
		if got == "launch-crew" {
			plain++
			continue
		}
		assert.Regexp(t, `^launch-crew-[0-9]+$`, got)
	}
	assert.Equal(t, 1, plain)
}

func TestTeamService_Update(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()
	alice := testdb.User(t, s.db, "alice@example.com")
	bob := testdb.User(t, s.db, "bob@example.com")

	team, err := s.teams.Add(ctx, alice.ID, service.AddTeamInput{Name: "Acme"})
	require.NoError(t, err)
	_, err = s.teams.Add(ctx, alice.ID, service.AddTeamInput{Name: "Globex"})
	require.NoError(t, err)

	t.Run("rename keeps own slug free", func(t *testing.T) {
		updated, err := s.teams.Update(ctx, alice.ID, service.UpdateTeamInput{TeamID: team.ID, Name: "acme"})
		require.NoError(t, err)
		assert.Equal(t, "acme", updated.Slug)
	})

	t.Run("rename onto taken slug", func(t *testing.T) {
		updated, err := s.teams.Update(ctx, alice.ID, service.UpdateTeamInput{TeamID: team.ID, Name: "Globex"})
		require.NoError(t, err)
		assert.Equal(t, "globex-1", updated.Slug)
	})

	t.Run("non member", func(t *testing.T) {
		_, err := s.teams.Update(ctx, bob.ID, service.UpdateTeamInput{TeamID: team.ID, Name: "Mine"})
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	})
}

// racingTeams removes a member after the service read the team and before
// its update reaches storage.
type racingTeams struct {
	repository.TeamRepositoryIface
	teamID uuid.UUID
	userID uuid.UUID
}

func (r *racingTeams) Update(ctx context.Context, team *model.Team) error {
	if _, err := r.TeamRepositoryIface.RemoveMember(ctx, r.teamID, r.userID); err != nil {
		return err
	}
	return r.TeamRepositoryIface.Update(ctx, team)
}

func TestTeamService_UpdateKeepsConcurrentRemoval(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	alice := testdb.User(t, db, "alice@example.com")
	bob := testdb.User(t, db, "bob@example.com")
	team := testdb.Team(t, db, "Acme", alice, bob)

	teams := repository.NewTeamRepository(db)
	teamService := service.NewTeamService(
		&racingTeams{TeamRepositoryIface: teams, teamID: team.ID, userID: bob.ID},
		repository.NewUserRepository(db), newChecker(db), nil,
	)

	updated, err := teamService.Update(ctx, alice.ID, service.UpdateTeamInput{
		TeamID:    team.ID,
		Name:      "Acme",
		AvatarURL: "https://example.com/acme.png",
	})
	require.NoError(t, err)
	assert.Equal(t, model.IDList{alice.ID}, updated.MemberIDs)

	stored, err := teams.FindByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, model.IDList{alice.ID}, stored.MemberIDs)
	assert.Equal(t, "https://example.com/acme.png", stored.AvatarURL)
}

func TestTeamService_ListAndMembers(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()
	alice := testdb.User(t, s.db, "alice@example.com")
	bob := testdb.User(t, s.db, "bob@example.com")
	carol := testdb.User(t, s.db, "carol@example.com")

	acme := testdb.Team(t, s.db, "Acme", alice, bob)
	testdb.Team(t, s.db, "Globex", carol)

	teams, err := s.teams.List(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, acme.ID, teams[0].ID)

	members, err := s.teams.Members(ctx, bob.ID, acme.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, alice.ID, members[0].ID)
	assert.Equal(t, bob.ID, members[1].ID)

	_, err = s.teams.Members(ctx, carol.ID, acme.ID)
	assert.ErrorIs(t, err, domain.ErrNotTeamMember)

	bySlug, err := s.teams.GetBySlug(ctx, alice.ID, acme.Slug)
	require.NoError(t, err)
	assert.Equal(t, acme.ID, bySlug.ID)
}

func TestTeamService_RemoveMember(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()
	alice := testdb.User(t, s.db, "alice@example.com")
	bob := testdb.User(t, s.db, "bob@example.com")
	carol := testdb.User(t, s.db, "carol@example.com")

	team := testdb.Team(t, s.db, "Acme", alice, bob, carol)
	topic := testdb.Topic(t, s.db, team, alice, "General")
	shared := testdb.Discussion(t, s.db, topic, carol, "Shared", true, bob)
	untouched := testdb.Discussion(t, s.db, topic, carol, "Untouched", true)

	_, err := s.teams.RemoveMember(ctx, bob.ID, service.RemoveMemberInput{TeamID: team.ID, UserID: carol.ID})
	assert.ErrorIs(t, err, domain.ErrNotTeamLeader)

	_, err = s.teams.RemoveMember(ctx, alice.ID, service.RemoveMemberInput{TeamID: team.ID, UserID: alice.ID})
	assert.ErrorIs(t, err, domain.ErrRemoveLeader)

	removal, err := s.teams.RemoveMember(ctx, alice.ID, service.RemoveMemberInput{TeamID: team.ID, UserID: bob.ID})
	require.NoError(t, err)
	assert.False(t, removal.Team.IsMember(bob.ID))
	require.Len(t, removal.Discussions, 1)
	assert.Equal(t, shared.ID, removal.Discussions[0].ID)
	assert.Equal(t, model.IDList{carol.ID}, removal.Discussions[0].MemberIDs)
	assert.ElementsMatch(t, []uuid.UUID{shared.ID, untouched.ID}, removal.DiscussionIDs)

	_, err = s.teams.Get(ctx, bob.ID, team.ID)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	_, err = s.teams.RemoveMember(ctx, alice.ID, service.RemoveMemberInput{TeamID: team.ID, UserID: bob.ID})
	assert.ErrorIs(t, err, domain.ErrNotTeamMember)
}
