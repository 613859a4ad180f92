package permission_test

import (
	"context"
	"testing"

	"github.com/dangerclosesec/huddle/internal/domain"
	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/dangerclosesec/huddle/internal/permission"
	"github.com/dangerclosesec/huddle/internal/repository"
	"github.com/dangerclosesec/huddle/internal/testdb"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAudit struct {
	denials []model.EntityRef
}

func (r *recordingAudit) LogPermissionCheck(_ context.Context, _ uuid.UUID, _ string, object model.EntityRef, _ uuid.UUID, result bool, _ map[string]interface{}) error {
	if !result {
		r.denials = append(r.denials, object)
	}
	return nil
}

func (r *recordingAudit) LogEntityCreate(context.Context, uuid.UUID, model.EntityRef, uuid.UUID, map[string]interface{}) error {
	return nil
}

func (r *recordingAudit) LogEntityUpdate(context.Context, uuid.UUID, model.EntityRef, uuid.UUID, map[string]interface{}) error {
	return nil
}

func (r *recordingAudit) LogEntityDelete(context.Context, uuid.UUID, model.EntityRef, uuid.UUID) error {
	return nil
}

func TestChecker(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	leader := testdb.User(t, db, "leader@example.com")
	member := testdb.User(t, db, "member@example.com")
	other := testdb.User(t, db, "other@example.com")
	outsider := testdb.User(t, db, "outsider@example.com")

	team := testdb.Team(t, db, "Acme", leader, member, other)
	topic := testdb.Topic(t, db, team, leader, "General")
	public := testdb.Discussion(t, db, topic, member, "Lunch", false)
	private := testdb.Discussion(t, db, topic, member, "Secret", true, other)
	post := testdb.Post(t, db, public, member, "hello")

	auditLog := &recordingAudit{}
	checker := permission.NewChecker(
		repository.NewTeamRepository(db),
		repository.NewTopicRepository(db),
		repository.NewDiscussionRepository(db),
		repository.NewPostRepository(db),
		auditLog,
	)

	tests := []struct {
		name    string
		user    uuid.UUID
		ref     model.EntityRef
		cap     permission.Capability
		wantErr error
	}{
		{"member reads team", member.ID, model.TeamRef(team.ID), permission.Read, nil},
		{"member reads post", member.ID, model.PostRef(post.ID), permission.Read, nil},
		{"outsider reads team", outsider.ID, model.TeamRef(team.ID), permission.Read, domain.ErrNotTeamMember},
		{"outsider reads topic", outsider.ID, model.TopicRef(topic.ID), permission.Read, domain.ErrNotTeamMember},
		{"outsider reads discussion", outsider.ID, model.DiscussionRef(public.ID), permission.Read, domain.ErrNotTeamMember},
		{"outsider reads post", outsider.ID, model.PostRef(post.ID), permission.Read, domain.ErrNotTeamMember},
		{"member leads", member.ID, model.TeamRef(team.ID), permission.Lead, domain.ErrNotTeamLeader},
		{"leader leads topic", leader.ID, model.TopicRef(topic.ID), permission.Lead, nil},
		{"private member reads", other.ID, model.DiscussionRef(private.ID), permission.Read, nil},
		{"leader outside private discussion", leader.ID, model.DiscussionRef(private.ID), permission.Read, domain.ErrNotDiscussionMember},
		{"creator moderates", member.ID, model.DiscussionRef(public.ID), permission.Moderate, nil},
		{"leader moderates", leader.ID, model.DiscussionRef(public.ID), permission.Moderate, nil},
		{"member cannot moderate", other.ID, model.DiscussionRef(public.ID), permission.Moderate, domain.ErrNotModerator},
		{"author edits post", member.ID, model.PostRef(post.ID), permission.Author, nil},
		{"leader is not author", leader.ID, model.PostRef(post.ID), permission.Author, domain.ErrNotAuthor},
		{"missing team", member.ID, model.TeamRef(uuid.New()), permission.Read, domain.ErrTeamNotFound},
		{"missing post", member.ID, model.PostRef(uuid.New()), permission.Read, domain.ErrPostNotFound},
		{"nil user", uuid.Nil, model.TeamRef(team.ID), permission.Read, domain.ErrMissingUser},
		{"nil id", member.ID, model.TeamRef(uuid.Nil), permission.Read, domain.ErrMissingID},
		{"unknown kind", member.ID, model.EntityRef{Kind: "widget", ID: uuid.New()}, permission.Read, domain.ErrUnknownEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain, err := checker.Check(ctx, tt.user, tt.ref, tt.cap)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, chain)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, team.ID, chain.Team.ID)
		})
	}

	t.Run("chain is loaded bottom up", func(t *testing.T) {
		chain, err := checker.Check(ctx, member.ID, model.PostRef(post.ID), permission.Read)
		require.NoError(t, err)
		assert.Equal(t, post.ID, chain.Post.ID)
		assert.Equal(t, public.ID, chain.Discussion.ID)
		assert.Equal(t, topic.ID, chain.Topic.ID)
	})

	t.Run("denials are audited", func(t *testing.T) {
		assert.Contains(t, auditLog.denials, model.TeamRef(team.ID))
		assert.NotContains(t, auditLog.denials, model.TeamRef(uuid.Nil))
	})
}

func TestCheckMembers(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	team := &model.Team{TeamLeaderID: a, MemberIDs: model.IDList{a, b}}
	checker := permission.NewChecker(nil, nil, nil, nil, nil)

	assert.NoError(t, checker.CheckMembers(team, []uuid.UUID{b, a}))
	err := checker.CheckMembers(team, []uuid.UUID{b, uuid.New()})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
}
