package service_test

import (
	"context"
	"testing"

	"github.com/dangerclosesec/huddle/internal/domain"
	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/dangerclosesec/huddle/internal/repository"
	"github.com/dangerclosesec/huddle/internal/service"
	"github.com/dangerclosesec/huddle/internal/testdb"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A leads acme with B; A opens a private discussion for B and posts in it.
func TestPrivateDiscussionScenario(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()
	a := testdb.User(t, s.db, "a@example.com")
	b := testdb.User(t, s.db, "b@example.com")
	c := testdb.User(t, s.db, "c@example.com")

	team, err := s.teams.Add(ctx, a.ID, service.AddTeamInput{Name: "acme"})
	require.NoError(t, err)
	require.Equal(t, "acme", team.Slug)
	_, err = repository.NewTeamRepository(s.db).AddMember(ctx, team.ID, b.ID)
	require.NoError(t, err)

	topic, err := s.topics.Add(ctx, a.ID, service.AddTopicInput{TeamID: team.ID, Name: "General"})
	require.NoError(t, err)

	discussion, err := s.discussions.Add(ctx, a.ID, service.AddDiscussionInput{
		TopicID:   topic.ID,
		Name:      "Private",
		MemberIDs: []uuid.UUID{b.ID},
		IsPrivate: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.IDList{a.ID, b.ID}, discussion.MemberIDs)

	post, notifications, err := s.posts.Add(ctx, a.ID, service.AddPostInput{DiscussionID: discussion.ID, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", post.Content)
	assert.Equal(t, "<p>hi</p>\n", post.HTMLContent)
	require.Len(t, notifications, 1)
	assert.Equal(t, b.ID, notifications[0].UserID)
	assert.Equal(t, discussion.ID, *notifications[0].DiscussionID)

	_, err = s.discussions.List(ctx, c.ID, service.ListDiscussionsInput{TopicID: topic.ID})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	page, err := s.discussions.List(ctx, b.ID, service.ListDiscussionsInput{TopicID: topic.ID})
	require.NoError(t, err)
	require.Len(t, page.Discussions, 1)
	assert.Equal(t, discussion.ID, page.Discussions[0].ID)
}

func TestPostService(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()
	alice := testdb.User(t, s.db, "alice@example.com")
	bob := testdb.User(t, s.db, "bob@example.com")
	carol := testdb.User(t, s.db, "carol@example.com")
	team := testdb.Team(t, s.db, "Acme", alice, bob, carol)
	topic := testdb.Topic(t, s.db, team, alice, "General")
	discussion := testdb.Discussion(t, s.db, topic, alice, "Plans", false)

	post, notifications, err := s.posts.Add(ctx, bob.ID, service.AddPostInput{DiscussionID: discussion.ID, Content: "  **bold** move  "})
	require.NoError(t, err)
	assert.Equal(t, "**bold** move", post.Content)
	assert.Equal(t, "<p><strong>bold</strong> move</p>\n", post.HTMLContent)
	assert.Len(t, notifications, 2)
	for _, n := range notifications {
		assert.NotEqual(t, bob.ID, n.UserID)
	}

	_, _, err = s.posts.Add(ctx, bob.ID, service.AddPostInput{DiscussionID: discussion.ID, Content: "   "})
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	t.Run("only the author edits", func(t *testing.T) {
		_, err := s.posts.Edit(ctx, alice.ID, service.EditPostInput{ID: post.ID, Content: "mine now"})
		assert.ErrorIs(t, err, domain.ErrNotAuthor)

		edited, err := s.posts.Edit(ctx, bob.ID, service.EditPostInput{ID: post.ID, Content: "_careful_ move"})
		require.NoError(t, err)
		assert.True(t, edited.IsEdited)
		assert.Equal(t, "<p><em>careful</em> move</p>\n", edited.HTMLContent)
	})

	t.Run("raw html is not rendered", func(t *testing.T) {
		p, _, err := s.posts.Add(ctx, carol.ID, service.AddPostInput{DiscussionID: discussion.ID, Content: "<script>x</script>"})
		require.NoError(t, err)
		assert.NotContains(t, p.HTMLContent, "<script>")
	})

	t.Run("list", func(t *testing.T) {
		posts, err := s.posts.List(ctx, carol.ID, service.ListPostsInput{DiscussionID: discussion.ID, Limit: 1})
		require.NoError(t, err)
		assert.Len(t, posts, 1)

		outsider := testdb.User(t, s.db, "outsider@example.com")
		_, err = s.posts.List(ctx, outsider.ID, service.ListPostsInput{DiscussionID: discussion.ID})
		assert.ErrorIs(t, err, domain.ErrNotTeamMember)
	})

	t.Run("delete", func(t *testing.T) {
		_, err := s.posts.Delete(ctx, alice.ID, service.PostIDInput{ID: post.ID})
		assert.ErrorIs(t, err, domain.ErrNotAuthor)

		deleted, err := s.posts.Delete(ctx, bob.ID, service.PostIDInput{ID: post.ID})
		require.NoError(t, err)
		assert.Equal(t, post.ID, deleted.ID)

		_, err = s.posts.Delete(ctx, bob.ID, service.PostIDInput{ID: post.ID})
		assert.ErrorIs(t, err, domain.ErrPostNotFound)
	})
}

func TestNotificationService(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()
	alice := testdb.User(t, s.db, "alice@example.com")
	bob := testdb.User(t, s.db, "bob@example.com")
	team := testdb.Team(t, s.db, "Acme", alice, bob)
	topic := testdb.Topic(t, s.db, team, alice, "General")
	discussion := testdb.Discussion(t, s.db, topic, alice, "Plans", false)

	for _, content := range []string{"one", "two"} {
		_, _, err := s.posts.Add(ctx, alice.ID, service.AddPostInput{DiscussionID: discussion.ID, Content: content})
		require.NoError(t, err)
	}
	_, _, err := s.posts.Add(ctx, bob.ID, service.AddPostInput{DiscussionID: discussion.ID, Content: "three"})
	require.NoError(t, err)

	forBob, err := s.notifications.List(ctx, bob.ID, service.ListNotificationsInput{})
	require.NoError(t, err)
	require.Len(t, forBob, 2)
	forAlice, err := s.notifications.List(ctx, alice.ID, service.ListNotificationsInput{})
	require.NoError(t, err)
	require.Len(t, forAlice, 1)

	// alice cannot delete bob's notifications
	deleted, err := s.notifications.Delete(ctx, alice.ID, service.DeleteNotificationsInput{
		NotificationIDs: []uuid.UUID{forBob[0].ID, forAlice[0].ID},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	forBob, err = s.notifications.List(ctx, bob.ID, service.ListNotificationsInput{})
	require.NoError(t, err)
	assert.Len(t, forBob, 2)

	_, err = s.notifications.Delete(ctx, bob.ID, service.DeleteNotificationsInput{})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}
