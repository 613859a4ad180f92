package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func receive(t *testing.T, sub *Subscriber) Envelope {
	t.Helper()
	select {
	case frame, ok := <-sub.Messages():
		require.True(t, ok, "queue closed")
		var env Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no frame received")
		return Envelope{}
	}
}

func assertEmpty(t *testing.T, sub *Subscriber) {
	t.Helper()
	select {
	case frame := <-sub.Messages():
		t.Fatalf("unexpected frame %s", frame)
	default:
	}
}

func TestHubPublishExcludesOrigin(t *testing.T) {
	ctx := context.Background()
	hub := startHub(t)

	a := NewSubscriber(uuid.New(), 8)
	b := NewSubscriber(uuid.New(), 8)
	outside := NewSubscriber(uuid.New(), 8)
	for _, s := range []*Subscriber{a, b, outside} {
		require.NoError(t, hub.Register(ctx, s))
	}

	discussionID := uuid.New()
	room := DiscussionRoom(discussionID)
	require.NoError(t, hub.Join(ctx, a, room))
	require.NoError(t, hub.Join(ctx, b, room))

	post := &model.Post{ID: uuid.New(), DiscussionID: discussionID, Content: "hi"}
	postRoom, env := PostEvent(ActionAdded, post)
	require.Equal(t, room, postRoom)
	require.NoError(t, hub.Publish(ctx, postRoom, env, a.ID()))

	got := receive(t, b)
	assert.Equal(t, EventPost, got.Event)
	assertEmpty(t, a)
	assertEmpty(t, outside)
}

func TestHubPreservesPublishOrder(t *testing.T) {
	ctx := context.Background()
	hub := startHub(t)

	sub := NewSubscriber(uuid.New(), 32)
	require.NoError(t, hub.Register(ctx, sub))
	room := TeamRoom(uuid.New())
	require.NoError(t, hub.Join(ctx, sub, room))

	for i := 0; i < 10; i++ {
		require.NoError(t, hub.Publish(ctx, room, Envelope{Event: "seq", Data: i}, ""))
	}
	for i := 0; i < 10; i++ {
		env := receive(t, sub)
		assert.EqualValues(t, i, env.Data)
	}
}

func TestHubDropsWhenQueueFull(t *testing.T) {
	ctx := context.Background()
	hub := startHub(t)

	slow := NewSubscriber(uuid.New(), 1)
	require.NoError(t, hub.Register(ctx, slow))
	room := TeamRoom(uuid.New())
	require.NoError(t, hub.Join(ctx, slow, room))

	require.NoError(t, hub.Publish(ctx, room, Envelope{Event: "first"}, ""))
	require.NoError(t, hub.Publish(ctx, room, Envelope{Event: "second"}, ""))

	assert.Equal(t, "first", receive(t, slow).Event)
	assertEmpty(t, slow)
}

func TestHubUnregisterLeavesAllRooms(t *testing.T) {
	ctx := context.Background()
	hub := startHub(t)

	sub := NewSubscriber(uuid.New(), 8)
	require.NoError(t, hub.Register(ctx, sub))
	teamRoom, discussionRoom := TeamRoom(uuid.New()), DiscussionRoom(uuid.New())
	require.NoError(t, hub.Join(ctx, sub, teamRoom))
	require.NoError(t, hub.Join(ctx, sub, discussionRoom))

	members, err := hub.Members(ctx, teamRoom)
	require.NoError(t, err)
	assert.Equal(t, []string{sub.ID()}, members)

	require.NoError(t, hub.Unregister(ctx, sub))
	for _, room := range []string{teamRoom, discussionRoom} {
		members, err := hub.Members(ctx, room)
		require.NoError(t, err)
		assert.Empty(t, members)
	}

	_, ok := <-sub.Messages()
	assert.False(t, ok)

	// publishing to a room whose last member disconnected is a no-op
	assert.NoError(t, hub.Publish(ctx, teamRoom, Envelope{Event: "late"}, ""))
}

func TestHubLeave(t *testing.T) {
	ctx := context.Background()
	hub := startHub(t)

	sub := NewSubscriber(uuid.New(), 8)
	require.NoError(t, hub.Register(ctx, sub))
	room := TeamRoom(uuid.New())
	require.NoError(t, hub.Join(ctx, sub, room))
	require.NoError(t, hub.Leave(ctx, sub, room))

	require.NoError(t, hub.Publish(ctx, room, Envelope{Event: "x"}, ""))
	assertEmpty(t, sub)
}

func TestHubStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	sub := NewSubscriber(uuid.New(), 8)
	require.NoError(t, hub.Register(context.Background(), sub))
	cancel()
	<-stopped

	_, ok := <-sub.Messages()
	assert.False(t, ok)
	assert.ErrorIs(t, hub.Join(context.Background(), sub, "team-x"), ErrHubStopped)
}

func TestParseRoom(t *testing.T) {
	id := uuid.New()

	kind, got, err := ParseRoom(TeamRoom(id))
	require.NoError(t, err)
	assert.Equal(t, RoomTeam, kind)
	assert.Equal(t, id, got)

	kind, got, err = ParseRoom(DiscussionRoom(id))
	require.NoError(t, err)
	assert.Equal(t, RoomDiscussion, kind)
	assert.Equal(t, id, got)

	for _, bad := range []string{"", "team", "widget-" + id.String(), "team-not-a-uuid"} {
		_, _, err := ParseRoom(bad)
		assert.Error(t, err, bad)
	}
}

func TestEventPayloads(t *testing.T) {
	discussion := &model.Discussion{ID: uuid.New(), TeamID: uuid.New(), TopicID: uuid.New()}

	room, env := DiscussionEvent(ActionDeleted, discussion)
	assert.Equal(t, TeamRoom(discussion.TeamID), room)

	payload := env.Data.(EntityPayload)
	assert.Equal(t, ActionDeleted, payload.Action)
	assert.Equal(t, discussion.ID, payload.ID)
	assert.Nil(t, payload.Discussion)
	require.NotNil(t, payload.TopicID)
	assert.Equal(t, discussion.TopicID, *payload.TopicID)

	_, env = DiscussionEvent(ActionEdited, discussion)
	assert.Same(t, discussion, env.Data.(EntityPayload).Discussion)

	topicID := uuid.New()
	n := &model.Notification{ID: uuid.New(), UserID: uuid.New(), TeamID: uuid.New(), TopicID: &topicID}
	room, env = NotificationEvent(n)
	assert.Equal(t, UserRoom(n.UserID), room)
	assert.Equal(t, EventNotification, env.Event)
}

func TestHubRestrictEvictsUsersWithoutAccess(t *testing.T) {
	ctx := context.Background()
	hub := startHub(t)

	keptUser, evictedUser := uuid.New(), uuid.New()
	kept := NewSubscriber(keptUser, 8)
	evicted := NewSubscriber(evictedUser, 8)
	evictedTab := NewSubscriber(evictedUser, 8)
	for _, s := range []*Subscriber{kept, evicted, evictedTab} {
		require.NoError(t, hub.Register(ctx, s))
	}

	teamRoom := TeamRoom(uuid.New())
	discussionRoom := DiscussionRoom(uuid.New())
	userRoom := UserRoom(evictedUser)
	for _, s := range []*Subscriber{kept, evicted, evictedTab} {
		require.NoError(t, hub.Join(ctx, s, teamRoom))
		require.NoError(t, hub.Join(ctx, s, discussionRoom))
	}
	require.NoError(t, hub.Join(ctx, evicted, userRoom))

	require.NoError(t, hub.Restrict(ctx, []uuid.UUID{keptUser}, teamRoom, discussionRoom))

	for _, room := range []string{teamRoom, discussionRoom} {
		members, err := hub.Members(ctx, room)
		require.NoError(t, err)
		assert.Equal(t, []string{kept.ID()}, members)
	}

	require.NoError(t, hub.Publish(ctx, discussionRoom, Envelope{Event: EventPost}, ""))
	assert.Equal(t, EventPost, receive(t, kept).Event)
	assertEmpty(t, evicted)
	assertEmpty(t, evictedTab)

	// rooms not named stay untouched
	require.NoError(t, hub.Publish(ctx, userRoom, Envelope{Event: EventNotification}, ""))
	assert.Equal(t, EventNotification, receive(t, evicted).Event)

	assert.NoError(t, hub.Restrict(ctx, nil))
}
