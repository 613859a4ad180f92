package realtime

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRelayFansOutAcrossHubs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := miniredis.RunT(t)
	newRelay := func() (*Hub, *RedisRelay) {
		hub := startHub(t)
		client := redis.NewClient(&redis.Options{Addr: s.Addr()})
		t.Cleanup(func() { client.Close() })
		relay := NewRedisRelay(client, "huddle:test", hub)
		require.NoError(t, relay.Start(ctx))
		return hub, relay
	}

	hubA, relayA := newRelay()
	hubB, _ := newRelay()

	room := TeamRoom(uuid.New())
	origin := NewSubscriber(uuid.New(), 8)
	local := NewSubscriber(uuid.New(), 8)
	remote := NewSubscriber(uuid.New(), 8)
	require.NoError(t, hubA.Register(ctx, origin))
	require.NoError(t, hubA.Register(ctx, local))
	require.NoError(t, hubB.Register(ctx, remote))
	for _, join := range []struct {
		hub *Hub
		sub *Subscriber
	}{{hubA, origin}, {hubA, local}, {hubB, remote}} {
		require.NoError(t, join.hub.Join(ctx, join.sub, room))
	}

	require.NoError(t, relayA.Publish(ctx, room, Envelope{Event: EventTopic, Data: "x"}, origin.ID()))

	assert.Equal(t, EventTopic, receive(t, local).Event)
	assert.Equal(t, EventTopic, receive(t, remote).Event)
	assertEmpty(t, origin)
}

func TestRedisRelayRestrictsAcrossHubs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := miniredis.RunT(t)
	newRelay := func() (*Hub, *RedisRelay) {
		hub := startHub(t)
		client := redis.NewClient(&redis.Options{Addr: s.Addr()})
		t.Cleanup(func() { client.Close() })
		relay := NewRedisRelay(client, "huddle:test", hub)
		require.NoError(t, relay.Start(ctx))
		return hub, relay
	}

	_, relayA := newRelay()
	hubB, _ := newRelay()

	room := DiscussionRoom(uuid.New())
	member := NewSubscriber(uuid.New(), 8)
	removed := NewSubscriber(uuid.New(), 8)
	for _, sub := range []*Subscriber{member, removed} {
		require.NoError(t, hubB.Register(ctx, sub))
		require.NoError(t, hubB.Join(ctx, sub, room))
	}

	require.NoError(t, relayA.Restrict(ctx, []uuid.UUID{member.UserID()}, room))
	require.NoError(t, relayA.Publish(ctx, room, Envelope{Event: EventPost, Data: "secret"}, ""))

	// relay messages are handled in order, so the restrict landed first
	assert.Equal(t, EventPost, receive(t, member).Event)
	assertEmpty(t, removed)

	members, err := hubB.Members(ctx, room)
	require.NoError(t, err)
	assert.Equal(t, []string{member.ID()}, members)
}

func TestRedisRelayIgnoresGarbage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	hub := startHub(t)
	relay := NewRedisRelay(client, "huddle:test", hub)
	require.NoError(t, relay.Start(ctx))

	sub := NewSubscriber(uuid.New(), 8)
	require.NoError(t, hub.Register(ctx, sub))
	room := TeamRoom(uuid.New())
	require.NoError(t, hub.Join(ctx, sub, room))

	require.NoError(t, client.Publish(ctx, "huddle:test", "not json").Err())
	require.NoError(t, relay.Publish(ctx, room, Envelope{Event: "after"}, ""))

	assert.Equal(t, "after", receive(t, sub).Event)

	cancel()
	<-relay.Done()
}
