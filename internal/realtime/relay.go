package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type relayKind string

const (
	relayDeliver  relayKind = "deliver"
	relayRestrict relayKind = "restrict"
)

type relayMessage struct {
	Kind    relayKind       `json:"kind,omitempty"`
	Room    string          `json:"room,omitempty"`
	Exclude string          `json:"exclude,omitempty"`
	Frame   json.RawMessage `json:"frame,omitempty"`
	Allowed []uuid.UUID     `json:"allowed,omitempty"`
	Rooms   []string        `json:"rooms,omitempty"`
}

// RedisRelay shares room fan-out between API instances. Publish goes through
// a Redis channel and every instance, the publishing one included, delivers
// the frame to its local hub.
type RedisRelay struct {
	client  *redis.Client
	channel string
	hub     *Hub
	done    chan struct{}
}

func NewRedisRelay(client *redis.Client, channel string, hub *Hub) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: channel,
		hub:     hub,
		done:    make(chan struct{}),
	}
}

func (r *RedisRelay) Publish(ctx context.Context, room string, env Envelope, excludeConnID string) error {
	frame, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", env.Event, err)
	}
	return r.send(ctx, relayMessage{Kind: relayDeliver, Room: room, Exclude: excludeConnID, Frame: frame})
}

// Restrict evicts users without access on every instance.
func (r *RedisRelay) Restrict(ctx context.Context, allowed []uuid.UUID, rooms ...string) error {
	if len(rooms) == 0 {
		return nil
	}
	return r.send(ctx, relayMessage{Kind: relayRestrict, Allowed: allowed, Rooms: rooms})
}

func (r *RedisRelay) send(ctx context.Context, msg relayMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding relay message: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", r.channel, err)
	}
	return nil
}

// Start subscribes to the relay channel and feeds the local hub until ctx
// ends. It returns once the subscription is confirmed.
func (r *RedisRelay) Start(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("subscribing to %s: %w", r.channel, err)
	}

	go func() {
		defer close(r.done)
		defer sub.Close()

		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				r.deliver(ctx, msg.Payload)
			}
		}
	}()
	return nil
}

// Done is closed when the subscriber loop has stopped.
func (r *RedisRelay) Done() <-chan struct{} { return r.done }

func (r *RedisRelay) deliver(ctx context.Context, payload string) {
	var msg relayMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		slog.WarnContext(ctx, "discarding malformed relay message", "error", err)
		return
	}
	switch msg.Kind {
	case relayRestrict:
		if err := r.hub.Restrict(ctx, msg.Allowed, msg.Rooms...); err != nil {
			slog.DebugContext(ctx, "relay restrict failed", "rooms", msg.Rooms, "error", err)
		}
	case relayDeliver, "":
		if err := r.hub.Deliver(ctx, msg.Room, msg.Frame, msg.Exclude); err != nil {
			slog.DebugContext(ctx, "relay delivery failed", "room", msg.Room, "error", err)
		}
	default:
		slog.WarnContext(ctx, "discarding relay message of unknown kind", "kind", msg.Kind)
	}
}
