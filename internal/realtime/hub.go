package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
)

var ErrHubStopped = errors.New("realtime: hub stopped")

// Publisher sends an event to every member of a room except excludeConnID.
// Delivery is best effort: members that are gone or too slow miss the event.
//
// Restrict removes from each of rooms every subscriber whose user is not in
// allowed. Room access is only checked on join, so it is called whenever a
// user may have lost access.
type Publisher interface {
	Publish(ctx context.Context, room string, env Envelope, excludeConnID string) error
	Restrict(ctx context.Context, allowed []uuid.UUID, rooms ...string) error
}

// Subscriber is the hub-side half of a connection: an id and a bounded queue
// of encoded frames.
type Subscriber struct {
	id     string
	userID uuid.UUID
	send   chan []byte
	rooms  map[string]struct{}
}

func NewSubscriber(userID uuid.UUID, queueSize int) *Subscriber {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Subscriber{
		id:     uuid.NewString(),
		userID: userID,
		send:   make(chan []byte, queueSize),
		rooms:  make(map[string]struct{}),
	}
}

func (s *Subscriber) ID() string         { return s.id }
func (s *Subscriber) UserID() uuid.UUID { return s.userID }

// Messages yields queued frames. It is closed once the subscriber is
// unregistered or the hub stops.
func (s *Subscriber) Messages() <-chan []byte { return s.send }

type opKind int

const (
	opRegister opKind = iota
	opUnregister
	opJoin
	opLeave
	opDeliver
	opSend
	opMembers
	opRestrict
)

type request struct {
	op      opKind
	sub     *Subscriber
	room    string
	frame   []byte
	exclude string
	members chan []string
	allowed []uuid.UUID
	rooms   []string
	done    chan struct{}
}

// Hub owns the room table. All mutations and fan-out run on the goroutine
// started by Run, so delivery within a room follows publish order.
type Hub struct {
	requests chan request
	stopped  chan struct{}

	subs  map[string]*Subscriber
	rooms map[string]map[string]*Subscriber
}

func NewHub() *Hub {
	return &Hub{
		requests: make(chan request, 256),
		stopped:  make(chan struct{}),
		subs:     make(map[string]*Subscriber),
		rooms:    make(map[string]map[string]*Subscriber),
	}
}

// Run dispatches requests until ctx is done. Every subscriber queue is closed
// on return.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for id, sub := range h.subs {
			close(sub.send)
			delete(h.subs, id)
		}
		h.rooms = make(map[string]map[string]*Subscriber)
		close(h.stopped)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-h.requests:
			h.handle(req)
			if req.done != nil {
				close(req.done)
			}
		}
	}
}

func (h *Hub) handle(req request) {
	switch req.op {
	case opRegister:
		h.subs[req.sub.id] = req.sub

	case opUnregister:
		if _, ok := h.subs[req.sub.id]; !ok {
			return
		}
		for room := range req.sub.rooms {
			h.removeFromRoom(room, req.sub)
		}
		delete(h.subs, req.sub.id)
		close(req.sub.send)

	case opJoin:
		if _, ok := h.subs[req.sub.id]; !ok {
			return
		}
		members, ok := h.rooms[req.room]
		if !ok {
			members = make(map[string]*Subscriber)
			h.rooms[req.room] = members
		}
		members[req.sub.id] = req.sub
		req.sub.rooms[req.room] = struct{}{}

	case opLeave:
		h.removeFromRoom(req.room, req.sub)
		delete(req.sub.rooms, req.room)

	case opDeliver:
		for id, sub := range h.rooms[req.room] {
			if id == req.exclude {
				continue
			}
			select {
			case sub.send <- req.frame:
			default:
				slog.Debug("dropping realtime frame, send queue full", "room", req.room, "socket_id", id)
			}
		}

	case opSend:
		if _, ok := h.subs[req.sub.id]; !ok {
			return
		}
		select {
		case req.sub.send <- req.frame:
		default:
		}

	case opRestrict:
		allowed := make(map[uuid.UUID]struct{}, len(req.allowed))
		for _, id := range req.allowed {
			allowed[id] = struct{}{}
		}
		for _, room := range req.rooms {
			for id, sub := range h.rooms[room] {
				if _, ok := allowed[sub.userID]; ok {
					continue
				}
				h.removeFromRoom(room, sub)
				delete(sub.rooms, room)
				slog.Debug("evicted from realtime room", "room", room, "socket_id", id, "user_id", sub.userID)
			}
		}

	case opMembers:
		ids := make([]string, 0, len(h.rooms[req.room]))
		for id := range h.rooms[req.room] {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		req.members <- ids
	}
}

func (h *Hub) removeFromRoom(room string, sub *Subscriber) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, sub.id)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) do(ctx context.Context, req request) error {
	req.done = make(chan struct{})
	select {
	case h.requests <- req:
	case <-h.stopped:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.done:
		return nil
	case <-h.stopped:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) Register(ctx context.Context, sub *Subscriber) error {
	return h.do(ctx, request{op: opRegister, sub: sub})
}

// Unregister removes sub from every room and closes its queue.
func (h *Hub) Unregister(ctx context.Context, sub *Subscriber) error {
	return h.do(ctx, request{op: opUnregister, sub: sub})
}

func (h *Hub) Join(ctx context.Context, sub *Subscriber, room string) error {
	return h.do(ctx, request{op: opJoin, sub: sub, room: room})
}

func (h *Hub) Leave(ctx context.Context, sub *Subscriber, room string) error {
	return h.do(ctx, request{op: opLeave, sub: sub, room: room})
}

func (h *Hub) Publish(ctx context.Context, room string, env Envelope, excludeConnID string) error {
	frame, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", env.Event, err)
	}
	return h.Deliver(ctx, room, frame, excludeConnID)
}

// Deliver fans an already encoded frame out to the room.
func (h *Hub) Deliver(ctx context.Context, room string, frame []byte, excludeConnID string) error {
	return h.do(ctx, request{op: opDeliver, room: room, frame: frame, exclude: excludeConnID})
}

// Send queues a frame for a single subscriber.
func (h *Hub) Send(ctx context.Context, sub *Subscriber, env Envelope) error {
	frame, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", env.Event, err)
	}
	return h.do(ctx, request{op: opSend, sub: sub, frame: frame})
}

func (h *Hub) Restrict(ctx context.Context, allowed []uuid.UUID, rooms ...string) error {
	if len(rooms) == 0 {
		return nil
	}
	return h.do(ctx, request{op: opRestrict, allowed: allowed, rooms: rooms})
}

// Members lists the subscriber ids currently in room.
func (h *Hub) Members(ctx context.Context, room string) ([]string, error) {
	reply := make(chan []string, 1)
	if err := h.do(ctx, request{op: opMembers, room: room, members: reply}); err != nil {
		return nil, err
	}
	return <-reply, nil
}
