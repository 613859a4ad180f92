package handler

import (
	"context"
	"log/slog"

	"github.com/dangerclosesec/huddle/internal/middleware"
	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/dangerclosesec/huddle/internal/realtime"
	"github.com/dangerclosesec/huddle/internal/repository"
	"github.com/google/uuid"
)

// Events turns service results into realtime events. The socket that caused
// a mutation never receives its own event; it applies the HTTP response.
type Events struct {
	publisher realtime.Publisher
}

func NewEvents(publisher realtime.Publisher) *Events {
	return &Events{publisher: publisher}
}

func (e *Events) publish(ctx context.Context, room string, env realtime.Envelope) {
	if e == nil || e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, room, env, middleware.SocketIDFromContext(ctx)); err != nil {
		slog.DebugContext(ctx, "realtime publish failed", "room", room, "event", env.Event, "error", err)
	}
}

// restrict drops sockets of users outside allowed from rooms.
func (e *Events) restrict(ctx context.Context, allowed []uuid.UUID, rooms ...string) {
	if e == nil || e.publisher == nil {
		return
	}
	if err := e.publisher.Restrict(ctx, allowed, rooms...); err != nil {
		slog.WarnContext(ctx, "realtime restrict failed", "rooms", rooms, "error", err)
	}
}

func (e *Events) Team(ctx context.Context, action realtime.Action, team *model.Team) {
	room, env := realtime.TeamEvent(action, team)
	e.publish(ctx, room, env)
}

// TeamFor tells one user about a team. Users joining or leaving a team are
// not reliably in its room.
func (e *Events) TeamFor(ctx context.Context, userID uuid.UUID, action realtime.Action, team *model.Team) {
	_, env := realtime.TeamEvent(action, team)
	e.publish(ctx, realtime.UserRoom(userID), env)
}

func (e *Events) Topic(ctx context.Context, action realtime.Action, topic *model.Topic) {
	room, env := realtime.TopicEvent(action, topic)
	e.publish(ctx, room, env)
}

// MemberRemoved announces a team member removal and evicts the user's
// sockets from the team room and from every discussion room of the team.
func (e *Events) MemberRemoved(ctx context.Context, userID uuid.UUID, removal *repository.MemberRemoval) {
	team := removal.Team
	rooms := make([]string, 0, len(removal.DiscussionIDs)+1)
	rooms = append(rooms, realtime.TeamRoom(team.ID))
	for _, id := range removal.DiscussionIDs {
		rooms = append(rooms, realtime.DiscussionRoom(id))
	}
	e.restrict(ctx, team.MemberIDs, rooms...)

	e.Team(ctx, realtime.ActionEdited, team)
	e.TeamFor(ctx, userID, realtime.ActionDeleted, team)
	for i := range removal.Discussions {
		before := removal.Discussions[i]
		before.MemberIDs = before.MemberIDs.With(userID)
		e.Discussion(ctx, realtime.ActionEdited, &removal.Discussions[i], &before)
	}
}

// Discussion announces a discussion change. Public discussions go to the
// team room; private ones only to the personal rooms of their members. When
// before is given, users who gained access get an added event and users who
// lost it a deleted one, and lose their place in the discussion room.
func (e *Events) Discussion(ctx context.Context, action realtime.Action, discussion *model.Discussion, before *model.Discussion) {
	if discussion.IsPrivate && lostAccess(discussion, before) {
		e.restrict(ctx, discussion.MemberIDs, realtime.DiscussionRoom(discussion.ID))
	}

	room, env := realtime.DiscussionEvent(action, discussion)
	_, added := realtime.DiscussionEvent(realtime.ActionAdded, discussion)
	_, deleted := realtime.DiscussionEvent(realtime.ActionDeleted, discussion)

	if !discussion.IsPrivate {
		e.publish(ctx, room, env)
		if before != nil && before.IsPrivate {
			// holders already replaced it; everyone else inserts it
			e.publish(ctx, room, added)
		}
		return
	}

	if before != nil && !before.IsPrivate {
		e.publish(ctx, room, deleted)
		for _, id := range discussion.MemberIDs {
			e.publish(ctx, realtime.UserRoom(id), added)
		}
		return
	}

	for _, id := range discussion.MemberIDs {
		if before != nil && !before.MemberIDs.Contains(id) {
			e.publish(ctx, realtime.UserRoom(id), added)
			continue
		}
		e.publish(ctx, realtime.UserRoom(id), env)
	}
	if before != nil {
		for _, id := range before.MemberIDs {
			if !discussion.MemberIDs.Contains(id) {
				e.publish(ctx, realtime.UserRoom(id), deleted)
			}
		}
	}
}

// lostAccess reports whether a user who could see before cannot see after.
func lostAccess(after, before *model.Discussion) bool {
	if before == nil {
		return false
	}
	if !before.IsPrivate {
		return true
	}
	for _, id := range before.MemberIDs {
		if !after.MemberIDs.Contains(id) {
			return true
		}
	}
	return false
}

func (e *Events) Post(ctx context.Context, action realtime.Action, post *model.Post) {
	room, env := realtime.PostEvent(action, post)
	e.publish(ctx, room, env)
}

func (e *Events) Notifications(ctx context.Context, notifications []*model.Notification) {
	for _, n := range notifications {
		room, env := realtime.NotificationEvent(n)
		e.publish(ctx, room, env)
	}
}
