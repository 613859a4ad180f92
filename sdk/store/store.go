// Package store keeps a client-side mirror of the Team → Topic → Discussion
// → Post tree. Responses to the client's own calls and realtime events from
// other clients go through the same apply functions. Every apply replaces
// whole records keyed by id, so applying an update twice, or a direct result
// and its late broadcast, converges on one state.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dangerclosesec/huddle/sdk/client"
	"github.com/google/uuid"
)

// Listener is called after every state change, outside the store lock.
type Listener func()

// EventSource is anything that yields realtime events, typically a
// *client.Stream.
type EventSource interface {
	Events() <-chan client.Event
}

// Store is safe for concurrent use.
type Store struct {
	userID uuid.UUID

	mu          sync.RWMutex
	teams       map[uuid.UUID]*client.Team
	topics      map[uuid.UUID]*client.Topic
	discussions map[uuid.UUID]*client.Discussion
	posts       map[uuid.UUID]*client.Post

	notifications []client.Notification

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// New returns an empty store for userID. The id decides whether an edited
// private discussion is still visible.
func New(userID uuid.UUID) *Store {
	return &Store{
		userID:      userID,
		teams:       make(map[uuid.UUID]*client.Team),
		topics:      make(map[uuid.UUID]*client.Topic),
		discussions: make(map[uuid.UUID]*client.Discussion),
		posts:       make(map[uuid.UUID]*client.Post),
		listeners:   make(map[int]Listener),
	}
}

// Subscribe registers a listener and returns the function that removes it.
func (s *Store) Subscribe(listener Listener) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

func (s *Store) notify() {
	s.listenersMu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.Unlock()

	for _, l := range listeners {
		l()
	}
}

// update runs fn under the write lock and notifies listeners when fn
// reports a change.
func (s *Store) update(fn func() bool) {
	s.mu.Lock()
	changed := fn()
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// ApplyTeam reconciles one team record. A team the user is no longer a
// member of is dropped with everything under it.
func (s *Store) ApplyTeam(action client.Action, team *client.Team) {
	if team == nil {
		return
	}
	s.update(func() bool {
		existing, ok := s.teams[team.ID]
		switch action {
		case client.ActionAdded:
			if ok || !team.IsMember(s.userID) {
				return false
			}
			s.teams[team.ID] = cloneTeam(team)
			return true
		case client.ActionEdited:
			if !ok || stale(existing.UpdatedAt, team.UpdatedAt) {
				return false
			}
			if !team.IsMember(s.userID) {
				s.removeTeam(team.ID)
				return true
			}
			s.teams[team.ID] = cloneTeam(team)
			return true
		case client.ActionDeleted:
			if !ok {
				return false
			}
			s.removeTeam(team.ID)
			return true
		}
		return false
	})
}

func (s *Store) ApplyTopic(action client.Action, topic *client.Topic) {
	if topic == nil {
		return
	}
	s.update(func() bool {
		existing, ok := s.topics[topic.ID]
		switch action {
		case client.ActionAdded:
			if ok {
				return false
			}
			s.topics[topic.ID] = clone(topic)
			return true
		case client.ActionEdited:
			if !ok || stale(existing.UpdatedAt, topic.UpdatedAt) {
				return false
			}
			s.topics[topic.ID] = clone(topic)
			return true
		case client.ActionDeleted:
			if !ok {
				return false
			}
			s.removeTopic(topic.ID)
			return true
		}
		return false
	})
}

// ApplyDiscussion reconciles one discussion. An edit that takes the user out
// of a private discussion removes it and its posts.
func (s *Store) ApplyDiscussion(action client.Action, discussion *client.Discussion) {
	if discussion == nil {
		return
	}
	s.update(func() bool {
		existing, ok := s.discussions[discussion.ID]
		switch action {
		case client.ActionAdded:
			if ok || !discussion.CanView(s.userID) {
				return false
			}
			s.discussions[discussion.ID] = cloneDiscussion(discussion)
			return true
		case client.ActionEdited:
			if !ok || stale(existing.UpdatedAt, discussion.UpdatedAt) {
				return false
			}
			if !discussion.CanView(s.userID) {
				s.removeDiscussion(discussion.ID)
				return true
			}
			s.discussions[discussion.ID] = cloneDiscussion(discussion)
			return true
		case client.ActionDeleted:
			if !ok {
				return false
			}
			s.removeDiscussion(discussion.ID)
			return true
		}
		return false
	})
}

func (s *Store) ApplyPost(action client.Action, post *client.Post) {
	if post == nil {
		return
	}
	s.update(func() bool {
		existing, ok := s.posts[post.ID]
		switch action {
		case client.ActionAdded:
			if ok {
				return false
			}
			s.posts[post.ID] = clone(post)
			return true
		case client.ActionEdited:
			if !ok || stale(existing.UpdatedAt, post.UpdatedAt) {
				return false
			}
			s.posts[post.ID] = clone(post)
			return true
		case client.ActionDeleted:
			if !ok {
				return false
			}
			delete(s.posts, post.ID)
			return true
		}
		return false
	})
}

// ApplyNotification prepends a notification unless it is already held.
func (s *Store) ApplyNotification(notification *client.Notification) {
	if notification == nil {
		return
	}
	s.update(func() bool {
		for _, n := range s.notifications {
			if n.ID == notification.ID {
				return false
			}
		}
		s.notifications = append([]client.Notification{*notification}, s.notifications...)
		return true
	})
}

// HandleEvent routes a realtime event to the matching apply function.
// Deletions carry only ids, so a placeholder record is built from them.
// Events the store does not track are ignored.
func (s *Store) HandleEvent(ev client.Event) error {
	switch ev.Name {
	case client.EventTeam, client.EventTopic, client.EventDiscussion, client.EventPost, client.EventNotification:
	default:
		return nil
	}

	p, err := ev.Payload()
	if err != nil {
		return err
	}
	switch p.Action {
	case client.ActionAdded, client.ActionEdited, client.ActionDeleted:
	default:
		return fmt.Errorf("unknown action %q in %s", p.Action, ev.Name)
	}

	switch ev.Name {
	case client.EventTeam:
		team := p.Team
		if team == nil {
			team = &client.Team{ID: p.ID}
		}
		s.ApplyTeam(p.Action, team)
	case client.EventTopic:
		topic := p.Topic
		if topic == nil {
			topic = &client.Topic{ID: p.ID, TeamID: p.TeamID}
		}
		s.ApplyTopic(p.Action, topic)
	case client.EventDiscussion:
		discussion := p.Discussion
		if discussion == nil {
			discussion = &client.Discussion{ID: p.ID, TeamID: p.TeamID}
		}
		s.ApplyDiscussion(p.Action, discussion)
	case client.EventPost:
		post := p.Post
		if post == nil {
			post = &client.Post{ID: p.ID, TeamID: p.TeamID}
		}
		s.ApplyPost(p.Action, post)
	case client.EventNotification:
		s.ApplyNotification(p.Notification)
	}
	return nil
}

// Run applies events from src until the source closes or ctx ends.
// Malformed events are reported through onError when it is non-nil and do
// not stop the loop.
func (s *Store) Run(ctx context.Context, src EventSource, onError func(error)) error {
	events := src.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := s.HandleEvent(ev); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}

// ReplaceTeams swaps in a full team listing. Topics, discussions and posts
// of teams that disappeared are dropped.
func (s *Store) ReplaceTeams(teams []client.Team) {
	s.update(func() bool {
		keep := make(map[uuid.UUID]bool, len(teams))
		for i := range teams {
			keep[teams[i].ID] = true
		}
		for id := range s.teams {
			if !keep[id] {
				s.removeTeam(id)
			}
		}
		for i := range teams {
			s.teams[teams[i].ID] = cloneTeam(&teams[i])
		}
		return true
	})
}

// ReplaceTopics swaps in the full topic listing of one team.
func (s *Store) ReplaceTopics(teamID uuid.UUID, topics []client.Topic) {
	s.update(func() bool {
		keep := make(map[uuid.UUID]bool, len(topics))
		for i := range topics {
			keep[topics[i].ID] = true
		}
		for id, t := range s.topics {
			if t.TeamID == teamID && !keep[id] {
				s.removeTopic(id)
			}
		}
		for i := range topics {
			s.topics[topics[i].ID] = clone(&topics[i])
		}
		return true
	})
}

// ReplaceDiscussions swaps in the discussions of one topic. Discussions the
// user can no longer view are dropped with their posts.
func (s *Store) ReplaceDiscussions(topicID uuid.UUID, discussions []client.Discussion) {
	s.update(func() bool {
		keep := make(map[uuid.UUID]bool, len(discussions))
		for i := range discussions {
			keep[discussions[i].ID] = true
		}
		for id, d := range s.discussions {
			if d.TopicID == topicID && !keep[id] {
				s.removeDiscussion(id)
			}
		}
		for i := range discussions {
			if discussions[i].CanView(s.userID) {
				s.discussions[discussions[i].ID] = cloneDiscussion(&discussions[i])
			}
		}
		return true
	})
}

// ReplacePosts swaps in the posts of one discussion.
func (s *Store) ReplacePosts(discussionID uuid.UUID, posts []client.Post) {
	s.update(func() bool {
		for id, p := range s.posts {
			if p.DiscussionID == discussionID {
				delete(s.posts, id)
			}
		}
		for i := range posts {
			s.posts[posts[i].ID] = clone(&posts[i])
		}
		return true
	})
}

func (s *Store) ReplaceNotifications(notifications []client.Notification) {
	s.update(func() bool {
		s.notifications = slices.Clone(notifications)
		return true
	})
}

// removal helpers expect the write lock to be held

func (s *Store) removeTeam(id uuid.UUID) {
	delete(s.teams, id)
	for topicID, t := range s.topics {
		if t.TeamID == id {
			s.removeTopic(topicID)
		}
	}
}

func (s *Store) removeTopic(id uuid.UUID) {
	delete(s.topics, id)
	for discussionID, d := range s.discussions {
		if d.TopicID == id {
			s.removeDiscussion(discussionID)
		}
	}
}

func (s *Store) removeDiscussion(id uuid.UUID) {
	delete(s.discussions, id)
	for postID, p := range s.posts {
		if p.DiscussionID == id {
			delete(s.posts, postID)
		}
	}
}

// stale reports whether an incoming record is older than the held one.
// Records without a timestamp, such as deletion placeholders, are never stale.
func stale(held, incoming time.Time) bool {
	return !incoming.IsZero() && incoming.Before(held)
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}

func cloneTeam(t *client.Team) *client.Team {
	c := clone(t)
	c.MemberIDs = slices.Clone(t.MemberIDs)
	return c
}

func cloneDiscussion(d *client.Discussion) *client.Discussion {
	c := clone(d)
	c.MemberIDs = slices.Clone(d.MemberIDs)
	return c
}
