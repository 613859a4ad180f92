package store

import (
	"cmp"
	"slices"

	"github.com/dangerclosesec/huddle/sdk/client"
	"github.com/google/uuid"
)

// Read accessors return copies; mutating them does not affect the store.

func (s *Store) Team(id uuid.UUID) (client.Team, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return client.Team{}, false
	}
	return *cloneTeam(t), true
}

// Teams lists teams newest first.
func (s *Store) Teams() []client.Team {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]client.Team, 0, len(s.teams))
	for _, t := range s.teams {
		out = append(out, *cloneTeam(t))
	}
	slices.SortFunc(out, func(a, b client.Team) int {
		return newestFirst(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano(), a.ID, b.ID)
	})
	return out
}

func (s *Store) Topic(id uuid.UUID) (client.Topic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.topics[id]
	if !ok {
		return client.Topic{}, false
	}
	return *t, true
}

// Topics lists the topics of a team newest first.
func (s *Store) Topics(teamID uuid.UUID) []client.Topic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []client.Topic
	for _, t := range s.topics {
		if t.TeamID == teamID {
			out = append(out, *t)
		}
	}
	slices.SortFunc(out, func(a, b client.Topic) int {
		return newestFirst(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano(), a.ID, b.ID)
	})
	return out
}

func (s *Store) Discussion(id uuid.UUID) (client.Discussion, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.discussions[id]
	if !ok {
		return client.Discussion{}, false
	}
	return *cloneDiscussion(d), true
}

// Discussions lists the discussions of a topic, pinned first, then newest
// first, matching the server listing.
func (s *Store) Discussions(topicID uuid.UUID) []client.Discussion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []client.Discussion
	for _, d := range s.discussions {
		if d.TopicID == topicID {
			out = append(out, *cloneDiscussion(d))
		}
	}
	slices.SortFunc(out, func(a, b client.Discussion) int {
		if a.IsPinned != b.IsPinned {
			if a.IsPinned {
				return -1
			}
			return 1
		}
		return newestFirst(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano(), a.ID, b.ID)
	})
	return out
}

// Posts lists the posts of a discussion newest first.
func (s *Store) Posts(discussionID uuid.UUID) []client.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []client.Post
	for _, p := range s.posts {
		if p.DiscussionID == discussionID {
			out = append(out, *p)
		}
	}
	slices.SortFunc(out, func(a, b client.Post) int {
		return newestFirst(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano(), a.ID, b.ID)
	})
	return out
}

func (s *Store) Notifications() []client.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.notifications)
}

func newestFirst(a, b int64, aID, bID uuid.UUID) int {
	if c := cmp.Compare(b, a); c != 0 {
		return c
	}
	return cmp.Compare(bID.String(), aID.String())
}
