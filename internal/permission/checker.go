// Package permission decides what a user may do with an entity of the team
// hierarchy by walking the ownership chain up to its team.
package permission

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dangerclosesec/huddle/internal/audit"
	"github.com/dangerclosesec/huddle/internal/domain"
	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/google/uuid"
)

// Capability is the kind of access requested.
type Capability string

const (
	// Read requires team membership and, under a private discussion,
	// discussion membership. It also covers creating children.
	Read Capability = "read"
	// Lead additionally requires being the team leader.
	Lead Capability = "lead"
	// Moderate additionally requires being the discussion creator or the team leader.
	Moderate Capability = "moderate"
	// Author additionally requires being the post creator.
	Author Capability = "author"
)

// Chain holds the checked entity and its ancestors. Levels below the checked
// entity are nil.
type Chain struct {
	Team       *model.Team
	Topic      *model.Topic
	Discussion *model.Discussion
	Post       *model.Post
}

type TeamFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Team, error)
}

type TopicFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Topic, error)
}

type DiscussionFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Discussion, error)
}

type PostFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error)
}

type Checker struct {
	teams       TeamFinder
	topics      TopicFinder
	discussions DiscussionFinder
	posts       PostFinder
	audit       audit.Logger
}

func NewChecker(teams TeamFinder, topics TopicFinder, discussions DiscussionFinder, posts PostFinder, auditLogger audit.Logger) *Checker {
	if auditLogger == nil {
		auditLogger = audit.NoOpLogger{}
	}
	return &Checker{
		teams:       teams,
		topics:      topics,
		discussions: discussions,
		posts:       posts,
		audit:       auditLogger,
	}
}

// Check loads ref with its ancestors and verifies userID holds capability on it.
func (c *Checker) Check(ctx context.Context, userID uuid.UUID, ref model.EntityRef, capability Capability) (*Chain, error) {
	if userID == uuid.Nil {
		return nil, domain.ErrMissingUser
	}
	if ref.ID == uuid.Nil {
		return nil, domain.ErrMissingID
	}

	chain, err := c.load(ctx, ref)
	if err != nil {
		return nil, err
	}

	if err := authorize(chain, userID, capability); err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) {
			c.recordDenial(ctx, userID, ref, capability, chain.Team.ID, err)
		}
		return nil, err
	}
	return chain, nil
}

// CheckMembers verifies every id belongs to the team.
func (c *Checker) CheckMembers(team *model.Team, ids []uuid.UUID) error {
	for _, id := range ids {
		if !team.IsMember(id) {
			return domain.ErrNotTeamMember
		}
	}
	return nil
}

func (c *Checker) load(ctx context.Context, ref model.EntityRef) (*Chain, error) {
	chain := &Chain{}
	var (
		topicID uuid.UUID
		teamID  uuid.UUID
	)

	discussionID := uuid.Nil
	switch ref.Kind {
	case model.KindPost:
		post, err := c.posts.FindByID(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		chain.Post = post
		discussionID = post.DiscussionID
	case model.KindDiscussion:
		discussionID = ref.ID
	case model.KindTopic:
		topicID = ref.ID
	case model.KindTeam:
		teamID = ref.ID
	default:
		return nil, domain.ErrUnknownEntity
	}

	if discussionID != uuid.Nil {
		discussion, err := c.discussions.FindByID(ctx, discussionID)
		if err != nil {
			return nil, err
		}
		chain.Discussion = discussion
		topicID = discussion.TopicID
	}

	if topicID != uuid.Nil {
		topic, err := c.topics.FindByID(ctx, topicID)
		if err != nil {
			return nil, err
		}
		chain.Topic = topic
		teamID = topic.TeamID
	}

	team, err := c.teams.FindByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	chain.Team = team
	return chain, nil
}

func authorize(chain *Chain, userID uuid.UUID, capability Capability) error {
	if !chain.Team.IsMember(userID) {
		return domain.ErrNotTeamMember
	}
	if chain.Discussion != nil && !chain.Discussion.CanView(userID) {
		return domain.ErrNotDiscussionMember
	}

	switch capability {
	case Read:
		return nil
	case Lead:
		if !chain.Team.IsLeader(userID) {
			return domain.ErrNotTeamLeader
		}
		return nil
	case Moderate:
		if chain.Discussion == nil {
			return domain.BadRequestf("capability %s needs a discussion", capability)
		}
		if chain.Discussion.CreatedUserID != userID && !chain.Team.IsLeader(userID) {
			return domain.ErrNotModerator
		}
		return nil
	case Author:
		if chain.Post == nil {
			return domain.BadRequestf("capability %s needs a post", capability)
		}
		if chain.Post.CreatedUserID != userID {
			return domain.ErrNotAuthor
		}
		return nil
	default:
		return domain.BadRequestf("unknown capability %q", capability)
	}
}

func (c *Checker) recordDenial(ctx context.Context, userID uuid.UUID, ref model.EntityRef, capability Capability, teamID uuid.UUID, reason error) {
	err := c.audit.LogPermissionCheck(ctx, userID, string(capability), ref, teamID, false, map[string]interface{}{
		"reason": reason.Error(),
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to record permission denial", "error", err, "entity", ref.String())
	}
}
