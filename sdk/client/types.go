package client

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// User is a registered account.
type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Slug        string    `json:"slug"`
	AvatarURL   string    `json:"avatarUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Team struct {
	ID           uuid.UUID   `json:"id"`
	TeamLeaderID uuid.UUID   `json:"teamLeaderId"`
	Name         string      `json:"name"`
	AvatarURL    string      `json:"avatarUrl"`
	Slug         string      `json:"slug"`
	MemberIDs    []uuid.UUID `json:"memberIds"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

func (t *Team) IsMember(userID uuid.UUID) bool {
	return slices.Contains(t.MemberIDs, userID)
}

type Topic struct {
	ID            uuid.UUID `json:"id"`
	TeamID        uuid.UUID `json:"teamId"`
	CreatedUserID uuid.UUID `json:"createdUserId"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	IsProjects    bool      `json:"isProjects"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Discussion struct {
	ID            uuid.UUID   `json:"id"`
	TeamID        uuid.UUID   `json:"teamId"`
	TopicID       uuid.UUID   `json:"topicId"`
	CreatedUserID uuid.UUID   `json:"createdUserId"`
	Name          string      `json:"name"`
	Slug          string      `json:"slug"`
	MemberIDs     []uuid.UUID `json:"memberIds"`
	IsPrivate     bool        `json:"isPrivate"`
	IsPinned      bool        `json:"isPinned"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// CanView reports whether userID may see the discussion inside its team.
func (d *Discussion) CanView(userID uuid.UUID) bool {
	return !d.IsPrivate || slices.Contains(d.MemberIDs, userID)
}

type Post struct {
	ID            uuid.UUID `json:"id"`
	TeamID        uuid.UUID `json:"teamId"`
	TopicID       uuid.UUID `json:"topicId"`
	DiscussionID  uuid.UUID `json:"discussionId"`
	CreatedUserID uuid.UUID `json:"createdUserId"`
	Content       string    `json:"content"`
	HTMLContent   string    `json:"htmlContent"`
	IsEdited      bool      `json:"isEdited"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Notification struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"userId"`
	TeamID       uuid.UUID  `json:"teamId"`
	TopicID      *uuid.UUID `json:"topicId,omitempty"`
	DiscussionID *uuid.UUID `json:"discussionId,omitempty"`
	Content      string     `json:"content"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type Invitation struct {
	ID        uuid.UUID `json:"id"`
	TeamID    uuid.UUID `json:"teamId"`
	Email     string    `json:"email"`
	InvitedBy uuid.UUID `json:"invitedBy"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type AuditLog struct {
	ID         uuid.UUID              `json:"id"`
	Timestamp  time.Time              `json:"timestamp"`
	ActionType string                 `json:"actionType"`
	Result     *bool                  `json:"result"`
	EntityType string                 `json:"entityType"`
	EntityID   string                 `json:"entityId"`
	SubjectID  string                 `json:"subjectId"`
	TeamID     *uuid.UUID             `json:"teamId,omitempty"`
	Permission string                 `json:"permission"`
	Context    map[string]interface{} `json:"context"`
	RequestID  string                 `json:"requestId"`
}

type AddTeamRequest struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type UpdateTeamRequest struct {
	TeamID    uuid.UUID `json:"teamId"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
}

type RemoveMemberRequest struct {
	TeamID uuid.UUID `json:"teamId"`
	UserID uuid.UUID `json:"userId"`
}

type InviteMemberRequest struct {
	TeamID uuid.UUID `json:"teamId"`
	Email  string    `json:"email"`
}

type AddTopicRequest struct {
	TeamID     uuid.UUID `json:"teamId"`
	Name       string    `json:"name"`
	IsProjects bool      `json:"isProjects"`
}

type EditTopicRequest struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type AddDiscussionRequest struct {
	TopicID   uuid.UUID   `json:"topicId"`
	Name      string      `json:"name"`
	MemberIDs []uuid.UUID `json:"memberIds,omitempty"`
	IsPrivate bool        `json:"isPrivate"`
}

type EditDiscussionRequest struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	MemberIDs []uuid.UUID `json:"memberIds,omitempty"`
	IsPrivate bool        `json:"isPrivate"`
}

// ListDiscussionsRequest mirrors the two-phase listing parameters.
// PinnedDiscussionCount is sent only when set.
type ListDiscussionsRequest struct {
	TopicID               uuid.UUID
	SearchQuery           string
	Skip                  int
	Limit                 int
	PinnedDiscussionCount *int
	InitialDiscussionSlug string
}

type DiscussionPage struct {
	Discussions []Discussion `json:"discussions"`
	TotalCount  int64        `json:"totalCount"`
}

type AddPostRequest struct {
	DiscussionID uuid.UUID `json:"discussionId"`
	Content      string    `json:"content"`
}

type EditPostRequest struct {
	ID      uuid.UUID `json:"id"`
	Content string    `json:"content"`
}

// Page bounds list calls. Zero values use the server defaults.
type Page struct {
	Skip  int
	Limit int
}
