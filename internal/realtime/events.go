package realtime

import (
	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/google/uuid"
)

// Action tells a client how to reconcile the payload with its cache.
type Action string

const (
	ActionAdded   Action = "added"
	ActionEdited  Action = "edited"
	ActionDeleted Action = "deleted"
)

// Event names sent to clients.
const (
	EventConnected    = "connected"
	EventError        = "error"
	EventTeam         = "teamEvent"
	EventTopic        = "topicEvent"
	EventDiscussion   = "discussionEvent"
	EventPost         = "postEvent"
	EventNotification = "notificationEvent"
)

// Envelope is the frame written to every websocket.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// EntityPayload carries one mutation. Deletions only carry the ids.
type EntityPayload struct {
	Action       Action              `json:"action"`
	ID           uuid.UUID           `json:"id"`
	TeamID       uuid.UUID           `json:"teamId"`
	TopicID      *uuid.UUID          `json:"topicId,omitempty"`
	DiscussionID *uuid.UUID          `json:"discussionId,omitempty"`
	Team         *model.Team         `json:"team,omitempty"`
	Topic        *model.Topic        `json:"topic,omitempty"`
	Discussion   *model.Discussion   `json:"discussion,omitempty"`
	Post         *model.Post         `json:"post,omitempty"`
	Notification *model.Notification `json:"notification,omitempty"`
}

// ConnectedPayload is sent once after the upgrade.
type ConnectedPayload struct {
	SocketID string `json:"socketId"`
}

// ErrorPayload reports a rejected control message.
type ErrorPayload struct {
	Op      string `json:"op,omitempty"`
	Room    string `json:"room,omitempty"`
	Message string `json:"message"`
}

func TeamEvent(action Action, team *model.Team) (string, Envelope) {
	payload := EntityPayload{Action: action, ID: team.ID, TeamID: team.ID}
	if action != ActionDeleted {
		payload.Team = team
	}
	return TeamRoom(team.ID), Envelope{Event: EventTeam, Data: payload}
}

func TopicEvent(action Action, topic *model.Topic) (string, Envelope) {
	payload := EntityPayload{Action: action, ID: topic.ID, TeamID: topic.TeamID, TopicID: &topic.ID}
	if action != ActionDeleted {
		payload.Topic = topic
	}
	return TeamRoom(topic.TeamID), Envelope{Event: EventTopic, Data: payload}
}

// DiscussionEvent is routed to the team room so topic listings stay current.
func DiscussionEvent(action Action, discussion *model.Discussion) (string, Envelope) {
	payload := EntityPayload{
		Action:       action,
		ID:           discussion.ID,
		TeamID:       discussion.TeamID,
		TopicID:      &discussion.TopicID,
		DiscussionID: &discussion.ID,
	}
	if action != ActionDeleted {
		payload.Discussion = discussion
	}
	return TeamRoom(discussion.TeamID), Envelope{Event: EventDiscussion, Data: payload}
}

func PostEvent(action Action, post *model.Post) (string, Envelope) {
	payload := EntityPayload{
		Action:       action,
		ID:           post.ID,
		TeamID:       post.TeamID,
		TopicID:      &post.TopicID,
		DiscussionID: &post.DiscussionID,
	}
	if action != ActionDeleted {
		payload.Post = post
	}
	return DiscussionRoom(post.DiscussionID), Envelope{Event: EventPost, Data: payload}
}

func NotificationEvent(notification *model.Notification) (string, Envelope) {
	payload := EntityPayload{
		Action:       ActionAdded,
		ID:           notification.ID,
		TeamID:       notification.TeamID,
		TopicID:      notification.TopicID,
		DiscussionID: notification.DiscussionID,
		Notification: notification,
	}
	return UserRoom(notification.UserID), Envelope{Event: EventNotification, Data: payload}
}
