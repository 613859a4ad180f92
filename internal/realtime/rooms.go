package realtime

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RoomKind is the entity a room fans out for.
type RoomKind string

const (
	RoomTeam       RoomKind = "team"
	RoomDiscussion RoomKind = "discussion"
	RoomUser       RoomKind = "user"
)

func TeamRoom(id uuid.UUID) string       { return string(RoomTeam) + "-" + id.String() }
func DiscussionRoom(id uuid.UUID) string { return string(RoomDiscussion) + "-" + id.String() }
func UserRoom(id uuid.UUID) string       { return string(RoomUser) + "-" + id.String() }

// ParseRoom splits a room name such as "team-<uuid>" into its kind and id.
func ParseRoom(room string) (RoomKind, uuid.UUID, error) {
	kind, raw, ok := strings.Cut(room, "-")
	if !ok {
		return "", uuid.Nil, fmt.Errorf("malformed room %q", room)
	}
	switch RoomKind(kind) {
	case RoomTeam, RoomDiscussion, RoomUser:
	default:
		return "", uuid.Nil, fmt.Errorf("unknown room kind %q", kind)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("room %q: %w", room, err)
	}
	return RoomKind(kind), id, nil
}
