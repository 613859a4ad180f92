package model

import (
	"database/sql/driver"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// EntityKind names a level of the team hierarchy
type EntityKind string

const (
	KindTeam       EntityKind = "team"
	KindTopic      EntityKind = "topic"
	KindDiscussion EntityKind = "discussion"
	KindPost       EntityKind = "post"
)

// EntityRef points at one entity of the hierarchy
type EntityRef struct {
	Kind EntityKind
	ID   uuid.UUID
}

func TeamRef(id uuid.UUID) EntityRef       { return EntityRef{Kind: KindTeam, ID: id} }
func TopicRef(id uuid.UUID) EntityRef      { return EntityRef{Kind: KindTopic, ID: id} }
func DiscussionRef(id uuid.UUID) EntityRef { return EntityRef{Kind: KindDiscussion, ID: id} }
func PostRef(id uuid.UUID) EntityRef       { return EntityRef{Kind: KindPost, ID: id} }

func (r EntityRef) String() string {
	return string(r.Kind) + ":" + r.ID.String()
}

// IDList is an ordered set of ids stored as a single text column ("{a,b,c}").
// Membership filters in SQL use LIKE on the textual uuid.
type IDList []uuid.UUID

// Scan implements the sql.Scanner interface
func (l *IDList) Scan(value interface{}) error {
	if value == nil {
		*l = IDList{}
		return nil
	}

	var str string
	switch v := value.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("unsupported Scan, storing driver.Value type %T into type %T", value, l)
	}

	str = strings.Trim(str, "{}")
	if str == "" {
		*l = IDList{}
		return nil
	}

	parts := strings.Split(str, ",")
	ids := make(IDList, 0, len(parts))
	for _, part := range parts {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			return fmt.Errorf("parsing id list entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	*l = ids
	return nil
}

// Value implements the driver.Valuer interface
func (l IDList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "{}", nil
	}

	parts := make([]string, len(l))
	for i, id := range l {
		parts[i] = id.String()
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

func (l IDList) Contains(id uuid.UUID) bool {
	return slices.Contains(l, id)
}

// With returns the list with id appended when missing.
func (l IDList) With(id uuid.UUID) IDList {
	if l.Contains(id) {
		return l
	}
	out := make(IDList, len(l), len(l)+1)
	copy(out, l)
	return append(out, id)
}

// Without returns a copy of the list with id removed.
func (l IDList) Without(id uuid.UUID) IDList {
	out := make(IDList, 0, len(l))
	for _, existing := range l {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

// Normalize puts first at the head of the list and drops duplicates and nil ids,
// keeping the order of the remaining entries.
func Normalize(first uuid.UUID, ids []uuid.UUID) IDList {
	out := IDList{first}
	for _, id := range ids {
		if id == uuid.Nil || out.Contains(id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
