package testdb

import (
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var seq atomic.Int64

func next() string {
	return strconv.FormatInt(seq.Add(1), 10)
}

func create(t testing.TB, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("seeding %T: %v", value, err)
	}
}

// User inserts a user whose slug is derived from the email local part.
func User(t testing.TB, db *gorm.DB, email string) *model.User {
	t.Helper()
	local, _, _ := strings.Cut(email, "@")
	u := &model.User{Email: email, DisplayName: local, Slug: local + "-" + next()}
	create(t, db, u)
	return u
}

// Team inserts a team led by leader with the given extra members.
func Team(t testing.TB, db *gorm.DB, name string, leader *model.User, members ...*model.User) *model.Team {
	t.Helper()
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	team := &model.Team{
		TeamLeaderID: leader.ID,
		Name:         name,
		Slug:         strings.ToLower(name) + "-" + next(),
		MemberIDs:    model.Normalize(leader.ID, ids),
	}
	create(t, db, team)
	return team
}

func Topic(t testing.TB, db *gorm.DB, team *model.Team, creator *model.User, name string) *model.Topic {
	t.Helper()
	topic := &model.Topic{
		TeamID:        team.ID,
		CreatedUserID: creator.ID,
		Name:          name,
		Slug:          strings.ToLower(name) + "-" + next(),
	}
	create(t, db, topic)
	return topic
}

// Discussion inserts a discussion; members are stored after the creator.
func Discussion(t testing.TB, db *gorm.DB, topic *model.Topic, creator *model.User, name string, private bool, members ...*model.User) *model.Discussion {
	t.Helper()
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	d := &model.Discussion{
		TeamID:        topic.TeamID,
		TopicID:       topic.ID,
		CreatedUserID: creator.ID,
		Name:          name,
		Slug:          next(),
		MemberIDs:     model.Normalize(creator.ID, ids),
		IsPrivate:     private,
	}
	create(t, db, d)
	return d
}

func Post(t testing.TB, db *gorm.DB, discussion *model.Discussion, author *model.User, content string) *model.Post {
	t.Helper()
	p := &model.Post{
		TeamID:        discussion.TeamID,
		TopicID:       discussion.TopicID,
		DiscussionID:  discussion.ID,
		CreatedUserID: author.ID,
		Content:       content,
		HTMLContent:   "<p>" + content + "</p>\n",
	}
	create(t, db, p)
	return p
}
