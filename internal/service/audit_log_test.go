package service_test

import (
	"context"
	"testing"

	"github.com/dangerclosesec/huddle/internal/domain"
	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/dangerclosesec/huddle/internal/service"
	"github.com/dangerclosesec/huddle/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogService_Query(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()
	alice := testdb.User(t, s.db, "alice@example.com")
	bob := testdb.User(t, s.db, "bob@example.com")

	team, err := s.teams.Add(ctx, alice.ID, service.AddTeamInput{Name: "Acme"})
	require.NoError(t, err)
	_, err = s.topics.Add(ctx, alice.ID, service.AddTopicInput{TeamID: team.ID, Name: "General"})
	require.NoError(t, err)

	// denied, and recorded as such
	_, err = s.teams.Get(ctx, bob.ID, team.ID)
	require.ErrorIs(t, err, domain.ErrPermissionDenied)

	logs, total, err := s.audit.Query(ctx, alice.ID, service.AuditQueryInput{TeamID: team.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, logs, 3)

	actions := map[string]int{}
	for _, l := range logs {
		actions[l.ActionType]++
		if l.ActionType == model.ActionPermissionCheck {
			require.NotNil(t, l.Result)
			assert.False(t, *l.Result)
			assert.Equal(t, bob.ID.String(), l.SubjectID)
		}
	}
	assert.Equal(t, 2, actions[model.ActionEntityCreate])
	assert.Equal(t, 1, actions[model.ActionPermissionCheck])

	_, _, err = s.audit.Query(ctx, bob.ID, service.AuditQueryInput{TeamID: team.ID})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
}
