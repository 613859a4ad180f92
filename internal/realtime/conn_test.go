package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type allowTeams struct {
	allowed uuid.UUID
}

func (a allowTeams) AuthorizeRoom(_ context.Context, _ uuid.UUID, kind RoomKind, id uuid.UUID) error {
	if kind == RoomTeam && id == a.allowed {
		return nil
	}
	return errors.New("permission denied")
}

func dialTestConn(t *testing.T, hub *Hub, authorizer RoomAuthorizer) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	userID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewConn(ws, hub, userID, authorizer, 8).Serve(context.Background())
	}))
	t.Cleanup(srv.Close)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readEnvelope(t *testing.T, ws *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env map[string]interface{}
	require.NoError(t, ws.ReadJSON(&env))
	return env
}

func TestConnLifecycle(t *testing.T) {
	hub := startHub(t)
	teamID := uuid.New()
	ws := dialTestConn(t, hub, allowTeams{allowed: teamID})

	connected := readEnvelope(t, ws)
	assert.Equal(t, EventConnected, connected["event"])
	socketID := connected["data"].(map[string]interface{})["socketId"].(string)
	require.NotEmpty(t, socketID)

	t.Run("denied join reports an error", func(t *testing.T) {
		require.NoError(t, ws.WriteJSON(ControlMessage{Event: OpJoinTeam, ID: uuid.New()}))
		env := readEnvelope(t, ws)
		assert.Equal(t, EventError, env["event"])
	})

	t.Run("malformed message reports an error", func(t *testing.T) {
		require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{")))
		env := readEnvelope(t, ws)
		assert.Equal(t, EventError, env["event"])
	})

	t.Run("joined room receives events", func(t *testing.T) {
		require.NoError(t, ws.WriteJSON(ControlMessage{Event: OpJoinTeam, ID: teamID}))
		room := TeamRoom(teamID)
		require.Eventually(t, func() bool {
			members, err := hub.Members(context.Background(), room)
			return err == nil && len(members) == 1
		}, time.Second, 10*time.Millisecond)

		require.NoError(t, hub.Publish(context.Background(), room, Envelope{Event: EventTopic, Data: "t"}, ""))
		assert.Equal(t, EventTopic, readEnvelope(t, ws)["event"])

		// own socket id is excluded
		require.NoError(t, hub.Publish(context.Background(), room, Envelope{Event: "echo"}, socketID))
		require.NoError(t, hub.Publish(context.Background(), room, Envelope{Event: "marker"}, ""))
		assert.Equal(t, "marker", readEnvelope(t, ws)["event"])
	})

	t.Run("disconnect leaves rooms", func(t *testing.T) {
		ws.Close()
		require.Eventually(t, func() bool {
			members, err := hub.Members(context.Background(), TeamRoom(teamID))
			return err == nil && len(members) == 0
		}, 2*time.Second, 10*time.Millisecond)
	})
}
