package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	readLimit  = 64 * 1024
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	writeWait  = 10 * time.Second
)

// Control message names accepted from clients.
const (
	OpJoinTeam        = "joinTeam"
	OpLeaveTeam       = "leaveTeam"
	OpJoinDiscussion  = "joinDiscussion"
	OpLeaveDiscussion = "leaveDiscussion"
)

// ControlMessage is a client request to enter or leave a room.
type ControlMessage struct {
	Event string    `json:"event"`
	ID    uuid.UUID `json:"id"`
}

// RoomAuthorizer decides whether a user may join a room.
type RoomAuthorizer interface {
	AuthorizeRoom(ctx context.Context, userID uuid.UUID, kind RoomKind, id uuid.UUID) error
}

// Conn pumps frames between one websocket and the hub.
type Conn struct {
	ws         *websocket.Conn
	hub        *Hub
	sub        *Subscriber
	authorizer RoomAuthorizer
	closeOnce  sync.Once
}

func NewConn(ws *websocket.Conn, hub *Hub, userID uuid.UUID, authorizer RoomAuthorizer, queueSize int) *Conn {
	return &Conn{
		ws:         ws,
		hub:        hub,
		sub:        NewSubscriber(userID, queueSize),
		authorizer: authorizer,
	}
}

func (c *Conn) ID() string { return c.sub.ID() }

// Serve registers the connection, announces its socket id and processes
// control messages until the peer goes away or ctx ends.
func (c *Conn) Serve(ctx context.Context) {
	logger := slog.With("socket_id", c.sub.ID(), "user_id", c.sub.UserID())

	if err := c.hub.Register(ctx, c.sub); err != nil {
		logger.Warn("registering realtime connection", "error", err)
		c.close()
		return
	}
	defer func() {
		// a fresh context: the request context is usually gone by now
		if err := c.hub.Unregister(context.Background(), c.sub); err != nil && !errors.Is(err, ErrHubStopped) {
			logger.Warn("unregistering realtime connection", "error", err)
		}
		c.close()
	}()

	if err := c.hub.Join(ctx, c.sub, UserRoom(c.sub.UserID())); err != nil {
		logger.Warn("joining user room", "error", err)
		return
	}
	c.reply(ctx, Envelope{Event: EventConnected, Data: ConnectedPayload{SocketID: c.sub.ID()}})

	go c.writePump()

	logger.Debug("realtime connection established")
	c.readPump(ctx, logger)
	logger.Debug("realtime connection closed")
}

func (c *Conn) readPump(ctx context.Context, logger *slog.Logger) {
	c.ws.SetReadLimit(readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("realtime read failed", "error", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		var msg ControlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply(ctx, Envelope{Event: EventError, Data: ErrorPayload{Message: "malformed control message"}})
			continue
		}
		c.handleControl(ctx, msg, logger)
	}
}

func (c *Conn) handleControl(ctx context.Context, msg ControlMessage, logger *slog.Logger) {
	var (
		kind RoomKind
		join bool
	)
	switch msg.Event {
	case OpJoinTeam:
		kind, join = RoomTeam, true
	case OpLeaveTeam:
		kind = RoomTeam
	case OpJoinDiscussion:
		kind, join = RoomDiscussion, true
	case OpLeaveDiscussion:
		kind = RoomDiscussion
	default:
		c.reply(ctx, Envelope{Event: EventError, Data: ErrorPayload{Op: msg.Event, Message: "unknown control message"}})
		return
	}

	room := string(kind) + "-" + msg.ID.String()
	if !join {
		if err := c.hub.Leave(ctx, c.sub, room); err != nil {
			logger.Debug("leaving room", "room", room, "error", err)
		}
		return
	}

	if err := c.authorizer.AuthorizeRoom(ctx, c.sub.UserID(), kind, msg.ID); err != nil {
		c.reply(ctx, Envelope{Event: EventError, Data: ErrorPayload{Op: msg.Event, Room: room, Message: err.Error()}})
		return
	}
	if err := c.hub.Join(ctx, c.sub, room); err != nil {
		logger.Debug("joining room", "room", room, "error", err)
	}
}

// reply sends a frame to this connection only.
func (c *Conn) reply(ctx context.Context, env Envelope) {
	if err := c.hub.Send(ctx, c.sub, env); err != nil {
		slog.Debug("realtime reply dropped", "socket_id", c.sub.ID(), "error", err)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case frame, ok := <-c.sub.Messages():
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		_ = c.ws.Close()
	})
}
