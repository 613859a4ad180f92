package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Event names sent by the server.
const (
	EventConnected    = "connected"
	EventError        = "error"
	EventTeam         = "teamEvent"
	EventTopic        = "topicEvent"
	EventDiscussion   = "discussionEvent"
	EventPost         = "postEvent"
	EventNotification = "notificationEvent"
)

// Action tells the receiver how to reconcile an entity payload.
type Action string

const (
	ActionAdded   Action = "added"
	ActionEdited  Action = "edited"
	ActionDeleted Action = "deleted"
)

const handshakeTimeout = 10 * time.Second

// Event is one frame received from the realtime endpoint.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Payload is the data of every entity event. Deletions only carry ids.
type Payload struct {
	Action       Action        `json:"action"`
	ID           uuid.UUID     `json:"id"`
	TeamID       uuid.UUID     `json:"teamId"`
	TopicID      *uuid.UUID    `json:"topicId,omitempty"`
	DiscussionID *uuid.UUID    `json:"discussionId,omitempty"`
	Team         *Team         `json:"team,omitempty"`
	Topic        *Topic        `json:"topic,omitempty"`
	Discussion   *Discussion   `json:"discussion,omitempty"`
	Post         *Post         `json:"post,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
}

// Payload decodes the data of an entity event.
func (e Event) Payload() (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", e.Name, err)
	}
	return &p, nil
}

// ErrorMessage is the data of an error event.
type ErrorMessage struct {
	Op      string `json:"op,omitempty"`
	Room    string `json:"room,omitempty"`
	Message string `json:"message"`
}

type controlMessage struct {
	Event string    `json:"event"`
	ID    uuid.UUID `json:"id"`
}

// Stream is an open realtime connection. Events are delivered in arrival
// order on the channel returned by Events, which closes when the connection
// ends.
type Stream struct {
	client   *Client
	ws       *websocket.Conn
	socketID string
	events   chan Event
	done     chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
}

// Dial opens the realtime connection with a fresh ticket and waits for the
// server to announce the socket id. From then on the client sends that id
// with every request so its own writes are not echoed back.
func (c *Client) Dial(ctx context.Context) (*Stream, error) {
	ticket, err := c.Ticket(ctx)
	if err != nil {
		return nil, fmt.Errorf("requesting ticket: %w", err)
	}

	endpoint, err := c.websocketURL(ticket)
	if err != nil {
		return nil, err
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing realtime endpoint: %w", err)
	}

	socketID, err := readConnected(ws)
	if err != nil {
		ws.Close()
		return nil, err
	}
	c.SetSocketID(socketID)

	s := &Stream{
		client:   c,
		ws:       ws,
		socketID: socketID,
		events:   make(chan Event, 64),
		done:     make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func (c *Client) websocketURL(ticket string) (string, error) {
	u, err := url.Parse(strings.TrimRight(c.config.BaseURL, "/") + "/api/realtime/ws")
	if err != nil {
		return "", fmt.Errorf("parsing base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"ticket": {ticket}}.Encode()
	return u.String(), nil
}

func readConnected(ws *websocket.Conn) (string, error) {
	_ = ws.SetReadDeadline(time.Now().Add(handshakeTimeout))
	defer ws.SetReadDeadline(time.Time{})

	var ev Event
	if err := ws.ReadJSON(&ev); err != nil {
		return "", fmt.Errorf("reading connected event: %w", err)
	}
	if ev.Name != EventConnected {
		return "", fmt.Errorf("expected %s event, got %q", EventConnected, ev.Name)
	}
	var data struct {
		SocketID string `json:"socketId"`
	}
	if err := json.Unmarshal(ev.Data, &data); err != nil || data.SocketID == "" {
		return "", errors.New("connected event without socket id")
	}
	return data.SocketID, nil
}

func (s *Stream) SocketID() string { return s.socketID }

// Events returns the channel of received events.
func (s *Stream) Events() <-chan Event { return s.events }

// Err reports why the stream ended, or nil while it is open or after Close.
func (s *Stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Stream) JoinTeam(id uuid.UUID) error        { return s.send("joinTeam", id) }
func (s *Stream) LeaveTeam(id uuid.UUID) error       { return s.send("leaveTeam", id) }
func (s *Stream) JoinDiscussion(id uuid.UUID) error  { return s.send("joinDiscussion", id) }
func (s *Stream) LeaveDiscussion(id uuid.UUID) error { return s.send("leaveDiscussion", id) }

func (s *Stream) send(op string, id uuid.UUID) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.ws.SetWriteDeadline(time.Now().Add(handshakeTimeout))
	if err := s.ws.WriteJSON(controlMessage{Event: op, ID: id}); err != nil {
		return fmt.Errorf("sending %s: %w", op, err)
	}
	return nil
}

// Close ends the connection and detaches the socket id from the client.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.writeMu.Lock()
		_ = s.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		s.writeMu.Unlock()
		err = s.ws.Close()
	})
	return err
}

func (s *Stream) readLoop() {
	defer func() {
		if s.client.SocketID() == s.socketID {
			s.client.SetSocketID("")
		}
		close(s.events)
	}()

	for {
		var ev Event
		if err := s.ws.ReadJSON(&ev); err != nil {
			select {
			case <-s.done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.errMu.Lock()
					s.err = err
					s.errMu.Unlock()
				}
			}
			return
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}
