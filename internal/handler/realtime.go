package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dangerclosesec/huddle/internal/auth"
	"github.com/dangerclosesec/huddle/internal/domain"
	"github.com/dangerclosesec/huddle/internal/middleware"
	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/dangerclosesec/huddle/internal/permission"
	"github.com/dangerclosesec/huddle/internal/realtime"
	"github.com/dangerclosesec/huddle/internal/service"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// RoomAuthorizer lets users into the rooms of entities they can read.
type RoomAuthorizer struct {
	checker *permission.Checker
}

func NewRoomAuthorizer(checker *permission.Checker) *RoomAuthorizer {
	return &RoomAuthorizer{checker: checker}
}

func (a *RoomAuthorizer) AuthorizeRoom(ctx context.Context, userID uuid.UUID, kind realtime.RoomKind, id uuid.UUID) error {
	var ref model.EntityRef
	switch kind {
	case realtime.RoomTeam:
		ref = model.TeamRef(id)
	case realtime.RoomDiscussion:
		ref = model.DiscussionRef(id)
	case realtime.RoomUser:
		if id != userID {
			return domain.ErrPermissionDenied
		}
		return nil
	default:
		return domain.ErrUnknownEntity
	}
	_, err := a.checker.Check(ctx, userID, ref, permission.Read)
	return err
}

type RealtimeHandler struct {
	hub        *realtime.Hub
	authorizer realtime.RoomAuthorizer
	tickets    *service.CacheService
	tokens     *auth.TokenManager
	upgrader   websocket.Upgrader
	queueSize  int
}

func NewRealtimeHandler(hub *realtime.Hub, authorizer realtime.RoomAuthorizer, tickets *service.CacheService, tokens *auth.TokenManager, queueSize int) *RealtimeHandler {
	return &RealtimeHandler{
		hub:        hub,
		authorizer: authorizer,
		tickets:    tickets,
		tokens:     tokens,
		queueSize:  queueSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// connections authenticate with a ticket or token, never cookies
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type TicketResponse struct {
	BaseResponse
	Ticket string `json:"ticket"`
}

// Ticket issues a short-lived single-use ticket for opening a websocket from
// clients that cannot set headers on the upgrade request.
func (h *RealtimeHandler) Ticket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.tickets.IssueTicket(r.Context(), currentUser(r))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, TicketResponse{BaseResponse: okResponse, Ticket: ticket})
}

// authenticate resolves the user from a ticket, a bearer header or a token
// query parameter, in that order.
func (h *RealtimeHandler) authenticate(r *http.Request) (uuid.UUID, bool) {
	if ticket := r.URL.Query().Get("ticket"); ticket != "" {
		userID, err := h.tickets.ConsumeTicket(r.Context(), ticket)
		return userID, err == nil
	}

	token, ok := middleware.BearerToken(r)
	if !ok {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return uuid.Nil, false
	}
	claims, err := h.tokens.Validate(token)
	if err != nil {
		return uuid.Nil, false
	}
	userID, err := claims.UserID()
	return userID, err == nil
}

// Serve upgrades an authenticated request and pumps it until the peer leaves.
func (h *RealtimeHandler) Serve(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticate(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Invalid or missing credentials")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already answered
		slog.DebugContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	realtime.NewConn(ws, h.hub, userID, h.authorizer, h.queueSize).Serve(r.Context())
}
