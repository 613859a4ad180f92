package handler

import (
	"net/http"

	"github.com/dangerclosesec/huddle/internal/realtime"
	"github.com/dangerclosesec/huddle/internal/service"
)

type InvitationHandler struct {
	invitations *service.InvitationService
	events      *Events
}

func NewInvitationHandler(invitations *service.InvitationService, events *Events) *InvitationHandler {
	return &InvitationHandler{invitations: invitations, events: events}
}

func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var input service.AcceptInvitationInput
	if !decodeJSON(w, r, &input) {
		return
	}
	userID := currentUser(r)
	team, err := h.invitations.Accept(r.Context(), userID, input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.events.Team(r.Context(), realtime.ActionEdited, team)
	h.events.TeamFor(r.Context(), userID, realtime.ActionAdded, team)
	respondWithJSON(w, http.StatusOK, team)
}

func (h *InvitationHandler) TeamByToken(w http.ResponseWriter, r *http.Request) {
	team, err := h.invitations.TeamByToken(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, team)
}
