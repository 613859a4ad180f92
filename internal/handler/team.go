package handler

import (
	"net/http"

	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/dangerclosesec/huddle/internal/realtime"
	"github.com/dangerclosesec/huddle/internal/service"
)

type TeamHandler struct {
	teams       *service.TeamService
	invitations *service.InvitationService
	audit       *service.AuditLogService
	events      *Events
}

func NewTeamHandler(teams *service.TeamService, invitations *service.InvitationService, audit *service.AuditLogService, events *Events) *TeamHandler {
	return &TeamHandler{teams: teams, invitations: invitations, audit: audit, events: events}
}

type TeamsResponse struct {
	BaseResponse
	Teams []model.Team `json:"teams"`
}

type MembersResponse struct {
	BaseResponse
	Members []model.User `json:"members"`
}

type InvitationsResponse struct {
	BaseResponse
	Invitations []model.Invitation `json:"invitations"`
}

type AuditLogsResponse struct {
	BaseResponse
	Logs       []model.AuditLog `json:"logs"`
	TotalCount int64            `json:"totalCount"`
}

func (h *TeamHandler) Add(w http.ResponseWriter, r *http.Request) {
	var input service.AddTeamInput
	if !decodeJSON(w, r, &input) {
		return
	}
	team, err := h.teams.Add(r.Context(), currentUser(r), input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.events.TeamFor(r.Context(), team.TeamLeaderID, realtime.ActionAdded, team)
	respondWithJSON(w, http.StatusCreated, team)
}

func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input service.UpdateTeamInput
	if !decodeJSON(w, r, &input) {
		return
	}
	team, err := h.teams.Update(r.Context(), currentUser(r), input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.events.Team(r.Context(), realtime.ActionEdited, team)
	respondWithJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teams.List(r.Context(), currentUser(r))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, TeamsResponse{BaseResponse: okResponse, Teams: teams})
}

func (h *TeamHandler) Members(w http.ResponseWriter, r *http.Request) {
	teamID, err := queryUUID(r, "teamId")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	members, err := h.teams.Members(r.Context(), currentUser(r), teamID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, MembersResponse{BaseResponse: okResponse, Members: members})
}

func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	var input service.RemoveMemberInput
	if !decodeJSON(w, r, &input) {
		return
	}
	removal, err := h.teams.RemoveMember(r.Context(), currentUser(r), input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.events.MemberRemoved(r.Context(), input.UserID, removal)
	respondWithJSON(w, http.StatusOK, removal.Team)
}

func (h *TeamHandler) InviteMember(w http.ResponseWriter, r *http.Request) {
	var input service.InviteInput
	if !decodeJSON(w, r, &input) {
		return
	}
	invitation, err := h.invitations.Invite(r.Context(), currentUser(r), input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, invitation)
}

func (h *TeamHandler) Invitations(w http.ResponseWriter, r *http.Request) {
	teamID, err := queryUUID(r, "teamId")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	invitations, err := h.invitations.List(r.Context(), currentUser(r), teamID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, InvitationsResponse{BaseResponse: okResponse, Invitations: invitations})
}

func (h *TeamHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	teamID, err := queryUUID(r, "teamId")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	skip, limit, err := queryPage(r)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	logs, total, err := h.audit.Query(r.Context(), currentUser(r), service.AuditQueryInput{TeamID: teamID, Skip: skip, Limit: limit})
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, AuditLogsResponse{BaseResponse: okResponse, Logs: logs, TotalCount: total})
}
