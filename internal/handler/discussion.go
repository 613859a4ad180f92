package handler

import (
	"net/http"

	"github.com/dangerclosesec/huddle/internal/realtime"
	"github.com/dangerclosesec/huddle/internal/service"
)

type DiscussionHandler struct {
	discussions *service.DiscussionService
	events      *Events
}

func NewDiscussionHandler(discussions *service.DiscussionService, events *Events) *DiscussionHandler {
	return &DiscussionHandler{discussions: discussions, events: events}
}

type DiscussionsResponse struct {
	BaseResponse
	*service.DiscussionPage
}

func (h *DiscussionHandler) Add(w http.ResponseWriter, r *http.Request) {
	var input service.AddDiscussionInput
	if !decodeJSON(w, r, &input) {
		return
	}
	discussion, err := h.discussions.Add(r.Context(), currentUser(r), input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.events.Discussion(r.Context(), realtime.ActionAdded, discussion, nil)
	respondWithJSON(w, http.StatusCreated, discussion)
}

func (h *DiscussionHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var input service.EditDiscussionInput
	if !decodeJSON(w, r, &input) {
		return
	}
	userID := currentUser(r)
	before, err := h.discussions.Get(r.Context(), userID, input.ID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	discussion, err := h.discussions.Edit(r.Context(), userID, input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.events.Discussion(r.Context(), realtime.ActionEdited, discussion, before)
	respondWithJSON(w, http.StatusOK, discussion)
}

func (h *DiscussionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var input service.DiscussionIDInput
	if !decodeJSON(w, r, &input) {
		return
	}
	discussion, err := h.discussions.Delete(r.Context(), currentUser(r), input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.events.Discussion(r.Context(), realtime.ActionDeleted, discussion, nil)
	respondWithJSON(w, http.StatusOK, okResponse)
}

func (h *DiscussionHandler) TogglePin(w http.ResponseWriter, r *http.Request) {
	var input service.DiscussionIDInput
	if !decodeJSON(w, r, &input) {
		return
	}
	discussion, err := h.discussions.TogglePin(r.Context(), currentUser(r), input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.events.Discussion(r.Context(), realtime.ActionEdited, discussion, nil)
	respondWithJSON(w, http.StatusOK, discussion)
}

func (h *DiscussionHandler) List(w http.ResponseWriter, r *http.Request) {
	topicID, err := queryUUID(r, "topicId")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	skip, limit, err := queryPage(r)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	input := service.ListDiscussionsInput{
		TopicID:               topicID,
		SearchQuery:           r.URL.Query().Get("searchQuery"),
		Skip:                  skip,
		Limit:                 limit,
		InitialDiscussionSlug: r.URL.Query().Get("initialDiscussionSlug"),
	}
	if r.URL.Query().Has("pinnedDiscussionCount") {
		count, err := queryInt(r, "pinnedDiscussionCount")
		if err != nil {
			respondWithServiceError(w, r, err)
			return
		}
		input.PinnedDiscussionCount = &count
	}

	page, err := h.discussions.List(r.Context(), currentUser(r), input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, DiscussionsResponse{BaseResponse: okResponse, DiscussionPage: page})
}
