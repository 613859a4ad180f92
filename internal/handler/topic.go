package handler

import (
	"net/http"

	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/dangerclosesec/huddle/internal/realtime"
	"github.com/dangerclosesec/huddle/internal/service"
)

type TopicHandler struct {
	topics *service.TopicService
	events *Events
}

func NewTopicHandler(topics *service.TopicService, events *Events) *TopicHandler {
	return &TopicHandler{topics: topics, events: events}
}

type TopicsResponse struct {
	BaseResponse
	Topics []model.Topic `json:"topics"`
}

func (h *TopicHandler) Add(w http.ResponseWriter, r *http.Request) {
	var input service.AddTopicInput
	if !decodeJSON(w, r, &input) {
		return
	}
	topic, err := h.topics.Add(r.Context(), currentUser(r), input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.events.Topic(r.Context(), realtime.ActionAdded, topic)
	respondWithJSON(w, http.StatusCreated, topic)
}

func (h *TopicHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var input service.EditTopicInput
	if !decodeJSON(w, r, &input) {
		return
	}
	topic, err := h.topics.Edit(r.Context(), currentUser(r), input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.events.Topic(r.Context(), realtime.ActionEdited, topic)
	respondWithJSON(w, http.StatusOK, topic)
}

func (h *TopicHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var input service.DeleteTopicInput
	if !decodeJSON(w, r, &input) {
		return
	}
	topic, err := h.topics.Delete(r.Context(), currentUser(r), input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.events.Topic(r.Context(), realtime.ActionDeleted, topic)
	respondWithJSON(w, http.StatusOK, okResponse)
}

func (h *TopicHandler) List(w http.ResponseWriter, r *http.Request) {
	teamID, err := queryUUID(r, "teamId")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	topics, err := h.topics.List(r.Context(), currentUser(r), teamID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, TopicsResponse{BaseResponse: okResponse, Topics: topics})
}
