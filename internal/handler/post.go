package handler

import (
	"net/http"

	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/dangerclosesec/huddle/internal/realtime"
	"github.com/dangerclosesec/huddle/internal/service"
)

type PostHandler struct {
	posts  *service.PostService
	events *Events
}

func NewPostHandler(posts *service.PostService, events *Events) *PostHandler {
	return &PostHandler{posts: posts, events: events}
}

type PostsResponse struct {
	BaseResponse
	Posts []model.Post `json:"posts"`
}

func (h *PostHandler) Add(w http.ResponseWriter, r *http.Request) {
	var input service.AddPostInput
	if !decodeJSON(w, r, &input) {
		return
	}
	post, notifications, err := h.posts.Add(r.Context(), currentUser(r), input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.events.Post(r.Context(), realtime.ActionAdded, post)
	h.events.Notifications(r.Context(), notifications)
	respondWithJSON(w, http.StatusCreated, post)
}

func (h *PostHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var input service.EditPostInput
	if !decodeJSON(w, r, &input) {
		return
	}
	post, err := h.posts.Edit(r.Context(), currentUser(r), input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.events.Post(r.Context(), realtime.ActionEdited, post)
	respondWithJSON(w, http.StatusOK, post)
}

func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var input service.PostIDInput
	if !decodeJSON(w, r, &input) {
		return
	}
	post, err := h.posts.Delete(r.Context(), currentUser(r), input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.events.Post(r.Context(), realtime.ActionDeleted, post)
	respondWithJSON(w, http.StatusOK, okResponse)
}

func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	discussionID, err := queryUUID(r, "discussionId")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	skip, limit, err := queryPage(r)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	posts, err := h.posts.List(r.Context(), currentUser(r), service.ListPostsInput{DiscussionID: discussionID, Skip: skip, Limit: limit})
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, PostsResponse{BaseResponse: okResponse, Posts: posts})
}
