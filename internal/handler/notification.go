package handler

import (
	"net/http"

	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/dangerclosesec/huddle/internal/service"
)

type NotificationHandler struct {
	notifications *service.NotificationService
}

func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

type NotificationsResponse struct {
	BaseResponse
	Notifications []model.Notification `json:"notifications"`
}

type DeleteNotificationsResponse struct {
	BaseResponse
	Deleted int64 `json:"deleted"`
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := queryPage(r)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	notifications, err := h.notifications.List(r.Context(), currentUser(r), service.ListNotificationsInput{Skip: skip, Limit: limit})
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, NotificationsResponse{BaseResponse: okResponse, Notifications: notifications})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var input service.DeleteNotificationsInput
	if !decodeJSON(w, r, &input) {
		return
	}
	deleted, err := h.notifications.Delete(r.Context(), currentUser(r), input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, DeleteNotificationsResponse{BaseResponse: okResponse, Deleted: deleted})
}
