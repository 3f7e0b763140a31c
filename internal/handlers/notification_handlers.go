package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"todoReminder/internal/handlers/dto"
	"todoReminder/internal/logger"
)

type NotificationHandler struct {
	notifications NotificationService
}

func NewNotificationHandler(notifications NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	list, err := h.notifications.ListForUser(r.Context(), identity.UserID)
	if err != nil {
		handleServiceError(w, r, err, "list_notifications")
		return
	}

	responseWithBody(w, http.StatusOK, dto.FromNotificationList(list))
}

func (h *NotificationHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	var request dto.BroadcastRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	created, err := h.notifications.Broadcast(r.Context(), identity, request.Title, request.Message)
	if err != nil {
		handleServiceError(w, r, err, "broadcast")
		return
	}

	logger.Info("HTTP: broadcast sent",
		zap.Int64("admin_id", identity.UserID),
		zap.Int("recipients", created))

	responseWithBody(w, http.StatusCreated, dto.BroadcastResponse{Created: created})
}
