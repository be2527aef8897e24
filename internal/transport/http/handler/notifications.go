package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bed-alerts/internal/application/notification"
	"github.com/bed-alerts/internal/domain"
)

// NotificationHandler handles notification endpoints.
type NotificationHandler struct {
	svc notification.Service
}

func NewNotificationHandler(svc notification.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.svc.List(r.Context())
	if err != nil {
		httpError(r.Context(), w, err)
		return
	}
	views := make([]domain.NotificationView, 0, len(notifications))
	for _, n := range notifications {
		views = append(views, n.View())
	}
	writeJSON(w, http.StatusOK, NotificationsEnvelope{Notifications: views})
}

func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, n.View())
}

func (h *NotificationHandler) Raise(w http.ResponseWriter, r *http.Request) {
	var req domain.RaiseNotificationRequest
	if err := decodeBody(w, r, &req); err != nil {
		httpError(r.Context(), w, err)
		return
	}
	n, err := h.svc.Raise(r.Context(), req.BedID, req.Event.Event())
	if err != nil {
		httpError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n.View())
}

func (h *NotificationHandler) ConfirmForUser(w http.ResponseWriter, r *http.Request) {
	var req domain.ConfirmForUserRequest
	if err := decodeBody(w, r, &req); err != nil {
		httpError(r.Context(), w, err)
		return
	}
	uc, err := h.svc.ConfirmForUser(r.Context(), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		httpError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserConfirmationEnvelope{UserConfirmation: uc.View()})
}

func (h *NotificationHandler) ConfirmForEvent(w http.ResponseWriter, r *http.Request) {
	var req domain.ConfirmForEventRequest
	if err := decodeBody(w, r, &req); err != nil {
		httpError(r.Context(), w, err)
		return
	}
	ac, err := h.svc.ConfirmForEvent(r.Context(), chi.URLParam(r, "id"), req.Event.Event())
	if err != nil {
		httpError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, AutoConfirmationEnvelope{AutoConfirmation: ac.View()})
}
