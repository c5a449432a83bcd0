package api

import (
	"net/http"

	"tontine-api/internal/platform/apperr"
)

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"

	list, err := h.notifySvc.ListForUser(r.Context(), userIDFromCtx(r), unreadOnly)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid notification id", err))
		return
	}

	if err := h.notifySvc.MarkRead(r.Context(), userIDFromCtx(r), id); err != nil {
		errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
