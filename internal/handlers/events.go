package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"mindvault/internal/contextutil"
	"mindvault/internal/events"
)

// EventStore is the event surface the handlers need.
type EventStore interface {
	Upcoming(ctx context.Context, userID string) ([]events.Event, error)
	DeleteByID(ctx context.Context, id int64, userID string) (bool, error)
	DeletePast(ctx context.Context, userID string) (int, error)
}

// EventsHandler serves upcoming-event notifications and event maintenance.
type EventsHandler struct {
	events EventStore
}

func NewEventsHandler(store EventStore) *EventsHandler {
	return &EventsHandler{events: store}
}

// NotificationsResponse lists the user's upcoming events.
type NotificationsResponse struct {
	Events []events.Event `json:"events"`
	Count  int            `json:"count"`
}

// Notifications returns the user's upcoming and undated events.
func (h *EventsHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	upcoming, err := h.events.Upcoming(ctx, userID(r))
	if err != nil {
		logger.ErrorContext(ctx, "failed to list upcoming events", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	if upcoming == nil {
		upcoming = []events.Event{}
	}
	writeJSON(w, http.StatusOK, NotificationsResponse{Events: upcoming, Count: len(upcoming)})
}

// Delete removes a single event.
func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event id")
		return
	}

	deleted, err := h.events.DeleteByID(ctx, id, userID(r))
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete event", "event_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete event")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// CleanupResponse reports how many stale events were removed.
type CleanupResponse struct {
	Removed int `json:"removed"`
}

// Cleanup removes events whose date has already passed.
func (h *EventsHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	removed, err := h.events.DeletePast(ctx, userID(r))
	if err != nil {
		logger.ErrorContext(ctx, "failed to clean up events", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to clean up events")
		return
	}
	writeJSON(w, http.StatusOK, CleanupResponse{Removed: removed})
}
