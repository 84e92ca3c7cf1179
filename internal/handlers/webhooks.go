package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mindvault/internal/contextutil"
	"mindvault/internal/webhooks"
)

// WebhooksHandler handles webhook registration and test delivery.
type WebhooksHandler struct {
	repo     *webhooks.Repo
	notifier *webhooks.Notifier
}

func NewWebhooksHandler(repo *webhooks.Repo, notifier *webhooks.Notifier) *WebhooksHandler {
	return &WebhooksHandler{repo: repo, notifier: notifier}
}

// CreateWebhookRequest registers a notification endpoint for the user.
type CreateWebhookRequest struct {
	URL   string `json:"url"`
	Label string `json:"label,omitempty"`
}

// Create registers the webhook, replacing any previous one.
func (h *WebhooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req CreateWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	hook, err := h.repo.Save(ctx, userID(r), req.URL, req.Label)
	if err != nil {
		logger.ErrorContext(ctx, "failed to save webhook", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save webhook")
		return
	}
	writeJSON(w, http.StatusCreated, hook)
}

// WebhooksResponse lists the user's registered webhooks.
type WebhooksResponse struct {
	Webhooks []webhooks.Webhook `json:"webhooks"`
	Count    int                `json:"count"`
}

// List returns the user's registered webhooks.
func (h *WebhooksHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	hooks, err := h.repo.List(ctx, userID(r))
	if err != nil {
		logger.ErrorContext(ctx, "failed to list webhooks", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list webhooks")
		return
	}
	if hooks == nil {
		hooks = []webhooks.Webhook{}
	}
	writeJSON(w, http.StatusOK, WebhooksResponse{Webhooks: hooks, Count: len(hooks)})
}

// Delete removes a registered webhook.
func (h *WebhooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	deleted, err := h.repo.Delete(ctx, chi.URLParam(r, "id"), userID(r))
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete webhook", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete webhook")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Webhook not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// Test sends a canned message to the webhook and reports whether delivery
// succeeded.
func (h *WebhooksHandler) Test(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	err := h.notifier.Test(ctx, chi.URLParam(r, "id"), userID(r))
	if errors.Is(err, webhooks.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Webhook not found")
		return
	}
	if err != nil {
		logger.WarnContext(ctx, "webhook test delivery failed", "error", err)
		writeJSON(w, http.StatusOK, map[string]any{"delivered": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"delivered": true})
}
