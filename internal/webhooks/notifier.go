package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mindvault/internal/contextutil"
	"mindvault/internal/events"
)

const deliveryTimeout = 10 * time.Second

// Message is the payload delivered to a webhook endpoint.
type Message struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date,omitempty"`
}

// Notifier delivers messages to the active webhook of a user. Delivery
// failures are logged and swallowed so they never fail the caller.
type Notifier struct {
	repo       *Repo
	httpClient *http.Client
}

func NewNotifier(repo *Repo) *Notifier {
	return &Notifier{
		repo: repo,
		httpClient: &http.Client{
			Timeout: deliveryTimeout,
		},
	}
}

// RemindUpcoming notifies the user's webhook about a near-term event.
func (n *Notifier) RemindUpcoming(ctx context.Context, userID string, event events.Event) {
	logger := contextutil.LoggerFromContext(ctx)
	msg := Message{
		Title:       fmt.Sprintf("Upcoming: %s", event.Title),
		Description: event.Description,
		Date:        event.Date,
	}
	if err := n.Notify(ctx, userID, msg); err != nil {
		logger.WarnContext(ctx, "webhook reminder delivery failed", "error", err, "title", event.Title)
	}
}

// Notify sends the message to the user's active webhook. Returns ErrNotFound
// when the user has none registered.
func (n *Notifier) Notify(ctx context.Context, userID string, msg Message) error {
	hook, err := n.repo.Active(ctx, userID)
	if err != nil {
		return err
	}
	return n.deliver(ctx, hook.URL, msg)
}

// Test delivers a fixed test message to the given webhook, reporting whether
// delivery succeeded.
func (n *Notifier) Test(ctx context.Context, id, userID string) error {
	hook, err := n.repo.Get(ctx, id, userID)
	if err != nil {
		return err
	}
	return n.deliver(ctx, hook.URL, Message{
		Title:       "Test notification",
		Description: "Your webhook is configured correctly.",
	})
}

func (n *Notifier) deliver(ctx context.Context, url string, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver webhook: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

var _ events.Reminder = (*Notifier)(nil)
