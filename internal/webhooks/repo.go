package webhooks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when no webhook matches the lookup.
var ErrNotFound = errors.New("webhook not found")

// Webhook is a user-registered notification endpoint.
type Webhook struct {
	ID        string `json:"id"`
	UserID    string `json:"-"`
	URL       string `json:"url"`
	Label     string `json:"label"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

// Repo persists webhook registrations.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Migrate creates the webhooks table. Idempotent.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS webhooks (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		url TEXT NOT NULL,
		label TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);`)
	if err != nil {
		return fmt.Errorf("failed to create webhooks table: %w", err)
	}
	return nil
}

// Save registers a webhook for the user, replacing any previously registered
// ones so each user holds at most one endpoint.
func (r *Repo) Save(ctx context.Context, userID, url, label string) (Webhook, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Webhook{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM webhooks WHERE user_id = ?`, userID); err != nil {
		return Webhook{}, fmt.Errorf("failed to clear previous webhooks: %w", err)
	}

	hook := Webhook{
		ID:       uuid.NewString(),
		UserID:   userID,
		URL:      url,
		Label:    label,
		IsActive: true,
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO webhooks (id, user_id, url, label, is_active) VALUES (?, ?, ?, ?, 1)`,
		hook.ID, hook.UserID, hook.URL, hook.Label,
	); err != nil {
		return Webhook{}, fmt.Errorf("failed to insert webhook: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Webhook{}, fmt.Errorf("failed to commit webhook: %w", err)
	}
	return hook, nil
}

// Get returns the webhook by id within the user's partition.
func (r *Repo) Get(ctx context.Context, id, userID string) (Webhook, error) {
	var hook Webhook
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, url, label, is_active, created_at FROM webhooks WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(&hook.ID, &hook.UserID, &hook.URL, &hook.Label, &hook.IsActive, &hook.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Webhook{}, ErrNotFound
	}
	if err != nil {
		return Webhook{}, fmt.Errorf("failed to query webhook: %w", err)
	}
	return hook, nil
}

// Active returns the user's active webhook, or ErrNotFound.
func (r *Repo) Active(ctx context.Context, userID string) (Webhook, error) {
	var hook Webhook
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, url, label, is_active, created_at FROM webhooks WHERE user_id = ? AND is_active = 1 LIMIT 1`,
		userID,
	).Scan(&hook.ID, &hook.UserID, &hook.URL, &hook.Label, &hook.IsActive, &hook.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Webhook{}, ErrNotFound
	}
	if err != nil {
		return Webhook{}, fmt.Errorf("failed to query active webhook: %w", err)
	}
	return hook, nil
}

// List returns all of the user's webhooks.
func (r *Repo) List(ctx context.Context, userID string) ([]Webhook, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, url, label, is_active, created_at FROM webhooks WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var hooks []Webhook
	for rows.Next() {
		var hook Webhook
		if err := rows.Scan(&hook.ID, &hook.UserID, &hook.URL, &hook.Label, &hook.IsActive, &hook.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		hooks = append(hooks, hook)
	}
	return hooks, rows.Err()
}

// Delete removes the webhook by id within the user's partition. Returns
// whether a deletion occurred.
func (r *Repo) Delete(ctx context.Context, id, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete webhook: %w", err)
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}
