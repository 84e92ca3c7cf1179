package events

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mindvault/internal/contextutil"
	"mindvault/internal/llm"
)

// Event is one stored calendar event extracted from an ingested file.
type Event struct {
	ID          int64  `json:"id"`
	UserID      string `json:"-"`
	Title       string `json:"title"`
	Date        string `json:"date,omitempty"` // free-form date string; empty means undated
	Description string `json:"description"`
	SourceFile  string `json:"source_file"`
	SourcePath  string `json:"source_path"`
	CreatedAt   string `json:"created_at"`
}

// Reminder delivers a near-term notification for a newly stored event.
// Implementations must not fail the enclosing operation; delivery errors are
// their own problem.
type Reminder interface {
	RemindUpcoming(ctx context.Context, userID string, event Event)
}

// Store is the relational ledger of extracted events.
type Store struct {
	db       *sql.DB
	reminder Reminder
	now      func() time.Time
}

// NewStore creates an event store. reminder may be nil to disable near-term
// notifications.
func NewStore(db *sql.DB, reminder Reminder) *Store {
	return &Store{
		db:       db,
		reminder: reminder,
		now:      time.Now,
	}
}

// Migrate creates the events table. Idempotent.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		date TEXT,
		description TEXT NOT NULL,
		source_file TEXT NOT NULL,
		source_path TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);`)
	if err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_events_user_source ON events(user_id, source_path);`)
	if err != nil {
		return fmt.Errorf("failed to create events index: %w", err)
	}
	return nil
}

// Store inserts the candidate events, skipping any whose (title, date,
// source_path) triple already exists in the user's partition, so re-ingesting
// unchanged content is idempotent. Returns the number actually inserted.
// Newly inserted events due within the next 24 hours trigger the reminder.
func (s *Store) Store(ctx context.Context, candidates []llm.ExtractedEvent, sourceFile, sourcePath, userID string) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var inserted []Event
	for _, candidate := range candidates {
		title := candidate.Title
		if title == "" {
			title = "Untitled Event"
		}

		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM events WHERE user_id = ? AND title = ? AND IFNULL(date, '') = ? AND source_path = ?`,
			userID, title, candidate.Date, sourcePath,
		).Scan(&exists)
		if err != nil {
			return len(inserted), fmt.Errorf("failed to check for duplicate event: %w", err)
		}
		if exists > 0 {
			continue
		}

		result, err := s.db.ExecContext(ctx,
			`INSERT INTO events (user_id, title, date, description, source_file, source_path) VALUES (?, ?, ?, ?, ?, ?)`,
			userID, title, nullableDate(candidate.Date), candidate.Description, sourceFile, sourcePath,
		)
		if err != nil {
			return len(inserted), fmt.Errorf("failed to insert event: %w", err)
		}
		id, _ := result.LastInsertId()
		inserted = append(inserted, Event{
			ID:          id,
			UserID:      userID,
			Title:       title,
			Date:        candidate.Date,
			Description: candidate.Description,
			SourceFile:  sourceFile,
			SourcePath:  sourcePath,
		})
	}

	if s.reminder != nil {
		now := s.now()
		for _, event := range inserted {
			if dueWithin24h(event.Date, now) {
				logger.InfoContext(ctx, "event due soon, sending reminder", "title", event.Title, "date", event.Date)
				s.reminder.RemindUpcoming(ctx, userID, event)
			}
		}
	}

	return len(inserted), nil
}

// Upcoming returns the user's events that are undated or dated today or
// later: undated events last, otherwise ascending by date.
func (s *Store) Upcoming(ctx context.Context, userID string) ([]Event, error) {
	today := s.now().Format(dateLayout)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, IFNULL(date, ''), description, source_file, source_path, created_at
		 FROM events
		 WHERE user_id = ? AND (date IS NULL OR date >= ?)
		 ORDER BY CASE WHEN date IS NULL THEN 1 ELSE 0 END, date ASC`,
		userID, today,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming events: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.UserID, &e.Title, &e.Date, &e.Description, &e.SourceFile, &e.SourcePath, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeletePast removes events whose date parses and lies strictly before
// today. Undated and unparseable events are left untouched. Returns the
// number of rows removed.
func (s *Store) DeletePast(ctx context.Context, userID string) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, date FROM events WHERE user_id = ? AND date IS NOT NULL`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to query dated events: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	today := startOfDay(s.now())
	var pastIDs []int64
	for rows.Next() {
		var id int64
		var date string
		if err := rows.Scan(&id, &date); err != nil {
			return 0, fmt.Errorf("failed to scan event: %w", err)
		}
		if when, ok := parseDate(date); ok && when.Before(today) {
			pastIDs = append(pastIDs, id)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range pastIDs {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id); err != nil {
			return 0, fmt.Errorf("failed to delete past event: %w", err)
		}
	}
	return len(pastIDs), nil
}

// DeleteBySource removes all events produced by the given source path. This
// is the cascade path invoked when a document is deleted.
func (s *Store) DeleteBySource(ctx context.Context, sourcePath, userID string) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM events WHERE user_id = ? AND source_path = ?`, userID, sourcePath)
	if err != nil {
		return 0, fmt.Errorf("failed to delete events by source: %w", err)
	}
	affected, _ := result.RowsAffected()
	return int(affected), nil
}

// DeleteByID removes a single event in the user's partition. Returns whether
// a deletion occurred.
func (s *Store) DeleteByID(ctx context.Context, id int64, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM events WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete event: %w", err)
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

// HealthCheck reports whether the database is accessible.
func (s *Store) HealthCheck(ctx context.Context) bool {
	var one int
	return s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one) == nil
}

const dateLayout = "2006-01-02"

var dateLayouts = []string{
	dateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseDate parses the free-form date strings the analyzer produces. Returns
// false when nothing matches; callers treat that as undated.
func parseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if when, err := time.Parse(layout, raw); err == nil {
			return when, true
		}
	}
	return time.Time{}, false
}

// dueWithin24h reports whether the event date falls inside the next 24
// hours. Date-only values count from the start of their day, so an event
// dated today is still due.
func dueWithin24h(raw string, now time.Time) bool {
	when, ok := parseDate(raw)
	if !ok {
		return false
	}
	return !when.Before(startOfDay(now)) && when.Before(now.Add(24*time.Hour))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func nullableDate(date string) any {
	if date == "" {
		return nil
	}
	return date
}
