package events

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"mindvault/internal/llm"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

type recordingReminder struct {
	events []Event
}

func (r *recordingReminder) RemindUpcoming(_ context.Context, _ string, event Event) {
	r.events = append(r.events, event)
}

func TestStoreDeduplicatesEvents(t *testing.T) {
	store := NewStore(newTestDB(t), nil)
	ctx := context.Background()

	candidates := []llm.ExtractedEvent{
		{Title: "Dentist", Date: "2030-06-01", Description: "Checkup"},
		{Title: "Dentist", Date: "2030-06-01", Description: "Checkup"},
	}
	inserted, err := store.Store(ctx, candidates, "cal.ics", "/files/cal.ics", "alice")
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("inserted = %d, want 1", inserted)
	}

	// Re-ingesting the same file inserts nothing.
	inserted, err = store.Store(ctx, candidates[:1], "cal.ics", "/files/cal.ics", "alice")
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if inserted != 0 {
		t.Fatalf("inserted = %d, want 0", inserted)
	}

	// A different user's partition is independent.
	inserted, err = store.Store(ctx, candidates[:1], "cal.ics", "/files/cal.ics", "bob")
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("inserted = %d, want 1 for other user", inserted)
	}
}

func TestStoreDefaultsUntitledEvents(t *testing.T) {
	store := NewStore(newTestDB(t), nil)
	ctx := context.Background()

	_, err := store.Store(ctx, []llm.ExtractedEvent{{Date: "2030-01-01"}}, "f", "/f", "alice")
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	events, err := store.Upcoming(ctx, "alice")
	if err != nil {
		t.Fatalf("Upcoming failed: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Untitled Event" {
		t.Fatalf("events = %+v, want one Untitled Event", events)
	}
}

func TestUpcomingOrdersUndatedLast(t *testing.T) {
	store := NewStore(newTestDB(t), nil)
	ctx := context.Background()

	candidates := []llm.ExtractedEvent{
		{Title: "Sometime", Date: ""},
		{Title: "Later", Date: "2031-03-01"},
		{Title: "Sooner", Date: "2030-06-01"},
		{Title: "Gone", Date: "2001-01-01"},
	}
	if _, err := store.Store(ctx, candidates, "f", "/f", "alice"); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	events, err := store.Upcoming(ctx, "alice")
	if err != nil {
		t.Fatalf("Upcoming failed: %v", err)
	}
	var titles []string
	for _, e := range events {
		titles = append(titles, e.Title)
	}
	want := []string{"Sooner", "Later", "Sometime"}
	if len(titles) != len(want) {
		t.Fatalf("titles = %v, want %v", titles, want)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("titles = %v, want %v", titles, want)
		}
	}
}

func TestDeletePastKeepsUnparseableDates(t *testing.T) {
	store := NewStore(newTestDB(t), nil)
	ctx := context.Background()

	candidates := []llm.ExtractedEvent{
		{Title: "Old", Date: "2001-01-01"},
		{Title: "Vague", Date: "next spring"},
		{Title: "Undated", Date: ""},
		{Title: "Future", Date: "2099-01-01"},
	}
	if _, err := store.Store(ctx, candidates, "f", "/f", "alice"); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	deleted, err := store.DeletePast(ctx, "alice")
	if err != nil {
		t.Fatalf("DeletePast failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}

	var remaining int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&remaining); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if remaining != 3 {
		t.Fatalf("remaining = %d, want 3", remaining)
	}
}

func TestDeleteBySourceCascades(t *testing.T) {
	store := NewStore(newTestDB(t), nil)
	ctx := context.Background()

	a := []llm.ExtractedEvent{{Title: "A1", Date: "2030-01-01"}, {Title: "A2", Date: "2030-01-02"}}
	b := []llm.ExtractedEvent{{Title: "B1", Date: "2030-01-03"}}
	if _, err := store.Store(ctx, a, "a.ics", "/files/a.ics", "alice"); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if _, err := store.Store(ctx, b, "b.ics", "/files/b.ics", "alice"); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	deleted, err := store.DeleteBySource(ctx, "/files/a.ics", "alice")
	if err != nil {
		t.Fatalf("DeleteBySource failed: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted = %d, want 2", deleted)
	}
	events, err := store.Upcoming(ctx, "alice")
	if err != nil {
		t.Fatalf("Upcoming failed: %v", err)
	}
	if len(events) != 1 || events[0].Title != "B1" {
		t.Fatalf("events = %+v, want only B1", events)
	}
}

func TestDeleteByIDScopedToUser(t *testing.T) {
	store := NewStore(newTestDB(t), nil)
	ctx := context.Background()

	if _, err := store.Store(ctx, []llm.ExtractedEvent{{Title: "Mine", Date: "2030-01-01"}}, "f", "/f", "alice"); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	events, _ := store.Upcoming(ctx, "alice")
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}

	ok, err := store.DeleteByID(ctx, events[0].ID, "bob")
	if err != nil {
		t.Fatalf("DeleteByID failed: %v", err)
	}
	if ok {
		t.Fatal("expected deletion to be refused for other user")
	}

	ok, err = store.DeleteByID(ctx, events[0].ID, "alice")
	if err != nil {
		t.Fatalf("DeleteByID failed: %v", err)
	}
	if !ok {
		t.Fatal("expected deletion to succeed for owner")
	}
}

func TestReminderFiresForNearTermEvents(t *testing.T) {
	reminder := &recordingReminder{}
	store := NewStore(newTestDB(t), reminder)
	now := time.Date(2030, 6, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	candidates := []llm.ExtractedEvent{
		{Title: "Today", Date: "2030-06-01"},
		{Title: "NextWeek", Date: "2030-06-08"},
		{Title: "Vague", Date: "soon"},
	}
	if _, err := store.Store(ctx, candidates, "f", "/f", "alice"); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if len(reminder.events) != 1 || reminder.events[0].Title != "Today" {
		t.Fatalf("reminded = %+v, want only Today", reminder.events)
	}

	// Duplicates never re-trigger reminders.
	if _, err := store.Store(ctx, candidates[:1], "f", "/f", "alice"); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if len(reminder.events) != 1 {
		t.Fatalf("reminded %d times, want 1", len(reminder.events))
	}
}

func TestParseDateLayouts(t *testing.T) {
	tests := []struct {
		raw string
		ok  bool
	}{
		{"2030-06-01", true},
		{"2030-06-01T14:30:00", true},
		{"2030-06-01T14:30:00Z", true},
		{"next tuesday", false},
		{"", false},
	}
	for _, tt := range tests {
		if _, ok := parseDate(tt.raw); ok != tt.ok {
			t.Errorf("parseDate(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
		}
	}
}
