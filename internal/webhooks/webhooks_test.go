package webhooks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"mindvault/internal/events"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "webhooks.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewRepo(db)
}

func TestSaveReplacesPreviousWebhook(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.Save(ctx, "alice", "https://hooks.example.com/a", "phone")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	second, err := repo.Save(ctx, "alice", "https://hooks.example.com/b", "desktop")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	hooks, err := repo.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(hooks) != 1 {
		t.Fatalf("got %d webhooks, want 1", len(hooks))
	}
	if hooks[0].ID != second.ID || hooks[0].URL != "https://hooks.example.com/b" {
		t.Fatalf("hook = %+v, want the replacement", hooks[0])
	}

	if _, err := repo.Get(ctx, first.ID, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(replaced) error = %v, want ErrNotFound", err)
	}
}

func TestGetScopedByUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	hook, err := repo.Save(ctx, "alice", "https://hooks.example.com/a", "phone")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := repo.Get(ctx, hook.ID, "bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get as other user error = %v, want ErrNotFound", err)
	}
}

func TestDeleteWebhook(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	hook, err := repo.Save(ctx, "alice", "https://hooks.example.com/a", "phone")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	ok, err := repo.Delete(ctx, hook.ID, "alice")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !ok {
		t.Fatal("expected deletion to succeed")
	}
	ok, err = repo.Delete(ctx, hook.ID, "alice")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if ok {
		t.Fatal("expected second deletion to report missing")
	}
}

func TestNotifierDeliversToActiveWebhook(t *testing.T) {
	var received Message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode delivery: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	repo := newTestRepo(t)
	ctx := context.Background()
	if _, err := repo.Save(ctx, "alice", server.URL, "test"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	notifier := NewNotifier(repo)
	notifier.RemindUpcoming(ctx, "alice", events.Event{
		Title:       "Dentist",
		Description: "Checkup",
		Date:        "2030-06-01",
	})
	if received.Title != "Upcoming: Dentist" {
		t.Fatalf("delivered title = %q, want %q", received.Title, "Upcoming: Dentist")
	}
	if received.Date != "2030-06-01" {
		t.Fatalf("delivered date = %q, want 2030-06-01", received.Date)
	}
}

func TestNotifyWithoutWebhookReturnsNotFound(t *testing.T) {
	notifier := NewNotifier(newTestRepo(t))
	err := notifier.Notify(context.Background(), "alice", Message{Title: "hi"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Notify error = %v, want ErrNotFound", err)
	}
}

func TestTestDelivery(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	repo := newTestRepo(t)
	ctx := context.Background()
	hook, err := repo.Save(ctx, "alice", server.URL, "test")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	notifier := NewNotifier(repo)
	if err := notifier.Test(ctx, hook.ID, "alice"); err != nil {
		t.Fatalf("Test failed: %v", err)
	}
	if hits != 1 {
		t.Fatalf("hits = %d, want 1", hits)
	}
}

func TestDeliveryFailsOnErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	repo := newTestRepo(t)
	ctx := context.Background()
	hook, err := repo.Save(ctx, "alice", server.URL, "test")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	notifier := NewNotifier(repo)
	if err := notifier.Test(ctx, hook.ID, "alice"); err == nil {
		t.Fatal("expected delivery to fail against a 500 endpoint")
	}
	if err := notifier.Notify(ctx, "alice", Message{Title: "hi"}); err == nil {
		t.Fatal("expected Notify to fail against a 500 endpoint")
	}
}
