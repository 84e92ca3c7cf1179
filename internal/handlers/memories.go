package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"mindvault/internal/contextutil"
	"mindvault/internal/memory"
)

const defaultListLimit = 50

// MemoryStore is the document storage surface the handlers need.
type MemoryStore interface {
	Get(ctx context.Context, docID, userID string) (*memory.DocumentRecord, error)
	Delete(ctx context.Context, docID, userID string) (bool, error)
	List(ctx context.Context, category, modality string, limit int, userID string) ([]memory.DocumentRecord, error)
	SearchText(ctx context.Context, query, category string, limit int, userID string) ([]memory.DocumentRecord, error)
}

// EventCascader removes the events tied to a deleted document.
type EventCascader interface {
	DeleteBySource(ctx context.Context, sourcePath, userID string) (int, error)
}

// MemoriesHandler handles stored document listing, search, and deletion.
type MemoriesHandler struct {
	memories MemoryStore
	events   EventCascader
}

func NewMemoriesHandler(memories MemoryStore, events EventCascader) *MemoriesHandler {
	return &MemoriesHandler{memories: memories, events: events}
}

// MemoriesResponse wraps a listing of stored documents.
type MemoriesResponse struct {
	Memories []memory.DocumentRecord `json:"memories"`
	Count    int                     `json:"count"`
}

// List returns the user's stored documents, newest first, optionally
// filtered by ?category= and ?modality=, capped by ?limit=.
func (h *MemoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	records, err := h.memories.List(ctx,
		r.URL.Query().Get("category"),
		r.URL.Query().Get("modality"),
		limitParam(r),
		userID(r),
	)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list memories", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list memories")
		return
	}
	if records == nil {
		records = []memory.DocumentRecord{}
	}
	writeJSON(w, http.StatusOK, MemoriesResponse{Memories: records, Count: len(records)})
}

// Search filters the user's documents by a case-insensitive substring over
// file names and descriptions. ?q= is required.
func (h *MemoriesHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	records, err := h.memories.SearchText(ctx, query, r.URL.Query().Get("category"), limitParam(r), userID(r))
	if err != nil {
		logger.ErrorContext(ctx, "failed to search memories", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to search memories")
		return
	}
	if records == nil {
		records = []memory.DocumentRecord{}
	}
	writeJSON(w, http.StatusOK, MemoriesResponse{Memories: records, Count: len(records)})
}

// DeleteResponse reports a document deletion and its event cascade.
type DeleteResponse struct {
	Deleted       bool `json:"deleted"`
	EventsRemoved int  `json:"events_removed"`
}

// Delete removes a stored document and cascades to the events it produced.
func (h *MemoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	docID := chi.URLParam(r, "id")
	uid := userID(r)

	rec, err := h.memories.Get(ctx, docID, uid)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load memory", "doc_id", docID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete memory")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Memory not found")
		return
	}

	deleted, err := h.memories.Delete(ctx, docID, uid)
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete memory", "doc_id", docID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete memory")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Memory not found")
		return
	}

	removed, err := h.events.DeleteBySource(ctx, rec.FilePath, uid)
	if err != nil {
		logger.WarnContext(ctx, "failed to cascade event deletion", "doc_id", docID, "error", err)
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: true, EventsRemoved: removed})
}

func limitParam(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			return limit
		}
	}
	return defaultListLimit
}
