package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mindvault/internal/contextutil"
	"mindvault/internal/graph"
	"mindvault/internal/memory"
)

// EmbeddingSource supplies the records the graph is built from.
type EmbeddingSource interface {
	AllWithEmbeddings(ctx context.Context, userID string) ([]memory.DocumentRecord, error)
}

// GraphHandler serves the knowledge graph views. The graph is rebuilt from
// the stored records on each request.
type GraphHandler struct {
	memories EmbeddingSource
}

func NewGraphHandler(memories EmbeddingSource) *GraphHandler {
	return &GraphHandler{memories: memories}
}

func (h *GraphHandler) build(w http.ResponseWriter, r *http.Request) (graph.Graph, bool) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	records, err := h.memories.AllWithEmbeddings(ctx, userID(r))
	if err != nil {
		logger.ErrorContext(ctx, "failed to load records for graph", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to build graph")
		return graph.Graph{}, false
	}
	return graph.Build(records), true
}

// Graph returns the full node/edge graph for the user.
func (h *GraphHandler) Graph(w http.ResponseWriter, r *http.Request) {
	g, ok := h.build(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// Stats returns aggregate counts over the graph.
func (h *GraphHandler) Stats(w http.ResponseWriter, r *http.Request) {
	g, ok := h.build(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, graph.ComputeStats(g))
}

// RelatedResponse lists the similarity edges touching one document.
type RelatedResponse struct {
	DocID string       `json:"doc_id"`
	Edges []graph.Edge `json:"edges"`
}

// Related returns the similar-document edges for one document.
func (h *GraphHandler) Related(w http.ResponseWriter, r *http.Request) {
	g, ok := h.build(w, r)
	if !ok {
		return
	}
	docID := chi.URLParam(r, "id")
	edges := graph.Related(g, docID)
	if edges == nil {
		edges = []graph.Edge{}
	}
	writeJSON(w, http.StatusOK, RelatedResponse{DocID: docID, Edges: edges})
}

// CategoryResponse lists the file nodes under one category.
type CategoryResponse struct {
	Category string       `json:"category"`
	Nodes    []graph.Node `json:"nodes"`
}

// Category returns the file nodes attached to the named category.
func (h *GraphHandler) Category(w http.ResponseWriter, r *http.Request) {
	g, ok := h.build(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	nodes := graph.ByCategory(g, name)
	if nodes == nil {
		nodes = []graph.Node{}
	}
	writeJSON(w, http.StatusOK, CategoryResponse{Category: name, Nodes: nodes})
}
