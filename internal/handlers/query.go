package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"mindvault/internal/contextutil"
	"mindvault/internal/retrieval"
)

// Retriever answers questions over the stored documents.
type Retriever interface {
	Query(ctx context.Context, req retrieval.QueryRequest) (retrieval.QueryResponse, error)
}

// QueryHandler handles question answering requests.
type QueryHandler struct {
	engine Retriever
}

func NewQueryHandler(engine Retriever) *QueryHandler {
	return &QueryHandler{engine: engine}
}

// Query answers a question from the user's ingested files.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req retrieval.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid query request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	req.UserID = userID(r)

	resp, err := h.engine.Query(ctx, req)
	if err != nil {
		logger.ErrorContext(ctx, "query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to answer question")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
