package handlers

import (
	"encoding/json"
	"net/http"

	"mindvault/internal/contextutil"
	"mindvault/internal/ingest"
	"mindvault/internal/modality"
)

// IngestHandler handles file scanning and ingestion requests.
type IngestHandler struct {
	pipeline *ingest.Pipeline
}

func NewIngestHandler(pipeline *ingest.Pipeline) *IngestHandler {
	return &IngestHandler{pipeline: pipeline}
}

// ScanRequest lists candidate file paths for admission filtering. A
// non-empty Extensions list overrides the default allow set.
type ScanRequest struct {
	Paths      []string `json:"paths"`
	Extensions []string `json:"extensions,omitempty"`
}

// ScanResponse reports which of the candidates are ingestible.
type ScanResponse struct {
	Files []modality.ScannedFile `json:"files"`
	Count int                    `json:"count"`
}

// Scan filters candidate paths down to the extensions the pipeline accepts.
func (h *IngestHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	files := modality.FilterScannable(req.Paths, req.Extensions)
	writeJSON(w, http.StatusOK, ScanResponse{Files: files, Count: len(files)})
}

// Ingest processes a single file.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req ingest.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid ingest request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.FilePath == "" {
		writeError(w, http.StatusBadRequest, "file_path is required")
		return
	}
	req.UserID = userID(r)

	result := h.pipeline.Ingest(ctx, req)
	if !result.Success {
		writeJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// BatchRequest carries multiple files for concurrent ingestion.
type BatchRequest struct {
	Files []ingest.Request `json:"files"`
}

// IngestBatch processes multiple files concurrently and reports per-file
// outcomes.
func (h *IngestHandler) IngestBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid batch request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Files) == 0 {
		writeError(w, http.StatusBadRequest, "files is required")
		return
	}

	uid := userID(r)
	for i := range req.Files {
		req.Files[i].UserID = uid
	}

	writeJSON(w, http.StatusOK, h.pipeline.IngestBatch(ctx, req.Files))
}
