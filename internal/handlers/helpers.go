package handlers

import (
	"encoding/json"
	"net/http"
)

// defaultUserID partitions requests that carry no X-User-ID header.
const defaultUserID = "default"

// ErrorResponse is the error payload shape for all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return defaultUserID
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}
