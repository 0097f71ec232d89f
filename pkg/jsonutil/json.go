package jsonutil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the envelope of every error returned by the relay.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// WriteErrorJSON writes a 400 JSON error response with a standard error format.
func WriteErrorJSON(w http.ResponseWriter, errMsg string) {
	WriteErrorJSONStatus(w, http.StatusBadRequest, errMsg, nil)
}

// WriteErrorJSONStatus writes a JSON error response with an explicit status and
// optional details.
func WriteErrorJSONStatus(w http.ResponseWriter, status int, errMsg string, details any) {
	WriteJSON(w, status, ErrorResponse{Error: errMsg, Details: details})
}
