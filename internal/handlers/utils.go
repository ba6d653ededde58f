package handlers

import (
	"encoding/json"
	"net/http"

	"tubegate/internal/logging"
)

// respond writes v as a JSON body with status. HEAD requests get the status
// line and headers only.
func respond(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Status is already sent; nothing left to tell the client.
		logging.WarnContext(r.Context(), "Failed to encode JSON response: %v", err)
	}
}

// respondError writes {"error": message}.
func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respond(w, r, status, ErrorResponse{Error: message})
}
