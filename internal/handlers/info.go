package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"tubegate/internal/credentials"
	"tubegate/internal/downloader"
	"tubegate/internal/logging"
)

// maxJSONBody bounds request bodies of the JSON endpoints.
const maxJSONBody = 64 << 10

// InfoRequest is the body of POST /info.
type InfoRequest struct {
	URL string `json:"url"`
}

// ErrorResponse is the JSON error body. Debug is only set for upstream
// failures and never carries cookie values.
type ErrorResponse struct {
	Error string                   `json:"error"`
	Debug *credentials.Diagnostics `json:"debug,omitempty"`
}

// GetInfo resolves a video URL into its format catalog.
func (h *Handlers) GetInfo(w http.ResponseWriter, r *http.Request) {
	var req InfoRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, downloader.MsgInvalidURL)
		return
	}

	info, err := h.service.ResolveInfo(r.Context(), req.URL)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	respond(w, r, http.StatusOK, info)
}

// writeServiceError maps a downloader failure onto a JSON error response.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{Error: downloader.MsgInternal}
	status := http.StatusInternalServerError

	var svcErr *downloader.Error
	if errors.As(err, &svcErr) {
		resp.Error = svcErr.Message
		resp.Debug = svcErr.Debug
		status = statusForKind(svcErr.Kind)
	}

	if status >= http.StatusInternalServerError {
		logging.ErrorContext(r.Context(), "Request %s failed: %v", r.URL.Path, err)
	}
	respond(w, r, status, resp)
}

func statusForKind(kind downloader.Kind) int {
	switch kind {
	case downloader.KindBadRequest:
		return http.StatusBadRequest
	case downloader.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(v)
}
