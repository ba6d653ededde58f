package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"tubegate/internal/logging"
	"tubegate/internal/thumbnail"
)

// GetThumbnail proxies a platform thumbnail, resized to the requested width.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width := thumbnail.ParseWidth(q.Get("w"))

	data, err := h.thumbnails.Fetch(r.Context(), q.Get("url"), width)
	if err != nil {
		if errors.Is(err, thumbnail.ErrInvalidURL) {
			http.Error(w, "Invalid thumbnail URL", http.StatusBadRequest)
			return
		}
		logging.WarnContext(r.Context(), "Thumbnail fetch failed: %v", err)
		http.Error(w, "Failed to fetch thumbnail", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := w.Write(data); err != nil {
		logging.DebugContext(r.Context(), "Failed to write thumbnail: %v", err)
	}
}
