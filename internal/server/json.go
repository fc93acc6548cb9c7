package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"vrbridge/internal/jellyfin"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeUpstreamError maps client errors onto the bridge's status contract:
// 404 for missing items, 400 for bad caller input, 502 when the upstream
// cannot be reached at all, 500 for everything else.
func (s *Server) writeUpstreamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jellyfin.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, jellyfin.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, jellyfin.ErrUpstreamUnavailable),
		errors.Is(err, jellyfin.ErrAuthentication):
		writeError(w, http.StatusBadGateway, "media server unavailable")
	case errors.Is(err, jellyfin.ErrNoMediaSource):
		writeError(w, http.StatusInternalServerError, "no playable media source")
	default:
		log.Printf("[server] upstream error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
