package server

import (
	"net/http"
	"time"

	"vrbridge/internal/version"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"uptimeSeconds": int64(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if s.versions == nil {
		writeJSON(w, http.StatusOK, version.Info{Current: "dev"})
		return
	}
	writeJSON(w, http.StatusOK, s.versions.Info())
}
