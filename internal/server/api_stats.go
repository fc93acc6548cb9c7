package server

import (
	"net/http"

	"vrbridge/internal/geoip"
	"vrbridge/internal/sessions"
	"vrbridge/internal/units"
)

type sessionView struct {
	sessions.Record
	Location *geoip.Location `json:"location,omitempty"`
}

type adminSessionsResponse struct {
	Sessions        []sessionView `json:"sessions"`
	ActiveCount     int           `json:"activeCount"`
	TotalStreams    int64         `json:"totalStreams"`
	TotalBytes      int64         `json:"totalBytes"`
	TotalBytesHuman string        `json:"totalBytesHuman"`
}

// handleAdminSessions reports the live session table with aggregate
// counters, enriched with client geography when a GeoIP database is loaded.
func (s *Server) handleAdminSessions(w http.ResponseWriter, r *http.Request) {
	active := s.registry.ListActive()

	views := make([]sessionView, 0, len(active))
	for _, rec := range active {
		v := sessionView{Record: rec}
		if s.geoResolver != nil {
			v.Location = s.geoResolver.LookupAddr(rec.RemoteAddr)
		}
		views = append(views, v)
	}

	totalBytes := s.registry.TotalBytes()
	writeJSON(w, http.StatusOK, adminSessionsResponse{
		Sessions:        views,
		ActiveCount:     len(views),
		TotalStreams:    s.registry.TotalStreams(),
		TotalBytes:      totalBytes,
		TotalBytesHuman: units.FormatBytes(totalBytes),
	})
}
