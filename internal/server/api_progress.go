package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vrbridge/internal/jellyfin"
)

type playstateRequest struct {
	Position      *float64 `json:"position"`
	IsPaused      bool     `json:"isPaused"`
	PlayMethod    string   `json:"playMethod"`
	PlaySessionID string   `json:"playSessionId"`
	MediaSourceID string   `json:"mediaSourceId"`
}

type playstateResponse struct {
	Success  bool    `json:"success"`
	Position float64 `json:"position"`
	IsPaused bool    `json:"isPaused"`
	Error    string  `json:"error,omitempty"`
}

func (s *Server) handlePlaybackStart(w http.ResponseWriter, r *http.Request) {
	s.handlePlaystate(w, r, s.upstream.ReportStart)
}

func (s *Server) handlePlaybackProgress(w http.ResponseWriter, r *http.Request) {
	s.handlePlaystate(w, r, s.upstream.ReportProgress)
}

func (s *Server) handlePlaybackStop(w http.ResponseWriter, r *http.Request) {
	s.handlePlaystate(w, r, s.upstream.ReportStop)
}

// handlePlaystate forwards one lifecycle event. Malformed positions are the
// caller's fault and get a 400; upstream failures are swallowed into a
// success:false body so telemetry can never block playback.
func (s *Server) handlePlaystate(w http.ResponseWriter, r *http.Request, report func(context.Context, jellyfin.PlaystateReport) error) {
	var req playstateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	position := 0.0
	if req.Position != nil {
		position = *req.Position
	}

	rep := jellyfin.PlaystateReport{
		ItemID:          chi.URLParam(r, "itemId"),
		PositionSeconds: position,
		IsPaused:        req.IsPaused,
		PlayMethod:      req.PlayMethod,
		PlaySessionID:   req.PlaySessionID,
		MediaSourceID:   req.MediaSourceID,
	}

	if err := report(r.Context(), rep); err != nil {
		if errors.Is(err, jellyfin.ErrInvalidArgument) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[server] playstate report for %s: %v", rep.ItemID, err)
		writeJSON(w, http.StatusOK, playstateResponse{
			Success:  false,
			Position: position,
			IsPaused: req.IsPaused,
			Error:    "upstream report failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, playstateResponse{
		Success:  true,
		Position: position,
		IsPaused: req.IsPaused,
	})
}
