package server

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"vrbridge/internal/httputil"
	"vrbridge/internal/playback"
	"vrbridge/internal/sessions"
)

// streamResponse is the negotiation metadata returned when no format is
// requested. The client uses it to pick between the HLS manifest and the
// progressive byte proxy.
type streamResponse struct {
	Method        string                 `json:"method"`
	HLSURL        string                 `json:"hlsUrl"`
	DirectURL     string                 `json:"directUrl"`
	Reasons       []string               `json:"reasons"`
	PlaySessionID string                 `json:"playSessionId"`
	MediaSourceID string                 `json:"mediaSourceId"`
	Quality       string                 `json:"quality"`
	BitrateLimit  int64                  `json:"bitrateLimit,omitempty"`
	Item          itemSummary            `json:"item"`
	Details       playback.StreamDetails `json:"details"`
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")
	q := r.URL.Query()

	format := q.Get("format")
	switch format {
	case "", "hls", "direct":
	default:
		w.Header().Set("Content-Type", "application/json")
		writeError(w, http.StatusBadRequest, "unknown format: "+format)
		return
	}

	opts := playbackOptionsFromQuery(q)
	res, err := s.negotiator.Negotiate(r.Context(), itemID, opts)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		s.writeUpstreamError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.IncNegotiation(string(res.Method))
	}

	switch format {
	case "hls":
		http.Redirect(w, r, res.HLSURL, http.StatusFound)
	case "direct":
		s.proxyStream(w, r, itemID, res)
	default:
		reasons := res.Reasons
		if reasons == nil {
			reasons = []string{}
		}
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, http.StatusOK, streamResponse{
			Method:        string(res.Method),
			HLSURL:        res.HLSURL,
			DirectURL:     res.DirectURL,
			Reasons:       reasons,
			PlaySessionID: res.PlaySessionID,
			MediaSourceID: res.MediaSourceID,
			Quality:       string(res.Quality),
			BitrateLimit:  res.BitrateLimit,
			Item:          summarizeItem(res.Item),
			Details:       res.Details,
		})
	}
}

// proxyStream relays the negotiated progressive URL byte-for-byte, tracking
// the transfer in the session registry. Errors reaching the upstream are
// reported before any body byte is written; once relaying has begun the
// response is abandoned mid-body on failure.
func (s *Server) proxyStream(w http.ResponseWriter, r *http.Request, itemID string, res *playback.Result) {
	target, err := url.Parse(res.DirectURL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	itemName := ""
	if res.Item != nil {
		itemName = res.Item.Name
	}
	id := s.registry.Register(sessions.Record{
		ItemID:           itemID,
		ItemName:         itemName,
		Quality:          string(res.Quality),
		BitrateLimit:     res.BitrateLimit,
		UserAgent:        r.UserAgent(),
		RemoteAddr:       r.RemoteAddr,
		DirectPlay:       res.DirectPlay(),
		TranscodeReasons: res.Reasons,
		PlaySessionID:    res.PlaySessionID,
		MediaSourceID:    res.MediaSourceID,
	})
	defer s.registry.Deregister(id)

	header := http.Header{}
	if rng := r.Header.Get("Range"); rng != "" {
		header.Set("Range", rng)
	}

	resp, err := s.upstream.DoStream(r.Context(), http.MethodGet, target.Path, target.Query(), header)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		s.writeUpstreamError(w, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		httputil.DrainBody(resp)
		w.Header().Set("Content-Type", "application/json")
		// Client-attributable upstream statuses (bad Range and friends) are
		// relayed as-is; upstream server failures become a 502.
		status := http.StatusBadGateway
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			status = resp.StatusCode
		}
		writeError(w, status, "upstream stream error")
		return
	}

	if s.metrics != nil {
		s.metrics.IncStreamsStarted()
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	for _, h := range []string{"Content-Length", "Content-Range"} {
		if v := resp.Header.Get(h); v != "" {
			w.Header().Set(h, v)
		}
	}
	w.Header().Set("Accept-Ranges", "bytes")
	w.WriteHeader(resp.StatusCode)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 64*1024)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				// Client went away; the deferred deregister cleans up.
				return
			}
			s.registry.Touch(id, int64(n))
			if s.metrics != nil {
				s.metrics.AddBytesProxied(int64(n))
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if rerr != nil {
			return
		}
	}
}

// handleSegmentProxy relays HLS playlists and segments addressed relative to
// the item's upstream video path.
func (s *Server) handleSegmentProxy(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")
	suffix := chi.URLParam(r, "*")
	if suffix == "" || !isValidPathSegment(suffix) {
		w.Header().Set("Content-Type", "application/json")
		writeError(w, http.StatusBadRequest, "invalid segment path")
		return
	}

	path := "/Videos/" + url.PathEscape(itemID) + "/" + suffix
	resp, err := s.upstream.DoStream(r.Context(), http.MethodGet, path, r.URL.Query(), nil)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		s.writeUpstreamError(w, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		httputil.DrainBody(resp)
		w.Header().Set("Content-Type", "application/json")
		writeError(w, http.StatusBadGateway, "upstream segment error")
		return
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	n, _ := io.Copy(w, resp.Body)
	if s.metrics != nil {
		s.metrics.AddBytesProxied(n)
	}
}

func isValidPathSegment(s string) bool {
	return !strings.Contains(s, "..") && !strings.Contains(s, "?") && !strings.Contains(s, "#")
}

// playbackOptionsFromQuery parses the caller's constraints, clamping
// integers into sane bounds. Garbage values degrade to zero (unset).
// The capability profile arrives as "client"; "profile" is accepted as an
// alias.
func playbackOptionsFromQuery(q url.Values) playback.Options {
	client := q.Get("client")
	if client == "" {
		client = q.Get("profile")
	}
	return playback.Options{
		Quality:       playback.ParseQuality(q.Get("quality")),
		Profile:       playback.ParseProfile(client),
		MaxWidth:      clampInt(q.Get("maxWidth"), 7680),
		MaxHeight:     clampInt(q.Get("maxHeight"), 4320),
		VideoBitrate:  clampInt64(q.Get("videoBitrate"), 1_000_000_000),
		AudioChannels: clampInt(q.Get("audioChannels"), 8),
		Container:     q.Get("container"),
		VideoCodec:    q.Get("videoCodec"),
		AudioCodec:    q.Get("audioCodec"),
	}
}

func clampInt(s string, max int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	if n > max {
		return max
	}
	return n
}

func clampInt64(s string, max int64) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	if n > max {
		return max
	}
	return n
}
