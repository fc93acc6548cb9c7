package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"vrbridge/internal/jellyfin"
	"vrbridge/internal/playback"
	"vrbridge/internal/sessions"
)

// testUpstream is a scripted media server: one user, one item, one media
// source, and a byte-range-aware stream endpoint.
type testUpstream struct {
	source          jellyfin.MediaSource
	playSessionID   string
	streamBody      []byte
	streamStatus    int
	playstateStatus int

	progressCalls atomic.Int64
	lastPlaystate map[string]any
}

func (f *testUpstream) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/Users/AuthenticateByName", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"User":        map[string]string{"Id": "u1"},
			"ServerId":    "srv1",
			"AccessToken": "tok-1",
		})
	})
	mux.HandleFunc("/Users/u1/Items/item1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Id":"item1","Name":"Blade Runner","Type":"Movie","RunTimeTicks":70000000000}`))
	})
	mux.HandleFunc("/Users/u1/Items", func(w http.ResponseWriter, r *http.Request) {
		items := []map[string]any{
			{"Id": "i1", "Name": "Alien Resurrection"},
			{"Id": "i2", "Name": "Alien"},
			{"Id": "i3", "Name": "Aliens"},
			{"Id": "i4", "Name": "Prometheus"},
		}
		json.NewEncoder(w).Encode(map[string]any{"Items": items, "TotalRecordCount": len(items)})
	})
	mux.HandleFunc("/Users/u1/Views", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"Items": []map[string]string{
			{"Id": "lib1", "Name": "Movies", "CollectionType": "movies"},
		}})
	})
	mux.HandleFunc("/Items/item1/PlaybackInfo", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"MediaSources":  []jellyfin.MediaSource{f.source},
			"PlaySessionId": f.playSessionID,
		})
	})
	mux.HandleFunc("/Videos/item1/stream", func(w http.ResponseWriter, r *http.Request) {
		status := f.streamStatus
		if status == 0 {
			status = http.StatusOK
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "video/mp4")
		if rng := r.Header.Get("Range"); rng != "" {
			w.Header().Set("Content-Range", "bytes 0-99/1000")
			w.WriteHeader(http.StatusPartialContent)
		}
		w.Write(f.streamBody)
	})
	mux.HandleFunc("/Sessions/Playing/Progress", func(w http.ResponseWriter, r *http.Request) {
		f.progressCalls.Add(1)
		f.lastPlaystate = map[string]any{}
		json.NewDecoder(r.Body).Decode(&f.lastPlaystate)
		if f.playstateStatus != 0 {
			w.WriteHeader(f.playstateStatus)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/Sessions/Playing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/Sessions/Playing/Stopped", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	return httptest.NewServer(mux)
}

func directPlaySource() jellyfin.MediaSource {
	return jellyfin.MediaSource{
		ID:                   "ms1",
		Container:            "mp4",
		Bitrate:              4_000_000,
		SupportsDirectPlay:   true,
		SupportsDirectStream: true,
		SupportsTranscoding:  true,
		MediaStreams: []jellyfin.MediaStream{
			{Type: "Video", Codec: "h264", Width: 1920, Height: 1080},
			{Type: "Audio", Codec: "aac", Channels: 6},
		},
	}
}

type testEnv struct {
	upstream *testUpstream
	registry *sessions.Registry
	server   *Server
}

func newTestEnv(t *testing.T, f *testUpstream, opts ...Option) *testEnv {
	t.Helper()
	ts := f.server(t)
	t.Cleanup(ts.Close)

	client, err := jellyfin.New(ts.URL, "vruser", "secret", "dev1")
	require.NoError(t, err)

	reg := sessions.New()
	return &testEnv{
		upstream: f,
		registry: reg,
		server:   NewServer(client, playback.NewNegotiator(client), reg, opts...),
	}
}
