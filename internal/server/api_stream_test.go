package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamMetadata_DirectPlay(t *testing.T) {
	env := newTestEnv(t, &testUpstream{source: directPlaySource(), playSessionID: "ps1"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stream/item1?quality=auto&profile=native", nil)
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body streamResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "direct_play", body.Method)
	assert.NotNil(t, body.Reasons)
	assert.Empty(t, body.Reasons)
	assert.Equal(t, "ps1", body.PlaySessionID)
	assert.Contains(t, body.HLSURL, "PlaySessionId=ps1")
	assert.Contains(t, body.DirectURL, "PlaySessionId=ps1")
	assert.Equal(t, "Blade Runner", body.Item.Name)
	assert.Equal(t, "h264", body.Details.VideoCodec)

	// Reasons must encode as a JSON array, not null.
	assert.Contains(t, rec.Body.String(), `"reasons":[]`)
}

func TestStreamMetadata_BrowserClientForcesTranscode(t *testing.T) {
	src := directPlaySource()
	src.Container = "mkv"
	env := newTestEnv(t, &testUpstream{source: src, playSessionID: "ps1"})

	// mkv is outside the browser allow-list, so direct-play support upstream
	// must not matter.
	for _, target := range []string{
		"/api/stream/item1?client=browser",
		"/api/stream/item1?profile=browser",
	} {
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, rec.Code, target)

		var body streamResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "transcode", body.Method, target)
		assert.NotEmpty(t, body.Reasons, target)
	}
}

func TestStreamMetadata_UnknownFormatRejected(t *testing.T) {
	env := newTestEnv(t, &testUpstream{source: directPlaySource(), playSessionID: "ps1"})

	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stream/item1?format=avi", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamMetadata_ItemNotFound(t *testing.T) {
	env := newTestEnv(t, &testUpstream{source: directPlaySource(), playSessionID: "ps1"})

	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stream/nosuch", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStreamHLS_Redirects(t *testing.T) {
	env := newTestEnv(t, &testUpstream{source: directPlaySource(), playSessionID: "ps1"})

	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stream/item1?format=hls", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	loc := rec.Header().Get("Location")
	assert.Contains(t, loc, "/Videos/item1/master.m3u8")
	assert.Contains(t, loc, "PlaySessionId=ps1")
}

func TestStreamProxy_CountsBytesAndDeregisters(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 200_000)
	f := &testUpstream{source: directPlaySource(), playSessionID: "ps1", streamBody: payload}
	env := newTestEnv(t, f)

	ts := httptest.NewServer(env.server)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/stream/item1?format=direct")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "video/mp4", resp.Header.Get("Content-Type"))
	assert.Equal(t, "bytes", resp.Header.Get("Accept-Ranges"))

	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	// The handler deregisters after the last byte; allow it a moment.
	require.Eventually(t, func() bool {
		return len(env.registry.ListActive()) == 0
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(len(payload)), env.registry.TotalBytes())
	assert.Equal(t, int64(1), env.registry.TotalStreams())
}

func TestStreamProxy_RelaysRangeResponse(t *testing.T) {
	f := &testUpstream{source: directPlaySource(), playSessionID: "ps1", streamBody: []byte("0123456789")}
	env := newTestEnv(t, f)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stream/item1?format=direct", nil)
	req.Header.Set("Range", "bytes=0-99")
	env.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 0-99/1000", rec.Header().Get("Content-Range"))
}

func TestStreamProxy_UpstreamErrorBeforeHeaders(t *testing.T) {
	f := &testUpstream{source: directPlaySource(), playSessionID: "ps1", streamStatus: http.StatusInternalServerError}
	env := newTestEnv(t, f)

	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stream/item1?format=direct", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
	assert.Empty(t, env.registry.ListActive())
}

func TestStreamProxy_RelaysUpstreamRangeError(t *testing.T) {
	f := &testUpstream{source: directPlaySource(), playSessionID: "ps1", streamStatus: http.StatusRequestedRangeNotSatisfiable}
	env := newTestEnv(t, f)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stream/item1?format=direct", nil)
	req.Header.Set("Range", "bytes=9999999-")
	env.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code)
	assert.Empty(t, env.registry.ListActive())
}

func TestStreamProxy_ClientDisconnectCleansUp(t *testing.T) {
	payload := bytes.Repeat([]byte("y"), 1_000_000)
	f := &testUpstream{source: directPlaySource(), playSessionID: "ps1", streamBody: payload}
	env := newTestEnv(t, f)

	ts := httptest.NewServer(env.server)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/stream/item1?format=direct")
	require.NoError(t, err)
	// Read a little, then abandon the connection.
	_, _ = io.ReadFull(resp.Body, make([]byte, 1024))
	resp.Body.Close()

	require.Eventually(t, func() bool {
		return len(env.registry.ListActive()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSegmentProxy_RejectsTraversal(t *testing.T) {
	env := newTestEnv(t, &testUpstream{source: directPlaySource(), playSessionID: "ps1"})

	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stream/item1/segments/..%2fsecret.ts", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
