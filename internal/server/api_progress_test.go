package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postProgress(t *testing.T, env *testEnv, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	env.server.ServeHTTP(rec, req)
	return rec
}

func TestProgress_ForwardsTicks(t *testing.T) {
	f := &testUpstream{source: directPlaySource(), playSessionID: "ps1"}
	env := newTestEnv(t, f)

	rec := postProgress(t, env, "/api/stream/item1/progress",
		`{"position":120.5,"isPaused":true,"playSessionId":"ps1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp playstateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 120.5, resp.Position)
	assert.True(t, resp.IsPaused)

	require.Equal(t, int64(1), f.progressCalls.Load())
	assert.Equal(t, float64(1_205_000_000), f.lastPlaystate["PositionTicks"])
	assert.Equal(t, "item1", f.lastPlaystate["ItemId"])
	assert.Equal(t, true, f.lastPlaystate["IsPaused"])
}

func TestProgress_NegativePositionRejectedWithoutUpstreamCall(t *testing.T) {
	f := &testUpstream{source: directPlaySource(), playSessionID: "ps1"}
	env := newTestEnv(t, f)

	rec := postProgress(t, env, "/api/stream/item1/progress", `{"position":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, int64(0), f.progressCalls.Load())
}

func TestProgress_UpstreamFailureIsSwallowed(t *testing.T) {
	f := &testUpstream{source: directPlaySource(), playSessionID: "ps1", playstateStatus: http.StatusInternalServerError}
	env := newTestEnv(t, f)

	rec := postProgress(t, env, "/api/stream/item1/progress", `{"position":10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp playstateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestProgress_MalformedBody(t *testing.T) {
	env := newTestEnv(t, &testUpstream{source: directPlaySource(), playSessionID: "ps1"})

	rec := postProgress(t, env, "/api/stream/item1/progress", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartAndStopForwarded(t *testing.T) {
	env := newTestEnv(t, &testUpstream{source: directPlaySource(), playSessionID: "ps1"})

	rec := postProgress(t, env, "/api/stream/item1/start", `{"position":0,"playSessionId":"ps1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postProgress(t, env, "/api/stream/item1/stop", `{"position":300}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp playstateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}
