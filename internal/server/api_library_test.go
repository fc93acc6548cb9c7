package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListLibraries(t *testing.T) {
	env := newTestEnv(t, &testUpstream{source: directPlaySource(), playSessionID: "ps1"})

	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/libraries", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Libraries []struct {
			ID        string `json:"Id"`
			Name      string `json:"Name"`
			ItemCount int    `json:"itemCount"`
		} `json:"libraries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Libraries, 1)
	assert.Equal(t, "Movies", body.Libraries[0].Name)
	assert.Equal(t, 4, body.Libraries[0].ItemCount)
}

func TestSearchRanksExactMatchFirst(t *testing.T) {
	env := newTestEnv(t, &testUpstream{source: directPlaySource(), playSessionID: "ps1"})

	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/libraries/lib1/items?search=alien", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []itemSummary `json:"items"`
		Total int           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 4)
	assert.Equal(t, 4, body.Total)

	// Exact match first, then prefix matches, then the non-match.
	assert.Equal(t, "Alien", body.Items[0].Name)
	assert.Equal(t, "Prometheus", body.Items[3].Name)
}

func TestGetItemShapesMetadata(t *testing.T) {
	env := newTestEnv(t, &testUpstream{source: directPlaySource(), playSessionID: "ps1"})

	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/item1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var item itemSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, "Blade Runner", item.Name)
	assert.Equal(t, float64(7000), item.RuntimeSeconds)
}

func TestRelevanceTiers(t *testing.T) {
	q := "blade runner"
	exact := relevance("Blade Runner", q)
	prefix := relevance("Blade Runner 2049", q)
	substr := relevance("The Blade Runner Story", q)
	overlap := relevance("Runner of Blades", q)
	none := relevance("Alien", q)

	assert.Greater(t, exact, prefix)
	assert.Greater(t, prefix, substr)
	assert.Greater(t, substr, overlap)
	assert.Greater(t, overlap, none)
	assert.Equal(t, float64(0), none)
}
