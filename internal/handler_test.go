package internal_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koopa0/system-design/14-multiplayer-tetris/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*internal.Handler, *internal.Game) {
	t.Helper()

	cfg := internal.DefaultConfig()
	game := internal.NewGame(cfg, testLogger(), func() internal.ShapeID {
		return internal.ShapeT
	})
	hub := internal.NewHub(game, cfg, testLogger())
	t.Cleanup(hub.Stop)

	return internal.NewHandler(game, hub, testLogger()), game
}

func doRequest(t *testing.T, handler http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Health(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doRequest(t, handler.Routes(), http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body, "time")
}

func TestHandler_Stats(t *testing.T) {
	handler, game := newTestHandler(t)

	_, reconnected := game.Join(1)
	require.False(t, reconnected)
	_, reconnected = game.Join(2)
	require.False(t, reconnected)

	rec := doRequest(t, handler.Routes(), http.MethodGet, "/stats")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	// JSON 數字解碼為 float64
	assert.Equal(t, float64(2), body["live_pieces"])
	assert.Equal(t, float64(0), body["settled_cells"])
	assert.Equal(t, float64(0), body["connections"])
	assert.Equal(t, float64(10), body["board_width"])
	assert.Equal(t, float64(20), body["board_height"])
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doRequest(t, handler.Routes(), http.MethodPost, "/health")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_NotFound(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doRequest(t, handler.Routes(), http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
