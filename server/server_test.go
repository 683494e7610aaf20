package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"path/filepath"
	"testing"
	"time"

	"Lyra/model"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) (*API, *fakePlayer, *Hub) {
	t.Helper()
	p := &fakePlayer{}
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	d := NewDaemon(newTestPlaylist(t, t.TempDir(), 2), p, WithHub(hub))
	return NewAPI(d, hub), p, hub
}

func TestAPI_Command(t *testing.T) {
	api, p, _ := newTestAPI(t)
	router := api.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/command/next", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Command string      `json:"command"`
		Current *model.Song `json:"current"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "next", body.Command)
	require.NotNil(t, body.Current)
	assert.Equal(t, p.Played()[0], body.Current.File)
}

func TestAPI_UnknownCommand(t *testing.T) {
	api, _, _ := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/command/dance", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/command/next", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAPI_StatusAndSongs(t *testing.T) {
	api, _, _ := newTestAPI(t)
	router := api.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var st Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, "stop", st.State)
	assert.Equal(t, 2, st.Songs)
	assert.Nil(t, st.Current)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/songs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var songs []model.Song
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&songs))
	assert.Len(t, songs, 2)
}

func TestAPI_WebSocketNowPlaying(t *testing.T) {
	api, p, hub := newTestAPI(t)
	srv := httptest.NewServer(api.Router())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, api.daemon.Dispatch(context.Background(), CmdNext))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventNowPlaying, ev.Type)
	require.NotNil(t, ev.Song)
	assert.Equal(t, p.Played()[0], ev.Song.File)
	assert.NotEmpty(t, ev.Info)
	assert.NotZero(t, ev.Timestamp)
}

func TestAPI_PlayerFailureStopsDaemon(t *testing.T) {
	dir := shortDir(t)
	p := &fakePlayer{}
	d := NewDaemon(newTestPlaylist(t, dir, 2), p)
	router := NewAPI(d, nil).Router()

	ln, err := Listen(filepath.Join(dir, "sock"))
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background(), ln) }()
	require.Eventually(t, func() bool { return len(p.Played()) == 1 }, 2*time.Second, 10*time.Millisecond)

	broken := errors.New("broken pipe")
	p.mu.Lock()
	p.playErr = broken
	p.mu.Unlock()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/command/next", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, broken)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon kept running after player failure")
	}
}
