package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"Lyra/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// API exposes a Daemon over HTTP.
type API struct {
	daemon   *Daemon
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewAPI creates the HTTP surface. hub may be nil, /ws is not routed then.
func NewAPI(d *Daemon, hub *Hub) *API {
	return &API{
		daemon: d,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Router 使用 gorilla/mux 创建路由器
func (a *API) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/api/status", a.StatusHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs", a.SongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/command/{name}", a.CommandHandler).Methods(http.MethodPost)
	if a.hub != nil {
		router.HandleFunc("/ws", a.WebSocketHandler).Methods(http.MethodGet)
	}
	return router
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to write response", logger.ErrorField(err))
	}
}

// StatusHandler returns the player state and the playlist summary.
func (a *API) StatusHandler(w http.ResponseWriter, r *http.Request) {
	st, err := a.daemon.Status(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, st)
}

// SongsHandler lists the playlist.
func (a *API) SongsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.daemon.Playlist().Songs())
}

// CommandHandler runs one control command.
func (a *API) CommandHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	cmd, ok := ParseCommand(name)
	if !ok {
		http.Error(w, "unknown command "+name, http.StatusNotFound)
		return
	}
	if err := a.daemon.Dispatch(r.Context(), cmd); err != nil {
		logger.Error("command failed", logger.String("command", name), logger.ErrorField(err))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]interface{}{
		"command": cmd.String(),
		"current": a.daemon.Playlist().Current(),
	})
}

// WebSocketHandler streams now-playing events.
func (a *API) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	a.hub.Serve(conn)
}

// ListenAndServe serves the API on addr until ctx is done.
func (a *API) ListenAndServe(ctx context.Context, addr string) error {
	// 设置服务器超时
	server := &http.Server{
		Addr:         addr,
		Handler:      a.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP control listening", logger.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	// 创建一个5秒超时的上下文
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
