package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const eventWriteTimeout = 10 * time.Second

// Events upgrades the request to a websocket and streams state snapshots:
// the current state immediately, then one message per transition. Polling
// GET /v1/state remains available for clients without websocket support.
func (a *App) Events(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range a.Config.AllowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("events: websocket upgrade failed")
		return
	}
	defer conn.Close()

	c := a.controller(r)
	updates, cancel := c.Subscribe()
	defer cancel()

	// Read pump: discard client frames, unblock on close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(v any) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
		return conn.WriteJSON(v) == nil
	}

	if !send(c.Snapshot()) {
		return
	}
	for {
		select {
		case snap, ok := <-updates:
			if !ok || !send(snap) {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
