package server

import (
	"net/http"
	"time"

	"Bt1Zen/logger"
	"Bt1Zen/model"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 10 * time.Second

// PlayerSocketHandler pushes every playback state change over a websocket.
// The subscription callback runs on the session's notification path, so it
// only drops the state into a buffered channel; a slow client loses
// intermediate snapshots, never the stream.
func (h *APIHandler) PlayerSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	states := make(chan model.PlaybackState, 16)
	unsubscribe := h.session.Subscribe(func(state model.PlaybackState) {
		select {
		case states <- state:
		default:
			// Channel full: skip this snapshot, a fresher one follows.
		}
	})
	defer unsubscribe()

	// Reads are only consumed to notice the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case state := <-states:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(state); err != nil {
				logger.Debug("Websocket write failed, closing", logger.ErrorField(err))
				return
			}
		}
	}
}
