package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/fleettriage/fleettriage/internal/logging"
)

var logsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// CORS middleware already vets origins for the API surface
		return true
	},
}

const logWriteTimeout = 10 * time.Second

// HandleLogsWS streams structured log lines over a websocket, starting
// with the buffered history.
func HandleLogsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := logsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Log stream upgrade failed")
		return
	}
	defer conn.Close()

	id, ch, history := logging.GetBroadcaster().Subscribe()
	defer logging.GetBroadcaster().Unsubscribe(id)

	for _, line := range history {
		conn.SetWriteDeadline(time.Now().Add(logWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			return
		}
	}

	// Drain client frames so close and ping frames are processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case line, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(logWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
