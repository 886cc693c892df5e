package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/fleettriage/fleettriage/internal/logging"
)

func TestLogsWSStreamsLines(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(HandleLogsWS))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_, err = logging.GetBroadcaster().Write([]byte(`{"level":"info","message":"ws-test-line"}`))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err, "expected the published line before the deadline")
		if strings.Contains(string(msg), "ws-test-line") {
			return
		}
	}
}
