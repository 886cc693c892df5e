// Package api wires the HTTP surface of the triage service.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleettriage/fleettriage/internal/config"
)

// healthResponse is the GET /api/health payload.
type healthResponse struct {
	Status   string   `json:"status"`
	Version  string   `json:"version"`
	Features []string `json:"features"`
}

// NewRouter assembles the full handler chain: mux, auth, CORS, and
// request logging.
func NewRouter(cfg *config.Config, th *TriageHandlers, ch *ChatHandlers, version string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{
			Status:   "ok",
			Version:  version,
			Features: []string{"analyze", "chat", "selfcheck", "history", "logs"},
		})
	})

	mux.HandleFunc("POST /api/analyze", th.HandleAnalyze)
	mux.HandleFunc("GET /api/analyses", th.HandleListAnalyses)
	mux.HandleFunc("GET /api/selfcheck", th.HandleSelfcheck)

	mux.HandleFunc("POST /api/chat/sessions", ch.HandleStartSession)
	mux.HandleFunc("POST /api/chat", ch.HandleChat)
	mux.HandleFunc("GET /api/chat/sessions/{id}", ch.HandleGetSession)
	mux.HandleFunc("DELETE /api/chat/sessions/{id}", ch.HandleDeleteSession)

	mux.HandleFunc("GET /api/ws/logs", HandleLogsWS)

	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = tokenAuth(cfg.APITokenHash, handler)
	handler = corsMiddleware(cfg.Origins(), handler)
	handler = requestLogger(handler)
	return handler
}
