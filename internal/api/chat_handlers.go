package api

import (
	"encoding/json"
	"net/http"

	"github.com/fleettriage/fleettriage/internal/chat"
)

// ChatHandlers serves the conversation endpoints.
type ChatHandlers struct {
	router *chat.Router
}

// NewChatHandlers creates the chat handler set.
func NewChatHandlers(router *chat.Router) *ChatHandlers {
	return &ChatHandlers{router: router}
}

type chatRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

type sessionStarted struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// HandleStartSession handles POST /api/chat/sessions.
func (h *ChatHandlers) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	s := h.router.Store().Create()
	writeJSON(w, http.StatusOK, sessionStarted{SessionID: s.ID, Message: "New session started"})
}

// HandleChat handles POST /api/chat. A missing session id starts a new
// session; the reply always carries the id to continue with. Blank
// questions are not rejected here: retrieval short-circuits them and the
// router answers from the generator.
func (h *ChatHandlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	answer := h.router.Ask(r.Context(), req.SessionID, req.Question)
	writeJSON(w, http.StatusOK, answer)
}

// HandleGetSession handles GET /api/chat/sessions/{id}.
func (h *ChatHandlers) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.router.Store().Get(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// HandleDeleteSession handles DELETE /api/chat/sessions/{id}.
func (h *ChatHandlers) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.router.Store().Delete(r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted"})
}
