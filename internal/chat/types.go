// Package chat implements the troubleshooting conversation flow: a
// session store, a follow-up heuristic, and a router that picks between
// knowledge-base retrieval and generator answers.
package chat

import (
	"sync"
	"time"
)

// Turn roles.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Answer sources.
const (
	SourceKB       = "gpt_kb"
	SourceContext  = "gpt_context"
	SourceFallback = "gpt"
	SourceError    = "error"
)

// Turn is a single message in a conversation.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
}

// Session holds the state of one troubleshooting conversation. Problem
// and Solution are set when a knowledge-base answer is served and anchor
// follow-up handling from then on.
type Session struct {
	// Pointer so snapshots can be returned by value
	mu *sync.Mutex

	ID           string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	Problem      string    `json:"problem"`
	Solution     string    `json:"solution"`
	CurrentStep  int       `json:"current_step"`
	History      []Turn    `json:"conversation_history"`
}

// Snapshot returns a copy of the session safe for serialization.
func (s *Session) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := Session{
		mu:           &sync.Mutex{},
		ID:           s.ID,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
		Problem:      s.Problem,
		Solution:     s.Solution,
		CurrentStep:  s.CurrentStep,
	}
	cp.History = make([]Turn, len(s.History))
	copy(cp.History, s.History)
	return cp
}

// Answer is the router's reply to one question. Similarity is only set
// for knowledge-base answers.
type Answer struct {
	Source     string   `json:"source"`
	Similarity *float64 `json:"similarity"`
	Answer     string   `json:"answer"`
	SessionID  string   `json:"session_id"`
	IsFollowup bool     `json:"is_followup"`
}
