package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	terrors "github.com/fleettriage/fleettriage/internal/errors"
	"github.com/fleettriage/fleettriage/internal/metrics"
)

// DefaultMaxAge is how long an idle session is kept.
const DefaultMaxAge = 24 * time.Hour

// Store is an in-memory session store. Sessions idle longer than maxAge
// are removed by the sweep.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	maxAge   time.Duration

	nowFn func() time.Time
}

// NewStore creates a session store. A non-positive maxAge uses the
// default.
func NewStore(maxAge time.Duration) *Store {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Store{
		sessions: make(map[string]*Session),
		maxAge:   maxAge,
		nowFn:    time.Now,
	}
}

// Create starts a new session with a generated id.
func (st *Store) Create() *Session {
	now := st.nowFn()
	s := &Session{
		mu:           &sync.Mutex{},
		ID:           uuid.New().String(),
		CreatedAt:    now,
		LastActivity: now,
		History:      []Turn{},
	}
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// GetOrCreate returns the session with the given id, creating it if the
// id is unknown. An empty id creates a session with a fresh id.
func (st *Store) GetOrCreate(id string) *Session {
	if id == "" {
		return st.Create()
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok {
		return s
	}
	now := st.nowFn()
	s := &Session{
		mu:           &sync.Mutex{},
		ID:           id,
		CreatedAt:    now,
		LastActivity: now,
		History:      []Turn{},
	}
	st.sessions[id] = s
	return s
}

// Get returns the session with the given id.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, terrors.NotFound("session.get", id)
	}
	return s, nil
}

// Delete removes the session with the given id.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return terrors.NotFound("session.delete", id)
	}
	delete(st.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// SweepExpired removes sessions idle longer than the store's max age and
// returns how many were removed. Expiry is checked outside the store
// lock: a session blocked in a slow generator call must not stall
// session creation for the whole sweep. A session revived between the
// check and the removal is lost, but its next request recreates it.
func (st *Store) SweepExpired() int {
	cutoff := st.nowFn().Add(-st.maxAge)

	st.mu.RLock()
	candidates := make(map[string]*Session, len(st.sessions))
	for id, s := range st.sessions {
		candidates[id] = s
	}
	st.mu.RUnlock()

	var expired []string
	for id, s := range candidates {
		s.mu.Lock()
		stale := s.LastActivity.Before(cutoff)
		s.mu.Unlock()
		if stale {
			expired = append(expired, id)
		}
	}
	if len(expired) == 0 {
		return 0
	}

	st.mu.Lock()
	removed := 0
	for _, id := range expired {
		if _, ok := st.sessions[id]; ok {
			delete(st.sessions, id)
			removed++
		}
	}
	st.mu.Unlock()

	if removed > 0 {
		metrics.SessionsSweptTotal.Add(float64(removed))
		log.Info().Int("removed", removed).Msg("Swept expired chat sessions")
	}
	return removed
}

// StartSweeper runs an immediate sweep and then sweeps on the given
// interval until stop is closed.
func (st *Store) StartSweeper(stop <-chan struct{}, every time.Duration) {
	st.SweepExpired()
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				st.SweepExpired()
			case <-stop:
				return
			}
		}
	}()
}
