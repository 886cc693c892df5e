package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	terrors "github.com/fleettriage/fleettriage/internal/errors"
)

func TestStoreCreateAndGet(t *testing.T) {
	st := NewStore(0)
	s := st.Create()
	require.NotEmpty(t, s.ID)

	got, err := st.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestStoreGetUnknownIsNotFound(t *testing.T) {
	st := NewStore(0)
	_, err := st.Get("missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, terrors.ErrNotFound)
}

func TestStoreGetOrCreate(t *testing.T) {
	st := NewStore(0)

	s := st.GetOrCreate("")
	assert.NotEmpty(t, s.ID, "empty id gets a generated one")

	named := st.GetOrCreate("client-chosen")
	assert.Equal(t, "client-chosen", named.ID)
	assert.Same(t, named, st.GetOrCreate("client-chosen"))
	assert.Equal(t, 2, st.Len())
}

func TestStoreDelete(t *testing.T) {
	st := NewStore(0)
	s := st.Create()

	require.NoError(t, st.Delete(s.ID))

	err := st.Delete(s.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, terrors.ErrNotFound)
}

func TestSweepExpired(t *testing.T) {
	st := NewStore(24 * time.Hour)
	now := time.Now()
	st.nowFn = func() time.Time { return now }

	stale := st.Create()
	stale.LastActivity = now.Add(-25 * time.Hour)
	fresh := st.Create()
	fresh.LastActivity = now.Add(-1 * time.Hour)

	removed := st.SweepExpired()
	assert.Equal(t, 1, removed)

	_, err := st.Get(stale.ID)
	assert.ErrorIs(t, err, terrors.ErrNotFound)
	_, err = st.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestSweepDoesNotBlockStoreOnBusySession(t *testing.T) {
	st := NewStore(24 * time.Hour)
	busy := st.Create()

	// Simulate a session held across a slow generator call.
	busy.mu.Lock()

	swept := make(chan int, 1)
	go func() { swept <- st.SweepExpired() }()

	created := make(chan struct{})
	go func() {
		st.Create()
		close(created)
	}()

	select {
	case <-created:
	case <-time.After(2 * time.Second):
		t.Fatal("session creation blocked while the sweep waited on a busy session")
	}

	busy.mu.Unlock()
	assert.Equal(t, 0, <-swept)
}

func TestSessionSnapshotCopiesHistory(t *testing.T) {
	st := NewStore(0)
	s := st.Create()
	s.History = append(s.History, Turn{Role: RoleUser, Content: "hello"})

	snap := s.Snapshot()
	snap.History[0].Content = "mutated"
	assert.Equal(t, "hello", s.History[0].Content)
}
