package logging

import (
	"container/ring"
	"sync"

	"github.com/google/uuid"
)

// DefaultBufferSize is the number of log lines kept in memory for new subscribers.
const DefaultBufferSize = 500

var (
	broadcaster   *LogBroadcaster
	broadcastOnce sync.Once
)

// LogBroadcaster captures log writes, buffers them, and fans them out to
// subscribers (the websocket log stream).
type LogBroadcaster struct {
	mu          sync.RWMutex
	buffer      *ring.Ring
	subscribers map[string]chan string
	closed      bool
}

// GetBroadcaster returns the singleton broadcaster instance.
func GetBroadcaster() *LogBroadcaster {
	broadcastOnce.Do(func() {
		broadcaster = &LogBroadcaster{
			buffer:      ring.New(DefaultBufferSize),
			subscribers: make(map[string]chan string),
		}
	})
	return broadcaster
}

// Write implements io.Writer. Slow subscribers skip messages rather than
// blocking the logger.
func (b *LogBroadcaster) Write(p []byte) (int, error) {
	msg := string(p)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return len(p), nil
	}

	b.buffer.Value = msg
	b.buffer = b.buffer.Next()

	for _, ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}

	return len(p), nil
}

// Subscribe registers a subscriber and returns its id, a channel of log
// lines, and a snapshot of the buffered history.
func (b *LogBroadcaster) Subscribe() (string, chan string, []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan string, 256)
	b.subscribers[id] = ch

	history := make([]string, 0, DefaultBufferSize)
	b.buffer.Do(func(v interface{}) {
		if v != nil {
			history = append(history, v.(string))
		}
	})

	return id, ch, history
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *LogBroadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
}

// Shutdown closes all subscriber channels.
func (b *LogBroadcaster) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
