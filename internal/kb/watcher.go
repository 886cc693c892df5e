package kb

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher monitors the knowledge-base CSV for changes and reindexes the
// retriever when it is rewritten.
type Watcher struct {
	retriever   *Retriever
	kbPath      string
	watcher     *fsnotify.Watcher
	stopChan    chan struct{}
	lastModTime time.Time
}

// NewWatcher creates a new knowledge-base watcher.
func NewWatcher(retriever *Retriever, kbPath string) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		retriever: retriever,
		kbPath:    kbPath,
		watcher:   watcher,
		stopChan:  make(chan struct{}),
	}

	if stat, err := os.Stat(kbPath); err == nil {
		w.lastModTime = stat.ModTime()
	}

	return w, nil
}

// Start begins watching the knowledge-base file. If the directory cannot
// be watched it falls back to polling.
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.kbPath)
	if err := w.watcher.Add(dir); err != nil {
		log.Warn().Err(err).Str("path", dir).Msg("Failed to watch knowledge base directory, falling back to polling")
		go w.pollForChanges()
		return nil
	}

	go w.watchForChanges()
	log.Info().Str("path", w.kbPath).Msg("Started watching knowledge base for changes")
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	select {
	case <-w.stopChan:
		return
	default:
		close(w.stopChan)
	}
	w.watcher.Close()
}

func (w *Watcher) watchForChanges() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.kbPath && filepath.Base(event.Name) != filepath.Base(w.kbPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// Debounce - wait a bit for write to complete
			time.Sleep(100 * time.Millisecond)
			log.Info().Str("event", event.Op.String()).Msg("Detected knowledge base change")
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Knowledge base watcher error")

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) pollForChanges() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stat, err := os.Stat(w.kbPath)
			if err != nil {
				continue
			}
			if stat.ModTime().After(w.lastModTime) {
				log.Info().Msg("Detected knowledge base change via polling")
				w.lastModTime = stat.ModTime()
				w.reload()
			}

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) reload() {
	entries, err := LoadEntries(w.kbPath)
	if err != nil {
		log.Error().Err(err).Str("path", w.kbPath).Msg("Failed to reload knowledge base, keeping previous index")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := w.retriever.Reload(ctx, entries); err != nil {
		log.Error().Err(err).Msg("Failed to reindex knowledge base, keeping previous index")
	}
}
