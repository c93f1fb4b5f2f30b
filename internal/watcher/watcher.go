// Package watcher reloads configuration when the settings file changes.
package watcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// debounceWindow collapses editor write bursts into one reload.
const debounceWindow = 250 * time.Millisecond

// Watcher watches a single file and invokes a callback after changes.
type Watcher struct {
	path     string
	onChange func()

	fw     *fsnotify.Watcher
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
}

// New creates a watcher for path. onChange runs on the watcher
// goroutine after each debounced change.
func New(path string, onChange func()) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("watcher: empty path")
	}
	return &Watcher{
		path:     path,
		onChange: onChange,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. The parent directory is watched rather than
// the file itself so atomic rename-based saves are still observed.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.fw = fw
	w.started = true
	w.wg.Add(1)
	go w.loop()

	log.Debug().Str("component", "watcher").Str("path", w.path).Msg("Settings watcher started")
	return nil
}

// Stop shuts the watcher down and waits for the loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return nil
	}

	close(w.stopCh)
	err := w.fw.Close()
	w.wg.Wait()
	w.started = false
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerCh = timer.C
			} else {
				timer.Reset(debounceWindow)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil
			log.Info().Str("component", "watcher").Str("path", w.path).Msg("Settings file changed, reloading")
			w.onChange()

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Warn().Str("component", "watcher").Err(err).Msg("Settings watcher error")
		}
	}
}
