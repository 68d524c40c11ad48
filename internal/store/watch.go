package store

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"dqx0.com/go/rawrest/internal/obs"
)

// Watch starts an fsnotify watcher on the data file's directory. Any
// write, create, rename or remove of the data file drops the read cache
// so the next read picks up edits made outside the server. The directory
// is watched rather than the file because saves replace the file by
// rename.
func (s *Store) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("store: watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("store: watch %s: %w", dir, err)
	}

	s.mu.Lock()
	if s.closed || s.watcher != nil {
		s.mu.Unlock()
		w.Close()
		if s.closed {
			return ErrClosed
		}
		return nil
	}
	s.watcher = w
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.watchLoop(w)
	return nil
}

func (s *Store) watchLoop(w *fsnotify.Watcher) {
	defer close(s.done)
	target := filepath.Clean(s.path)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				s.invalidate()
				s.logger.Logf(obs.Debug, "%s changed (%s), cache dropped", s.path, ev.Op)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Logf(obs.Warn, "watcher error: %v", err)
		}
	}
}

func (s *Store) invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
}
