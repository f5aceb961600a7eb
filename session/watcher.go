package session

import (
	"context"
	"errors"
	"os"
	"time"
)

const DefaultPollInterval = time.Second

// Watcher reloads the current file of a session when it changes on disk.
// Files loaded with LoadBytes have no path and are never reloaded.
type Watcher struct {
	session  *Session
	interval time.Duration
	onReload func(*File, error)
}

// NewWatcher returns a watcher polling every interval. onReload, if not nil,
// is called after every reload attempt.
func NewWatcher(s *Session, interval time.Duration, onReload func(*File, error)) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{
		session:  s,
		interval: interval,
		onReload: onReload,
	}
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Check()
		}
	}
}

// Check reloads the current file if its modification time moved forward.
// It reports whether a reload was attempted.
func (w *Watcher) Check() bool {
	f, ok := w.session.Current()
	if !ok || f.Path == "" || f.ModTime.IsZero() {
		return false
	}
	info, err := os.Stat(f.Path)
	if err != nil {
		log.Debugf("watch %s: %v", f.Path, err)
		return false
	}
	if !info.ModTime().After(f.ModTime) {
		return false
	}

	reloaded, err := w.session.reload(f)
	if errors.Is(err, ErrSuperseded) {
		return false
	}
	if err != nil {
		log.Warningf("reload %s: %v", f.Path, err)
	}
	if w.onReload != nil {
		w.onReload(reloaded, err)
	}
	return true
}
