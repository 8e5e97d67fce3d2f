package config

import (
	"context"
	"log"
	"os"
	"time"
)

// Watcher polls a tables file and reloads the Store when its modification
// time moves forward. A file that fails to parse is logged and the previous
// tables stay in place.
type Watcher struct {
	Path     string
	Interval time.Duration

	store     *Store
	logger    *log.Logger
	lastMTime time.Time
}

// NewWatcher creates a watcher for path feeding store.
func NewWatcher(path string, interval time.Duration, store *Store, logger *log.Logger) *Watcher {
	if logger == nil {
		logger = log.New(os.Stdout, "[CONFIG] ", log.LstdFlags)
	}
	return &Watcher{Path: path, Interval: interval, store: store, logger: logger}
}

// Since sets the modification time of the tables the store already holds.
// Without it the watcher takes the file's time on its first look and misses
// an edit made between the initial load and that look.
func (w *Watcher) Since(mtime time.Time) *Watcher {
	w.lastMTime = mtime
	return w
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if w.Interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.check(w.lastMTime.IsZero())
	for {
		select {
		case <-ticker.C:
			w.check(false)
		case <-ctx.Done():
			return nil
		}
	}
}

// check reloads when the file changed since the last look. It reports
// whether a reload was attempted.
func (w *Watcher) check(prime bool) bool {
	fi, err := os.Stat(w.Path)
	if err != nil {
		// missing file: keep serving what we have
		return false
	}
	mt := fi.ModTime()
	if prime {
		w.lastMTime = mt
		return false
	}
	if !mt.After(w.lastMTime) {
		return false
	}
	w.lastMTime = mt

	t, err := ReadTables(w.Path)
	if err != nil {
		w.logger.Printf("reload failed path=%s err=%v", w.Path, err)
		return true
	}
	if err := w.store.Reload(t); err != nil {
		w.logger.Printf("reload rejected path=%s err=%v", w.Path, err)
		return true
	}
	w.logger.Printf("tables reloaded path=%s version=%d", w.Path, w.store.Version())
	return true
}
