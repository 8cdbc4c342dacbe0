package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/H1Skaak/g3/internal/log"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher reloads a Store when its configuration file changes. A snapshot
// that fails to convert is logged and dropped; the Store keeps the old one.
type Watcher struct {
	// mu serializes reloads so each diff is taken against the generation
	// it replaced.
	mu       sync.Mutex
	provider *FSProvider
	store    *Store
	debounce time.Duration
	onReload func(old, next *Config)
}

// WatcherOpt configures a Watcher.
type WatcherOpt func(*Watcher)

// WithReloadHook calls fn after every successful swap.
func WithReloadHook(fn func(old, next *Config)) WatcherOpt {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// WithDebounce sets how long the file has to be quiet before a reload.
func WithDebounce(d time.Duration) WatcherOpt {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher returns a Watcher loading through p into store.
func NewWatcher(p *FSProvider, store *Store, opts ...WatcherOpt) *Watcher {
	w := &Watcher{
		provider: p,
		store:    store,
		debounce: defaultDebounce,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Reload loads the file once and swaps the Store on success. It is safe to
// call while Run is watching, e.g. from a SIGHUP handler.
func (w *Watcher) Reload() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	next, err := w.provider.Load()
	if err != nil {
		log.Error("configuration reload failed, keeping current", "path", w.provider.Path(), "error", err)
		return err
	}

	old := w.store.Swap(next)
	diffs, removed := DiffServers(old, next)
	for _, d := range diffs {
		log.Info("server reload", "server", d.Name, "action", d.Action.String(), "generation", next.Generation.String())
	}
	for _, name := range removed {
		log.Info("server removed", "server", name, "generation", next.Generation.String())
	}
	if w.onReload != nil {
		w.onReload(old, next)
	}
	return nil
}

// Run watches the directory of the configuration file until ctx is done.
// Editors often replace files by rename, so the directory is watched rather
// than the file itself.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	path := filepath.Clean(w.provider.Path())
	if err := fw.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}
	log.Info("watching configuration", "path", path)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("file watcher error", "error", err)
		case <-timer.C:
			_ = w.Reload()
		}
	}
}
