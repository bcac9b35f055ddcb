package discovery

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/systemshift/bus/pkg/diag"
)

// DefaultDebounce is how long a file must stay quiet before it is loaded
const DefaultDebounce = 250 * time.Millisecond

// Watcher loads module files as they are created in a set of directories.
// A file is loaded once it has seen no events for the debounce period, so a
// module still being copied in is not opened half written.
type Watcher struct {
	loader   Loader
	guard    sync.Locker
	watcher  *fsnotify.Watcher
	observe  Observer
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]time.Time
}

// WatcherOption configures a Watcher
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a file is loaded
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithObserver sets the function told about every load attempt
func WithObserver(o Observer) WatcherOption {
	return func(w *Watcher) {
		w.observe = o
	}
}

// NewWatcher watches dirs. Loads are made while holding guard, which must
// also be held by anything else touching the loader.
func NewWatcher(l Loader, guard sync.Locker, dirs []string, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, diag.Wrap(err, diag.Internal, reportModule, "failed to create watcher")
	}

	w := &Watcher{
		loader:   l,
		guard:    guard,
		watcher:  fw,
		debounce: DefaultDebounce,
		pending:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, diag.Wrap(err, diag.LoadFailure, reportModule, "failed to watch %s", dir)
		}
	}
	return w, nil
}

// Dirs returns the watched directories
func (w *Watcher) Dirs() []string {
	return w.watcher.WatchList()
}

// Run handles events until ctx is done or the watcher is closed
func (w *Watcher) Run(ctx context.Context) error {
	tick := w.debounce / 2
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.loader.Reporter().Reportf(diag.LevelWarning, reportModule, "watcher error: %v", err)

		case <-ticker.C:
			w.flush()
		}
	}
}

// Close stops watching. Run returns once it notices.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	w.guard.Lock()
	exts := extensionSet(w.loader.Extensions())
	w.guard.Unlock()
	if !exts[filepath.Ext(event.Name)] {
		return
	}

	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	now := time.Now()
	var ready []string

	w.mu.Lock()
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		w.guard.Lock()
		// failures are already reported
		_ = load(w.loader, path, w.observe)
		w.guard.Unlock()
	}
}
