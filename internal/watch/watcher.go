// Package watch re-reads a requirement file whenever it is saved.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sdlcpilot/internal/logging"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must be quiet before a change is delivered.
const DefaultDebounce = 300 * time.Millisecond

// ChangeFunc receives the file's content after each settled change.
type ChangeFunc func(ctx context.Context, content string)

// Stats counts watcher activity.
type Stats struct {
	Events    int
	Delivered int
	Errors    int
	LastEvent time.Time
}

// RequirementWatcher watches a single file. Editors often replace a file
// rather than write it in place, so the parent directory is watched and
// events are filtered by name.
type RequirementWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	path        string
	onChange    ChangeFunc
	debounceDur time.Duration
	pendingAt   time.Time // zero when nothing is pending
	lastContent string
	delivered   bool
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats Stats
}

// Option configures a RequirementWatcher.
type Option func(*RequirementWatcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *RequirementWatcher) {
		if d > 0 {
			w.debounceDur = d
		}
	}
}

// New creates a watcher for path. Call Start to begin watching.
func New(path string, onChange ChangeFunc, opts ...Option) (*RequirementWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	w := &RequirementWatcher{
		watcher:     fw,
		path:        abs,
		onChange:    onChange,
		debounceDur: DefaultDebounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the absolute path being watched.
func (w *RequirementWatcher) Path() string { return w.path }

// Start begins watching in the background. It returns once the watch is
// registered.
func (w *RequirementWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	if data, err := os.ReadFile(w.path); err == nil {
		w.lastContent = string(data)
		w.delivered = true
	}

	w.mu.Lock()
	w.running = true
	w.mu.Unlock()

	logging.Watch("Watching requirement file %s", w.path)
	go w.run(ctx)
	return nil
}

// Stop stops watching and waits for the background goroutine to exit. It is
// safe to call more than once and before Start.
func (w *RequirementWatcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("Error closing watcher: %v", err)
	}
}

// Stats returns a copy of the watcher's counters.
func (w *RequirementWatcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *RequirementWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounceDur / 3
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.WatchDebug("Watcher context cancelled")
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Error("Watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *RequirementWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	logging.WatchDebug("%s event for %s", event.Op, event.Name)

	w.mu.Lock()
	w.stats.Events++
	w.stats.LastEvent = time.Now()
	w.pendingAt = time.Now()
	w.mu.Unlock()
}

// flush delivers a pending change once the file has been quiet for the
// debounce window. Unchanged content is not delivered again.
func (w *RequirementWatcher) flush(ctx context.Context) {
	w.mu.Lock()
	if w.pendingAt.IsZero() || time.Since(w.pendingAt) < w.debounceDur {
		w.mu.Unlock()
		return
	}
	w.pendingAt = time.Time{}
	w.mu.Unlock()

	data, err := os.ReadFile(w.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Get(logging.CategoryWatch).Warn("Failed to read %s: %v", w.path, err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		}
		return
	}

	content := string(data)
	if w.delivered && content == w.lastContent {
		logging.WatchDebug("Content of %s unchanged, skipping", w.path)
		return
	}
	w.lastContent = content
	w.delivered = true

	w.mu.Lock()
	w.stats.Delivered++
	w.mu.Unlock()

	logging.Watch("Requirement file changed (%d bytes)", len(content))
	if w.onChange != nil {
		w.onChange(ctx, content)
	}
}
