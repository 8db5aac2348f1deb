// Package watch re-runs a check whenever sources or coverage reports under a
// project directory change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a burst of events must settle before a re-run.
const DefaultDebounce = 500 * time.Millisecond

// tick is the interval at which pending events are examined.
const tick = 100 * time.Millisecond

// ChangeFunc is called once per settled burst with the changed paths in
// sorted order. It runs on the watcher goroutine, so calls never overlap.
type ChangeFunc func(ctx context.Context, paths []string)

// Options configures a Watcher.
type Options struct {
	// Root is the project directory.
	Root string
	// Dirs are the directories watched initially. Defaults to Root.
	Dirs []string
	// Relevant filters event paths. Nil accepts everything.
	Relevant func(path string) bool
	// WatchDir decides whether a newly created directory is added.
	// Nil accepts everything.
	WatchDir func(path string) bool
	Debounce time.Duration
	OnChange ChangeFunc
	Logger   *zap.Logger
}

// Stats tracks watcher activity.
type Stats struct {
	FilesCreated  int
	FilesModified int
	FilesDeleted  int
	DirsAdded     int
	Runs          int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
	LastEventType string
}

// Watcher watches a project tree with fsnotify.
type Watcher struct {
	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	opts      Options
	logger    *zap.Logger
	pending   map[string]struct{}
	lastEvent time.Time
	dirs      []string
	stopCh    chan struct{}
	doneCh    chan struct{}
	running   bool
	stats     Stats
}

// New creates a watcher. Nothing is watched until Start.
func New(opts Options) (*Watcher, error) {
	if opts.OnChange == nil {
		return nil, errors.New("watch: OnChange is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if len(opts.Dirs) == 0 {
		opts.Dirs = []string{opts.Root}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher: fw,
		opts:    opts,
		logger:  logger,
		pending: make(map[string]struct{}),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start adds the initial directories and begins watching in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for _, dir := range w.opts.Dirs {
		if err := w.add(dir); err != nil {
			w.logger.Warn("cannot watch directory", zap.String("dir", dir), zap.Error(err))
		}
	}
	w.logger.Info("watching", zap.String("root", w.opts.Root), zap.Int("dirs", len(w.WatchedDirs())))

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the loop to exit. A check that is in
// progress finishes first.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.logger.Error("error closing watcher", zap.Error(err))
	}
	w.logger.Debug("watcher stopped")
}

// Done is closed when the watch loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

// Stats returns a snapshot of the watcher statistics.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// WatchedDirs returns the directories added so far.
func (w *Watcher) WatchedDirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.dirs...)
}

func (w *Watcher) add(dir string) error {
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.mu.Lock()
	w.dirs = append(w.dirs, dir)
	w.mu.Unlock()
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("context cancelled")
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
			w.logger.Error("watcher error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Remove != 0:
		eventType = "delete"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	default:
		return
	}

	if eventType == "create" {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.addTree(event.Name)
			return
		}
	}

	if w.opts.Relevant != nil && !w.opts.Relevant(event.Name) {
		return
	}
	w.logger.Debug("file event", zap.String("type", eventType), zap.String("path", event.Name))

	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	w.stats.LastEventTime = now
	w.stats.LastEventPath = event.Name
	w.stats.LastEventType = eventType
	switch eventType {
	case "create":
		w.stats.FilesCreated++
	case "modify":
		w.stats.FilesModified++
	default:
		w.stats.FilesDeleted++
	}
	w.pending[event.Name] = struct{}{}
	w.lastEvent = now
}

// addTree watches a new directory and any subdirectories created with it.
// Files already inside it are treated as created.
func (w *Watcher) addTree(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if w.opts.WatchDir != nil && !w.opts.WatchDir(path) {
				return filepath.SkipDir
			}
			if err := w.add(path); err != nil {
				w.logger.Warn("cannot watch directory", zap.String("dir", path), zap.Error(err))
				return filepath.SkipDir
			}
			w.mu.Lock()
			w.stats.DirsAdded++
			w.mu.Unlock()
			w.logger.Debug("watching new directory", zap.String("dir", path))
			return nil
		}
		w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Create})
		return nil
	})
}

// flush runs OnChange once every pending event has settled past the
// debounce window.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 || time.Since(w.lastEvent) < w.opts.Debounce {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.stats.Runs++
	w.mu.Unlock()

	sort.Strings(paths)
	w.logger.Debug("changes settled", zap.Strings("paths", paths))
	w.opts.OnChange(ctx, paths)
}
