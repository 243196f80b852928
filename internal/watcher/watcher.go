// Package watcher reloads the served catalog when the refresh pipeline
// swaps the files underneath the server.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// defaultSettleDelay is how long the files must stay quiet before a
	// reload fires. The pipeline renames three artifacts in a burst;
	// the delay folds them into one reload.
	defaultSettleDelay = 500 * time.Millisecond

	// reloadTimeout bounds one reload attempt.
	reloadTimeout = 30 * time.Second
)

// ReloadFunc is called after the watched files settle. Errors are
// logged; the current snapshot stays in service.
type ReloadFunc func(context.Context) error

// Options configures a Watcher.
type Options struct {
	// Paths are the files whose replacement triggers a reload. Their
	// parent directories are watched, so atomic rename-into-place is
	// seen even though the inode changes.
	Paths []string
	// SettleDelay overrides defaultSettleDelay when positive.
	SettleDelay time.Duration
	// Logger for watch diagnostics.
	Logger *slog.Logger
}

// Watcher watches the catalog artifacts and debounces change bursts
// into single reloads.
type Watcher struct {
	watch  map[string]bool
	settle time.Duration
	reload ReloadFunc
	logger *slog.Logger

	fs *fsnotify.Watcher

	mu      sync.Mutex
	changed map[string]bool
	timer   *time.Timer

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a watcher for the given files. Start must be called to
// begin watching.
func New(reload ReloadFunc, opts Options) (*Watcher, error) {
	if reload == nil {
		return nil, errors.New("watcher: reload func is required")
	}
	if len(opts.Paths) == 0 {
		return nil, errors.New("watcher: at least one path is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	settle := opts.SettleDelay
	if settle <= 0 {
		settle = defaultSettleDelay
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		watch:   make(map[string]bool, len(opts.Paths)),
		settle:  settle,
		reload:  reload,
		logger:  logger,
		fs:      fs,
		changed: make(map[string]bool),
		done:    make(chan struct{}),
	}

	dirs := make(map[string]bool)
	for _, path := range opts.Paths {
		path = filepath.Clean(path)
		w.watch[path] = true
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := fs.Add(dir); err != nil {
			fs.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	return w, nil
}

// Start begins processing events. It returns immediately; Stop ends
// the watch.
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
	w.logger.Info("catalog watch started", "files", len(w.watch), "settle", w.settle)
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("catalog watch error", "error", err)
		}
	}
}

// handle filters raw events down to replacements of the watched files.
// A rename into place arrives as Create; a direct rewrite as Write.
func (w *Watcher) handle(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if !w.watch[path] {
		return
	}

	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			w.logger.Warn("watched catalog file disappeared", "path", path)
		}
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.changed[path] = true
	if w.timer == nil {
		w.timer = time.AfterFunc(w.settle, w.fire)
	} else {
		w.timer.Reset(w.settle)
	}
}

// fire runs one reload for everything that changed during the settle
// window.
func (w *Watcher) fire() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.changed))
	for path := range w.changed {
		paths = append(paths, path)
	}
	clear(w.changed)
	w.timer = nil
	w.mu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()

	started := time.Now()
	if err := w.reload(ctx); err != nil {
		w.logger.Error("catalog reload failed, keeping current snapshot",
			"paths", paths,
			"error", err)
		return
	}

	w.logger.Info("catalog reloaded after file change",
		"paths", paths,
		"duration", time.Since(started).Round(time.Millisecond))
}

// Stop ends the watch and waits for in-flight event handling.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)

		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		w.mu.Unlock()

		w.fs.Close()
		w.wg.Wait()
	})
}
