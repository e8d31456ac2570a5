// Package watcher reports saved content of watched files, coalescing the
// bursts of events editors produce for a single save.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/tokenwatt/internal/log"
)

// Change is the content of a watched file after a save.
type Change struct {
	Path string
	Text string
}

// Config holds watcher configuration options.
type Config struct {
	Paths       []string
	DebounceDur time.Duration
}

// DefaultConfig returns defaults for watching paths.
func DefaultConfig(paths ...string) Config {
	return Config{
		Paths:       paths,
		DebounceDur: 100 * time.Millisecond,
	}
}

// Watcher monitors a set of files and emits their content after each save.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	paths     map[string]struct{}
	debounce  time.Duration
	out       chan Change
	fired     chan string
	done      chan struct{}
	stopOnce  sync.Once
}

// New creates a watcher for cfg.Paths. Paths are made absolute.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Paths) == 0 {
		return nil, fmt.Errorf("no paths to watch")
	}
	paths := make(map[string]struct{}, len(cfg.Paths))
	for _, p := range cfg.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", p, err)
		}
		paths[abs] = struct{}{}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsWatcher: fsw,
		paths:     paths,
		debounce:  cfg.DebounceDur,
		out:       make(chan Change, 16),
		fired:     make(chan string, len(paths)),
		done:      make(chan struct{}),
	}, nil
}

// Paths returns the absolute watched paths.
func (w *Watcher) Paths() []string {
	out := make([]string, 0, len(w.paths))
	for p := range w.paths {
		out = append(out, p)
	}
	return out
}

// Start watches the parent directory of every path, so files replaced by
// rename-on-save keep being observed.
func (w *Watcher) Start() (<-chan Change, error) {
	dirs := make(map[string]struct{})
	for p := range w.paths {
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			return nil, fmt.Errorf("watching directory %s: %w", dir, err)
		}
	}

	go w.loop()
	return w.out, nil
}

// Stop terminates the watcher. Safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
	})
	return err
}

func (w *Watcher) loop() {
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			path := filepath.Clean(event.Name)
			if !w.isRelevantEvent(path, event) {
				continue
			}

			if t, ok := timers[path]; ok {
				t.Reset(w.debounce)
				continue
			}
			timers[path] = time.AfterFunc(w.debounce, func() {
				select {
				case w.fired <- path:
				case <-w.done:
				}
			})

		case path := <-w.fired:
			delete(timers, path)
			data, err := os.ReadFile(path)
			if err != nil {
				log.Warn(log.CatWatcher, "Failed to read changed file", "path", path, "error", err)
				continue
			}
			select {
			case w.out <- Change{Path: path, Text: string(data)}:
			case <-w.done:
				return
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn(log.CatWatcher, "Watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) isRelevantEvent(path string, event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	_, ok := w.paths[path]
	return ok
}
