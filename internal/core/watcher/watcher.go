// Package watcher reports debounced changes to compiler inputs.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"

	"nilscript/internal/shared/observability"
)

type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	debounce   time.Duration
	filter     *Filter
	extra      map[string]bool
	onChange   func([]string)
	callbackMu sync.Mutex

	pending   map[string]struct{}
	pendingMu sync.Mutex
	timer     *time.Timer

	hashes map[string]uint64
	hashMu sync.Mutex
}

// NewWatcher creates a watcher for the inputs accepted by filter. onChange
// receives the sorted paths whose contents changed since the last call.
func NewWatcher(debounce time.Duration, filter *Filter, onChange func([]string)) (*Watcher, error) {
	if onChange == nil || filter == nil {
		return nil, os.ErrInvalid
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		filter:    filter,
		extra:     make(map[string]bool),
		onChange:  onChange,
		pending:   make(map[string]struct{}),
		hashes:    make(map[string]uint64),
	}, nil
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

// AddFiles watches files outside the filter, such as prepended sources.
func (w *Watcher) AddFiles(paths ...string) error {
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		w.pendingMu.Lock()
		w.extra[abs] = true
		w.pendingMu.Unlock()
		if err := w.fsWatcher.Add(filepath.Dir(abs)); err != nil {
			return err
		}
		w.remember(abs)
	}
	return nil
}

// Watch adds the filter root recursively and starts delivering events.
func (w *Watcher) Watch() error {
	if err := w.watchRecursive(w.filter.Root(), true); err != nil {
		return err
	}

	go w.run()
	return nil
}

// watchRecursive adds every directory under root. Only the initial walk
// records hashes; files found in a directory created later are unknown so
// their first flush reports them.
func (w *Watcher) watchRecursive(root string, record bool) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if w.filter.ExcludeDir(path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}

		if record && w.filter.Match(path) {
			w.remember(path)
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.filter.ExcludeDir(event.Name) {
						if err := w.watchRecursive(event.Name, false); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						} else {
							w.enqueueExistingFiles(event.Name)
						}
					}
					continue
				}
			}

			if !w.wanted(event.Name) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) wanted(path string) bool {
	if abs, err := filepath.Abs(path); err == nil {
		w.pendingMu.Lock()
		extra := w.extra[abs]
		w.pendingMu.Unlock()
		if extra {
			return true
		}
	}
	return w.filter.Match(path)
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = struct{}{}

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.flushChanges()
	})
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		if w.changed(path) {
			paths = append(paths, path)
		}
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(paths) > 0 {
		sort.Strings(paths)
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onChange(paths)
	}
}

// remember records the current content hash of path.
func (w *Watcher) remember(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	w.hashMu.Lock()
	w.hashes[path] = xxhash.Sum64(data)
	w.hashMu.Unlock()
}

// changed reports whether path's contents differ from the last recorded
// hash, and records the new state. Removing a known file is a change.
func (w *Watcher) changed(path string) bool {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()

	prev, known := w.hashes[path]
	data, err := os.ReadFile(path)
	if err != nil {
		delete(w.hashes, path)
		return known
	}
	sum := xxhash.Sum64(data)
	w.hashes[path] = sum
	return !known || prev != sum
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}

func (w *Watcher) enqueueExistingFiles(root string) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if !w.filter.Match(path) {
			return nil
		}
		w.scheduleChange(path)
		return nil
	})
}
