// Package watcher provides recursive filesystem watching for the
// monitored tree. It translates raw fsnotify operations into typed
// lifecycle events and keeps watches registered as directories come
// and go.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/logging"
)

// Kind classifies a filesystem lifecycle event.
type Kind int

const (
	Created Kind = iota
	Modified
	Deleted
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Event is one observed filesystem change. IsDir is derived from a
// stat for live paths and from the watch registry for deleted ones,
// since a removed path can no longer be inspected.
type Event struct {
	Path  string
	Kind  Kind
	IsDir bool
}

// Watcher watches a directory tree for filesystem changes.
type Watcher struct {
	watcher *fsnotify.Watcher
	paths   map[string]bool
	mu      sync.RWMutex
	closed  bool
}

// New creates a new Watcher.
func New() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher: fsw,
		paths:   make(map[string]bool),
	}, nil
}

// Watch starts watching a directory tree rooted at root.
// Watches are registered on the root and every subdirectory.
// Symlinks are not followed to avoid loops.
func (w *Watcher) Watch(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	info, err := os.Lstat(absRoot)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("watch path is not a directory: %s", absRoot)
	}

	return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Skip entries with errors
		}

		// Skip symlinks to avoid loops
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if d.IsDir() {
			return w.addWatch(path)
		}

		return nil
	})
}

// addWatch adds a single directory to the watch list.
func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	if w.paths[path] {
		return nil
	}

	if err := w.watcher.Add(path); err != nil {
		logging.Get("watcher").Warn("failed to add watch", "path", path, "error", err)
		return err
	}

	w.paths[path] = true
	return nil
}

// WatchedDirs returns the number of directories currently watched.
func (w *Watcher) WatchedDirs() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.paths)
}

// Run starts the event loop. It blocks until the context is cancelled
// or the watcher is closed. Each translated event is passed to emit.
func (w *Watcher) Run(ctx context.Context, emit func(Event)) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event, emit)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get("watcher").Error("watcher error", "error", err)
		}
	}
}

// handleEvent translates a single fsnotify event. Chmod-only events
// carry no content change and are dropped.
func (w *Watcher) handleEvent(event fsnotify.Event, emit func(Event)) {
	switch {
	case event.Op&fsnotify.Create != 0:
		w.handleCreate(event.Name, emit)
	case event.Op&fsnotify.Write != 0:
		w.handleWrite(event.Name, emit)
	case event.Op&fsnotify.Remove != 0:
		w.handleRemove(event.Name, emit)
	case event.Op&fsnotify.Rename != 0:
		// A rename away reads as a remove; the new name arrives as its
		// own create event.
		w.handleRemove(event.Name, emit)
	}
}

// handleCreate handles file and directory creation events. A created
// directory is watched immediately, and anything already inside it is
// surfaced as created, covering trees moved in wholesale.
func (w *Watcher) handleCreate(path string, emit func(Event)) {
	info, err := os.Lstat(path)
	if err != nil {
		return // Gone again already
	}

	// Skip symlinks
	if info.Mode()&fs.ModeSymlink != 0 {
		return
	}

	if !info.IsDir() {
		emit(Event{Path: path, Kind: Created})
		return
	}

	_ = w.addWatch(path)
	emit(Event{Path: path, Kind: Created, IsDir: true})

	_ = filepath.WalkDir(path, func(subpath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Skip entries with errors
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if subpath == path {
			return nil
		}
		if d.IsDir() {
			_ = w.addWatch(subpath)
			return nil
		}
		emit(Event{Path: subpath, Kind: Created})
		return nil
	})
}

// handleWrite handles file modification events.
func (w *Watcher) handleWrite(path string, emit func(Event)) {
	info, err := os.Stat(path)
	if err != nil {
		return // Deleted between event and stat
	}

	emit(Event{Path: path, Kind: Modified, IsDir: info.IsDir()})
}

// handleRemove handles file and directory deletion events. The watch
// registry decides whether the departed path was a directory.
func (w *Watcher) handleRemove(path string, emit func(Event)) {
	w.mu.Lock()
	wasDir := w.paths[path]
	if wasDir {
		_ = w.watcher.Remove(path)
		delete(w.paths, path)
	}
	for childPath := range w.paths {
		if isSubPath(childPath, path) {
			_ = w.watcher.Remove(childPath)
			delete(w.paths, childPath)
		}
	}
	w.mu.Unlock()

	emit(Event{Path: path, Kind: Deleted, IsDir: wasDir})
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	w.paths = make(map[string]bool)
	return w.watcher.Close()
}

// isSubPath checks if path is under parent directory.
func isSubPath(path, parent string) bool {
	return len(path) > len(parent) && path[:len(parent)+1] == parent+string(filepath.Separator)
}
