package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// collector gathers emitted events behind a mutex so test goroutines
// can poll for them.
type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) emit(ev Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

// waitFor polls until an event matching match arrives or the deadline
// passes.
func (c *collector) waitFor(t *testing.T, match func(Event) bool) (Event, bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		for _, ev := range c.events {
			if match(ev) {
				c.mu.Unlock()
				return ev, true
			}
		}
		c.mu.Unlock()
		time.Sleep(25 * time.Millisecond)
	}
	return Event{}, false
}

func startWatcher(t *testing.T, root string) (*collector, func()) {
	t.Helper()

	w, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Watch(root); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	col := &collector{}
	go w.Run(ctx, col.emit)

	// Give the event loop time to start
	time.Sleep(100 * time.Millisecond)

	return col, func() {
		cancel()
		w.Close()
	}
}

func TestWatch_TracksDirectoryTree(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "sub", "deeper")
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		t.Fatal(err)
	}

	w, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if err := w.Watch(tmpDir); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if got := w.WatchedDirs(); got != 3 {
		t.Errorf("WatchedDirs() = %d, want 3", got)
	}
}

func TestWatch_RejectsMissingRoot(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if err := w.Watch(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("Watch() should return error for a missing root")
	}
}

func TestWatch_RejectsFileRoot(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if err := w.Watch(file); err == nil {
		t.Error("Watch() should return error for a non-directory root")
	}
}

func TestRun_EmitsCreated(t *testing.T) {
	tmpDir := t.TempDir()
	col, stop := startWatcher(t, tmpDir)
	defer stop()

	file := filepath.Join(tmpDir, "incoming.txt")
	if err := os.WriteFile(file, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	ev, ok := col.waitFor(t, func(ev Event) bool {
		return ev.Path == file && ev.Kind == Created
	})
	if !ok {
		t.Fatal("no Created event observed")
	}
	if ev.IsDir {
		t.Error("file creation flagged as directory")
	}
}

func TestRun_EmitsModified(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "settled.txt")
	if err := os.WriteFile(file, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	col, stop := startWatcher(t, tmpDir)
	defer stop()

	f, err := os.OpenFile(file, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("v2")
	f.Close()

	if _, ok := col.waitFor(t, func(ev Event) bool {
		return ev.Path == file && ev.Kind == Modified
	}); !ok {
		t.Fatal("no Modified event observed")
	}
}

func TestRun_EmitsDeletedForFile(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "doomed.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	col, stop := startWatcher(t, tmpDir)
	defer stop()

	if err := os.Remove(file); err != nil {
		t.Fatal(err)
	}

	ev, ok := col.waitFor(t, func(ev Event) bool {
		return ev.Path == file && ev.Kind == Deleted
	})
	if !ok {
		t.Fatal("no Deleted event observed")
	}
	if ev.IsDir {
		t.Error("file deletion flagged as directory")
	}
}

func TestRun_DeletedDirectoryFlagged(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "doomed-dir")
	if err := os.Mkdir(subDir, 0o755); err != nil {
		t.Fatal(err)
	}

	col, stop := startWatcher(t, tmpDir)
	defer stop()

	if err := os.Remove(subDir); err != nil {
		t.Fatal(err)
	}

	ev, ok := col.waitFor(t, func(ev Event) bool {
		return ev.Path == subDir && ev.Kind == Deleted
	})
	if !ok {
		t.Fatal("no Deleted event observed for directory")
	}
	if !ev.IsDir {
		t.Error("directory deletion not flagged as directory")
	}
}

func TestRun_NewSubdirAutoWatched(t *testing.T) {
	tmpDir := t.TempDir()
	col, stop := startWatcher(t, tmpDir)
	defer stop()

	subDir := filepath.Join(tmpDir, "fresh")
	if err := os.Mkdir(subDir, 0o755); err != nil {
		t.Fatal(err)
	}

	if _, ok := col.waitFor(t, func(ev Event) bool {
		return ev.Path == subDir && ev.Kind == Created && ev.IsDir
	}); !ok {
		t.Fatal("no Created event observed for new directory")
	}

	file := filepath.Join(subDir, "inside.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := col.waitFor(t, func(ev Event) bool {
		return ev.Path == file && ev.Kind == Created
	}); !ok {
		t.Fatal("file inside auto-watched directory produced no event")
	}
}

func TestRun_RenameReadsAsDeleteAndCreate(t *testing.T) {
	tmpDir := t.TempDir()
	oldPath := filepath.Join(tmpDir, "before.txt")
	if err := os.WriteFile(oldPath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	col, stop := startWatcher(t, tmpDir)
	defer stop()

	newPath := filepath.Join(tmpDir, "after.txt")
	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}

	if _, ok := col.waitFor(t, func(ev Event) bool {
		return ev.Path == oldPath && ev.Kind == Deleted
	}); !ok {
		t.Fatal("rename source produced no Deleted event")
	}
	if _, ok := col.waitFor(t, func(ev Event) bool {
		return ev.Path == newPath && ev.Kind == Created
	}); !ok {
		t.Fatal("rename target produced no Created event")
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Created, "created"},
		{Modified, "modified"},
		{Deleted, "deleted"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
