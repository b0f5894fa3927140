package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestWatcher(t *testing.T, root string, debounce time.Duration, exclude []string) (*Watcher, chan []string) {
	t.Helper()
	filter, err := NewFilter(root, []string{"**.ns"}, exclude)
	if err != nil {
		t.Fatal(err)
	}
	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(debounce, filter, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = w.Close() })
	if err := w.Watch(); err != nil {
		t.Fatal(err)
	}
	return w, changedFiles
}

func waitFor(t *testing.T, changedFiles chan []string, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case paths := <-changedFiles:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for change to %s", want)
		}
	}
}

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	filter, err := NewFilter(t.TempDir(), []string{"**.ns"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(100*time.Millisecond, filter, nil)
	if err == nil {
		t.Fatal("expected error for nil callback")
	}
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, "vendor"), 0o755); err != nil {
		t.Fatal(err)
	}
	_, changedFiles := newTestWatcher(t, tmpDir, 100*time.Millisecond, []string{"vendor/**", "**.skip.ns"})

	testFile := filepath.Join(tmpDir, "main.ns")
	if err := os.WriteFile(testFile, []byte("let a = 1;"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, testFile, 2*time.Second)

	// Excluded and unrelated files stay silent.
	for _, name := range []string{"notes.txt", "gen.skip.ns", filepath.Join("vendor", "lib.ns")} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	select {
	case paths := <-changedFiles:
		t.Errorf("excluded file triggered event: %v", paths)
	case <-time.After(500 * time.Millisecond):
	}

	// New directory should be recursively watched after create.
	subdir := filepath.Join(tmpDir, "newdir")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	subFile := filepath.Join(subdir, "nested.ns")
	if err := os.WriteFile(subFile, []byte("let b = 2;"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, subFile, 2*time.Second)
}

func TestWatcher_RenameTriggersChange(t *testing.T) {
	tmpDir := t.TempDir()
	_, changedFiles := newTestWatcher(t, tmpDir, 100*time.Millisecond, nil)

	oldPath := filepath.Join(tmpDir, "old.ns")
	newPath := filepath.Join(tmpDir, "new.ns")
	if err := os.WriteFile(oldPath, []byte("let a = 1;"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, newPath, 2*time.Second)
}

func TestWatcher_ExtraFiles(t *testing.T) {
	tmpDir := t.TempDir()
	outside := t.TempDir()
	header := filepath.Join(outside, "header.js")
	if err := os.WriteFile(header, []byte("// v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, changedFiles := newTestWatcher(t, tmpDir, 50*time.Millisecond, nil)
	if err := w.AddFiles(header); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(header, []byte("// v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, header, 2*time.Second)
}

func TestWatcher_MovedInDirectoryReportsItsFiles(t *testing.T) {
	tmpDir := t.TempDir()
	staging := t.TempDir()
	if err := os.WriteFile(filepath.Join(staging, "moved.ns"), []byte("let c = 3;"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, changedFiles := newTestWatcher(t, tmpDir, 50*time.Millisecond, nil)

	target := filepath.Join(tmpDir, "pkg")
	if err := os.Rename(staging, target); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, filepath.Join(target, "moved.ns"), 2*time.Second)
}

func TestWatcher_LateDirectoryWalkLeavesFilesUnknown(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "late", "a.ns")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("let a = 1;"), 0o644); err != nil {
		t.Fatal(err)
	}
	filter, err := NewFilter(tmpDir, []string{"**.ns"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(time.Millisecond, filter, func([]string) {})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = w.Close() })

	if err := w.watchRecursive(filepath.Dir(path), false); err != nil {
		t.Fatal(err)
	}
	if !w.changed(path) {
		t.Fatal("expected a file found in a new directory to count as changed")
	}
	if w.changed(path) {
		t.Fatal("expected the second check to see the recorded hash")
	}
}
