package watch

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func startWatcher(t *testing.T, root string) *Watcher {
	t.Helper()
	w, err := New(75*time.Millisecond, GoFiles)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.AddRecursive(root); err != nil {
		t.Fatalf("AddRecursive: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	t.Cleanup(func() {
		cancel()
		w.Close()
	})
	return w
}

func nextBatch(t *testing.T, w *Watcher, timeout time.Duration) []string {
	t.Helper()
	select {
	case batch := <-w.Batches():
		return batch
	case <-time.After(timeout):
		t.Fatalf("no batch within %v", timeout)
		return nil
	}
}

func write(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("package x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestBurstCoalescesIntoOneBatch(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root)

	a := filepath.Join(root, "a.go")
	b := filepath.Join(root, "b.go")
	write(t, a)
	write(t, b)
	write(t, filepath.Join(root, "notes.txt"))

	batch := nextBatch(t, w, 3*time.Second)
	for _, want := range []string{a, b} {
		if !slices.Contains(batch, want) {
			t.Errorf("batch %v missing %s", batch, want)
		}
	}
	for _, p := range batch {
		if filepath.Ext(p) != ".go" {
			t.Errorf("filtered path %s leaked into batch", p)
		}
	}
	if !slices.IsSorted(batch) {
		t.Errorf("batch %v is not sorted", batch)
	}

	// The burst was folded; nothing further is pending.
	select {
	case extra := <-w.Batches():
		t.Errorf("unexpected second batch %v", extra)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSeparateBurstsDeliverSeparateBatches(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root)

	first := filepath.Join(root, "first.go")
	write(t, first)
	if batch := nextBatch(t, w, 3*time.Second); !slices.Contains(batch, first) {
		t.Fatalf("first batch %v missing %s", batch, first)
	}

	second := filepath.Join(root, "second.go")
	write(t, second)
	if batch := nextBatch(t, w, 3*time.Second); !slices.Contains(batch, second) {
		t.Fatalf("second batch %v missing %s", batch, second)
	}
}

func TestNewDirectoryJoinsWatch(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root)

	sub := filepath.Join(root, "widgets")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the run loop a moment to pick up the directory create event.
	time.Sleep(250 * time.Millisecond)

	inner := filepath.Join(sub, "list.go")
	write(t, inner)
	if batch := nextBatch(t, w, 3*time.Second); !slices.Contains(batch, inner) {
		t.Fatalf("batch %v missing file from new directory %s", batch, inner)
	}
}

func TestSkippedDirectoriesStayQuiet(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"vendor", ".git", "_build"} {
		if err := os.Mkdir(filepath.Join(root, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	w := startWatcher(t, root)

	write(t, filepath.Join(root, "vendor", "dep.go"))
	write(t, filepath.Join(root, ".git", "hook.go"))
	write(t, filepath.Join(root, "_build", "gen.go"))

	select {
	case batch := <-w.Batches():
		t.Errorf("skipped directories produced batch %v", batch)
	case <-time.After(300 * time.Millisecond):
	}
}
