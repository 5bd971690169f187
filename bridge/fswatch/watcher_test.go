// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package fswatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jeranaias/rigflow/cancellation"
)

// collectBatches subscribes to the watcher and forwards batches on a channel.
func collectBatches(w *Watcher) <-chan []Change {
	ch := make(chan []Change, 16)
	w.OnBatch()(func(batch []Change) {
		// Copy: the emitter may reuse nothing, but callers shouldn't rely on it.
		cp := make([]Change, len(batch))
		copy(cp, batch)
		ch <- cp
	})
	return ch
}

// waitForPath waits until some batch mentions path with the given kind.
func waitForPath(t *testing.T, ch <-chan []Change, path string, kind Kind) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case batch := <-ch:
			if len(batch) == 0 {
				t.Fatal("Watcher emitted an empty batch")
			}
			for _, c := range batch {
				if c.Path == path && c.Kind == kind {
					return
				}
			}
		case <-deadline:
			t.Fatalf("No batch mentioned %s (%s) in time", path, kind)
		}
	}
}

func TestWatcherEmitsUpdateBatches(t *testing.T) {
	dir := t.TempDir()

	w, err := New(dir, Options{Window: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Dispose()

	ch := collectBatches(w)
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	file := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(file, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitForPath(t, ch, file, Updated)
}

func TestWatcherCoalescesBurstIntoOneBatch(t *testing.T) {
	dir := t.TempDir()

	w, err := New(dir, Options{Window: 150 * time.Millisecond})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Dispose()

	ch := collectBatches(w)
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// A save storm: several files written close together.
	files := make([]string, 3)
	for i := range files {
		files[i] = filepath.Join(dir, string(rune('a'+i))+".txt")
		if err := os.WriteFile(files[i], []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case batch := <-ch:
		seen := make(map[string]bool)
		for _, c := range batch {
			seen[c.Path] = true
		}
		for _, f := range files {
			if !seen[f] {
				t.Errorf("Burst batch missing %s", f)
			}
		}
	case <-time.After(3 * time.Second):
		t.Fatal("No batch arrived for the burst")
	}
}

func TestWatcherReportsDeletes(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "doomed.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New(dir, Options{Window: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Dispose()

	ch := collectBatches(w)
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := os.Remove(file); err != nil {
		t.Fatal(err)
	}

	waitForPath(t, ch, file, Deleted)
}

func TestWatcherPicksUpNewDirectories(t *testing.T) {
	dir := t.TempDir()

	w, err := New(dir, Options{Window: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Dispose()

	ch := collectBatches(w)
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	// Give the watcher a moment to register the new directory.
	time.Sleep(300 * time.Millisecond)

	file := filepath.Join(sub, "inner.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitForPath(t, ch, file, Updated)
}

func TestWatcherIgnoresFilteredDirectories(t *testing.T) {
	dir := t.TempDir()
	skipped := filepath.Join(dir, "node_modules")
	if err := os.Mkdir(skipped, 0o755); err != nil {
		t.Fatal(err)
	}

	w, err := New(dir, Options{
		Window: 50 * time.Millisecond,
		Ignore: func(base string) bool { return base == "node_modules" },
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Dispose()

	ch := collectBatches(w)
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	inside := filepath.Join(skipped, "dep.js")
	if err := os.WriteFile(inside, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case batch := <-ch:
		for _, c := range batch {
			if c.Path == inside {
				t.Errorf("Change inside ignored directory was reported: %v", c)
			}
		}
	case <-time.After(400 * time.Millisecond):
		// No batch at all: the ignore filter worked.
	}
}

func TestWatcherStopsOnCancellation(t *testing.T) {
	dir := t.TempDir()
	src := cancellation.NewSource()

	w, err := New(dir, Options{
		Window: 50 * time.Millisecond,
		Token:  src.Token(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ch := collectBatches(w)
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	src.Cancel()
	time.Sleep(100 * time.Millisecond)

	// Changes after cancellation must not produce batches.
	file := filepath.Join(dir, "late.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case batch := <-ch:
		t.Errorf("Batch arrived after cancellation: %v", batch)
	case <-time.After(300 * time.Millisecond):
	}

	// Dispose after cancellation-driven teardown is a no-op.
	if err := w.Dispose(); err != nil {
		t.Errorf("Second Dispose returned %v", err)
	}
}
