// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package fswatch bridges filesystem notifications into coalesced change
// batches delivered through events.
package fswatch

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/rigflow/cancellation"
	"github.com/jeranaias/rigflow/event"
	"github.com/jeranaias/rigflow/lifecycle"
)

// =============================================================================
// CHANGE MODEL
// =============================================================================

// Kind classifies a filesystem change.
type Kind int

const (
	// Updated covers writes to an existing file and newly created files
	Updated Kind = iota

	// Deleted covers removals and the old name of a rename
	Deleted
)

// String returns the string representation of the change kind.
func (k Kind) String() string {
	if k == Deleted {
		return "deleted"
	}
	return "updated"
}

// Change is one filesystem change observed under the watched root.
type Change struct {
	// Path is the absolute path of the changed file
	Path string

	// Kind classifies the change
	Kind Kind
}

// =============================================================================
// WATCHER
// =============================================================================

// Options configures a Watcher.
type Options struct {
	// Window is how long to coalesce rapid changes before emitting a batch.
	// Zero uses a 100ms default.
	Window time.Duration

	// Ignore, when non-nil, is consulted with each directory's base name;
	// returning true skips the directory and everything under it.
	Ignore func(base string) bool

	// Token stops the watcher when cancellation is requested.
	Token cancellation.Token
}

// Watcher watches a directory tree recursively and emits batches of changes.
// Rapid bursts of notifications (editor save storms, build output) are
// coalesced into a single batch.
type Watcher struct {
	root    string
	fs      *fsnotify.Watcher
	ignore  func(string) bool
	batches *event.Coalescer[Change]
	store   *lifecycle.Store
	done    chan struct{}
	once    sync.Once
}

// New creates a watcher rooted at dir. Call Start to begin watching.
func New(dir string, opts Options) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	window := opts.Window
	if window <= 0 {
		window = 100 * time.Millisecond
	}
	ignore := opts.Ignore
	if ignore == nil {
		ignore = func(string) bool { return false }
	}

	w := &Watcher{
		root:    dir,
		fs:      fs,
		ignore:  ignore,
		batches: event.NewCoalescer[Change](window),
		store:   lifecycle.NewStore(),
		done:    make(chan struct{}),
	}

	if opts.Token != nil {
		opts.Token.OnRequested(func() {
			if err := w.Dispose(); err != nil {
				log.Printf("WARNING: fswatch: teardown after cancellation: %v", err)
			}
		}, w.store)
	}

	return w, nil
}

// OnBatch is the event firing a batch of coalesced changes. Batches preserve
// arrival order and are never empty.
func (w *Watcher) OnBatch() event.Event[[]Change] {
	return w.batches.OnFlush()
}

// Start registers the directory tree and begins delivering batches.
func (w *Watcher) Start() error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// addRecursive adds a directory and all its subdirectories to the watch list.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if !info.IsDir() {
			return nil
		}
		if w.ignore(filepath.Base(path)) && path != w.root {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			// Non-fatal, continue
			return nil
		}
		return nil
	})
}

// loop translates raw fsnotify events into coalesced Change values.
func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("WARNING: fswatch: %v", err)
		}
	}
}

// handle maps one fsnotify event into the batch stream.
func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			// New directories join the watch; they don't appear as changes.
			if ev.Op&fsnotify.Create != 0 {
				w.addRecursive(ev.Name)
			}
			return
		}
		w.batches.Add(Change{Path: ev.Name, Kind: Updated})
	}

	if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.batches.Add(Change{Path: ev.Name, Kind: Deleted})
	}
}

// Dispose stops the watcher, closes the underlying notifier, and disposes
// the batch stream. Idempotent.
func (w *Watcher) Dispose() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
		if derr := w.batches.Dispose(); err == nil {
			err = derr
		}
		if serr := w.store.Dispose(); err == nil {
			err = serr
		}
	})
	return err
}

var _ lifecycle.Disposable = (*Watcher)(nil)
