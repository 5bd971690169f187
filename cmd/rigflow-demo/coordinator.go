// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rigflow/async"
	"github.com/jeranaias/rigflow/bridge/fswatch"
	"github.com/jeranaias/rigflow/cancellation"
	"github.com/jeranaias/rigflow/event"
	"github.com/jeranaias/rigflow/lifecycle"
	"github.com/jeranaias/rigflow/track"
)

// =============================================================================
// MESSAGES
// =============================================================================

// buildDoneMsg reports the outcome of a simulated rebuild.
type buildDoneMsg struct {
	output string
	err    error
}

// watchBatchMsg carries a coalesced batch of file changes.
type watchBatchMsg []fswatch.Change

// trackMsg carries a build-tracker state change.
type trackMsg track.Notification

// =============================================================================
// COORDINATOR
// =============================================================================

// Coordinator wires the demo's primitives together: keystrokes flow through a
// debounce into a throttler that runs at most one simulated rebuild at a time,
// keeping only the newest pending request. Build state is published through a
// tracker and file changes arrive as coalesced batches.
type Coordinator struct {
	cfg  *Config
	send func(tea.Msg)

	input     *event.Emitter[string]
	throttler *async.Throttler[string]
	tracker   *track.Tracker
	watcher   *fswatch.Watcher
	store     *lifecycle.Store

	mu      sync.Mutex
	lastFut *async.Future[string]
	active  *track.Entry
}

// NewCoordinator builds and wires a coordinator. send delivers messages into
// the running bubbletea program and must be safe to call from any goroutine.
func NewCoordinator(cfg *Config, send func(tea.Msg)) (*Coordinator, error) {
	c := &Coordinator{
		cfg:       cfg,
		send:      send,
		input:     event.NewEmitter[string](),
		throttler: async.NewThrottler[string](),
		tracker:   track.NewTracker(cfg.HistoryLimit),
		store:     lifecycle.NewStore(),
	}
	lifecycle.Track(c.store, c.input)
	lifecycle.Track(c.store, c.throttler)
	lifecycle.Track(c.store, c.tracker)

	// Keystrokes settle for the debounce window before a rebuild is queued;
	// only the final text of a burst survives.
	debounced := event.Debounce(c.input.Event(),
		func(_ string, v string) string { return v },
		event.DebounceOptions{Delay: cfg.Debounce()})
	debounced(c.requestBuild, c.store)

	c.tracker.OnChange()(func(n track.Notification) {
		c.send(trackMsg(n))
	}, c.store)

	if cfg.WatchDir != "" {
		w, err := fswatch.New(cfg.WatchDir, fswatch.Options{
			Window: cfg.WatchWindow(),
		})
		if err != nil {
			c.store.Dispose()
			return nil, fmt.Errorf("watch %s: %w", cfg.WatchDir, err)
		}
		c.watcher = lifecycle.Track(c.store, w)
		w.OnBatch()(func(batch []fswatch.Change) {
			c.send(watchBatchMsg(batch))
		}, c.store)
		if err := w.Start(); err != nil {
			c.store.Dispose()
			return nil, fmt.Errorf("watch %s: %w", cfg.WatchDir, err)
		}
	}

	return c, nil
}

// Type feeds one edited text state into the debounce.
func (c *Coordinator) Type(text string) {
	c.input.Fire(text)
}

// CancelBuild requests cancellation of the build currently running, if any.
func (c *Coordinator) CancelBuild() {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()

	if active != nil {
		c.tracker.Cancel(active.ID)
	}
}

// requestBuild queues a rebuild for the settled text. While a build runs,
// newer requests replace any still-pending one; every superseded caller
// shares the eventual result of the newest request.
func (c *Coordinator) requestBuild(query string) {
	fut := c.throttler.Queue(func(tok cancellation.Token) (string, error) {
		return c.runBuild(query, tok)
	})

	c.mu.Lock()
	if fut == c.lastFut {
		// Replaced a still-pending request; an awaiter already exists.
		c.mu.Unlock()
		return
	}
	c.lastFut = fut
	c.mu.Unlock()

	go func() {
		out, err := fut.Await(context.Background())
		c.send(buildDoneMsg{output: out, err: err})
	}()
}

// runBuild simulates a compile: it burns the configured build time in small
// slices, bailing out when either the throttler's lifetime token or the
// build's own tracker entry is cancelled.
func (c *Coordinator) runBuild(query string, tok cancellation.Token) (string, error) {
	entry := c.tracker.Register(query)
	if err := c.tracker.Begin(entry.ID); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.active = entry
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if c.active == entry {
			c.active = nil
		}
		c.mu.Unlock()
	}()

	const slice = 50 * time.Millisecond
	deadline := time.Now().Add(c.cfg.Build())
	for time.Now().Before(deadline) {
		if tok.Requested() || entry.Token().Requested() {
			// The tracker entry may already be cancelled (Esc); otherwise
			// record the cancellation ourselves.
			c.tracker.Cancel(entry.ID)
			return "", fmt.Errorf("build %q: %w", query, cancellation.ErrCancelled)
		}
		time.Sleep(slice)
	}

	out := fmt.Sprintf("built %q in %s", query, c.cfg.Build())
	if err := c.tracker.Complete(entry.ID); err != nil {
		return "", err
	}
	return out, nil
}

// Summary returns the tracker's one-line state summary.
func (c *Coordinator) Summary() string {
	return c.tracker.Summary()
}

// Dispose tears down everything the coordinator owns.
func (c *Coordinator) Dispose() error {
	if err := c.store.Dispose(); err != nil {
		log.Printf("WARNING: demo: coordinator teardown: %v", err)
		return err
	}
	return nil
}
