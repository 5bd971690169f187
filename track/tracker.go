// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package track

import (
	"fmt"
	"sync"

	"github.com/jeranaias/rigflow/event"
	"github.com/jeranaias/rigflow/lifecycle"
)

// =============================================================================
// TRACKER
// =============================================================================

// Tracker maintains the set of tracked operations and publishes state-change
// notifications through an event. History of finished entries is pruned to a
// configurable cap so long-running processes don't accumulate unbounded state.
type Tracker struct {
	// entries holds every tracked entry, finished ones included
	entries []*Entry

	// running indexes currently running entries by ID
	running map[string]*Entry

	// maxHistory caps the number of finished entries retained (0 = unlimited)
	maxHistory int

	// mu protects concurrent access to the tracker
	mu sync.RWMutex

	// emitter publishes Notification values on every state change
	emitter *event.Emitter[Notification]
}

// Notification describes an entry state change as published by the tracker.
type Notification struct {
	ID          string
	Description string
	Status      Status
	Error       string
}

// NewTracker creates a tracker keeping at most maxHistory finished entries
// (0 = unlimited).
func NewTracker(maxHistory int) *Tracker {
	return &Tracker{
		entries:    make([]*Entry, 0),
		running:    make(map[string]*Entry),
		maxHistory: maxHistory,
		emitter:    event.NewEmitter[Notification](),
	}
}

// OnChange is the event that fires a Notification on every entry state change.
func (tr *Tracker) OnChange() event.Event[Notification] {
	return tr.emitter.Event()
}

// =============================================================================
// ENTRY MANAGEMENT
// =============================================================================

// Register adds a new queued entry and returns it.
func (tr *Tracker) Register(description string) *Entry {
	e := NewEntry(description)
	tr.mu.Lock()
	tr.entries = append(tr.entries, e)
	tr.mu.Unlock()

	tr.publish(e)
	return e
}

// Begin marks an entry as running. Returns an error if the entry is unknown
// or cannot move to the running state.
func (tr *Tracker) Begin(id string) error {
	tr.mu.Lock()
	e := tr.findLocked(id)
	if e == nil {
		tr.mu.Unlock()
		return fmt.Errorf("unknown entry %q", id)
	}
	if err := e.SetStatus(StatusRunning); err != nil {
		tr.mu.Unlock()
		return err
	}
	tr.running[e.ID] = e
	tr.mu.Unlock()

	tr.publish(e)
	return nil
}

// Complete marks a running entry as successfully finished.
func (tr *Tracker) Complete(id string) error {
	return tr.finish(id, func(e *Entry) error {
		return e.SetStatus(StatusComplete)
	})
}

// Fail marks a running entry as failed with the given error.
func (tr *Tracker) Fail(id string, err error) error {
	return tr.finish(id, func(e *Entry) error {
		e.Fail(err)
		return nil
	})
}

// Cancel requests cancellation of an entry. Returns true when the entry was
// live and has been cancelled.
func (tr *Tracker) Cancel(id string) bool {
	tr.mu.Lock()
	e := tr.findLocked(id)
	if e == nil {
		tr.mu.Unlock()
		return false
	}
	delete(tr.running, id)
	tr.pruneLocked()
	tr.mu.Unlock()

	if !e.Cancel() {
		return false
	}
	tr.publish(e)
	return true
}

// finish applies a terminal transition and prunes history.
func (tr *Tracker) finish(id string, apply func(*Entry) error) error {
	tr.mu.Lock()
	e := tr.findLocked(id)
	if e == nil {
		tr.mu.Unlock()
		return fmt.Errorf("unknown entry %q", id)
	}
	if err := apply(e); err != nil {
		tr.mu.Unlock()
		return err
	}
	delete(tr.running, id)
	tr.pruneLocked()
	tr.mu.Unlock()

	tr.publish(e)
	return nil
}

// findLocked locates an entry by ID (lock held).
func (tr *Tracker) findLocked(id string) *Entry {
	for _, e := range tr.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// publish fires a notification outside the tracker lock.
func (tr *Tracker) publish(e *Entry) {
	snap := e.Snapshot()
	tr.emitter.Fire(Notification{
		ID:          snap.ID,
		Description: snap.Description,
		Status:      snap.Status,
		Error:       snap.Error,
	})
}

// =============================================================================
// QUERIES
// =============================================================================

// Get returns a snapshot of the entry with the given ID, or false.
func (tr *Tracker) Get(id string) (Snapshot, bool) {
	tr.mu.RLock()
	e := tr.findLocked(id)
	tr.mu.RUnlock()

	if e == nil {
		return Snapshot{}, false
	}
	return e.Snapshot(), true
}

// All returns snapshots of every tracked entry.
func (tr *Tracker) All() []Snapshot {
	tr.mu.RLock()
	live := make([]*Entry, len(tr.entries))
	copy(live, tr.entries)
	tr.mu.RUnlock()

	result := make([]Snapshot, len(live))
	for i, e := range live {
		result[i] = e.Snapshot()
	}
	return result
}

// Running returns snapshots of the currently running entries.
func (tr *Tracker) Running() []Snapshot {
	tr.mu.RLock()
	live := make([]*Entry, 0, len(tr.running))
	for _, e := range tr.running {
		live = append(live, e)
	}
	tr.mu.RUnlock()

	result := make([]Snapshot, len(live))
	for i, e := range live {
		result[i] = e.Snapshot()
	}
	return result
}

// Count returns the total number of tracked entries.
func (tr *Tracker) Count() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.entries)
}

// RunningCount returns the number of running entries.
func (tr *Tracker) RunningCount() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.running)
}

// Summary returns a formatted one-line summary of the tracker state.
func (tr *Tracker) Summary() string {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	var queued, completed, failed int
	for _, e := range tr.entries {
		switch e.GetStatus() {
		case StatusQueued:
			queued++
		case StatusComplete:
			completed++
		case StatusFailed:
			failed++
		}
	}
	return fmt.Sprintf("Running: %d | Queued: %d | Completed: %d | Failed: %d",
		len(tr.running), queued, completed, failed)
}

// =============================================================================
// CLEANUP
// =============================================================================

// pruneLocked drops the oldest finished entries beyond maxHistory (lock held).
// Removal is by slice position, not completion time.
func (tr *Tracker) pruneLocked() {
	if tr.maxHistory <= 0 {
		return
	}

	done := 0
	for _, e := range tr.entries {
		if e.IsDone() {
			done++
		}
	}
	if done <= tr.maxHistory {
		return
	}

	toRemove := done - tr.maxHistory
	kept := make([]*Entry, 0, len(tr.entries)-toRemove)
	for _, e := range tr.entries {
		if e.IsDone() && toRemove > 0 {
			toRemove--
			continue
		}
		kept = append(kept, e)
	}
	tr.entries = kept
}

// Clear removes all finished entries, keeping queued and running ones.
func (tr *Tracker) Clear() {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	kept := make([]*Entry, 0)
	for _, e := range tr.entries {
		if !e.IsDone() {
			kept = append(kept, e)
		}
	}
	tr.entries = kept
}

// Dispose cancels every live entry and disposes the notification emitter.
func (tr *Tracker) Dispose() error {
	tr.mu.Lock()
	live := make([]*Entry, len(tr.entries))
	copy(live, tr.entries)
	tr.entries = nil
	tr.running = make(map[string]*Entry)
	tr.mu.Unlock()

	for _, e := range live {
		e.Cancel()
	}
	return tr.emitter.Dispose()
}

var _ lifecycle.Disposable = (*Tracker)(nil)
