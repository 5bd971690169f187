// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package async

import (
	"sync"
	"time"

	"github.com/jeranaias/rigflow/cancellation"
	"github.com/jeranaias/rigflow/internal/schedule"
)

// Immediate re-exports the microtask-granularity delay sentinel accepted by
// Delayer and Debouncer.
const Immediate = schedule.Immediate

// =============================================================================
// DELAYER (SHARED RESULT)
// =============================================================================

// Delayer is a debounce with a result: triggering always replaces the
// remembered task and restarts the pending timer, and every trigger within
// one delay window resolves through a single shared Future that fires once,
// carrying the outcome of the last task set before expiry. Earlier callers'
// tasks are discarded, not individually resolved.
type Delayer[T any] struct {
	mu           sync.Mutex
	defaultDelay time.Duration
	handle       *schedule.Handle
	task         func() (T, error)
	fut          *Future[T]
}

// NewDelayer creates a delayer with the given default delay. Pass Immediate
// for next-yield granularity.
func NewDelayer[T any](defaultDelay time.Duration) *Delayer[T] {
	return &Delayer[T]{defaultDelay: defaultDelay}
}

// Trigger replaces the remembered task, restarts the timer, and returns the
// shared future for the current window. An optional delay overrides the
// default for this restart.
func (d *Delayer[T]) Trigger(task func() (T, error), delay ...time.Duration) *Future[T] {
	dl := d.defaultDelay
	if len(delay) > 0 {
		dl = delay[0]
	}
	d.mu.Lock()
	d.task = task
	if d.handle != nil {
		d.handle.Stop()
	}
	if d.fut == nil {
		d.fut = NewFuture[T]()
	}
	fut := d.fut
	d.handle = schedule.After(dl, d.onTimeout)
	d.mu.Unlock()
	return fut
}

// onTimeout runs the remembered task. Pending state is nulled before the
// task executes so the task itself may safely re-trigger the delayer.
func (d *Delayer[T]) onTimeout() {
	d.mu.Lock()
	task, fut := d.task, d.fut
	d.task, d.fut, d.handle = nil, nil, nil
	d.mu.Unlock()
	if task == nil || fut == nil {
		return
	}
	v, err := protect(task)
	if err != nil {
		fut.Reject(err)
	} else {
		fut.Resolve(v)
	}
}

// IsTriggered reports whether a task is pending.
func (d *Delayer[T]) IsTriggered() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fut != nil
}

// Flush cancels the timer and runs the remembered task immediately,
// returning the shared future. Returns nil when nothing is pending.
func (d *Delayer[T]) Flush() *Future[T] {
	d.mu.Lock()
	if d.fut == nil {
		d.mu.Unlock()
		return nil
	}
	fut := d.fut
	if d.handle != nil {
		d.handle.Stop()
	}
	d.mu.Unlock()
	d.onTimeout()
	return fut
}

// Cancel rejects the outstanding shared future, if any, with a cancellation
// error and drops the remembered task.
func (d *Delayer[T]) Cancel() {
	d.mu.Lock()
	fut := d.fut
	d.task, d.fut = nil, nil
	if d.handle != nil {
		d.handle.Stop()
		d.handle = nil
	}
	d.mu.Unlock()
	if fut != nil {
		fut.Reject(cancellation.ErrCancelled)
	}
}

// Dispose cancels any pending work. Idempotent.
func (d *Delayer[T]) Dispose() error {
	d.Cancel()
	return nil
}

// =============================================================================
// DEBOUNCER (INDEPENDENT RESULTS)
// =============================================================================

// Debouncer is Delayer's simplified sibling: every trigger gets its own
// independent Future. A new trigger first rejects any still-pending previous
// future with a cancellation error, then starts its own timer; only the most
// recent trigger's future ever resolves successfully.
type Debouncer[T any] struct {
	mu           sync.Mutex
	defaultDelay time.Duration
	handle       *schedule.Handle
	fut          *Future[T]
}

// NewDebouncer creates a debouncer with the given default delay.
func NewDebouncer[T any](defaultDelay time.Duration) *Debouncer[T] {
	return &Debouncer[T]{defaultDelay: defaultDelay}
}

// Trigger cancels the previous pending trigger, if any, and schedules task
// after the delay, returning this trigger's own future.
func (d *Debouncer[T]) Trigger(task func() (T, error), delay ...time.Duration) *Future[T] {
	dl := d.defaultDelay
	if len(delay) > 0 {
		dl = delay[0]
	}
	d.mu.Lock()
	if d.fut != nil {
		d.fut.Reject(cancellation.ErrCancelled)
	}
	if d.handle != nil {
		d.handle.Stop()
	}
	fut := NewFuture[T]()
	d.fut = fut
	d.handle = schedule.After(dl, func() {
		d.mu.Lock()
		// Identity check: a newer trigger may own the slot by now.
		if d.fut != fut {
			d.mu.Unlock()
			return
		}
		d.fut = nil
		d.handle = nil
		d.mu.Unlock()
		v, err := protect(task)
		if err != nil {
			fut.Reject(err)
		} else {
			fut.Resolve(v)
		}
	})
	d.mu.Unlock()
	return fut
}

// IsTriggered reports whether a trigger is pending.
func (d *Debouncer[T]) IsTriggered() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fut != nil
}

// Cancel rejects the pending trigger's future with a cancellation error.
// When nothing is pending it is a guaranteed no-op.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	fut := d.fut
	d.fut = nil
	if d.handle != nil {
		d.handle.Stop()
		d.handle = nil
	}
	d.mu.Unlock()
	if fut != nil {
		fut.Reject(cancellation.ErrCancelled)
	}
}

// Dispose cancels any pending trigger. Disposing an idle debouncer is a
// no-op. Idempotent.
func (d *Debouncer[T]) Dispose() error {
	d.Cancel()
	return nil
}
