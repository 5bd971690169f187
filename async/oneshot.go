// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package async

import (
	"sync"
	"time"

	"github.com/jeranaias/rigflow/internal/schedule"
)

// =============================================================================
// ONE-SHOT SCHEDULER
// =============================================================================

// OneShot wraps a fixed callback with delayed one-shot scheduling.
// Rescheduling while a run is pending restarts the timer; the callback fires
// at most once per Schedule.
type OneShot struct {
	mu           sync.Mutex
	fn           func()
	defaultDelay time.Duration
	handle       *schedule.Handle
}

// NewOneShot creates a scheduler for fn with the given default delay.
func NewOneShot(fn func(), defaultDelay time.Duration) *OneShot {
	return &OneShot{fn: fn, defaultDelay: defaultDelay}
}

// Schedule arms (or re-arms) the timer. An optional delay overrides the
// default for this scheduling.
func (o *OneShot) Schedule(delay ...time.Duration) {
	d := o.defaultDelay
	if len(delay) > 0 {
		d = delay[0]
	}
	o.mu.Lock()
	if o.handle != nil {
		o.handle.Stop()
	}
	var h *schedule.Handle
	h = schedule.After(d, func() {
		o.mu.Lock()
		if o.handle == h {
			o.handle = nil
		}
		o.mu.Unlock()
		o.fn()
	})
	o.handle = h
	o.mu.Unlock()
}

// Cancel disarms the timer if armed.
func (o *OneShot) Cancel() {
	o.mu.Lock()
	if o.handle != nil {
		o.handle.Stop()
		o.handle = nil
	}
	o.mu.Unlock()
}

// IsScheduled reports whether a run is pending.
func (o *OneShot) IsScheduled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.handle != nil
}

// Flush cancels the timer and runs the callback immediately, if and only if
// a run was pending.
func (o *OneShot) Flush() {
	o.mu.Lock()
	h := o.handle
	o.handle = nil
	o.mu.Unlock()
	if h != nil && h.Stop() {
		o.fn()
	}
}

// Dispose disarms the timer. Idempotent.
func (o *OneShot) Dispose() error {
	o.Cancel()
	return nil
}
