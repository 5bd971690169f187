// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package schedule provides one-shot callback scheduling shared by the event
// and async packages.
//
// A scheduled callback runs either after a fixed duration or, when the
// Immediate sentinel is given, as soon as the runtime yields (the closest Go
// analogue to microtask-granularity delay). Either way the callback can be
// raced against Stop: exactly one of "the callback runs" or "Stop returns
// true" happens.
package schedule

import (
	"sync/atomic"
	"time"
)

// Immediate schedules the callback on the next yield instead of after a fixed
// duration. Pass it anywhere a delay is accepted.
const Immediate = time.Duration(-1)

// =============================================================================
// HANDLE
// =============================================================================

// Handle is a pending one-shot callback. The zero value is not usable; always
// obtain handles from After.
type Handle struct {
	claimed atomic.Bool
	timer   *time.Timer // nil when scheduled via Immediate
}

// After schedules fn to run once after d, or on the next yield when d is
// Immediate (any negative duration is treated as Immediate).
func After(d time.Duration, fn func()) *Handle {
	h := &Handle{}
	run := func() {
		if h.claim() {
			fn()
		}
	}
	if d < 0 {
		go run()
		return h
	}
	h.timer = time.AfterFunc(d, run)
	return h
}

// Stop cancels the pending callback. It returns true if the callback was
// still pending and will now never run, false if it already ran or was
// already stopped.
func (h *Handle) Stop() bool {
	if !h.claim() {
		return false
	}
	if h.timer != nil {
		h.timer.Stop()
	}
	return true
}

// claim wins the race between Stop and the callback. Only the winner may act.
func (h *Handle) claim() bool {
	return h.claimed.CompareAndSwap(false, true)
}
