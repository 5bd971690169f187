// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package event

import (
	"sync"
	"time"

	"github.com/jeranaias/rigflow/internal/schedule"
	"github.com/jeranaias/rigflow/lifecycle"
)

// =============================================================================
// DEBOUNCE OPTIONS
// =============================================================================

// Immediate re-exports the microtask-granularity delay sentinel: the flush is
// scheduled on the next yield instead of after a fixed duration.
const Immediate = schedule.Immediate

// DebounceOptions configures Debounce.
type DebounceOptions struct {
	// Delay is the quiet period required before the accumulated value is
	// emitted. Use Immediate for next-yield granularity.
	Delay time.Duration

	// Leading fires the first event of a burst immediately, in addition to
	// the trailing emission. A burst of exactly one event fires once, not
	// twice.
	Leading bool

	// FlushOnRemove force-flushes any pending accumulated value when a
	// downstream listener is about to detach, so the departing listener still
	// observes the tail of the burst it triggered.
	FlushOnRemove bool
}

// =============================================================================
// DEBOUNCE
// =============================================================================

// Debounce derives an event that folds upstream bursts into an accumulator
// via merge and emits the accumulated value after a quiet period.
//
// The accumulator starts from A's zero value at the beginning of every burst.
// The upstream subscription is created only when the first downstream
// listener attaches and is torn down when the last one detaches.
func Debounce[T, A any](upstream Event[T], merge func(A, T) A, opts DebounceOptions) Event[A] {
	var (
		mu     sync.Mutex
		sub    lifecycle.Disposable
		handle *schedule.Handle
		acc    A
		hasAcc bool
		count  int // events in the current burst
	)
	var emitter *Emitter[A]

	// flush emits the accumulated value and resets the burst. The emission is
	// skipped for a single-event burst already emitted by the leading edge.
	flush := func() {
		mu.Lock()
		if handle != nil {
			handle.Stop()
			handle = nil
		}
		if !hasAcc {
			mu.Unlock()
			return
		}
		out := acc
		n := count
		var zero A
		acc = zero
		hasAcc = false
		count = 0
		mu.Unlock()
		if opts.Leading && n == 1 {
			return
		}
		emitter.Fire(out)
	}

	onUpstream := func(v T) {
		mu.Lock()
		acc = merge(acc, v)
		hasAcc = true
		count++
		leadingFire := opts.Leading && count == 1
		out := acc
		if handle != nil {
			handle.Stop()
		}
		handle = schedule.After(opts.Delay, flush)
		mu.Unlock()
		if leadingFire {
			emitter.Fire(out)
		}
	}

	emitter = NewEmitterWithOptions[A](Options{
		OnFirstListener: func() {
			mu.Lock()
			if sub != nil {
				mu.Unlock()
				return
			}
			mu.Unlock()
			s := upstream(onUpstream)
			mu.Lock()
			sub = s
			mu.Unlock()
		},
		OnWillRemoveListener: func() {
			if opts.FlushOnRemove {
				flush()
			}
		},
		OnLastListener: func() {
			mu.Lock()
			s := sub
			sub = nil
			if handle != nil {
				handle.Stop()
				handle = nil
			}
			var zero A
			acc = zero
			hasAcc = false
			count = 0
			mu.Unlock()
			if s != nil {
				s.Dispose()
			}
		},
	})
	return emitter.Event()
}
