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
// DEBOUNCE WITH MAX WAIT
// =============================================================================

// DebounceWithMaxWait derives an event that folds upstream bursts into an
// accumulator via merge and emits after a quiet period of delay, with one
// extra knob: if a burst keeps the stream busy for longer than maxWait, the
// accumulated value is force-flushed anyway (a maxWait of 0 disables the
// force flush).
//
// This is deliberately an independent mechanism from Debounce: it has no
// leading edge and no flush-on-remove, subscribes to the upstream eagerly per
// listener, and shares no state machinery. The two are tuned and tested
// separately; do not unify them.
func DebounceWithMaxWait[T, A any](upstream Event[T], merge func(A, T) A, delay, maxWait time.Duration) Event[A] {
	return func(l Listener[A], stores ...*lifecycle.Store) lifecycle.Disposable {
		var (
			mu        sync.Mutex
			acc       A
			hasAcc    bool
			quiet     *schedule.Handle // trailing-edge timer, restarted per event
			deadline  *schedule.Handle // max-wait timer, armed once per burst
			tornDown  bool
		)

		var fire func()
		fire = func() {
			mu.Lock()
			if tornDown || !hasAcc {
				mu.Unlock()
				return
			}
			out := acc
			var zero A
			acc = zero
			hasAcc = false
			if quiet != nil {
				quiet.Stop()
				quiet = nil
			}
			if deadline != nil {
				deadline.Stop()
				deadline = nil
			}
			mu.Unlock()
			l(out)
		}

		sub := upstream(func(v T) {
			mu.Lock()
			if tornDown {
				mu.Unlock()
				return
			}
			acc = merge(acc, v)
			hasAcc = true
			if quiet != nil {
				quiet.Stop()
			}
			quiet = schedule.After(delay, fire)
			if deadline == nil && maxWait > 0 {
				deadline = schedule.After(maxWait, fire)
			}
			mu.Unlock()
		})

		d := lifecycle.Func(func() error {
			mu.Lock()
			tornDown = true
			if quiet != nil {
				quiet.Stop()
				quiet = nil
			}
			if deadline != nil {
				deadline.Stop()
				deadline = nil
			}
			mu.Unlock()
			return sub.Dispose()
		})
		for _, s := range stores {
			if s != nil {
				s.Add(d)
			}
		}
		return d
	}
}
