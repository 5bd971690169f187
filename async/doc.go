// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package async provides task-coordination primitives built on rigflow's
// event, cancellation, and lifecycle packages.
//
// The primitives never block their callers: they only decide when work is
// scheduled, while the work itself (a task or factory) may be arbitrarily
// asynchronous. Superseded work is intentionally dropped, not queued —
// throttling and delaying are last-write-wins, sequencing is strict FIFO.
//
// # Key Types
//
//   - Future: A one-shot completion carrying a value or an error
//   - Throttler: At most one factory in flight; the newest queued factory
//     replaces any factory still waiting
//   - Sequencer / KeyedSequencer: Strict call-order execution, globally or
//     per key; a failing task never blocks the tasks behind it
//   - Delayer: Debounce-with-result; rapid triggers share one completion
//     carrying the outcome of the last task set before expiry
//   - Debouncer: Like Delayer but every trigger gets its own result; a new
//     trigger cancels the previous pending one
//   - OneShot: A fixed callback with schedule/cancel/flush control
//   - IdleValue: Computes a value during idle time, or synchronously on
//     first read, whichever comes first — never twice
//   - RateLimiter: At most one invocation per interval, collapsing in-window
//     calls to the most recent arguments
//
// # Usage
//
// Debounce a hot trigger into an expensive recompile:
//
//	delayer := async.NewDelayer[BuildResult](200 * time.Millisecond)
//	onKeystroke := func() {
//	    delayer.Trigger(func() (BuildResult, error) {
//	        return compile(project)
//	    })
//	}
//
// Coalesce concurrent refreshes so at most one runs:
//
//	throttler := async.NewThrottler[Index]()
//	fut := throttler.Queue(func(tok cancellation.Token) (Index, error) {
//	    return rebuildIndex(tok)
//	})
//	idx, err := fut.Await(ctx)
package async
