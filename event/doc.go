// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package event provides a typed publish/subscribe primitive and a combinator
// algebra for composing event streams.
//
// An Emitter holds a set of listeners and fires values at them synchronously,
// in subscription order, from a snapshot taken before dispatch begins —
// subscribing or unsubscribing from inside a listener never affects the
// dispatch already in flight. A listener that panics is isolated: the panic is
// recovered, routed to the emitter's error handler (plus a log fallback), and
// the remaining listeners still run.
//
// # Key Types
//
//   - Emitter: The publish side; owns the listener set
//   - Event: The subscribe side; a function-shaped accessor returning a
//     Disposable per subscription
//   - Batcher: Accumulates pushed items, flushes them as one slice on the
//     next tick
//   - Coalescer: Trailing-edge time-window batching; the window restarts on
//     every Add
//   - Relay: A stable outward event whose upstream can be swapped at any time
//
// # Combinators
//
// Once, OnceIf, Map, Filter, Any, Reduce, Debounce, Buffer, and Defer build
// new events from existing ones. Combinators re-subscribe to the upstream
// event rather than buffering eagerly (Buffer being the deliberate
// exception).
//
// DebounceWithMaxWait is a second, independent debounce mechanism with a
// maximum-wait force flush. It intentionally shares no code with Debounce;
// the two are tuned and tested separately.
//
// # Usage
//
//	changes := event.NewEmitter[string]()
//	defer changes.Dispose()
//
//	sub := changes.Event()(func(path string) {
//	    fmt.Println("changed:", path)
//	})
//	defer sub.Dispose()
//
//	changes.Fire("main.go")
package event
