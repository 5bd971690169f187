// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cancellation provides cooperative abort tokens for rigflow.
//
// Cancellation here is purely cooperative: a token never preempts running
// work. Callees poll Requested or subscribe to the requested event, and the
// caller flips the flag through a Source exactly once.
//
// # Key Types
//
//   - Token: Immutable capability exposing a Requested flag and a requested
//     event; the None and Cancelled singletons cover the never-cancellable
//     and already-cancelled cases
//   - Source: Mutable owner that allocates its token lazily, cancels it at
//     most once, and can cascade cancellation from a parent token
//
// # Usage
//
//	source := cancellation.NewSource()
//	defer source.Dispose(true)
//
//	go run(source.Token())
//
//	// later, from the abort action:
//	source.Cancel()
//
// Inside run:
//
//	if token.Requested() {
//	    return cancellation.ErrCancelled
//	}
//
// Listeners attached to an already-cancelled token never fire — the signal is
// permanently in the past. Always check Requested before subscribing.
package cancellation
