// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lifecycle

import "sync"

// =============================================================================
// DISPOSABLE
// =============================================================================

// Disposable is anything that owns a teardown action.
//
// Implementations must make Dispose idempotent: the first call releases the
// resource, every later call is a no-op returning nil. Helpers in this package
// (Func, Store, Slot) enforce that contract themselves, so hand-written
// implementations are only needed for types with their own internal state.
type Disposable interface {
	// Dispose releases the resource. Safe to call multiple times.
	Dispose() error
}

// =============================================================================
// FUNCTION ADAPTER
// =============================================================================

// funcDisposable adapts a function to the Disposable interface with a
// once-only guard.
type funcDisposable struct {
	once sync.Once
	fn   func() error
}

// Func wraps fn as a Disposable. The function runs at most once; later
// Dispose calls return nil without invoking it again.
func Func(fn func() error) Disposable {
	return &funcDisposable{fn: fn}
}

// Dispose runs the wrapped function on the first call only.
func (d *funcDisposable) Dispose() error {
	var err error
	d.once.Do(func() {
		err = d.fn()
	})
	return err
}

// =============================================================================
// NO-OP
// =============================================================================

type noopDisposable struct{}

func (noopDisposable) Dispose() error { return nil }

// Noop is a Disposable whose teardown does nothing. Returned where a
// subscription was never established (e.g. listeners attached to an
// already-cancelled token) so callers can dispose unconditionally.
var Noop Disposable = noopDisposable{}
