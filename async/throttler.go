// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package async

import (
	"fmt"
	"sync"

	"github.com/jeranaias/rigflow/cancellation"
)

// =============================================================================
// THROTTLER
// =============================================================================

// Throttler ensures at most one task factory executes at a time. A factory
// queued while another runs replaces any previously queued, not-yet-started
// factory — only the newest survives, and every caller that queued during
// the same busy period shares the Future settled by that newest factory.
//
// All factories queued over the throttler's lifetime observe one shared
// cancellation token, minted lazily and cancelled when the throttler is
// disposed. After Dispose every Queue call is rejected immediately with a
// cancellation error.
type Throttler[T any] struct {
	mu            sync.Mutex
	disposed      bool
	running       bool
	source        *cancellation.Source // lazily minted, lives until Dispose
	queuedFactory func(cancellation.Token) (T, error)
	queuedFuture  *Future[T]
}

// NewThrottler creates an idle throttler.
func NewThrottler[T any]() *Throttler[T] {
	return &Throttler[T]{}
}

// Queue runs factory now if the throttler is idle, or remembers it as the
// single queued factory if busy. The returned future settles with the
// factory's outcome — or, for a superseded factory, with the outcome of the
// factory that replaced it.
func (t *Throttler[T]) Queue(factory func(cancellation.Token) (T, error)) *Future[T] {
	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return Rejected[T](fmt.Errorf("throttler disposed: %w", cancellation.ErrCancelled))
	}
	if t.running {
		// Busy: the newest factory wins; everyone queued during this busy
		// period shares one future.
		t.queuedFactory = factory
		if t.queuedFuture == nil {
			t.queuedFuture = NewFuture[T]()
		}
		fut := t.queuedFuture
		t.mu.Unlock()
		return fut
	}
	t.running = true
	tok := t.tokenLocked()
	t.mu.Unlock()

	fut := NewFuture[T]()
	go t.run(factory, tok, fut)
	return fut
}

// Token returns the shared lifetime token, minting it if needed.
func (t *Throttler[T]) Token() cancellation.Token {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tokenLocked()
}

// tokenLocked mints the shared cancellation source on first use. Must be
// called with mu held.
func (t *Throttler[T]) tokenLocked() cancellation.Token {
	if t.source == nil {
		t.source = cancellation.NewSource()
	}
	return t.source.Token()
}

// run executes factories until no queued factory remains. Success and
// failure take the same continuation: either way the queued factory, if any,
// runs next.
func (t *Throttler[T]) run(factory func(cancellation.Token) (T, error), tok cancellation.Token, fut *Future[T]) {
	for {
		v, err := protect(func() (T, error) { return factory(tok) })
		if err != nil {
			fut.Reject(err)
		} else {
			fut.Resolve(v)
		}

		t.mu.Lock()
		if t.disposed || t.queuedFactory == nil {
			t.running = false
			t.mu.Unlock()
			return
		}
		factory = t.queuedFactory
		fut = t.queuedFuture
		t.queuedFactory = nil
		t.queuedFuture = nil
		tok = t.tokenLocked()
		t.mu.Unlock()
	}
}

// IsRunning reports whether a factory is currently executing.
func (t *Throttler[T]) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Dispose cancels the shared token, rejects any queued-but-unstarted work,
// and makes every later Queue call fail fast with a cancellation error.
// Idempotent.
func (t *Throttler[T]) Dispose() error {
	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return nil
	}
	t.disposed = true
	queued := t.queuedFuture
	t.queuedFactory = nil
	t.queuedFuture = nil
	src := t.source
	t.mu.Unlock()

	if queued != nil {
		queued.Reject(fmt.Errorf("throttler disposed: %w", cancellation.ErrCancelled))
	}
	if src != nil {
		return src.Dispose(true)
	}
	return nil
}
