// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package async

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/rigflow/internal/schedule"
)

// =============================================================================
// RATE LIMITER
// =============================================================================

// RateLimiter wraps a side-effecting callback so at most one invocation
// fires per fixed interval. Calls landing inside the window are deferred and
// collapsed: only the most recently supplied arguments fire at the window
// boundary.
type RateLimiter[T any] struct {
	mu      sync.Mutex
	fn      func(T)
	limiter *rate.Limiter
	pending *T
	handle  *schedule.Handle
}

// NewRateLimiter creates a limiter allowing one fn invocation per interval.
func NewRateLimiter[T any](interval time.Duration, fn func(T)) *RateLimiter[T] {
	return &RateLimiter[T]{
		fn:      fn,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Call invokes fn(v) now if the window permits, or defers v to the window
// boundary, replacing any arguments already deferred.
func (r *RateLimiter[T]) Call(v T) {
	r.mu.Lock()
	if r.handle != nil {
		// A boundary fire is already armed; newest arguments win.
		r.pending = &v
		r.mu.Unlock()
		return
	}
	if r.limiter.Allow() {
		r.mu.Unlock()
		r.fn(v)
		return
	}
	// Inside the window: reserve the next permit and fire when it matures.
	res := r.limiter.Reserve()
	r.pending = &v
	r.handle = schedule.After(res.Delay(), r.fire)
	r.mu.Unlock()
}

// fire delivers the most recently deferred arguments at the window boundary.
func (r *RateLimiter[T]) fire() {
	r.mu.Lock()
	v := r.pending
	r.pending = nil
	r.handle = nil
	r.mu.Unlock()
	if v != nil {
		r.fn(*v)
	}
}

// Dispose drops any deferred call and disarms the boundary timer.
// Idempotent.
func (r *RateLimiter[T]) Dispose() error {
	r.mu.Lock()
	r.pending = nil
	if r.handle != nil {
		r.handle.Stop()
		r.handle = nil
	}
	r.mu.Unlock()
	return nil
}
