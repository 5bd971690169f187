// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package event

import (
	"sync"

	"github.com/jeranaias/rigflow/lifecycle"
)

// =============================================================================
// STATELESS COMBINATORS
// =============================================================================

// Map derives an event that fires fn(v) for every upstream v.
func Map[T, U any](upstream Event[T], fn func(T) U) Event[U] {
	return func(l Listener[U], stores ...*lifecycle.Store) lifecycle.Disposable {
		return upstream(func(v T) {
			l(fn(v))
		}, stores...)
	}
}

// Filter derives an event that forwards only upstream values satisfying pred.
func Filter[T any](upstream Event[T], pred func(T) bool) Event[T] {
	return func(l Listener[T], stores ...*lifecycle.Store) lifecycle.Disposable {
		return upstream(func(v T) {
			if pred(v) {
				l(v)
			}
		}, stores...)
	}
}

// Any fans multiple upstream events into one: the derived event fires
// whenever any upstream fires. Disposing a subscription tears down the
// subscriptions to every upstream.
func Any[T any](upstreams ...Event[T]) Event[T] {
	return func(l Listener[T], stores ...*lifecycle.Store) lifecycle.Disposable {
		subs := lifecycle.NewStore()
		for _, up := range upstreams {
			subs.Add(up(l))
		}
		d := lifecycle.Func(func() error {
			return subs.Dispose()
		})
		for _, s := range stores {
			if s != nil {
				s.Add(d)
			}
		}
		return d
	}
}

// =============================================================================
// ONCE
// =============================================================================

// Once derives an event that fires the listener for the first upstream
// occurrence only. A guard makes this hold even when the upstream fires
// multiple times synchronously, including re-entrantly from inside the
// listener itself.
func Once[T any](upstream Event[T]) Event[T] {
	return func(l Listener[T], stores ...*lifecycle.Store) lifecycle.Disposable {
		var (
			mu    sync.Mutex
			fired bool
			sub   lifecycle.Disposable
		)
		d := upstream(func(v T) {
			mu.Lock()
			if fired {
				mu.Unlock()
				return
			}
			fired = true
			// sub is still nil if the upstream fired synchronously during
			// subscription; the post-subscribe check below covers that.
			cur := sub
			mu.Unlock()
			if cur != nil {
				cur.Dispose()
			}
			l(v)
		})
		mu.Lock()
		sub = d
		alreadyFired := fired
		mu.Unlock()
		if alreadyFired {
			d.Dispose()
		}
		for _, s := range stores {
			if s != nil {
				s.Add(d)
			}
		}
		return d
	}
}

// OnceIf derives an event that fires the listener exactly once, for the first
// upstream occurrence satisfying pred.
func OnceIf[T any](upstream Event[T], pred func(T) bool) Event[T] {
	return Once(Filter(upstream, pred))
}

// =============================================================================
// REDUCE
// =============================================================================

// Reduce derives an event that maintains a running accumulator: each upstream
// value is folded in via fold and the updated accumulator is emitted. Each
// subscription carries its own accumulator, seeded with initial.
func Reduce[T, A any](upstream Event[T], fold func(A, T) A, initial A) Event[A] {
	return func(l Listener[A], stores ...*lifecycle.Store) lifecycle.Disposable {
		var mu sync.Mutex
		acc := initial
		return upstream(func(v T) {
			mu.Lock()
			acc = fold(acc, v)
			out := acc
			mu.Unlock()
			l(out)
		}, stores...)
	}
}

// =============================================================================
// DEFER
// =============================================================================

// Defer coalesces an event stream into a delayed signal: any burst of
// upstream events produces a single fire on the next tick. It is a debounce
// with zero delay carrying no payload.
func Defer[T any](upstream Event[T]) Event[struct{}] {
	return Debounce(upstream, func(struct{}, T) struct{} {
		return struct{}{}
	}, DebounceOptions{Delay: 0})
}
