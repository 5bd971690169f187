// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package async

import (
	"context"
	"fmt"
	"sync"
)

// =============================================================================
// FUTURE
// =============================================================================

// Future is a one-shot completion: it settles exactly once with either a
// value or an error, and any number of goroutines may await it. The
// coordination primitives in this package hand out futures instead of
// blocking their callers.
type Future[T any] struct {
	mu    sync.Mutex
	done  chan struct{}
	value T
	err   error
}

// NewFuture creates an unsettled future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved creates a future already settled with v.
func Resolved[T any](v T) *Future[T] {
	f := NewFuture[T]()
	f.Resolve(v)
	return f
}

// Rejected creates a future already settled with err.
func Rejected[T any](err error) *Future[T] {
	f := NewFuture[T]()
	f.Reject(err)
	return f
}

// Resolve settles the future with v. Only the first settle wins; Resolve
// reports whether this call was it.
func (f *Future[T]) Resolve(v T) bool {
	var zero error
	return f.settle(v, zero)
}

// Reject settles the future with err. Only the first settle wins; Reject
// reports whether this call was it.
func (f *Future[T]) Reject(err error) bool {
	var zero T
	return f.settle(zero, err)
}

func (f *Future[T]) settle(v T, err error) bool {
	f.mu.Lock()
	select {
	case <-f.done:
		f.mu.Unlock()
		return false
	default:
	}
	f.value = v
	f.err = err
	close(f.done)
	f.mu.Unlock()
	return true
}

// Done is closed once the future settles. Use it in select statements.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the future has settled.
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await blocks until the future settles or ctx is done, returning the
// settled value/error or ctx.Err().
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the settled value and error. It must only be called once
// Done is closed; before that it returns zero values.
func (f *Future[T]) Result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

// =============================================================================
// PROTECTED CALLS
// =============================================================================

// protect runs fn, converting a panic into an error so a panicking task
// settles its caller's future instead of tearing down the scheduler.
func protect[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("async: task panic: %v", r)
		}
	}()
	return fn()
}
