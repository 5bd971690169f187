// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package async

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/rigflow/internal/schedule"
)

// =============================================================================
// IDLE VALUE
// =============================================================================

// IdleValue computes a value lazily during idle time. Construction schedules
// the computation; reading the value before the scheduled run forces it
// synchronously and cancels the pending run, so the executor runs exactly
// once either way. Both the computed value and a returned error are cached.
type IdleValue[T any] struct {
	once     sync.Once
	computed atomic.Bool
	handle   *schedule.Handle
	compute  func() (T, error)
	value    T
	err      error
}

// NewIdleValue schedules compute for the next yield, the closest available
// stand-in for idle time.
func NewIdleValue[T any](compute func() (T, error)) *IdleValue[T] {
	return newIdleValue(compute, schedule.Immediate)
}

// NewIdleValueAfter schedules compute after the given quiet delay instead of
// the next yield.
func NewIdleValueAfter[T any](compute func() (T, error), delay time.Duration) *IdleValue[T] {
	return newIdleValue(compute, delay)
}

func newIdleValue[T any](compute func() (T, error), delay time.Duration) *IdleValue[T] {
	v := &IdleValue[T]{compute: compute}
	v.handle = schedule.After(delay, func() {
		v.once.Do(v.run)
	})
	return v
}

func (v *IdleValue[T]) run() {
	v.value, v.err = protect(v.compute)
	v.computed.Store(true)
}

// Value returns the computed value, forcing synchronous computation if the
// scheduled run has not happened yet. The pending run is cancelled so the
// executor can never run twice.
func (v *IdleValue[T]) Value() (T, error) {
	v.handle.Stop()
	v.once.Do(v.run)
	return v.value, v.err
}

// IsComputed reports whether the executor has already run.
func (v *IdleValue[T]) IsComputed() bool {
	return v.computed.Load()
}

// Dispose cancels the scheduled computation if it has not started. A value
// already computed stays readable.
func (v *IdleValue[T]) Dispose() error {
	v.handle.Stop()
	return nil
}
