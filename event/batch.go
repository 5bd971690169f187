// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package event

import (
	"sync"
	"time"

	"github.com/jeranaias/rigflow/internal/schedule"
)

// =============================================================================
// BATCHER
// =============================================================================

// Batcher accumulates pushed items and flushes them as one slice on the next
// tick. Meant for bursty producers such as log lines: a loop that pushes a
// thousand items still wakes the consumer once.
type Batcher[T any] struct {
	mu       sync.Mutex
	disposed bool
	items    []T
	pending  *schedule.Handle
	emitter  *Emitter[[]T]
}

// NewBatcher creates an empty batcher.
func NewBatcher[T any]() *Batcher[T] {
	return &Batcher[T]{emitter: NewEmitter[[]T]()}
}

// OnFlush is the event carrying each flushed batch.
func (b *Batcher[T]) OnFlush() Event[[]T] {
	return b.emitter.Event()
}

// Push adds an item to the current batch and schedules a flush on the next
// tick if one is not already pending.
func (b *Batcher[T]) Push(v T) {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.items = append(b.items, v)
	if b.pending == nil {
		b.pending = schedule.After(schedule.Immediate, b.Flush)
	}
	b.mu.Unlock()
}

// Flush delivers the accumulated batch immediately. No-op when empty.
func (b *Batcher[T]) Flush() {
	b.mu.Lock()
	if b.pending != nil {
		b.pending.Stop()
		b.pending = nil
	}
	if b.disposed || len(b.items) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.items
	b.items = nil
	b.mu.Unlock()
	b.emitter.Fire(batch)
}

// Dispose drops any unflushed items and cancels the pending flush.
func (b *Batcher[T]) Dispose() error {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return nil
	}
	b.disposed = true
	b.items = nil
	if b.pending != nil {
		b.pending.Stop()
		b.pending = nil
	}
	b.mu.Unlock()
	return b.emitter.Dispose()
}

// =============================================================================
// COALESCER
// =============================================================================

// Coalescer batches added items over a fixed time window, restarting the
// window on every addition and flushing the whole batch when the window
// finally expires. Unlike Batcher this is explicit trailing-edge batching,
// e.g. for request coalescing: the flush happens only once the producer has
// gone quiet.
type Coalescer[T any] struct {
	mu       sync.Mutex
	disposed bool
	window   time.Duration
	items    []T
	pending  *schedule.Handle
	emitter  *Emitter[[]T]
}

// NewCoalescer creates a coalescer with the given quiet window.
func NewCoalescer[T any](window time.Duration) *Coalescer[T] {
	return &Coalescer[T]{window: window, emitter: NewEmitter[[]T]()}
}

// OnFlush is the event carrying each coalesced batch.
func (c *Coalescer[T]) OnFlush() Event[[]T] {
	return c.emitter.Event()
}

// Add appends an item to the batch and restarts the window timer.
func (c *Coalescer[T]) Add(v T) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.items = append(c.items, v)
	if c.pending != nil {
		c.pending.Stop()
	}
	c.pending = schedule.After(c.window, c.flush)
	c.mu.Unlock()
}

// flush delivers the whole batch after the window expires untouched.
func (c *Coalescer[T]) flush() {
	c.mu.Lock()
	c.pending = nil
	if c.disposed || len(c.items) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.items
	c.items = nil
	c.mu.Unlock()
	c.emitter.Fire(batch)
}

// Len returns the number of items waiting in the current batch.
func (c *Coalescer[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Dispose drops the pending batch and cancels the window timer.
func (c *Coalescer[T]) Dispose() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	c.disposed = true
	c.items = nil
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	c.mu.Unlock()
	return c.emitter.Dispose()
}
