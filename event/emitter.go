// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package event

import (
	"fmt"
	"log"
	"sync"

	"github.com/jeranaias/rigflow/lifecycle"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// Listener receives values fired on an event.
type Listener[T any] func(T)

// Event is the subscribe side of an emitter: calling it installs a listener
// and returns a disposable that removes exactly that listener. Any stores
// passed are additionally given ownership of the subscription, so it tears
// down with them.
type Event[T any] func(listener Listener[T], stores ...*lifecycle.Store) lifecycle.Disposable

// Never is an event that never fires. Subscribing to it is a no-op.
func Never[T any]() Event[T] {
	return func(Listener[T], ...*lifecycle.Store) lifecycle.Disposable {
		return lifecycle.Noop
	}
}

// =============================================================================
// EMITTER
// =============================================================================

// Options configures an Emitter.
type Options struct {
	// OnFirstListener is invoked right after the first listener is installed
	// (and again whenever the listener count rises from zero). Combinators use
	// it to attach to their upstream lazily.
	OnFirstListener func()

	// OnLastListener is invoked after the last listener is removed. Not
	// invoked by Dispose.
	OnLastListener func()

	// OnWillRemoveListener is invoked before a listener is removed, while it
	// can still receive fires. Debounce uses this to flush a pending value to
	// a departing listener.
	OnWillRemoveListener func()

	// ErrorHandler receives errors produced by panicking listeners. A log
	// fallback always runs in addition, handler or not.
	ErrorHandler func(error)
}

// listenerEntry wraps a listener so identical functions subscribed twice stay
// distinguishable.
type listenerEntry[T any] struct {
	fn Listener[T]
}

// Emitter is the publish side of a typed event. The zero value is not usable;
// construct with NewEmitter or NewEmitterWithOptions.
type Emitter[T any] struct {
	mu        sync.Mutex
	disposed  bool
	listeners []*listenerEntry[T]
	event     Event[T] // memoized accessor
	opts      Options
}

// NewEmitter creates an emitter with default options.
func NewEmitter[T any]() *Emitter[T] {
	return &Emitter[T]{}
}

// NewEmitterWithOptions creates an emitter with listener-count hooks and/or a
// custom error handler.
func NewEmitterWithOptions[T any](opts Options) *Emitter[T] {
	return &Emitter[T]{opts: opts}
}

// Event returns the subscription accessor. The returned function is memoized:
// every call to Event yields the same value, so it can be handed out freely
// as the emitter's public face.
func (e *Emitter[T]) Event() Event[T] {
	e.mu.Lock()
	if e.event == nil {
		e.event = func(l Listener[T], stores ...*lifecycle.Store) lifecycle.Disposable {
			return e.subscribe(l, stores)
		}
	}
	ev := e.event
	e.mu.Unlock()
	return ev
}

// subscribe installs a listener and returns its removal disposable.
func (e *Emitter[T]) subscribe(l Listener[T], stores []*lifecycle.Store) lifecycle.Disposable {
	if l == nil {
		return lifecycle.Noop
	}
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return lifecycle.Noop
	}
	entry := &listenerEntry[T]{fn: l}
	first := len(e.listeners) == 0
	e.listeners = append(e.listeners, entry)
	onFirst := e.opts.OnFirstListener
	e.mu.Unlock()

	if first && onFirst != nil {
		onFirst()
	}

	d := lifecycle.Func(func() error {
		e.remove(entry)
		return nil
	})
	for _, s := range stores {
		if s != nil {
			s.Add(d)
		}
	}
	return d
}

// remove detaches a single listener entry.
func (e *Emitter[T]) remove(entry *listenerEntry[T]) {
	e.mu.Lock()
	if e.disposed || !e.containsLocked(entry) {
		e.mu.Unlock()
		return
	}
	// Let the will-remove hook run while the listener can still receive
	// fires, then re-check under the lock: the hook may fire the emitter and
	// listeners may have changed underneath us.
	if willRemove := e.opts.OnWillRemoveListener; willRemove != nil {
		e.mu.Unlock()
		willRemove()
		e.mu.Lock()
		if e.disposed || !e.containsLocked(entry) {
			e.mu.Unlock()
			return
		}
	}
	for i, cur := range e.listeners {
		if cur == entry {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			break
		}
	}
	last := len(e.listeners) == 0
	onLast := e.opts.OnLastListener
	e.mu.Unlock()

	if last && onLast != nil {
		onLast()
	}
}

// containsLocked reports whether entry is still installed. Must be called
// with mu held.
func (e *Emitter[T]) containsLocked(entry *listenerEntry[T]) bool {
	for _, cur := range e.listeners {
		if cur == entry {
			return true
		}
	}
	return false
}

// Fire invokes every listener with v, synchronously and in subscription
// order. The listener set is snapshotted before dispatch: changes made by
// listeners apply to the next Fire, never the current one. A panicking
// listener is recovered and reported; the rest still run.
func (e *Emitter[T]) Fire(v T) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	snapshot := make([]*listenerEntry[T], len(e.listeners))
	copy(snapshot, e.listeners)
	handler := e.opts.ErrorHandler
	e.mu.Unlock()

	for _, entry := range snapshot {
		deliver(entry.fn, v, handler)
	}
}

// deliver runs one listener with panic isolation.
func deliver[T any](fn Listener[T], v T, handler func(error)) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("event: listener panic: %v", r)
			if handler != nil {
				handler(err)
			}
			log.Printf("WARNING: %v", err)
		}
	}()
	fn(v)
}

// HasListeners reports whether any listener is currently installed.
func (e *Emitter[T]) HasListeners() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners) > 0
}

// Dispose drops all listeners and makes the emitter inert: later Fire calls
// do nothing and later subscriptions return a no-op disposable. Idempotent.
func (e *Emitter[T]) Dispose() error {
	e.mu.Lock()
	e.disposed = true
	e.listeners = nil
	e.mu.Unlock()
	return nil
}
