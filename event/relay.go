// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package event

import (
	"sync"

	"github.com/jeranaias/rigflow/lifecycle"
)

// =============================================================================
// RELAY
// =============================================================================

// Relay exposes one stable outward event while its upstream source can be
// reassigned at any time. Reassignment disposes the old upstream subscription
// and wires the new one without disturbing existing downstream subscribers.
//
// The upstream is only subscribed while the relay has downstream listeners.
type Relay[T any] struct {
	mu        sync.Mutex
	listening bool
	input     Event[T]
	inputSub  *lifecycle.Slot
	emitter   *Emitter[T]
}

// NewRelay creates a relay with no upstream; its event stays silent until
// SetInput is called.
func NewRelay[T any]() *Relay[T] {
	r := &Relay[T]{inputSub: lifecycle.NewSlot()}
	r.emitter = NewEmitterWithOptions[T](Options{
		OnFirstListener: func() {
			r.mu.Lock()
			r.listening = true
			input := r.input
			r.mu.Unlock()
			if input != nil {
				r.inputSub.Set(input(r.emitter.Fire))
			}
		},
		OnLastListener: func() {
			r.mu.Lock()
			r.listening = false
			r.mu.Unlock()
			r.inputSub.Clear()
		},
	})
	return r
}

// Event is the stable outward event. It remains valid across any number of
// SetInput calls.
func (r *Relay[T]) Event() Event[T] {
	return r.emitter.Event()
}

// SetInput swaps the upstream source. If the relay currently has downstream
// listeners the old upstream subscription is disposed and the new upstream is
// subscribed immediately; otherwise the swap takes effect when the next
// listener attaches.
func (r *Relay[T]) SetInput(input Event[T]) {
	r.mu.Lock()
	r.input = input
	listening := r.listening
	r.mu.Unlock()
	if !listening {
		return
	}
	if input == nil {
		r.inputSub.Clear()
		return
	}
	r.inputSub.Set(input(r.emitter.Fire))
}

// Dispose tears down the upstream subscription and the outward emitter.
func (r *Relay[T]) Dispose() error {
	r.inputSub.Dispose()
	return r.emitter.Dispose()
}
