// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package async

import "sync"

// =============================================================================
// SEQUENCER
// =============================================================================

// Sequencer guarantees call-order execution: every queued task runs strictly
// after the tasks queued before it, regardless of whether they succeeded or
// failed. A failing task surfaces its error only through its own Future; the
// chain itself never stalls.
type Sequencer struct {
	mu   sync.Mutex
	tail <-chan struct{} // completion of the most recently queued task; nil = settled start
}

// NewSequencer creates a sequencer whose chain starts out settled.
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Queue appends task to s's chain and returns a future carrying that task's
// own outcome.
func Queue[T any](s *Sequencer, task func() (T, error)) *Future[T] {
	next := make(chan struct{})
	s.mu.Lock()
	prev := s.tail
	s.tail = next
	s.mu.Unlock()

	fut := NewFuture[T]()
	go func() {
		// The chain advances whether or not the task fails.
		defer close(next)
		if prev != nil {
			<-prev
		}
		v, err := protect(task)
		if err != nil {
			fut.Reject(err)
		} else {
			fut.Resolve(v)
		}
	}()
	return fut
}

// =============================================================================
// KEYED SEQUENCER
// =============================================================================

// KeyedSequencer maintains one independent FIFO chain per key. Queuing under
// a key chains off that key's pending work (defaulting to an already-settled
// start state); a failing task never blocks later tasks under the same key;
// and a key's chain entry is garbage-collected once its last task finishes,
// unless a newer chain has superseded it in the meantime.
type KeyedSequencer[K comparable] struct {
	mu     sync.Mutex
	chains map[K]chan struct{}
}

// NewKeyedSequencer creates a keyed sequencer with no active chains.
func NewKeyedSequencer[K comparable]() *KeyedSequencer[K] {
	return &KeyedSequencer[K]{chains: make(map[K]chan struct{})}
}

// PendingKeys returns the number of keys with in-flight chains. Mainly for
// verifying idle keys are garbage-collected.
func (s *KeyedSequencer[K]) PendingKeys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chains)
}

// QueueKeyed appends task to the chain for key and returns a future carrying
// that task's own outcome.
func QueueKeyed[K comparable, T any](s *KeyedSequencer[K], key K, task func() (T, error)) *Future[T] {
	next := make(chan struct{})
	s.mu.Lock()
	prev := s.chains[key]
	s.chains[key] = next
	s.mu.Unlock()

	fut := NewFuture[T]()
	go func() {
		// Waiting on completion alone swallows the prior task's failure
		// locally; its error already surfaced through its own future.
		if prev != nil {
			<-prev
		}
		v, err := protect(task)
		if err != nil {
			fut.Reject(err)
		} else {
			fut.Resolve(v)
		}
		close(next)

		// GC the chain entry only if this task is still the newest; a chain
		// queued meanwhile owns the slot now.
		s.mu.Lock()
		if cur, ok := s.chains[key]; ok && cur == next {
			delete(s.chains, key)
		}
		s.mu.Unlock()
	}()
	return fut
}
