// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lifecycle

import (
	"errors"
	"log"
	"sync"
)

// =============================================================================
// DISPOSABLE STORE
// =============================================================================

// Store is an unordered collection of disposables owned collectively.
//
// Tearing down the store tears down every member even if some individual
// teardowns fail; per-item errors are aggregated and logged, never returned,
// and never abort the remaining teardowns. A Store is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	disposed bool
	items    map[Disposable]struct{}
}

// NewStore creates an empty disposable store.
func NewStore() *Store {
	return &Store{items: make(map[Disposable]struct{})}
}

// Add registers d with the store and returns it for chaining.
//
// If the store has already been disposed, d is disposed immediately instead of
// being stored. This closes the leak window where a registration races with
// the owner's teardown.
func (s *Store) Add(d Disposable) Disposable {
	if d == nil {
		return nil
	}
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		log.Printf("WARNING: lifecycle: adding to a disposed store; disposing the item immediately")
		disposeAll([]Disposable{d})
		return d
	}
	s.items[d] = struct{}{}
	s.mu.Unlock()
	return d
}

// Track adds d to store and returns it with its concrete type preserved.
// Convenience for chaining typed construction with registration:
//
//	timer := lifecycle.Track(store, async.NewOneShot(fn, delay))
func Track[T Disposable](store *Store, d T) T {
	store.Add(d)
	return d
}

// Delete detaches d from the store without disposing it. Use this for
// ownership transfer; the caller becomes responsible for d's teardown.
func (s *Store) Delete(d Disposable) {
	s.mu.Lock()
	delete(s.items, d)
	s.mu.Unlock()
}

// DeleteAndDispose detaches d and disposes it, returning the disposal error to
// the caller. Unlike bulk teardown, a failure here is not swallowed: a
// targeted removal failure must stay visible.
func (s *Store) DeleteAndDispose(d Disposable) error {
	if d == nil {
		return nil
	}
	s.mu.Lock()
	delete(s.items, d)
	s.mu.Unlock()
	return d.Dispose()
}

// Clear disposes every member and empties the store, leaving it usable.
// Individual teardown errors are aggregated and logged, never returned.
func (s *Store) Clear() {
	s.mu.Lock()
	members := s.takeLocked()
	s.mu.Unlock()
	disposeAll(members)
}

// Dispose disposes every member and marks the store dead. Idempotent and
// always returns nil; per-member errors are aggregated and logged. After
// Dispose, Add disposes incoming items immediately.
func (s *Store) Dispose() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.disposed = true
	members := s.takeLocked()
	s.mu.Unlock()
	disposeAll(members)
	return nil
}

// IsDisposed reports whether Dispose has been called.
func (s *Store) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Len returns the number of currently held disposables.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// takeLocked removes and returns all members. Must be called with mu held.
func (s *Store) takeLocked() []Disposable {
	members := make([]Disposable, 0, len(s.items))
	for d := range s.items {
		members = append(members, d)
	}
	s.items = make(map[Disposable]struct{})
	return members
}

// =============================================================================
// BULK TEARDOWN
// =============================================================================

// disposeAll disposes every member, catching errors and panics per item so one
// bad resource cannot block release of the others. Errors are joined and
// logged in a single line.
func disposeAll(members []Disposable) {
	var errs []error
	for _, d := range members {
		if err := disposeOne(d); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		log.Printf("WARNING: lifecycle: %d of %d teardowns failed: %v",
			len(errs), len(members), errors.Join(errs...))
	}
}

// disposeOne disposes a single member, converting a panic into an error.
func disposeOne(d Disposable) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Join(err, &panicError{value: r})
		}
	}()
	return d.Dispose()
}

// panicError wraps a recovered panic value from a teardown.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	if err, ok := e.value.(error); ok {
		return "panic during dispose: " + err.Error()
	}
	return "panic during dispose"
}
