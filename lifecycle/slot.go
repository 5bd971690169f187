// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lifecycle

import "sync"

// =============================================================================
// SINGLE-SLOT CONTAINER
// =============================================================================

// Slot is a mutable container holding at most one disposable.
//
// Setting a new value disposes the previously held value first. Once the slot
// itself has been disposed, any further assignment disposes the incoming value
// immediately instead of storing it, so a disposed slot can never be
// resurrected into holding a live resource.
type Slot struct {
	mu       sync.Mutex
	disposed bool
	value    Disposable
}

// NewSlot creates an empty slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Set replaces the held value with d, disposing the old value first. Setting
// the same value again is a no-op. If the slot is already disposed, d is
// disposed immediately.
func (s *Slot) Set(d Disposable) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		if d != nil {
			disposeAll([]Disposable{d})
		}
		return
	}
	if s.value == d {
		s.mu.Unlock()
		return
	}
	old := s.value
	s.value = d
	s.mu.Unlock()
	if old != nil {
		disposeAll([]Disposable{old})
	}
}

// Get returns the currently held value, or nil.
func (s *Slot) Get() Disposable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Clear disposes and drops the held value, leaving the slot usable.
func (s *Slot) Clear() {
	s.Set(nil)
}

// Dispose disposes the held value and marks the slot dead. Idempotent.
func (s *Slot) Dispose() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.disposed = true
	old := s.value
	s.value = nil
	s.mu.Unlock()
	if old != nil {
		disposeAll([]Disposable{old})
	}
	return nil
}
