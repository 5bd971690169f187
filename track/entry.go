// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package track

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/rigflow/cancellation"
)

// =============================================================================
// ENTRY STATUS
// =============================================================================

// Status represents the current state of a tracked operation.
type Status string

const (
	// StatusQueued indicates the operation is registered but not yet started
	StatusQueued Status = "Queued"

	// StatusRunning indicates the operation is currently executing
	StatusRunning Status = "Running"

	// StatusComplete indicates the operation finished successfully
	StatusComplete Status = "Complete"

	// StatusFailed indicates the operation ended with an error
	StatusFailed Status = "Failed"

	// StatusCancelled indicates the operation was cancelled
	StatusCancelled Status = "Cancelled"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// terminal reports whether a status admits no further transitions.
func (s Status) terminal() bool {
	return s == StatusComplete || s == StatusFailed || s == StatusCancelled
}

// =============================================================================
// ENTRY STRUCTURE
// =============================================================================

// Entry represents one tracked operation: an identifier, a description, and a
// status that moves through Queued -> Running -> Complete/Failed/Cancelled.
// Each entry owns a cancellation source; cancelling the entry requests
// cancellation on any work holding the entry's token.
type Entry struct {
	// ID is a unique identifier for this entry
	ID string

	// Description is a human-readable description of the operation
	Description string

	// Status is the current state of the entry
	Status Status

	// StartTime is when the operation started running
	StartTime time.Time

	// EndTime is when the operation reached a terminal state
	EndTime time.Time

	// Error is the failure message if the operation failed
	Error string

	// src requests cooperative cancellation of the operation's work
	src *cancellation.Source

	// mu protects concurrent access to the entry
	mu sync.RWMutex
}

// NewEntry creates a queued entry with a fresh identifier.
func NewEntry(description string) *Entry {
	return &Entry{
		ID:          uuid.New().String(),
		Description: description,
		Status:      StatusQueued,
		src:         cancellation.NewSource(),
	}
}

// =============================================================================
// ENTRY METHODS
// =============================================================================

// Token returns the cancellation token work for this entry should observe.
func (e *Entry) Token() cancellation.Token {
	return e.src.Token()
}

// SetStatus moves the entry to the given status, validating the transition.
// Valid transitions: Queued -> Running/Cancelled, Running -> Complete/Failed/
// Cancelled. Setting the current status again is an idempotent no-op.
func (e *Entry) SetStatus(status Status) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !validTransition(e.Status, status) {
		return fmt.Errorf("invalid status transition from %s to %s", e.Status, status)
	}
	e.applyLocked(status)
	return nil
}

// validTransition checks whether from -> to is an allowed move.
func validTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusQueued:
		return to == StatusRunning || to == StatusCancelled
	case StatusRunning:
		return to == StatusComplete || to == StatusFailed || to == StatusCancelled
	default:
		// Terminal states admit nothing.
		return false
	}
}

// applyLocked records a status change and its timestamps (lock held).
func (e *Entry) applyLocked(status Status) {
	if status == e.Status {
		return
	}
	e.Status = status
	switch {
	case status == StatusRunning:
		e.StartTime = time.Now()
	case status.terminal():
		e.EndTime = time.Now()
	}
}

// GetStatus returns the current status (thread-safe).
func (e *Entry) GetStatus() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.Status
}

// Fail records the error and marks the entry failed. Bypasses transition
// validation: a failure is always recordable from a non-terminal state.
func (e *Entry) Fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil || e.Status.terminal() {
		return
	}
	e.Error = err.Error()
	e.applyLocked(StatusFailed)
}

// Cancel requests cancellation and marks the entry cancelled.
// Returns false when the entry is already in a terminal state.
func (e *Entry) Cancel() bool {
	e.mu.Lock()
	if e.Status.terminal() {
		e.mu.Unlock()
		return false
	}
	e.applyLocked(StatusCancelled)
	e.mu.Unlock()

	// Fire the token outside the entry lock; listeners may read the entry.
	e.src.Cancel()
	return true
}

// Duration returns how long the entry has been running, or took to finish.
func (e *Entry) Duration() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.StartTime.IsZero() {
		return 0
	}
	if e.EndTime.IsZero() {
		return time.Since(e.StartTime)
	}
	return e.EndTime.Sub(e.StartTime)
}

// IsDone returns true once the entry has reached a terminal state.
func (e *Entry) IsDone() bool {
	return e.GetStatus().terminal()
}

// Summary returns a one-line summary of the entry.
func (e *Entry) Summary() string {
	status := e.GetStatus()
	summary := fmt.Sprintf("[%s] %s - %s", e.ID[:8], e.Description, status)
	if d := e.Duration(); d > 0 {
		summary += fmt.Sprintf(" (%.1fs)", d.Seconds())
	}
	return summary
}

// Snapshot is a read-only copy of an entry's visible fields at one moment.
type Snapshot struct {
	ID          string
	Description string
	Status      Status
	StartTime   time.Time
	EndTime     time.Time
	Error       string
}

// Snapshot captures the entry's visible fields (thread-safe).
func (e *Entry) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return Snapshot{
		ID:          e.ID,
		Description: e.Description,
		Status:      e.Status,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Error:       e.Error,
	}
}
