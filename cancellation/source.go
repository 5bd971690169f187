// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cancellation

import (
	"sync"

	"github.com/jeranaias/rigflow/lifecycle"
)

// =============================================================================
// SOURCE
// =============================================================================

// Source is the mutable owner of a Token. The token is allocated lazily on
// the first Token call; cancelling a source whose token was never read skips
// the allocation entirely and substitutes the Cancelled singleton so a later
// read still observes a cancelled token.
type Source struct {
	mu        sync.Mutex
	token     Token // nil until first read or cancel
	parentSub lifecycle.Disposable
}

// NewSource creates an independent cancellation source.
func NewSource() *Source {
	return &Source{}
}

// NewLinkedSource creates a source that is cancelled automatically when
// parent is cancelled, yielding hierarchical cancellation: cancelling a
// top-level operation cancels every derived sub-operation. A nil parent
// behaves like NewSource.
func NewLinkedSource(parent Token) *Source {
	s := NewSource()
	if parent == nil {
		return s
	}
	// An already-cancelled parent never fires its event; check the flag.
	if parent.Requested() {
		s.Cancel()
		return s
	}
	s.parentSub = parent.OnRequested(s.Cancel)
	return s
}

// Token returns the source's token, allocating it on first read.
func (s *Source) Token() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		s.token = &mutableToken{}
	}
	return s.token
}

// Cancel requests cancellation. The first call flips the token's flag and
// fires its requested event exactly once; later calls are no-ops. If no
// token was ever allocated, the Cancelled singleton is substituted instead
// of paying for an allocation.
func (s *Source) Cancel() {
	s.mu.Lock()
	if s.token == nil {
		s.token = Cancelled
		s.mu.Unlock()
		return
	}
	mt, ok := s.token.(*mutableToken)
	s.mu.Unlock()
	if ok {
		mt.cancel()
	}
}

// Requested reports whether this source has been cancelled, without forcing
// token allocation.
func (s *Source) Requested() bool {
	s.mu.Lock()
	tok := s.token
	s.mu.Unlock()
	return tok != nil && tok.Requested()
}

// Dispose detaches the parent subscription, optionally cancelling first.
// Idempotent; safe to call on a source that was never linked.
func (s *Source) Dispose(cancelFirst bool) error {
	if cancelFirst {
		s.Cancel()
	}
	s.mu.Lock()
	sub := s.parentSub
	s.parentSub = nil
	s.mu.Unlock()
	if sub != nil {
		return sub.Dispose()
	}
	return nil
}
