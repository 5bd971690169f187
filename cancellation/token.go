// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cancellation

import (
	"sync"

	"github.com/jeranaias/rigflow/event"
	"github.com/jeranaias/rigflow/lifecycle"
)

// =============================================================================
// TOKEN
// =============================================================================

// Token is an immutable cancellation capability handed to the work being
// cancelled. The owner keeps the Source; the work keeps the Token.
type Token interface {
	// Requested reports whether cancellation has been requested.
	Requested() bool

	// OnRequested subscribes fn to the cancellation signal. The subscription
	// fires at most once. On a token that is already cancelled the listener
	// never fires (the signal is in the past); callers must check Requested
	// proactively.
	OnRequested(fn func(), stores ...*lifecycle.Store) lifecycle.Disposable
}

// None is the token of operations that can never be cancelled.
var None Token = neverToken{}

// Cancelled is the token of operations that were cancelled before they ever
// allocated a real token.
var Cancelled Token = cancelledToken{}

// =============================================================================
// SINGLETON TOKENS
// =============================================================================

type neverToken struct{}

func (neverToken) Requested() bool { return false }

func (neverToken) OnRequested(func(), ...*lifecycle.Store) lifecycle.Disposable {
	return lifecycle.Noop
}

type cancelledToken struct{}

func (cancelledToken) Requested() bool { return true }

func (cancelledToken) OnRequested(func(), ...*lifecycle.Store) lifecycle.Disposable {
	return lifecycle.Noop
}

// =============================================================================
// MUTABLE TOKEN
// =============================================================================

// mutableToken is the real token allocated by a Source. The emitter is
// created lazily on the first subscription and released after the single
// fire.
type mutableToken struct {
	mu        sync.Mutex
	requested bool
	emitter   *event.Emitter[struct{}]
}

func (t *mutableToken) Requested() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.requested
}

func (t *mutableToken) OnRequested(fn func(), stores ...*lifecycle.Store) lifecycle.Disposable {
	t.mu.Lock()
	if t.requested {
		// Same contract as the Cancelled singleton: a late listener never
		// fires.
		t.mu.Unlock()
		return lifecycle.Noop
	}
	if t.emitter == nil {
		t.emitter = event.NewEmitter[struct{}]()
	}
	ev := t.emitter.Event()
	t.mu.Unlock()
	return ev(func(struct{}) { fn() }, stores...)
}

// cancel flips the flag exactly once, fires the requested event, then
// releases the emitter.
func (t *mutableToken) cancel() {
	t.mu.Lock()
	if t.requested {
		t.mu.Unlock()
		return
	}
	t.requested = true
	em := t.emitter
	t.emitter = nil
	t.mu.Unlock()
	if em != nil {
		em.Fire(struct{}{})
		em.Dispose()
	}
}
