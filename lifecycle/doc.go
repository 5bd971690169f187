// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lifecycle provides disposable-resource primitives for rigflow.
//
// Every component in rigflow that holds a resource (a listener entry, a timer,
// a watcher handle) exposes its teardown through the Disposable interface.
// Disposal is always idempotent: calling Dispose more than once is safe and
// the second call is a no-op.
//
// # Key Types
//
//   - Disposable: Anything exposing a single, idempotent teardown operation
//   - Func: Adapter turning a plain function into a Disposable
//   - Store: An unordered set of disposables owned collectively
//   - Slot: A single-slot container that disposes the old value on replace
//
// # Usage
//
// Collect subscriptions into a store and tear everything down at once:
//
//	store := lifecycle.NewStore()
//	store.Add(emitter.Event()(onChange))
//	store.Add(lifecycle.Func(func() error { return watcher.Close() }))
//	defer store.Dispose()
//
// Bulk teardown (Clear/Dispose) never fails: per-item errors are aggregated
// and logged, and every member is disposed regardless. A targeted
// DeleteAndDispose, by contrast, returns that item's error to the caller.
package lifecycle
