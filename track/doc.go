// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package track provides bookkeeping for coordinated background operations.
//
// This package registers long-running operations, enforces their status
// transitions, and publishes state changes through an event so UIs and
// supervisors can observe work without polling.
//
// # Key Types
//
//   - Entry: One tracked operation with an ID, status, and cancellation token
//   - Tracker: Registry of entries with history pruning and change events
//   - Notification: Value published on every entry state change
//
// # Usage
//
// Register and run an operation:
//
//	tr := track.NewTracker(100)
//	entry := tr.Register("rebuild index")
//	tr.Begin(entry.ID)
//	go func() {
//	    err := rebuild(entry.Token())
//	    if err != nil {
//	        tr.Fail(entry.ID, err)
//	        return
//	    }
//	    tr.Complete(entry.ID)
//	}()
//
// Observe state changes:
//
//	tr.OnChange()(func(n track.Notification) {
//	    log.Printf("%s: %s", n.Description, n.Status)
//	})
package track
