// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cancellation

import (
	"context"
	"errors"
	"strings"
)

// =============================================================================
// CANCELLATION ERRORS
// =============================================================================

// ErrCancelled is the distinguished error kind for voluntarily abandoned
// work. By convention it is expected, not a failure: callers filter it out
// before reporting.
var ErrCancelled = errors.New("cancelled")

// IsCancellation classifies err as a cancellation. Detection accepts exact
// identity (errors.Is against ErrCancelled and context.Canceled) plus a
// message-based fallback so errors that crossed a serialization boundary —
// an IPC hop, a JSON round trip — still classify correctly.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
		return true
	}
	switch strings.TrimSpace(err.Error()) {
	case "cancelled", "canceled", "context canceled", "operation cancelled", "operation canceled":
		return true
	}
	return false
}
