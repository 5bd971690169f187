// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package async

import "time"

// =============================================================================
// RETRY
// =============================================================================

// Retry runs task up to attempts times, sleeping delay between attempts, and
// returns the first success or the last failure. A panicking task counts as
// a failed attempt.
//
// Retry has no cancellation awareness: once entered it runs its attempts to
// completion. Wrap the task with a token check if the caller needs to bail
// out early.
func Retry[T any](task func() (T, error), delay time.Duration, attempts int) (T, error) {
	var (
		v       T
		lastErr error
	)
	for i := 0; i < attempts; i++ {
		var err error
		v, err = protect(task)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	var zero T
	return zero, lastErr
}
