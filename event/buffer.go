// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package event

import (
	"sync"
	"time"

	"github.com/jeranaias/rigflow/internal/schedule"
)

// =============================================================================
// BUFFER
// =============================================================================

// Buffer derives an event that subscribes to the upstream immediately and
// accumulates events fired before any downstream listener exists. The first
// listener to attach receives the buffered events replayed in their original
// order; events fired once a listener exists are delivered immediately,
// unbuffered.
//
// flushAfter, when positive, auto-flushes the buffer after that duration even
// if no listener has attached: buffered events are dropped and later events
// pass straight through. The timeout is guarded against firing after the
// combinator has been torn down. Zero disables it.
//
// seed values, if any, are replayed ahead of any buffered upstream events.
func Buffer[T any](upstream Event[T], flushAfter time.Duration, seed ...T) Event[T] {
	var (
		mu        sync.Mutex
		buffering = true
		buf       = append([]T(nil), seed...)
		tornDown  bool
		timeout   *schedule.Handle
	)
	var emitter *Emitter[T]

	// flush replays the buffer in order and switches to passthrough.
	flush := func() {
		mu.Lock()
		if tornDown || !buffering {
			mu.Unlock()
			return
		}
		buffering = false
		pending := buf
		buf = nil
		mu.Unlock()
		for _, v := range pending {
			emitter.Fire(v)
		}
	}

	sub := upstream(func(v T) {
		mu.Lock()
		if buffering {
			buf = append(buf, v)
			mu.Unlock()
			return
		}
		mu.Unlock()
		emitter.Fire(v)
	})

	if flushAfter > 0 {
		timeout = schedule.After(flushAfter, flush)
	}

	emitter = NewEmitterWithOptions[T](Options{
		OnFirstListener: flush,
		OnLastListener: func() {
			mu.Lock()
			tornDown = true
			if timeout != nil {
				timeout.Stop()
				timeout = nil
			}
			mu.Unlock()
			sub.Dispose()
		},
	})
	return emitter.Event()
}
