// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package event

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// collector gathers fired values behind a mutex so timer goroutines and the
// test goroutine don't race.
type collector[T any] struct {
	mu   sync.Mutex
	vals []T
}

func (c *collector[T]) add(v T) {
	c.mu.Lock()
	c.vals = append(c.vals, v)
	c.mu.Unlock()
}

func (c *collector[T]) snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.vals...)
}

// appendMerge folds events into a slice accumulator.
func appendMerge[T any](acc []T, v T) []T {
	return append(acc, v)
}

// =============================================================================
// DEBOUNCE TESTS
// =============================================================================

func TestDebounce_AccumulatesBurstAndFiresOnce(t *testing.T) {
	e := NewEmitter[int]()
	defer e.Dispose()

	var got collector[[]int]
	debounced := Debounce(e.Event(), appendMerge[int], DebounceOptions{Delay: 30 * time.Millisecond})
	sub := debounced(got.add)
	defer sub.Dispose()

	e.Fire(1)
	e.Fire(2)
	e.Fire(3)

	time.Sleep(120 * time.Millisecond)

	batches := got.snapshot()
	require.Len(t, batches, 1, "burst produced %d emissions, want 1", len(batches))
	assert.Equal(t, []int{1, 2, 3}, batches[0])
}

func TestDebounce_QuietPeriodRestartsOnEachEvent(t *testing.T) {
	e := NewEmitter[int]()
	defer e.Dispose()

	var got collector[[]int]
	debounced := Debounce(e.Event(), appendMerge[int], DebounceOptions{Delay: 60 * time.Millisecond})
	sub := debounced(got.add)
	defer sub.Dispose()

	// Keep firing inside the quiet period; nothing may flush yet.
	for i := 0; i < 4; i++ {
		e.Fire(i)
		time.Sleep(15 * time.Millisecond)
	}
	assert.Empty(t, got.snapshot(), "debounce flushed during an active burst")

	time.Sleep(200 * time.Millisecond)
	batches := got.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, []int{0, 1, 2, 3}, batches[0])
}

func TestDebounce_LeadingSingleEventBurstFiresExactlyOnce(t *testing.T) {
	e := NewEmitter[int]()
	defer e.Dispose()

	var got collector[[]int]
	debounced := Debounce(e.Event(), appendMerge[int], DebounceOptions{
		Delay:   30 * time.Millisecond,
		Leading: true,
	})
	sub := debounced(got.add)
	defer sub.Dispose()

	e.Fire(7)

	// Leading edge fires immediately.
	require.Len(t, got.snapshot(), 1, "leading edge did not fire immediately")

	// The trailing edge must NOT duplicate a single-event burst.
	time.Sleep(120 * time.Millisecond)
	batches := got.snapshot()
	require.Len(t, batches, 1, "single-event burst fired at both edges")
	assert.Equal(t, []int{7}, batches[0])
}

func TestDebounce_LeadingMultiEventBurstFiresBothEdges(t *testing.T) {
	e := NewEmitter[int]()
	defer e.Dispose()

	var got collector[[]int]
	debounced := Debounce(e.Event(), appendMerge[int], DebounceOptions{
		Delay:   30 * time.Millisecond,
		Leading: true,
	})
	sub := debounced(got.add)
	defer sub.Dispose()

	e.Fire(1)
	e.Fire(2)
	e.Fire(3)

	time.Sleep(120 * time.Millisecond)

	batches := got.snapshot()
	require.Len(t, batches, 2, "multi-event burst should fire leading and trailing")
	assert.Equal(t, []int{1}, batches[0], "leading edge should carry only the first event")
	assert.Equal(t, []int{1, 2, 3}, batches[1], "trailing edge should carry the whole burst")
}

func TestDebounce_UpstreamAttachedOnlyWhileListened(t *testing.T) {
	e := NewEmitter[int]()
	defer e.Dispose()

	debounced := Debounce(e.Event(), appendMerge[int], DebounceOptions{Delay: 10 * time.Millisecond})
	assert.False(t, e.HasListeners(), "debounce attached upstream before any listener")

	sub := debounced(func([]int) {})
	assert.True(t, e.HasListeners(), "debounce did not attach upstream on first listener")

	sub.Dispose()
	assert.False(t, e.HasListeners(), "debounce kept upstream after last listener left")
}

func TestDebounce_FlushOnRemoveDeliversPendingValue(t *testing.T) {
	e := NewEmitter[int]()
	defer e.Dispose()

	var got collector[[]int]
	debounced := Debounce(e.Event(), appendMerge[int], DebounceOptions{
		Delay:         time.Hour, // would never flush on its own
		FlushOnRemove: true,
	})
	sub := debounced(got.add)

	e.Fire(1)
	e.Fire(2)
	sub.Dispose()

	batches := got.snapshot()
	require.Len(t, batches, 1, "pending value not flushed to departing listener")
	assert.Equal(t, []int{1, 2}, batches[0])
}

func TestDebounce_ImmediateDelayFlushesOnNextYield(t *testing.T) {
	e := NewEmitter[int]()
	defer e.Dispose()

	flushed := make(chan []int, 1)
	debounced := Debounce(e.Event(), appendMerge[int], DebounceOptions{Delay: Immediate})
	sub := debounced(func(batch []int) {
		select {
		case flushed <- batch:
		default:
		}
	})
	defer sub.Dispose()

	e.Fire(1)
	e.Fire(2)

	select {
	case batch := <-flushed:
		// Both events may or may not have merged before the yield ran; at
		// minimum the first must be there and order must hold.
		require.NotEmpty(t, batch)
		assert.Equal(t, 1, batch[0])
	case <-time.After(time.Second):
		t.Fatal("immediate debounce never flushed")
	}
}

// =============================================================================
// DEBOUNCE WITH MAX WAIT TESTS
// =============================================================================

func TestDebounceWithMaxWait_TrailingFlushAfterQuiet(t *testing.T) {
	e := NewEmitter[int]()
	defer e.Dispose()

	var got collector[[]int]
	debounced := DebounceWithMaxWait(e.Event(), appendMerge[int], 30*time.Millisecond, 0)
	sub := debounced(got.add)
	defer sub.Dispose()

	e.Fire(1)
	e.Fire(2)

	time.Sleep(120 * time.Millisecond)

	batches := got.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, []int{1, 2}, batches[0])
}

func TestDebounceWithMaxWait_ForceFlushesBusyStream(t *testing.T) {
	e := NewEmitter[int]()
	defer e.Dispose()

	var got collector[[]int]
	// Quiet period is long relative to the event cadence, so only the
	// max-wait deadline can flush.
	debounced := DebounceWithMaxWait(e.Event(), appendMerge[int], 50*time.Millisecond, 120*time.Millisecond)
	sub := debounced(got.add)
	defer sub.Dispose()

	stop := time.After(400 * time.Millisecond)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	i := 0
loop:
	for {
		select {
		case <-stop:
			break loop
		case <-tick.C:
			e.Fire(i)
			i++
		}
	}

	batches := got.snapshot()
	require.NotEmpty(t, batches, "max wait never force-flushed a busy stream")
}

func TestDebounceWithMaxWait_DisposeStopsTimers(t *testing.T) {
	e := NewEmitter[int]()
	defer e.Dispose()

	var got collector[[]int]
	debounced := DebounceWithMaxWait(e.Event(), appendMerge[int], 20*time.Millisecond, 50*time.Millisecond)
	sub := debounced(got.add)

	e.Fire(1)
	sub.Dispose()

	time.Sleep(120 * time.Millisecond)
	assert.Empty(t, got.snapshot(), "flush fired after the subscription was disposed")
}

// =============================================================================
// DEFER TESTS
// =============================================================================

func TestDefer_CoalescesBurstIntoOneSignal(t *testing.T) {
	e := NewEmitter[int]()
	defer e.Dispose()

	var mu sync.Mutex
	signals := 0
	deferred := Defer(e.Event())
	sub := deferred(func(struct{}) {
		mu.Lock()
		signals++
		mu.Unlock()
	})
	defer sub.Dispose()

	e.Fire(1)
	e.Fire(2)
	e.Fire(3)

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, signals, "burst produced %d deferred signals, want 1", signals)
}

// =============================================================================
// BATCHER / COALESCER TESTS
// =============================================================================

func TestBatcher_FlushesPushedItemsAsOneSlice(t *testing.T) {
	b := NewBatcher[string]()
	defer b.Dispose()

	var got collector[[]string]
	sub := b.OnFlush()(got.add)
	defer sub.Dispose()

	b.Push("a")
	b.Push("b")
	b.Push("c")

	time.Sleep(100 * time.Millisecond)

	batches := got.snapshot()
	require.Len(t, batches, 1, "pushes produced %d flushes, want 1", len(batches))
	assert.Equal(t, []string{"a", "b", "c"}, batches[0])
}

func TestBatcher_ExplicitFlushDeliversImmediately(t *testing.T) {
	b := NewBatcher[int]()
	defer b.Dispose()

	var got collector[[]int]
	sub := b.OnFlush()(got.add)
	defer sub.Dispose()

	b.Push(1)
	b.Flush()

	batches := got.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, []int{1}, batches[0])
}

func TestCoalescer_WindowRestartsOnEveryAdd(t *testing.T) {
	c := NewCoalescer[int](60 * time.Millisecond)
	defer c.Dispose()

	var got collector[[]int]
	sub := c.OnFlush()(got.add)
	defer sub.Dispose()

	// Additions spaced inside the window keep deferring the flush.
	for i := 0; i < 4; i++ {
		c.Add(i)
		time.Sleep(15 * time.Millisecond)
	}
	assert.Empty(t, got.snapshot(), "coalescer flushed while additions kept arriving")

	time.Sleep(200 * time.Millisecond)

	batches := got.snapshot()
	require.Len(t, batches, 1, "coalescer produced %d batches, want 1", len(batches))
	assert.Equal(t, []int{0, 1, 2, 3}, batches[0])
}

func TestCoalescer_DisposeDropsPendingBatch(t *testing.T) {
	c := NewCoalescer[int](20 * time.Millisecond)

	var got collector[[]int]
	c.OnFlush()(got.add)

	c.Add(1)
	c.Dispose()

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, got.snapshot(), "disposed coalescer still flushed")
}
