// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jeranaias/rigflow/cancellation"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// =============================================================================
// DELAYER TESTS (SHARED RESULT)
// =============================================================================

func TestDelayer_FiveTriggersOneResultCarryingTheFifthTask(t *testing.T) {
	d := NewDelayer[int](40 * time.Millisecond)
	defer d.Dispose()

	var executed atomic.Int32
	task := func(v int) func() (int, error) {
		return func() (int, error) {
			executed.Add(1)
			return v, nil
		}
	}

	futures := make([]*Future[int], 0, 5)
	for i := 1; i <= 5; i++ {
		futures = append(futures, d.Trigger(task(i)))
	}

	// All five triggers inside one window share one completion.
	for i := 1; i < 5; i++ {
		if futures[i] != futures[0] {
			t.Fatalf("trigger %d returned a different future than trigger 1", i+1)
		}
	}

	v, err := futures[0].Await(testCtx(t))
	if err != nil {
		t.Fatalf("shared result rejected: %v", err)
	}
	if v != 5 {
		t.Errorf("shared result = %d, want the 5th task's outcome 5", v)
	}
	if executed.Load() != 1 {
		t.Errorf("%d tasks executed, want 1 (earlier tasks discarded)", executed.Load())
	}
}

func TestDelayer_FlushRunsRememberedTaskImmediately(t *testing.T) {
	d := NewDelayer[int](time.Hour) // would never expire on its own
	defer d.Dispose()

	for i := 1; i <= 5; i++ {
		v := i
		d.Trigger(func() (int, error) { return v, nil })
	}

	fut := d.Flush()
	if fut == nil {
		t.Fatal("Flush returned nil with a task pending")
	}
	v, err := fut.Await(testCtx(t))
	if err != nil {
		t.Fatalf("flushed result rejected: %v", err)
	}
	if v != 5 {
		t.Errorf("flushed result = %d, want the last-set task's outcome 5", v)
	}
	if d.IsTriggered() {
		t.Error("delayer still triggered after flush")
	}
}

func TestDelayer_FlushWhenIdleReturnsNil(t *testing.T) {
	d := NewDelayer[int](10 * time.Millisecond)
	defer d.Dispose()
	if fut := d.Flush(); fut != nil {
		t.Error("Flush on an idle delayer should return nil")
	}
}

func TestDelayer_CancelRejectsSharedResultWithCancellation(t *testing.T) {
	d := NewDelayer[int](time.Hour)

	fut := d.Trigger(func() (int, error) { return 1, nil })
	d.Cancel()

	_, err := fut.Await(testCtx(t))
	if !cancellation.IsCancellation(err) {
		t.Errorf("cancelled delayer rejected with %v, want a cancellation error", err)
	}
}

func TestDelayer_TaskMayRetriggerFromInsideItself(t *testing.T) {
	d := NewDelayer[string](10 * time.Millisecond)
	defer d.Dispose()

	var second *Future[string]
	var mu sync.Mutex
	first := d.Trigger(func() (string, error) {
		// Pending state was nulled before we ran, so this starts a fresh
		// window instead of deadlocking on stale state.
		mu.Lock()
		second = d.Trigger(func() (string, error) { return "second", nil })
		mu.Unlock()
		return "first", nil
	})

	v, err := first.Await(testCtx(t))
	if err != nil || v != "first" {
		t.Fatalf("first window = (%q, %v), want (first, nil)", v, err)
	}

	mu.Lock()
	sec := second
	mu.Unlock()
	v, err = sec.Await(testCtx(t))
	if err != nil || v != "second" {
		t.Fatalf("re-trigger window = (%q, %v), want (second, nil)", v, err)
	}
}

// =============================================================================
// DEBOUNCER TESTS (INDEPENDENT RESULTS)
// =============================================================================

func TestDebouncer_NewTriggerCancelsPreviousResult(t *testing.T) {
	d := NewDebouncer[string](30 * time.Millisecond)
	defer d.Dispose()

	first := d.Trigger(func() (string, error) { return "first", nil })
	second := d.Trigger(func() (string, error) { return "second", nil })

	if first == second {
		t.Fatal("independent-result variant returned a shared future")
	}

	_, err := first.Await(testCtx(t))
	if !cancellation.IsCancellation(err) {
		t.Errorf("first trigger rejected with %v, want a cancellation error", err)
	}

	v, err := second.Await(testCtx(t))
	if err != nil {
		t.Fatalf("second trigger rejected: %v", err)
	}
	if v != "second" {
		t.Errorf("second trigger = %q, want %q", v, "second")
	}
}

func TestDebouncer_CancelWhenIdleIsANoop(t *testing.T) {
	d := NewDebouncer[int](10 * time.Millisecond)
	// Nothing pending: Cancel and Dispose must both be guaranteed no-ops.
	d.Cancel()
	if err := d.Dispose(); err != nil {
		t.Errorf("Dispose on idle debouncer returned %v", err)
	}
}

func TestDebouncer_CancelRejectsPendingTrigger(t *testing.T) {
	d := NewDebouncer[int](time.Hour)

	fut := d.Trigger(func() (int, error) { return 1, nil })
	d.Cancel()

	_, err := fut.Await(testCtx(t))
	if !cancellation.IsCancellation(err) {
		t.Errorf("pending trigger rejected with %v, want a cancellation error", err)
	}
	if d.IsTriggered() {
		t.Error("debouncer still triggered after cancel")
	}
}

// =============================================================================
// ONE-SHOT SCHEDULER TESTS
// =============================================================================

func TestOneShot_ScheduleCancelFlush(t *testing.T) {
	var runs atomic.Int32
	o := NewOneShot(func() { runs.Add(1) }, 30*time.Millisecond)
	defer o.Dispose()

	// Cancel before expiry: callback never runs.
	o.Schedule()
	if !o.IsScheduled() {
		t.Error("IsScheduled false right after Schedule")
	}
	o.Cancel()
	time.Sleep(80 * time.Millisecond)
	if runs.Load() != 0 {
		t.Error("cancelled schedule still ran")
	}

	// Flush: cancel the timer and run immediately, exactly once.
	o.Schedule(time.Hour)
	o.Flush()
	if runs.Load() != 1 {
		t.Errorf("flush ran callback %d times, want 1", runs.Load())
	}
	if o.IsScheduled() {
		t.Error("still scheduled after flush")
	}

	// Flush with nothing pending is a no-op.
	o.Flush()
	if runs.Load() != 1 {
		t.Error("idle flush ran the callback")
	}

	// Re-scheduling restarts rather than stacking.
	o.Schedule(30 * time.Millisecond)
	o.Schedule(30 * time.Millisecond)
	time.Sleep(120 * time.Millisecond)
	if runs.Load() != 2 {
		t.Errorf("double schedule produced %d extra runs, want 1", runs.Load()-1)
	}
}

// =============================================================================
// IDLE VALUE TESTS
// =============================================================================

func TestIdleValue_EarlyReadForcesSingleComputation(t *testing.T) {
	var computes atomic.Int32
	v := NewIdleValueAfter(func() (int, error) {
		computes.Add(1)
		return 42, nil
	}, time.Hour) // idle time "never" arrives

	got, err := v.Value()
	if err != nil || got != 42 {
		t.Fatalf("Value = (%d, %v), want (42, nil)", got, err)
	}
	v.Value() // cached

	time.Sleep(20 * time.Millisecond)
	if computes.Load() != 1 {
		t.Errorf("executor ran %d times, want 1", computes.Load())
	}
}

func TestIdleValue_ComputesAtIdleWithoutRead(t *testing.T) {
	var computes atomic.Int32
	v := NewIdleValue(func() (int, error) {
		computes.Add(1)
		return 7, nil
	})

	deadline := time.After(time.Second)
	for !v.IsComputed() {
		select {
		case <-deadline:
			t.Fatal("idle computation never ran")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	got, err := v.Value()
	if err != nil || got != 7 {
		t.Fatalf("Value = (%d, %v), want (7, nil)", got, err)
	}
	if computes.Load() != 1 {
		t.Errorf("executor ran %d times, want 1", computes.Load())
	}
}

func TestIdleValue_CachesError(t *testing.T) {
	boom := errors.New("boom")
	var computes atomic.Int32
	v := NewIdleValueAfter(func() (int, error) {
		computes.Add(1)
		return 0, boom
	}, time.Hour)

	_, err1 := v.Value()
	_, err2 := v.Value()
	if !errors.Is(err1, boom) || !errors.Is(err2, boom) {
		t.Error("error not cached across reads")
	}
	if computes.Load() != 1 {
		t.Error("failed executor re-ran")
	}
}

// =============================================================================
// RATE LIMITER TESTS
// =============================================================================

func TestRateLimiter_CollapsesWindowCallsToLatestArguments(t *testing.T) {
	var mu sync.Mutex
	var got []int
	r := NewRateLimiter(100*time.Millisecond, func(v int) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	})
	defer r.Dispose()

	r.Call(1) // fires immediately
	r.Call(2) // inside the window: deferred
	r.Call(3) // replaces 2

	mu.Lock()
	if len(got) != 1 || got[0] != 1 {
		mu.Unlock()
		t.Fatalf("immediate fire = %v, want [1]", got)
	}
	mu.Unlock()

	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("%d invocations, want 2 (in-window calls must collapse)", len(got))
	}
	if got[1] != 3 {
		t.Errorf("boundary fire = %d, want the most recent arguments 3", got[1])
	}
}

// =============================================================================
// RETRY TESTS
// =============================================================================

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	attempts := 0
	v, err := Retry(func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	}, time.Millisecond, 5)

	if err != nil || v != "ok" {
		t.Fatalf("Retry = (%q, %v), want (ok, nil)", v, err)
	}
	if attempts != 3 {
		t.Errorf("task ran %d times, want 3", attempts)
	}
}

func TestRetry_ReturnsLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	_, err := Retry(func() (int, error) {
		calls++
		return 0, errors.New("always")
	}, time.Millisecond, 3)

	if err == nil {
		t.Fatal("exhausted retry returned nil error")
	}
	if calls != 3 {
		t.Errorf("task ran %d times, want 3", calls)
	}
}
