package input

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestDemandTrackerCounts(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	d := NewDemandTracker(discardLogger(), func(n int) {
		mu.Lock()
		seen = append(seen, n)
		mu.Unlock()
	})

	d.Register()
	d.Register()
	d.Unregister()
	if got := d.Count(); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}

	want := []int{1, 2, 1}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != len(want) {
		t.Fatalf("onChange calls = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("onChange[%d] = %d, want %d", i, seen[i], want[i])
		}
	}
}

func TestDemandTrackerUnregisterClampsAtZero(t *testing.T) {
	calls := 0
	d := NewDemandTracker(discardLogger(), func(int) { calls++ })

	if got := d.Unregister(); got != 0 {
		t.Errorf("Unregister on zero = %d", got)
	}
	if got := d.Count(); got != 0 {
		t.Errorf("Count = %d, want 0", got)
	}
	if calls != 0 {
		t.Errorf("onChange fired %d times for a clamped unregister", calls)
	}

	d.Register()
	if got := d.Count(); got != 1 {
		t.Errorf("Count after Register = %d, want 1", got)
	}
}

func TestDemandTrackerWaitWakesOnRegister(t *testing.T) {
	d := NewDemandTracker(discardLogger(), nil)

	done := make(chan error, 1)
	go func() { done <- d.WaitForDemand(context.Background()) }()

	select {
	case <-done:
		t.Fatal("WaitForDemand returned with no consumers")
	case <-time.After(20 * time.Millisecond):
	}

	d.Register()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WaitForDemand = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Register did not wake waiter")
	}
}

func TestDemandTrackerWaitReturnsImmediatelyWithDemand(t *testing.T) {
	d := NewDemandTracker(discardLogger(), nil)
	d.Register()
	if err := d.WaitForDemand(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestDemandTrackerWaitCancel(t *testing.T) {
	d := NewDemandTracker(discardLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- d.WaitForDemand(ctx) }()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("WaitForDemand = %v, want canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancel did not wake waiter")
	}
}

func TestDemandTrackerWakeRechecksCondition(t *testing.T) {
	d := NewDemandTracker(discardLogger(), nil)

	var mu sync.Mutex
	keep := true
	done := make(chan error, 1)
	go func() {
		done <- d.waitForDemand(context.Background(), func() bool {
			mu.Lock()
			defer mu.Unlock()
			return keep
		})
	}()

	// A Wake with the condition unchanged leaves the waiter blocked.
	time.Sleep(10 * time.Millisecond)
	d.Wake()
	select {
	case <-done:
		t.Fatal("waiter returned on Wake while condition still held")
	case <-time.After(20 * time.Millisecond):
	}

	mu.Lock()
	keep = false
	mu.Unlock()
	d.Wake()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("waitForDemand = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wake did not release waiter")
	}
}
