package input

import (
	"context"
	"log/slog"
	"sync"
)

// DemandTracker counts live consumers of one input.
type DemandTracker struct {
	mu       sync.Mutex
	cond     *sync.Cond
	count    int
	logger   *slog.Logger
	onChange func(count int)
}

// NewDemandTracker returns a tracker at zero. onChange, if set, runs with
// the tracker lock held after every change and must not call back into it.
func NewDemandTracker(logger *slog.Logger, onChange func(count int)) *DemandTracker {
	if logger == nil {
		logger = slog.Default()
	}
	d := &DemandTracker{logger: logger, onChange: onChange}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Register adds a consumer. Going from zero to one wakes an idle loop.
func (d *DemandTracker) Register() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.count++
	if d.count == 1 {
		d.cond.Broadcast()
	}
	d.notify()
	return d.count
}

// Unregister removes a consumer. It never drops below zero; an extra call
// is logged and ignored. Reaching zero does not interrupt the loop.
func (d *DemandTracker) Unregister() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.count == 0 {
		d.logger.Warn("Unregister called with no registered consumers")
		return 0
	}
	d.count--
	d.notify()
	return d.count
}

// Count returns the number of registered consumers.
func (d *DemandTracker) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// WaitForDemand blocks until at least one consumer is registered or ctx
// is done.
func (d *DemandTracker) WaitForDemand(ctx context.Context) error {
	return d.waitForDemand(ctx, nil)
}

// waitForDemand is WaitForDemand that also returns once keepWaiting
// reports false. keepWaiting is evaluated with the tracker lock held, on
// entry and after every Wake.
func (d *DemandTracker) waitForDemand(ctx context.Context, keepWaiting func() bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.cond.Broadcast()
	})
	defer stop()

	for d.count == 0 {
		if keepWaiting != nil && !keepWaiting() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		d.cond.Wait()
	}
	return nil
}

// Wake makes blocked waiters re-check their condition, used after
// stop-on-idle is switched off.
func (d *DemandTracker) Wake() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cond.Broadcast()
}

func (d *DemandTracker) notify() {
	if d.onChange != nil {
		d.onChange(d.count)
	}
}
