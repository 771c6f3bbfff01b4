// Package systemd reports readiness and liveness to the service manager
// over the sd_notify socket.
package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify messages. Outside systemd every call is a
// no-op.
type Notifier struct {
	logger   *slog.Logger
	notify   func(state string) (bool, error)
	interval time.Duration
}

// NewNotifier reads NOTIFY_SOCKET and WATCHDOG_USEC from the environment.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Notifier{
		logger: logger,
		notify: func(state string) (bool, error) { return daemon.SdNotify(false, state) },
	}
	timeout, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logger.Warn("Invalid watchdog environment", "error", err)
	}
	if timeout > 0 {
		n.interval = timeout / 2
	}
	return n
}

// WatchdogInterval is how often RunWatchdog pings, zero when the unit
// has no WatchdogSec.
func (n *Notifier) WatchdogInterval() time.Duration {
	return n.interval
}

// Ready sends READY=1.
func (n *Notifier) Ready() {
	n.send(daemon.SdNotifyReady)
}

// Stopping sends STOPPING=1.
func (n *Notifier) Stopping() {
	n.send(daemon.SdNotifyStopping)
}

// Status sets the free-form unit status line.
func (n *Notifier) Status(msg string) {
	n.send("STATUS=" + msg)
}

// RunWatchdog pings WATCHDOG=1 every interval while healthy reports true,
// until ctx is done. A stalled capture loop therefore lets systemd
// restart the service.
func (n *Notifier) RunWatchdog(ctx context.Context, healthy func() bool) {
	if n.interval <= 0 {
		return
	}
	n.logger.Info("Watchdog enabled", "interval", n.interval)

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if healthy() {
				n.send(daemon.SdNotifyWatchdog)
			} else {
				n.logger.Warn("Capture stalled, withholding watchdog ping")
			}
		}
	}
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(state)
	switch {
	case err != nil:
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
	case sent:
		n.logger.Debug("sd_notify sent", "state", state)
	}
}

// ProgressCheck returns a health check that passes when generation has
// moved since the previous call, or when expectFrames reports that no
// frames are due (paused or idle).
func ProgressCheck(generation func() uint64, expectFrames func() bool) func() bool {
	var last uint64
	return func() bool {
		gen := generation()
		advanced := gen != last
		last = gen
		return advanced || !expectFrames()
	}
}
