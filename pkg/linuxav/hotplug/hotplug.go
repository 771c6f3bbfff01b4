//go:build linux

// Package hotplug reads kernel uevents from a netlink socket, without cgo
// or libudev.
package hotplug

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"syscall"
)

// Kernel uevent actions.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionChange = "change"
)

// SubsystemVideo4Linux is the subsystem of V4L2 device nodes.
const SubsystemVideo4Linux = "video4linux"

const (
	netlinkKobjectUEvent = 15
	kernelGroup          = 1
	recvTimeoutSec       = 1
	recvBufferSize       = 8192
)

// Event is one kernel device event.
type Event struct {
	Action    string
	KObj      string // sysfs path of the kernel object
	Subsystem string
	DevType   string
	DevName   string // node name relative to /dev, e.g. "video0"
	Env       map[string]string
}

// Node returns the /dev path of the event's device node, or "" when the
// event carries no DEVNAME.
func (e Event) Node() string {
	if e.DevName == "" {
		return ""
	}
	return "/dev/" + e.DevName
}

// Monitor is a bound netlink uevent socket.
type Monitor struct {
	fd         int
	subsystems []string
}

// NewMonitor opens the socket. With subsystems given, only events from
// those subsystems are delivered.
func NewMonitor(subsystems ...string) (*Monitor, error) {
	fd, err := syscall.Socket(syscall.AF_NETLINK, syscall.SOCK_DGRAM|syscall.SOCK_CLOEXEC, netlinkKobjectUEvent)
	if err != nil {
		return nil, err
	}
	if err := syscall.Bind(fd, &syscall.SockaddrNetlink{Family: syscall.AF_NETLINK, Groups: kernelGroup}); err != nil {
		_ = syscall.Close(fd)
		return nil, err
	}
	// Bounded reads let Run notice cancellation.
	tv := syscall.Timeval{Sec: recvTimeoutSec}
	if err := syscall.SetsockoptTimeval(fd, syscall.SOL_SOCKET, syscall.SO_RCVTIMEO, &tv); err != nil {
		_ = syscall.Close(fd)
		return nil, err
	}
	return &Monitor{fd: fd, subsystems: slices.Clone(subsystems)}, nil
}

// Close releases the socket. Call it after Run has returned.
func (m *Monitor) Close() error {
	return syscall.Close(m.fd)
}

// Run delivers events to out until ctx is done or the socket fails. It
// closes out on return.
func (m *Monitor) Run(ctx context.Context, out chan<- Event) error {
	defer close(out)

	buf := make([]byte, recvBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, _, err := syscall.Recvfrom(m.fd, buf, 0)
		switch {
		case errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.EINTR):
			continue
		case err != nil:
			return err
		}

		ev, ok := ParseUEvent(buf[:n])
		if !ok || !m.wants(ev.Subsystem) {
			continue
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *Monitor) wants(subsystem string) bool {
	return len(m.subsystems) == 0 || slices.Contains(m.subsystems, subsystem)
}

// ParseUEvent decodes a kernel message, "ACTION@KOBJ\0KEY=VALUE\0...".
// Messages rebroadcast by udevd start with a binary libudev header and
// are rejected; the monitor only joins the kernel group.
func ParseUEvent(data []byte) (Event, bool) {
	if bytes.HasPrefix(data, []byte("libudev")) {
		return Event{}, false
	}

	header, rest, _ := bytes.Cut(data, []byte{0})
	action, kobj, ok := strings.Cut(string(header), "@")
	if !ok || action == "" {
		return Event{}, false
	}

	ev := Event{Action: action, KObj: kobj, Env: make(map[string]string)}
	for _, f := range bytes.Split(rest, []byte{0}) {
		key, value, ok := strings.Cut(string(f), "=")
		if !ok || key == "" {
			continue
		}
		ev.Env[key] = value
	}
	ev.Subsystem = ev.Env["SUBSYSTEM"]
	ev.DevType = ev.Env["DEVTYPE"]
	ev.DevName = ev.Env["DEVNAME"]
	return ev, true
}
