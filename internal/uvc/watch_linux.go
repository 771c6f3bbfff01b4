//go:build linux

package uvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/smazurov/uvcnode/pkg/linuxav/hotplug"
)

// Watch calls fn for every video4linux node the kernel adds or removes
// until ctx is done. It returns nil on cancellation.
func Watch(ctx context.Context, fn func(DeviceEvent)) error {
	mon, err := hotplug.NewMonitor(hotplug.SubsystemVideo4Linux)
	if err != nil {
		return fmt.Errorf("open uevent socket: %w", err)
	}
	defer func() { _ = mon.Close() }()

	ch := make(chan hotplug.Event, 16)
	done := make(chan error, 1)
	go func() { done <- mon.Run(ctx, ch) }()

	for ev := range ch {
		if node := ev.Node(); node != "" {
			fn(DeviceEvent{Action: ev.Action, Path: node})
		}
	}

	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
