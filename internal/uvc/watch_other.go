//go:build !linux

package uvc

import "context"

// Watch is unavailable on this platform.
func Watch(context.Context, func(DeviceEvent)) error {
	return ErrUnsupportedPlatform
}
