//go:build !(linux && (amd64 || arm64))

package uvc

import (
	"context"
	"errors"

	"github.com/smazurov/uvcnode/internal/input"
)

// ErrUnsupportedPlatform is returned by Open where V4L2 is unavailable.
var ErrUnsupportedPlatform = errors.New("uvc: capture requires linux on amd64 or arm64")

// Device is unavailable on this platform.
type Device struct{}

// Open always fails on this platform.
func Open(ctx context.Context, opts Options) (*Device, error) {
	if _, err := pixelFormatCode(opts.PixelFormat); err != nil {
		return nil, err
	}
	return nil, ErrUnsupportedPlatform
}

func (d *Device) Format() input.Format { return input.Format{} }
func (d *Device) Resolutions() []input.ResolutionOption { return nil }
func (d *Device) Grab(context.Context) (input.RawFrame, error) { return input.RawFrame{}, ErrUnsupportedPlatform }
func (d *Device) SetControl(uint32, int32) error { return ErrUnsupportedPlatform }
func (d *Device) SetResolution(int, int) error { return ErrUnsupportedPlatform }
func (d *Device) SetJPEGQuality(int) (bool, error) { return false, ErrUnsupportedPlatform }
func (d *Device) Release() error { return nil }
func (d *Device) Close() error { return nil }
func (d *Device) Enumerate() ([]input.ControlDescriptor, error) { return nil, ErrUnsupportedPlatform }
