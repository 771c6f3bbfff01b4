//go:build linux && (amd64 || arm64)

package uvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/smazurov/uvcnode/internal/input"
	"github.com/smazurov/uvcnode/pkg/linuxav/v4l2"
)

// Device is an open V4L2 capture node. All methods are safe for
// concurrent use; the stream is only touched under mu.
type Device struct {
	mu          sync.Mutex
	stream      *v4l2.Stream
	opts        Options
	pixelFormat uint32
	format      input.Format
	resolutions []input.ResolutionOption
	buf         []byte
	closed      bool
	logger      *slog.Logger
}

// Open opens and configures the node. Streaming starts on the first Grab.
func Open(ctx context.Context, opts Options) (*Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	code, err := pixelFormatCode(opts.PixelFormat)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("device", opts.Device)

	stream, err := v4l2.OpenStream(opts.Device, v4l2.StreamConfig{
		Width:       uint32(opts.Width),
		Height:      uint32(opts.Height),
		FPS:         uint32(opts.FPS),
		PixelFormat: code,
		Buffers:     opts.Buffers,
	})
	if err != nil {
		return nil, err
	}

	d := &Device{stream: stream, opts: opts, pixelFormat: code, logger: logger}
	d.applyFormat(stream.Format())

	resolutions, err := stream.Resolutions()
	if err != nil {
		logger.Warn("Failed to enumerate resolutions", "error", err)
	}
	d.resolutions = toResolutions(resolutions)

	if d.format.Width != opts.Width || d.format.Height != opts.Height {
		logger.Warn("Driver adjusted resolution",
			"requested", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
			"negotiated", fmt.Sprintf("%dx%d", d.format.Width, d.format.Height))
	}
	if fr := stream.Framerate(); fr.Denominator > 0 {
		logger.Info("Device opened", "format", d.format.PixelFormat,
			"width", d.format.Width, "height", d.format.Height, "fps", fr.FPS())
	} else {
		logger.Info("Device opened, framerate not settable", "format", d.format.PixelFormat,
			"width", d.format.Width, "height", d.format.Height)
	}
	return d, nil
}

func (d *Device) applyFormat(pix v4l2.PixFormat) {
	d.format = toFormat(pix)
	if size := frameBufferSize(pix); len(d.buf) < size {
		d.buf = make([]byte, size)
	}
}

// Format returns the negotiated format.
func (d *Device) Format() input.Format {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.format
}

// Resolutions lists the frame sizes offered for the active pixel format.
func (d *Device) Resolutions() []input.ResolutionOption {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]input.ResolutionOption(nil), d.resolutions...)
}

// Grab waits for the next frame. The returned data is reused by the
// following Grab.
func (d *Device) Grab(ctx context.Context) (input.RawFrame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return input.RawFrame{}, err
		}

		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			return input.RawFrame{}, ErrClosed
		}
		info, err := d.stream.ReadFrame(d.buf, grabPoll)
		if errors.Is(err, v4l2.ErrFrameTimeout) {
			d.mu.Unlock()
			continue
		}
		if err != nil {
			d.mu.Unlock()
			return input.RawFrame{}, err
		}
		frame := input.RawFrame{
			Data:       d.buf[:info.Size],
			Width:      d.format.Width,
			Height:     d.format.Height,
			Compressed: d.format.Compressed,
		}
		if !frame.Compressed {
			frame.Stride = d.format.BytesPerLine
		}
		d.mu.Unlock()
		return frame, nil
	}
}

// SetControl writes a native control.
func (d *Device) SetControl(id uint32, value int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return d.stream.SetControl(id, value)
}

// SetResolution renegotiates the capture size. On failure the previous
// size is restored.
func (d *Device) SetResolution(width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	prev := d.format
	err := d.stream.Reconfigure(d.streamConfig(width, height))
	if err != nil {
		if restoreErr := d.stream.Reconfigure(d.streamConfig(prev.Width, prev.Height)); restoreErr != nil {
			return errors.Join(err, fmt.Errorf("restore %dx%d: %w", prev.Width, prev.Height, restoreErr))
		}
		return err
	}

	d.applyFormat(d.stream.Format())
	d.logger.Info("Resolution changed", "width", d.format.Width, "height", d.format.Height)
	return nil
}

func (d *Device) streamConfig(width, height int) v4l2.StreamConfig {
	return v4l2.StreamConfig{
		Width:       uint32(width),
		Height:      uint32(height),
		FPS:         uint32(d.opts.FPS),
		PixelFormat: d.pixelFormat,
		Buffers:     d.opts.Buffers,
	}
}

// SetJPEGQuality pushes the quality to devices that compress in hardware.
// Raw formats report unsupported so the encoder applies it instead.
func (d *Device) SetJPEGQuality(quality int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false, ErrClosed
	}
	if !d.format.Compressed {
		return false, nil
	}
	err := d.stream.SetJPEGQuality(quality)
	if errors.Is(err, v4l2.ErrUnsupported) {
		return false, nil
	}
	return err == nil, err
}

// Release stops streaming; the next Grab restarts it.
func (d *Device) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	return d.stream.StreamOff()
}

// Close stops streaming and closes the node. Extra calls are no-ops.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.stream.Close()
}

// Enumerate lists native controls, implementing input.ControlRegistry.
func (d *Device) Enumerate() ([]input.ControlDescriptor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	controls, err := d.stream.Controls()
	if err != nil {
		return nil, err
	}
	out := make([]input.ControlDescriptor, 0, len(controls))
	for _, c := range controls {
		out = append(out, toDescriptor(c))
	}
	return out, nil
}

var (
	_ input.CaptureDevice   = (*Device)(nil)
	_ input.ControlRegistry = (*Device)(nil)
)
