package input

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// fakeDevice is a scriptable CaptureDevice. With frames set, Grab hands
// them out one by one and then blocks until ctx is done; otherwise it
// synthesises frames of frameSize bytes.
type fakeDevice struct {
	mu          sync.Mutex
	format      Format
	resolutions []ResolutionOption
	frames      chan RawFrame
	frameSize   int
	grabErr     error

	grabs    int
	releases int
	closes   int

	resolutionCalls []ResolutionOption
	resolutionErr   error

	controls   map[uint32]int32
	controlErr error

	jpegSupported bool
	jpegErr       error
	jpegCalls     int
	jpegQuality   int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		format: Format{Width: 640, Height: 480, PixelFormat: "MJPG", Compressed: true, MaxFrameSize: 640 * 480 * 2},
		resolutions: []ResolutionOption{
			{Width: 320, Height: 240},
			{Width: 640, Height: 480},
			{Width: 1280, Height: 720},
		},
		frameSize: 5000,
		controls:  make(map[uint32]int32),
	}
}

func (d *fakeDevice) Format() Format {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.format
}

func (d *fakeDevice) Resolutions() []ResolutionOption {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]ResolutionOption(nil), d.resolutions...)
}

func (d *fakeDevice) Grab(ctx context.Context) (RawFrame, error) {
	d.mu.Lock()
	d.grabs++
	frames, grabErr, size, format := d.frames, d.grabErr, d.frameSize, d.format
	d.mu.Unlock()

	if grabErr != nil {
		return RawFrame{}, grabErr
	}
	if frames != nil {
		select {
		case <-ctx.Done():
			return RawFrame{}, ctx.Err()
		case f := <-frames:
			return f, nil
		}
	}
	select {
	case <-ctx.Done():
		return RawFrame{}, ctx.Err()
	case <-time.After(time.Millisecond):
	}
	return RawFrame{
		Data:       make([]byte, size),
		Width:      format.Width,
		Height:     format.Height,
		Compressed: format.Compressed,
	}, nil
}

func (d *fakeDevice) SetControl(id uint32, value int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.controlErr != nil {
		return d.controlErr
	}
	d.controls[id] = value
	return nil
}

func (d *fakeDevice) SetResolution(width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resolutionCalls = append(d.resolutionCalls, ResolutionOption{Width: width, Height: height})
	if d.resolutionErr != nil {
		return d.resolutionErr
	}
	d.format.Width, d.format.Height = width, height
	return nil
}

func (d *fakeDevice) SetJPEGQuality(quality int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jpegCalls++
	if !d.jpegSupported {
		return false, nil
	}
	if d.jpegErr != nil {
		return true, d.jpegErr
	}
	d.jpegQuality = quality
	return true, nil
}

func (d *fakeDevice) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.releases++
	return nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	return nil
}

func (d *fakeDevice) counts() (grabs, releases, closes int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.grabs, d.releases, d.closes
}

// fakeEncoder returns a fixed payload and records the quality it was asked for.
type fakeEncoder struct {
	mu        sync.Mutex
	out       []byte
	err       error
	qualities []int
	raw       []byte
}

func (e *fakeEncoder) Compress(raw []byte, width, height, quality int) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.qualities = append(e.qualities, quality)
	e.raw = append(e.raw[:0], raw...)
	if e.err != nil {
		return nil, e.err
	}
	return e.out, nil
}

func (e *fakeEncoder) lastRaw() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]byte(nil), e.raw...)
}

func (e *fakeEncoder) lastQuality() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.qualities) == 0 {
		return -1
	}
	return e.qualities[len(e.qualities)-1]
}

type fakeRegistry struct {
	controls []ControlDescriptor
	err      error
}

func (r fakeRegistry) Enumerate() ([]ControlDescriptor, error) {
	return r.controls, r.err
}

var errFakeDevice = errors.New("device says no")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(id int) Config {
	cfg := DefaultConfig()
	cfg.ID = id
	return cfg
}

// waitFor polls cond until it holds or timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
