package input

import (
	"fmt"
	"strings"
)

// Pixel formats requested from the device.
const (
	PixelFormatMJPEG = "mjpeg"
	PixelFormatYUYV  = "yuyv"
)

const defaultMaxFrameBytes = 64 << 20

// Config is the static configuration of one input.
type Config struct {
	ID              int
	Name            string
	Device          string
	Width           int
	Height          int
	FPS             int
	PixelFormat     string
	Quality         int
	MinimumSize     int
	StopOnIdle      bool
	DynamicControls bool
	MaxFrameBytes   int // frame buffer ceiling, 64 MiB when zero
}

// DefaultConfig returns the stock settings: /dev/video0, VGA at 25 fps,
// MJPEG, quality 80.
func DefaultConfig() Config {
	return Config{
		Name:            "uvc",
		Device:          "/dev/video0",
		Width:           640,
		Height:          480,
		FPS:             25,
		PixelFormat:     PixelFormatMJPEG,
		Quality:         80,
		DynamicControls: true,
	}
}

// Validate checks ranges and normalises the pixel format name.
func (c *Config) Validate() error {
	c.PixelFormat = strings.ToLower(strings.TrimSpace(c.PixelFormat))
	switch c.PixelFormat {
	case PixelFormatMJPEG, PixelFormatYUYV:
	default:
		return &ValidationError{Field: "pixel_format", Value: c.PixelFormat, Reason: "must be mjpeg or yuyv"}
	}
	if c.ID < 0 {
		return &ValidationError{Field: "id", Value: c.ID, Reason: "must not be negative"}
	}
	if c.Device == "" {
		return &ValidationError{Field: "device", Value: c.Device, Reason: "required"}
	}
	if c.Width <= 0 || c.Height <= 0 {
		return &ValidationError{Field: "resolution", Value: fmt.Sprintf("%dx%d", c.Width, c.Height), Reason: "must be positive"}
	}
	if c.FPS <= 0 {
		return &ValidationError{Field: "fps", Value: c.FPS, Reason: "must be positive"}
	}
	if c.Quality < 0 || c.Quality > 100 {
		return &ValidationError{Field: "quality", Value: c.Quality, Reason: "must be within 0..100"}
	}
	if c.MinimumSize < 0 {
		return &ValidationError{Field: "minimum_size", Value: c.MinimumSize, Reason: "must not be negative"}
	}
	if c.MaxFrameBytes == 0 {
		c.MaxFrameBytes = defaultMaxFrameBytes
	}
	return nil
}

// Tunables are settings that may change while the input runs. Nil fields
// are left unchanged.
type Tunables struct {
	Quality     *int
	Resolution  *ResolutionOption
	MinimumSize *int
	StopOnIdle  *bool
}
