// Package uvc adapts a V4L2 capture node to input.CaptureDevice and
// input.ControlRegistry.
package uvc

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/smazurov/uvcnode/internal/input"
	"github.com/smazurov/uvcnode/pkg/linuxav/v4l2"
)

// ErrClosed is returned by operations on a closed Device.
var ErrClosed = errors.New("uvc: device closed")

// grabPoll bounds each blocking frame read so Grab notices cancellation
// and other callers get the device lock between reads.
const grabPoll = 100 * time.Millisecond

// Options selects the device node and requested capture format.
type Options struct {
	Device      string
	Width       int
	Height      int
	FPS         int
	PixelFormat string // input.PixelFormatMJPEG or input.PixelFormatYUYV
	Buffers     int
	Logger      *slog.Logger
}

// OptionsFromConfig copies the capture fields of an input config.
func OptionsFromConfig(cfg input.Config, logger *slog.Logger) Options {
	return Options{
		Device:      cfg.Device,
		Width:       cfg.Width,
		Height:      cfg.Height,
		FPS:         cfg.FPS,
		PixelFormat: cfg.PixelFormat,
		Logger:      logger,
	}
}

// pixelFormatCode maps a configured pixel format name to its FourCC.
func pixelFormatCode(name string) (uint32, error) {
	switch strings.ToLower(name) {
	case input.PixelFormatMJPEG, "":
		return v4l2.PixFmtMJPEG, nil
	case input.PixelFormatYUYV:
		return v4l2.PixFmtYUYV, nil
	default:
		return 0, fmt.Errorf("unsupported pixel format %q", name)
	}
}

func toFormat(pix v4l2.PixFormat) input.Format {
	return input.Format{
		Width:        int(pix.Width),
		Height:       int(pix.Height),
		PixelFormat:  v4l2.FormatFourCC(pix.PixelFormat),
		Compressed:   pix.Compressed(),
		BytesPerLine: int(pix.BytesPerLine),
		MaxFrameSize: int(pix.SizeImage),
	}
}

func toResolutions(list []v4l2.Resolution) []input.ResolutionOption {
	out := make([]input.ResolutionOption, 0, len(list))
	for _, r := range list {
		out = append(out, input.ResolutionOption{Width: int(r.Width), Height: int(r.Height)})
	}
	return out
}

// frameBufferSize is the copy-out buffer for one frame: the driver's
// sizeimage, but never less than packed 4:2:2 at the negotiated size.
func frameBufferSize(pix v4l2.PixFormat) int {
	return max(int(pix.SizeImage), int(pix.Width)*int(pix.Height)*2)
}

func toDescriptor(c v4l2.Control) input.ControlDescriptor {
	d := input.ControlDescriptor{
		ID:       c.ID,
		Name:     c.Name,
		Group:    input.GroupDevice,
		Type:     c.Type.String(),
		Value:    c.Value,
		Min:      c.Minimum,
		Max:      c.Maximum,
		Step:     c.Step,
		Default:  c.Default,
		ReadOnly: c.ReadOnly,
	}
	for _, m := range c.Menu {
		d.Menu = append(d.Menu, input.MenuEntry{Index: m.Index, Name: m.Name, Value: m.Value})
	}
	return d
}
