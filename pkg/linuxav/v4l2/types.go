package v4l2

import (
	"errors"
	"fmt"
)

// DeviceInfo contains information about a V4L2 device.
type DeviceInfo struct {
	DevicePath string
	DeviceName string
	DeviceID   string // Stable identifier (from /dev/v4l/by-id/ or synthetic)
	Driver     string
	Caps       uint32
}

// FormatInfo contains information about a supported pixel format.
type FormatInfo struct {
	PixelFormat uint32
	FormatName  string
	Emulated    bool
	Compressed  bool
}

// Resolution represents a supported video resolution.
type Resolution struct {
	Width  uint32
	Height uint32
}

// Framerate represents a supported framerate as a fraction.
type Framerate struct {
	Numerator   uint32
	Denominator uint32
}

// FPS returns the framerate as frames per second.
func (f Framerate) FPS() float64 {
	if f.Numerator == 0 {
		return 0
	}
	return float64(f.Denominator) / float64(f.Numerator)
}

// PixFormat is the format negotiated with the driver.
type PixFormat struct {
	Width        uint32
	Height       uint32
	PixelFormat  uint32
	BytesPerLine uint32
	SizeImage    uint32
}

// Compressed reports whether frames in this format arrive already encoded.
func (p PixFormat) Compressed() bool {
	return IsCompressed(p.PixelFormat)
}

// ControlType mirrors enum v4l2_ctrl_type.
type ControlType uint32

// Control types.
const (
	CtrlTypeInteger     ControlType = 1
	CtrlTypeBoolean     ControlType = 2
	CtrlTypeMenu        ControlType = 3
	CtrlTypeButton      ControlType = 4
	CtrlTypeInteger64   ControlType = 5
	CtrlTypeClass       ControlType = 6
	CtrlTypeString      ControlType = 7
	CtrlTypeBitmask     ControlType = 8
	CtrlTypeIntegerMenu ControlType = 9
)

// String returns a short lowercase name for the control type.
func (t ControlType) String() string {
	switch t {
	case CtrlTypeInteger:
		return "integer"
	case CtrlTypeBoolean:
		return "boolean"
	case CtrlTypeMenu:
		return "menu"
	case CtrlTypeButton:
		return "button"
	case CtrlTypeInteger64:
		return "integer64"
	case CtrlTypeClass:
		return "class"
	case CtrlTypeString:
		return "string"
	case CtrlTypeBitmask:
		return "bitmask"
	case CtrlTypeIntegerMenu:
		return "integer_menu"
	default:
		return fmt.Sprintf("type(%d)", uint32(t))
	}
}

// MenuItem is one entry of a menu or integer-menu control.
type MenuItem struct {
	Index uint32
	Name  string
	Value int64
}

// Control describes one device control as reported by VIDIOC_QUERYCTRL.
type Control struct {
	ID       uint32
	Type     ControlType
	Name     string
	Minimum  int32
	Maximum  int32
	Step     int32
	Default  int32
	Value    int32
	Flags    uint32
	Menu     []MenuItem
	ReadOnly bool
}

// Capability flags.
const (
	CapVideoCapture = 0x00000001
	CapStreaming    = 0x04000000
	CapDeviceCaps   = 0x80000000
)

// Control flags.
const (
	CtrlFlagDisabled  = 0x0001
	CtrlFlagGrabbed   = 0x0002
	CtrlFlagReadOnly  = 0x0004
	CtrlFlagInactive  = 0x0010
	CtrlFlagWriteOnly = 0x0040
	CtrlFlagNextCtrl  = 0x80000000
)

// Well known control IDs.
const (
	CIDBase                   = 0x00980900
	CIDCameraClassBase        = 0x009a0900
	CIDJPEGCompressionQuality = 0x009d0903
)

// Common pixel formats.
const (
	PixFmtYUYV  = 0x56595559 // 'YUYV'
	PixFmtMJPEG = 0x47504A4D // 'MJPG'
	PixFmtJPEG  = 0x4745504A // 'JPEG'
	PixFmtH264  = 0x34363248 // 'H264'
	PixFmtHEVC  = 0x43564548 // 'HEVC'
	PixFmtNV12  = 0x3231564E // 'NV12'
)

// Format flags.
const (
	fmtFlagCompressed = 0x0001
	fmtFlagEmulated   = 0x0002
)

// Frame size types.
const (
	frmsizeTypeDiscrete   = 1
	frmsizeTypeContinuous = 2
	frmsizeTypeStepwise   = 3
)

// Frame interval types.
const (
	frmivalTypeDiscrete   = 1
	frmivalTypeContinuous = 2
	frmivalTypeStepwise   = 3
)

// Buffer, memory and field constants.
const (
	bufTypeVideoCapture = 1
	memoryMmap          = 1
	fieldAny            = 0
	capTimePerFrame     = 0x1000
)

// ErrNotCaptureDevice is returned when a node cannot capture video.
var ErrNotCaptureDevice = errors.New("v4l2: not a video capture device")

// ErrStreamingUnsupported is returned when a node lacks streaming I/O.
var ErrStreamingUnsupported = errors.New("v4l2: streaming i/o not supported")

// ErrStreamClosed is returned by operations on a closed stream.
var ErrStreamClosed = errors.New("v4l2: stream closed")

// ErrFrameTimeout is returned when no frame arrived within the read timeout.
var ErrFrameTimeout = errors.New("v4l2: timed out waiting for frame")

// ErrUnsupported is returned when the driver does not implement a request.
var ErrUnsupported = errors.New("v4l2: operation not supported by driver")

// ErrBufferTooSmall is returned when a dequeued frame does not fit the caller's buffer.
var ErrBufferTooSmall = errors.New("v4l2: destination buffer too small")

// IsCompressed reports whether a pixel format carries compressed frames.
func IsCompressed(pixelFormat uint32) bool {
	switch pixelFormat {
	case PixFmtMJPEG, PixFmtJPEG, PixFmtH264, PixFmtHEVC:
		return true
	default:
		return false
	}
}

// FormatFourCC converts a 4-byte pixel format to a human-readable string.
func FormatFourCC(format uint32) string {
	b := make([]byte, 4)
	b[0] = byte(format & 0xFF)
	b[1] = byte((format >> 8) & 0xFF)
	b[2] = byte((format >> 16) & 0xFF)
	b[3] = byte((format >> 24) & 0xFF)
	return string(b)
}

// FourCC packs a four character code into a pixel format value.
func FourCC(code string) (uint32, error) {
	if len(code) != 4 {
		return 0, fmt.Errorf("v4l2: fourcc %q must be 4 characters", code)
	}
	return uint32(code[0]) | uint32(code[1])<<8 | uint32(code[2])<<16 | uint32(code[3])<<24, nil
}
