//go:build linux && (amd64 || arm64)

// Package v4l2 provides pure Go bindings to the Video4Linux2 (V4L2) API
// for device enumeration, format queries, memory-mapped streaming capture
// and device controls.
//
// This package does not use cgo, enabling simple cross-compilation for
// 64-bit Linux targets (amd64, arm64).
//
// # Device Enumeration
//
// Use FindDevices to discover all V4L2 video capture devices:
//
//	devices, err := v4l2.FindDevices()
//	for _, dev := range devices {
//	    fmt.Printf("%s: %s\n", dev.DevicePath, dev.DeviceName)
//	}
//
// # Format Queries
//
// Query supported formats, resolutions, and framerates:
//
//	formats, _ := v4l2.GetFormats("/dev/video0")
//	for _, f := range formats {
//	    resolutions, _ := v4l2.GetResolutions("/dev/video0", f.PixelFormat)
//	}
//
// # Streaming
//
// OpenStream negotiates a format and maps the driver's buffers. Frames are
// dequeued with a bounded wait so callers can observe cancellation:
//
//	s, err := v4l2.OpenStream("/dev/video0", v4l2.StreamConfig{
//	    Width: 640, Height: 480, FPS: 25, PixelFormat: v4l2.PixFmtMJPEG,
//	})
//	defer s.Close()
//	n, err := s.ReadFrame(buf, 200*time.Millisecond)
//
// ReadFrame starts streaming lazily; StreamOff releases the capture
// pipeline while keeping buffers mapped.
//
// # Controls
//
// QueryControls walks the driver's control list, including UVC extension
// unit mappings, and SetControl/GetControl access individual values.
package v4l2
