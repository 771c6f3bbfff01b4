//go:build linux && (amd64 || arm64)

package v4l2

import (
	"errors"
	"fmt"
	"syscall"
	"time"
	"unsafe"
)

const defaultBufferCount = 4

// StreamConfig describes the capture format requested from the driver.
type StreamConfig struct {
	Width       uint32
	Height      uint32
	FPS         uint32
	PixelFormat uint32
	Buffers     int // mmap buffers to request, 4 when zero
}

// FrameInfo describes a frame copied out by ReadFrame.
type FrameInfo struct {
	Size      int
	Sequence  uint32
	Timestamp time.Duration // driver timestamp, CLOCK_MONOTONIC
}

// Stream is an open capture node with memory-mapped buffers.
// A Stream is not safe for concurrent use.
type Stream struct {
	fd        int
	path      string
	cfg       StreamConfig
	format    PixFormat
	framerate Framerate
	buffers   [][]byte
	streaming bool
	closed    bool
}

// OpenStream opens devicePath, negotiates cfg and maps capture buffers.
// Streaming starts on the first ReadFrame.
func OpenStream(devicePath string, cfg StreamConfig) (*Stream, error) {
	fd, err := openDevice(devicePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", devicePath, err)
	}

	capability, err := queryCapabilityFD(fd)
	if err != nil {
		closeDevice(fd)
		return nil, fmt.Errorf("VIDIOC_QUERYCAP %s: %w", devicePath, err)
	}
	caps := capability.effectiveCaps()
	if caps&CapVideoCapture == 0 {
		closeDevice(fd)
		return nil, fmt.Errorf("%s: %w", devicePath, ErrNotCaptureDevice)
	}
	if caps&CapStreaming == 0 {
		closeDevice(fd)
		return nil, fmt.Errorf("%s: %w", devicePath, ErrStreamingUnsupported)
	}

	if cfg.Buffers <= 0 {
		cfg.Buffers = defaultBufferCount
	}

	s := &Stream{fd: fd, path: devicePath, cfg: cfg}
	if err := s.configure(); err != nil {
		closeDevice(fd)
		return nil, err
	}
	return s, nil
}

// Path returns the device node path.
func (s *Stream) Path() string {
	return s.path
}

// Format returns the format negotiated with the driver.
func (s *Stream) Format() PixFormat {
	return s.format
}

// Framerate returns the negotiated frame interval, zero if the driver
// does not support setting one.
func (s *Stream) Framerate() Framerate {
	return s.framerate
}

// Streaming reports whether the capture pipeline is running.
func (s *Stream) Streaming() bool {
	return s.streaming
}

// Formats lists the pixel formats the node offers.
func (s *Stream) Formats() ([]FormatInfo, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}
	return enumFormats(s.fd)
}

// Resolutions lists the frame sizes offered for the current pixel format.
func (s *Stream) Resolutions() ([]Resolution, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}
	return enumResolutions(s.fd, s.cfg.PixelFormat)
}

func (s *Stream) configure() error {
	format, err := setFormat(s.fd, s.cfg.Width, s.cfg.Height, s.cfg.PixelFormat)
	if err != nil {
		return err
	}
	s.format = format

	s.framerate = Framerate{}
	if s.cfg.FPS > 0 {
		framerate, err := setFramerate(s.fd, s.cfg.FPS)
		if err != nil && !errors.Is(err, ErrUnsupported) {
			return err
		}
		s.framerate = framerate
	}

	return s.mapBuffers()
}

func (s *Stream) mapBuffers() error {
	req := v4l2RequestBuffers{
		count:  uint32(s.cfg.Buffers),
		typ:    bufTypeVideoCapture,
		memory: memoryMmap,
	}
	if err := ioctl(s.fd, vidiocReqbufs, unsafe.Pointer(&req)); err != nil {
		return fmt.Errorf("VIDIOC_REQBUFS: %w", err)
	}
	if req.count == 0 {
		return fmt.Errorf("VIDIOC_REQBUFS: driver granted no buffers")
	}

	s.buffers = make([][]byte, 0, req.count)
	for i := uint32(0); i < req.count; i++ {
		buf := v4l2Buffer{index: i, typ: bufTypeVideoCapture, memory: memoryMmap}
		if err := ioctl(s.fd, vidiocQuerybuf, unsafe.Pointer(&buf)); err != nil {
			s.unmapBuffers()
			return fmt.Errorf("VIDIOC_QUERYBUF %d: %w", i, err)
		}

		data, err := syscall.Mmap(s.fd, int64(buf.offset()), int(buf.length),
			syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
		if err != nil {
			s.unmapBuffers()
			return fmt.Errorf("mmap buffer %d: %w", i, err)
		}
		s.buffers = append(s.buffers, data)
	}

	return nil
}

func (s *Stream) unmapBuffers() {
	for _, b := range s.buffers {
		_ = syscall.Munmap(b)
	}
	s.buffers = nil

	req := v4l2RequestBuffers{typ: bufTypeVideoCapture, memory: memoryMmap}
	_ = ioctl(s.fd, vidiocReqbufs, unsafe.Pointer(&req))
}

// StreamOn queues every buffer and starts capture.
func (s *Stream) StreamOn() error {
	if s.closed {
		return ErrStreamClosed
	}
	if s.streaming {
		return nil
	}

	for i := range s.buffers {
		buf := v4l2Buffer{index: uint32(i), typ: bufTypeVideoCapture, memory: memoryMmap}
		if err := ioctl(s.fd, vidiocQbuf, unsafe.Pointer(&buf)); err != nil {
			return fmt.Errorf("VIDIOC_QBUF %d: %w", i, err)
		}
	}

	typ := uint32(bufTypeVideoCapture)
	if err := ioctl(s.fd, vidiocStreamon, unsafe.Pointer(&typ)); err != nil {
		return fmt.Errorf("VIDIOC_STREAMON: %w", err)
	}
	s.streaming = true
	return nil
}

// StreamOff stops capture. The driver returns all queued buffers, so the
// next StreamOn requeues them.
func (s *Stream) StreamOff() error {
	if s.closed {
		return ErrStreamClosed
	}
	if !s.streaming {
		return nil
	}

	typ := uint32(bufTypeVideoCapture)
	if err := ioctl(s.fd, vidiocStreamoff, unsafe.Pointer(&typ)); err != nil {
		return fmt.Errorf("VIDIOC_STREAMOFF: %w", err)
	}
	s.streaming = false
	return nil
}

// ReadFrame waits up to timeout for a filled buffer, copies it into dst and
// hands the buffer back to the driver. It returns ErrFrameTimeout when no
// frame arrived in time.
func (s *Stream) ReadFrame(dst []byte, timeout time.Duration) (FrameInfo, error) {
	if s.closed {
		return FrameInfo{}, ErrStreamClosed
	}
	if err := s.StreamOn(); err != nil {
		return FrameInfo{}, err
	}

	ready, err := waitReadable(s.fd, int(timeout/time.Millisecond))
	if err != nil {
		return FrameInfo{}, fmt.Errorf("select %s: %w", s.path, err)
	}
	if !ready {
		return FrameInfo{}, ErrFrameTimeout
	}

	buf := v4l2Buffer{typ: bufTypeVideoCapture, memory: memoryMmap}
	if err := ioctl(s.fd, vidiocDqbuf, unsafe.Pointer(&buf)); err != nil {
		if errors.Is(err, syscall.EAGAIN) {
			return FrameInfo{}, ErrFrameTimeout
		}
		return FrameInfo{}, fmt.Errorf("VIDIOC_DQBUF: %w", err)
	}

	info := FrameInfo{
		Sequence:  buf.sequence,
		Timestamp: time.Duration(timevalNanos(buf.timestamp)),
	}

	var copyErr error
	if int(buf.index) >= len(s.buffers) {
		copyErr = fmt.Errorf("VIDIOC_DQBUF: buffer index %d out of range", buf.index)
	} else if used := int(buf.bytesused); used > len(dst) {
		copyErr = fmt.Errorf("%w: frame %d bytes, buffer %d", ErrBufferTooSmall, used, len(dst))
	} else {
		info.Size = copy(dst, s.buffers[buf.index][:used])
	}

	if err := ioctl(s.fd, vidiocQbuf, unsafe.Pointer(&buf)); err != nil {
		return FrameInfo{}, fmt.Errorf("VIDIOC_QBUF %d: %w", buf.index, err)
	}
	if copyErr != nil {
		return FrameInfo{}, copyErr
	}
	return info, nil
}

// Reconfigure stops capture and renegotiates format, framerate and buffers.
// On failure the stream should be closed.
func (s *Stream) Reconfigure(cfg StreamConfig) error {
	if s.closed {
		return ErrStreamClosed
	}
	if err := s.StreamOff(); err != nil {
		return err
	}
	s.unmapBuffers()

	if cfg.Buffers <= 0 {
		cfg.Buffers = defaultBufferCount
	}
	s.cfg = cfg
	return s.configure()
}

// Close stops capture, unmaps buffers and closes the device node.
// Calling Close more than once is a no-op.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	_ = s.StreamOff()
	s.unmapBuffers()
	s.closed = true
	return closeDevice(s.fd)
}
