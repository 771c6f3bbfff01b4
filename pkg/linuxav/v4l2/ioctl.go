//go:build linux && (amd64 || arm64)

package v4l2

import (
	"errors"
	"syscall"
	"unsafe"
)

func ioctl(fd int, req uint, arg unsafe.Pointer) error {
	for {
		_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
		if errno == syscall.EINTR {
			continue
		}
		if errno != 0 {
			return errno
		}
		return nil
	}
}

func openDevice(path string) (int, error) {
	return syscall.Open(path, syscall.O_RDWR|syscall.O_NONBLOCK|syscall.O_CLOEXEC, 0)
}

func closeDevice(fd int) error {
	return syscall.Close(fd)
}

// waitReadable blocks until fd has a frame ready or the timeout expires.
// It reports false on timeout.
func waitReadable(fd int, timeoutMs int) (bool, error) {
	for {
		readFds := &syscall.FdSet{}
		readFds.Bits[fd/64] |= 1 << (uint(fd) % 64)

		n, err := syscall.Select(fd+1, readFds, nil, nil, makeTimeval(timeoutMs))
		if errors.Is(err, syscall.EINTR) {
			continue
		}
		if err != nil {
			return false, err
		}
		return n > 0, nil
	}
}

// isUnsupported reports whether an ioctl error means the driver lacks the request.
func isUnsupported(err error) bool {
	return errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EINVAL)
}
