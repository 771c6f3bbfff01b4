package input

import (
	"errors"
	"fmt"
)

var (
	// ErrControlNotFound is returned when a generic control ID is unknown.
	ErrControlNotFound = errors.New("control not found")

	// ErrUnknownGroup is returned for an unrecognised control group.
	ErrUnknownGroup = errors.New("unknown control group")

	// ErrNotRunning is returned when an operation needs a started, not yet
	// stopped input.
	ErrNotRunning = errors.New("input not running")

	// ErrFrameTooLarge is returned by FrameSlot.Publish when data exceeds
	// the slot capacity.
	ErrFrameTooLarge = errors.New("frame exceeds slot capacity")

	// ErrSlotClosed is returned by FrameSlot.WaitForNext after cleanup.
	ErrSlotClosed = errors.New("frame slot closed")

	// ErrNoFrame is returned when nothing has been published yet.
	ErrNoFrame = errors.New("no frame published yet")
)

// StartupError is a failure to bring the input up: opening the device or
// allocating the frame buffer. Callers treat it as fatal.
type StartupError struct {
	Op  string
	Err error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup: %s: %v", e.Op, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// GrabError is a failed frame read. The capture loop does not retry.
type GrabError struct {
	Err error
}

func (e *GrabError) Error() string {
	return fmt.Sprintf("grab frame: %v", e.Err)
}

func (e *GrabError) Unwrap() error { return e.Err }

// ValidationError rejects a command argument before anything is mutated.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// DeviceCommandError wraps a device failure while applying a command.
// The recorded settings are left unchanged.
type DeviceCommandError struct {
	Op  string
	Err error
}

func (e *DeviceCommandError) Error() string {
	return fmt.Sprintf("device %s: %v", e.Op, e.Err)
}

func (e *DeviceCommandError) Unwrap() error { return e.Err }
