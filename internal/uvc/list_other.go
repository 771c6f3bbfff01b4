//go:build !(linux && (amd64 || arm64))

package uvc

import (
	"log/slog"

	"github.com/smazurov/uvcnode/internal/input"
)

// ListDevices is unavailable on this platform.
func ListDevices(*slog.Logger) ([]DeviceSummary, error) {
	return nil, ErrUnsupportedPlatform
}

// QueryControls is unavailable on this platform.
func QueryControls(string) ([]input.ControlDescriptor, error) {
	return nil, ErrUnsupportedPlatform
}
