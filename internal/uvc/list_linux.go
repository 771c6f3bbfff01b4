//go:build linux && (amd64 || arm64)

package uvc

import (
	"log/slog"

	"github.com/smazurov/uvcnode/internal/input"
	"github.com/smazurov/uvcnode/pkg/linuxav/v4l2"
)

// ListDevices enumerates capture nodes with their formats and sizes.
// Nodes that fail to answer are listed without formats.
func ListDevices(logger *slog.Logger) ([]DeviceSummary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	infos, err := v4l2.FindDevices()
	if err != nil {
		return nil, err
	}

	out := make([]DeviceSummary, 0, len(infos))
	for _, info := range infos {
		summary := DeviceSummary{
			Path:   info.DevicePath,
			Name:   info.DeviceName,
			ID:     info.DeviceID,
			Driver: info.Driver,
		}
		formats, err := v4l2.GetFormats(info.DevicePath)
		if err != nil {
			logger.Debug("Failed to list formats", "device", info.DevicePath, "error", err)
		}
		for _, f := range formats {
			fs := FormatSummary{
				FourCC:     v4l2.FormatFourCC(f.PixelFormat),
				Name:       f.FormatName,
				Compressed: f.Compressed,
			}
			sizes, err := v4l2.GetResolutions(info.DevicePath, f.PixelFormat)
			if err != nil {
				logger.Debug("Failed to list resolutions", "device", info.DevicePath, "format", fs.FourCC, "error", err)
			}
			fs.Resolutions = toResolutions(sizes)
			summary.Formats = append(summary.Formats, fs)
		}
		out = append(out, summary)
	}
	return out, nil
}

// QueryControls lists the native controls of a node without streaming.
func QueryControls(devicePath string) ([]input.ControlDescriptor, error) {
	controls, err := v4l2.QueryControls(devicePath)
	if err != nil {
		return nil, err
	}
	out := make([]input.ControlDescriptor, 0, len(controls))
	for _, c := range controls {
		out = append(out, toDescriptor(c))
	}
	return out, nil
}
