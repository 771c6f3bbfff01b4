package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/smazurov/uvcnode/internal/input"
	"github.com/smazurov/uvcnode/internal/uvc"
)

func TestPrintControls(t *testing.T) {
	var buf bytes.Buffer
	printControls(&buf, []input.ControlDescriptor{
		{ID: 0x00980900, Name: "Brightness", Type: "integer", Value: 128, Min: 0, Max: 255, Step: 1, Default: 128},
		{ID: 0x00980918, Name: "Power Line Frequency", Type: "menu", Value: 1, Max: 2, Step: 1, Default: 1,
			Menu: []input.MenuEntry{{Index: 0, Name: "Disabled"}, {Index: 1, Name: "50 Hz"}}},
		{ID: 0x009a0901, Name: "Exposure, Auto", Type: "integer", Value: 3, ReadOnly: true},
	})

	out := buf.String()
	for _, want := range []string{"0x00980900", "Brightness", "0..255/1", "1: 50 Hz", "3 (ro)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintDevices(t *testing.T) {
	tests := []struct {
		name    string
		devices []uvc.DeviceSummary
		want    []string
	}{
		{
			name: "empty",
			want: []string{"No capture devices found"},
		},
		{
			name: "one camera",
			devices: []uvc.DeviceSummary{{
				Path:   "/dev/video0",
				Name:   "HD Webcam",
				ID:     "usb-0000:00:14.0-1-video-index0",
				Driver: "uvcvideo",
				Formats: []uvc.FormatSummary{{
					FourCC:      "MJPG",
					Name:        "Motion-JPEG",
					Compressed:  true,
					Resolutions: []input.ResolutionOption{{Width: 640, Height: 480}, {Width: 1280, Height: 720}},
				}},
			}},
			want: []string{"/dev/video0  HD Webcam (uvcvideo)", "id: usb-0000", "MJPG Motion-JPEG, compressed: 640x480 1280x720"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printDevices(&buf, tt.devices)
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestPrintDeviceEvent(t *testing.T) {
	var buf bytes.Buffer
	printDeviceEvent(&buf, uvc.DeviceEvent{Action: "remove", Path: "/dev/video0"})
	if out := buf.String(); !strings.Contains(out, "remove") || !strings.HasSuffix(out, "/dev/video0\n") {
		t.Errorf("unexpected output %q", out)
	}
}
