package v4l2

import (
	"math"
	"testing"
)

func TestFormatFourCC(t *testing.T) {
	tests := []struct {
		name     string
		format   uint32
		expected string
	}{
		{
			name:     "YUYV format",
			format:   PixFmtYUYV,
			expected: "YUYV",
		},
		{
			name:     "MJPEG format",
			format:   PixFmtMJPEG,
			expected: "MJPG",
		},
		{
			name:     "JPEG format",
			format:   PixFmtJPEG,
			expected: "JPEG",
		},
		{
			name:     "H264 format",
			format:   PixFmtH264,
			expected: "H264",
		},
		{
			name:     "mixed bytes",
			format:   0x01020304,
			expected: "\x04\x03\x02\x01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatFourCC(tt.format)
			if result != tt.expected {
				t.Errorf("FormatFourCC(0x%08X) = %q, want %q", tt.format, result, tt.expected)
			}
		})
	}
}

func TestFourCCRoundTrip(t *testing.T) {
	for _, code := range []string{"YUYV", "MJPG", "NV12"} {
		t.Run(code, func(t *testing.T) {
			v, err := FourCC(code)
			if err != nil {
				t.Fatalf("FourCC(%q) error: %v", code, err)
			}
			if got := FormatFourCC(v); got != code {
				t.Errorf("FormatFourCC(FourCC(%q)) = %q", code, got)
			}
		})
	}

	if _, err := FourCC("MJPEG"); err == nil {
		t.Error("FourCC with 5 characters should fail")
	}
}

func TestFramerateFPS(t *testing.T) {
	tests := []struct {
		name        string
		framerate   Framerate
		expectedFPS float64
	}{
		{
			name:        "30 fps (1/30)",
			framerate:   Framerate{Numerator: 1, Denominator: 30},
			expectedFPS: 30.0,
		},
		{
			name:        "29.97 fps (1001/30000)",
			framerate:   Framerate{Numerator: 1001, Denominator: 30000},
			expectedFPS: 30000.0 / 1001.0,
		},
		{
			name:        "zero numerator returns 0",
			framerate:   Framerate{Numerator: 0, Denominator: 60},
			expectedFPS: 0.0,
		},
		{
			name:        "zero denominator",
			framerate:   Framerate{Numerator: 1, Denominator: 0},
			expectedFPS: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.framerate.FPS()
			if math.Abs(result-tt.expectedFPS) > 0.001 {
				t.Errorf("Framerate{%d, %d}.FPS() = %f, want %f",
					tt.framerate.Numerator, tt.framerate.Denominator,
					result, tt.expectedFPS)
			}
		})
	}
}

func TestIsCompressed(t *testing.T) {
	tests := []struct {
		format uint32
		want   bool
	}{
		{PixFmtMJPEG, true},
		{PixFmtJPEG, true},
		{PixFmtH264, true},
		{PixFmtYUYV, false},
		{PixFmtNV12, false},
	}

	for _, tt := range tests {
		t.Run(FormatFourCC(tt.format), func(t *testing.T) {
			if got := IsCompressed(tt.format); got != tt.want {
				t.Errorf("IsCompressed(%s) = %v, want %v", FormatFourCC(tt.format), got, tt.want)
			}
			if got := (PixFormat{PixelFormat: tt.format}).Compressed(); got != tt.want {
				t.Errorf("PixFormat.Compressed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestControlTypeString(t *testing.T) {
	tests := []struct {
		typ  ControlType
		want string
	}{
		{CtrlTypeInteger, "integer"},
		{CtrlTypeMenu, "menu"},
		{CtrlTypeIntegerMenu, "integer_menu"},
		{ControlType(42), "type(42)"},
	}

	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("ControlType(%d).String() = %q, want %q", uint32(tt.typ), got, tt.want)
		}
	}
}
