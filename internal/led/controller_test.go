package led

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNoopController(t *testing.T) {
	ctrl := newNoop(discardLogger())

	if err := ctrl.Set("user", true, "solid"); err != nil {
		t.Errorf("Set() returned error: %v", err)
	}
	if types := ctrl.Available(); len(types) != 0 {
		t.Errorf("Available() = %v, want empty slice", types)
	}
	if patterns := ctrl.Patterns(); len(patterns) != 0 {
		t.Errorf("Patterns() = %v, want empty slice", patterns)
	}
}

func TestSysfsController_Available(t *testing.T) {
	tests := []struct {
		name string
		leds map[string]string
		want []string
	}{
		{"NanoPC-T6 LEDs", map[string]string{"user": "usr_led", "system": "sys_led"}, []string{"system", "user"}},
		{"Orange Pi LEDs", map[string]string{"green": "green_led", "blue": "blue_led"}, []string{"blue", "green"}},
		{"No LEDs", map[string]string{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newSysfs(t.TempDir(), tt.leds).Available()
			if len(got) != len(tt.want) {
				t.Fatalf("Available() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Available()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSysfsController_Set(t *testing.T) {
	root := t.TempDir()
	ledDir := filepath.Join(root, "usr_led")
	if err := os.MkdirAll(ledDir, 0o755); err != nil {
		t.Fatal(err)
	}
	ctrl := newSysfs(root, map[string]string{"user": "usr_led"})

	tests := []struct {
		name           string
		enabled        bool
		pattern        string
		wantTrigger    string
		wantBrightness string
	}{
		{"solid on", true, "solid", "none", "1"},
		{"blink", true, "blink", "timer", "1"},
		{"raw trigger", true, "heartbeat", "heartbeat", "1"},
		{"off keeps trigger", false, "", "heartbeat", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ctrl.Set("user", tt.enabled, tt.pattern); err != nil {
				t.Fatalf("Set: %v", err)
			}
			trigger, _ := os.ReadFile(filepath.Join(ledDir, "trigger"))
			brightness, _ := os.ReadFile(filepath.Join(ledDir, "brightness"))
			if string(trigger) != tt.wantTrigger {
				t.Errorf("trigger = %q, want %q", trigger, tt.wantTrigger)
			}
			if string(brightness) != tt.wantBrightness {
				t.Errorf("brightness = %q, want %q", brightness, tt.wantBrightness)
			}
		})
	}
}

func TestSysfsController_Set_Errors(t *testing.T) {
	ctrl := newSysfs(t.TempDir(), map[string]string{"user": "usr_led"})

	if err := ctrl.Set("nonexistent", true, ""); err == nil {
		t.Error("Set() with invalid LED type should return error")
	}
	if err := ctrl.Set("user", true, ""); err == nil {
		t.Error("Set() with missing sysfs directory should return error")
	}
}
