package led

import "testing"

func TestNew(t *testing.T) {
	ctrl := New(discardLogger())
	if ctrl == nil {
		t.Fatal("New() returned nil")
	}
	if ctrl.Available() == nil {
		t.Error("Available() returned nil")
	}
	if ctrl.Patterns() == nil {
		t.Error("Patterns() returned nil")
	}
}

func TestForModel(t *testing.T) {
	tests := []struct {
		model     string
		wantSysfs bool
		wantLED   string
	}{
		{"FriendlyElec NanoPC-T6", true, "system"},
		{"Orange Pi 5 Plus", true, "blue"},
		{"Raspberry Pi 4 Model B Rev 1.4", true, "act"},
		{"unknown", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			ctrl := forModel(tt.model, t.TempDir(), discardLogger())
			_, isSysfs := ctrl.(*sysfs)
			if isSysfs != tt.wantSysfs {
				t.Fatalf("forModel(%q) sysfs = %v, want %v", tt.model, isSysfs, tt.wantSysfs)
			}
			if tt.wantLED != "" && ctrl.Available()[0] != tt.wantLED {
				t.Errorf("first LED = %q, want %q", ctrl.Available()[0], tt.wantLED)
			}
		})
	}
}

func TestDetectBoard(t *testing.T) {
	if model := detectBoard(); model == "" {
		t.Error("detectBoard() returned empty string")
	}
}
