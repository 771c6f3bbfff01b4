package input

import (
	"context"
	"errors"
	"testing"
)

func newTestRouter(dev *fakeDevice, results *[]CommandResult) (*CommandRouter, *settings) {
	s := &settings{quality: 80, resolutionIndex: 1, width: 640, height: 480}
	native := []ControlDescriptor{
		{ID: 0x00980900, Name: "Brightness", Type: "integer", Value: 128, Min: 0, Max: 255, Step: 1, Default: 128},
	}
	generic := []ControlDescriptor{
		{ID: 7, Name: "Label", Type: "integer"},
	}
	r := newCommandRouter(dev, s, dev.Resolutions(), native, generic, discardLogger(), func(res CommandResult) {
		if results != nil {
			*results = append(*results, res)
		}
	})
	return r, s
}

func TestCommandQualityRange(t *testing.T) {
	tests := []struct {
		name    string
		value   int32
		wantErr bool
	}{
		{"below range", -1, true},
		{"lower bound", 0, false},
		{"middle", 55, false},
		{"upper bound", 100, false},
		{"above range", 101, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newFakeDevice()
			r, s := newTestRouter(dev, nil)

			err := r.Command(context.Background(), GroupQuality, QualityControlID, tt.value)
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("Command = %v, want ValidationError", err)
				}
				if s.snapshot().quality != 80 {
					t.Errorf("quality changed on rejected command")
				}
				if dev.jpegCalls != 0 {
					t.Errorf("device contacted for rejected quality")
				}
				return
			}
			if err != nil {
				t.Fatalf("Command = %v", err)
			}
			if got := s.snapshot().quality; got != int(tt.value) {
				t.Errorf("quality = %d, want %d", got, tt.value)
			}
		})
	}
}

func TestCommandQualityDevicePath(t *testing.T) {
	t.Run("pushed to device when supported", func(t *testing.T) {
		dev := newFakeDevice()
		dev.jpegSupported = true
		r, s := newTestRouter(dev, nil)

		if err := r.Command(context.Background(), GroupQuality, QualityControlID, 40); err != nil {
			t.Fatal(err)
		}
		if dev.jpegQuality != 40 {
			t.Errorf("device quality = %d, want 40", dev.jpegQuality)
		}
		if s.snapshot().quality != 40 {
			t.Errorf("recorded quality = %d, want 40", s.snapshot().quality)
		}
	})

	t.Run("device failure leaves quality unchanged", func(t *testing.T) {
		dev := newFakeDevice()
		dev.jpegSupported = true
		dev.jpegErr = errFakeDevice
		r, s := newTestRouter(dev, nil)

		err := r.Command(context.Background(), GroupQuality, QualityControlID, 40)
		var derr *DeviceCommandError
		if !errors.As(err, &derr) || !errors.Is(err, errFakeDevice) {
			t.Fatalf("Command = %v, want DeviceCommandError wrapping device error", err)
		}
		if s.snapshot().quality != 80 {
			t.Errorf("quality changed after device failure")
		}
	})
}

func TestCommandResolution(t *testing.T) {
	t.Run("index equal to count is rejected without device contact", func(t *testing.T) {
		dev := newFakeDevice()
		r, s := newTestRouter(dev, nil)

		err := r.Command(context.Background(), GroupResolution, ResolutionControlID, int32(len(dev.resolutions)))
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("Command = %v, want ValidationError", err)
		}
		if len(dev.resolutionCalls) != 0 {
			t.Errorf("device contacted: %v", dev.resolutionCalls)
		}
		if s.snapshot().resolutionIndex != 1 {
			t.Errorf("resolution index changed")
		}
	})

	t.Run("negative index is rejected", func(t *testing.T) {
		dev := newFakeDevice()
		r, _ := newTestRouter(dev, nil)
		if err := r.Command(context.Background(), GroupResolution, ResolutionControlID, -1); err == nil {
			t.Fatal("Command(-1) succeeded")
		}
		if len(dev.resolutionCalls) != 0 {
			t.Errorf("device contacted: %v", dev.resolutionCalls)
		}
	})

	t.Run("index zero is applied", func(t *testing.T) {
		dev := newFakeDevice()
		r, s := newTestRouter(dev, nil)

		if err := r.Command(context.Background(), GroupResolution, ResolutionControlID, 0); err != nil {
			t.Fatal(err)
		}
		if len(dev.resolutionCalls) != 1 || dev.resolutionCalls[0] != (ResolutionOption{Width: 320, Height: 240}) {
			t.Errorf("device calls = %v", dev.resolutionCalls)
		}
		snap := s.snapshot()
		if snap.resolutionIndex != 0 || snap.width != 320 || snap.height != 240 {
			t.Errorf("settings = %+v", snap)
		}
		if _, current := r.Resolutions(); current != 0 {
			t.Errorf("Resolutions current = %d, want 0", current)
		}
	})

	t.Run("device failure keeps previous index", func(t *testing.T) {
		dev := newFakeDevice()
		dev.resolutionErr = errFakeDevice
		r, s := newTestRouter(dev, nil)

		err := r.Command(context.Background(), GroupResolution, ResolutionControlID, 2)
		if !errors.Is(err, errFakeDevice) {
			t.Fatalf("Command = %v, want device error", err)
		}
		if snap := s.snapshot(); snap.resolutionIndex != 1 || snap.width != 640 {
			t.Errorf("settings changed after failure: %+v", snap)
		}
	})
}

func TestCommandDevice(t *testing.T) {
	dev := newFakeDevice()
	r, _ := newTestRouter(dev, nil)

	if err := r.Command(context.Background(), GroupDevice, 0x00980900, 200); err != nil {
		t.Fatal(err)
	}
	if dev.controls[0x00980900] != 200 {
		t.Errorf("device control = %d, want 200", dev.controls[0x00980900])
	}

	// IDs not in the enumerated list are still forwarded.
	if err := r.Command(context.Background(), GroupDevice, 0x00980913, 1); err != nil {
		t.Fatal(err)
	}
	if dev.controls[0x00980913] != 1 {
		t.Errorf("unlisted control not forwarded")
	}

	var brightness ControlDescriptor
	for _, c := range r.Controls() {
		if c.ID == 0x00980900 {
			brightness = c
		}
	}
	if brightness.Value != 200 || brightness.Group != GroupDevice {
		t.Errorf("descriptor = %+v", brightness)
	}

	dev.controlErr = errFakeDevice
	err := r.Command(context.Background(), GroupDevice, 0x00980900, 10)
	if !errors.Is(err, errFakeDevice) {
		t.Errorf("Command = %v, want device error propagated", err)
	}
}

func TestCommandGeneric(t *testing.T) {
	dev := newFakeDevice()
	r, _ := newTestRouter(dev, nil)

	if err := r.Command(context.Background(), GroupGeneric, 7, 3); err != nil {
		t.Fatal(err)
	}
	if err := r.Command(context.Background(), GroupGeneric, 8, 3); !errors.Is(err, ErrControlNotFound) {
		t.Errorf("unknown generic = %v, want ErrControlNotFound", err)
	}
	if len(dev.controls) != 0 || dev.jpegCalls != 0 || len(dev.resolutionCalls) != 0 {
		t.Errorf("generic command touched the device")
	}
}

func TestCommandUnknownGroup(t *testing.T) {
	r, _ := newTestRouter(newFakeDevice(), nil)
	if err := r.Command(context.Background(), ControlGroup("bogus"), 1, 1); !errors.Is(err, ErrUnknownGroup) {
		t.Errorf("Command = %v, want ErrUnknownGroup", err)
	}
}

func TestCommandCanceledContext(t *testing.T) {
	dev := newFakeDevice()
	r, _ := newTestRouter(dev, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := r.Command(ctx, GroupDevice, 1, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Command = %v, want canceled", err)
	}
	if len(dev.controls) != 0 {
		t.Errorf("device contacted with canceled context")
	}
}

func TestCommandReportsResults(t *testing.T) {
	var results []CommandResult
	r, _ := newTestRouter(newFakeDevice(), &results)

	r.Command(context.Background(), GroupQuality, QualityControlID, 50)
	r.Command(context.Background(), GroupQuality, QualityControlID, 500)

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Err != nil || results[0].Value != 50 {
		t.Errorf("first result = %+v", results[0])
	}
	if results[1].Err == nil {
		t.Errorf("second result has no error")
	}
}

func TestControlsListing(t *testing.T) {
	r, _ := newTestRouter(newFakeDevice(), nil)
	controls := r.Controls()

	if len(controls) != 4 {
		t.Fatalf("Controls = %d entries, want 4", len(controls))
	}
	wantGroups := []ControlGroup{GroupQuality, GroupResolution, GroupDevice, GroupGeneric}
	for i, g := range wantGroups {
		if controls[i].Group != g {
			t.Errorf("controls[%d].Group = %s, want %s", i, controls[i].Group, g)
		}
	}
	res := controls[1]
	if res.Max != 2 || len(res.Menu) != 3 || res.Menu[2].Name != "1280x720" || res.Value != 1 {
		t.Errorf("resolution descriptor = %+v", res)
	}
}

func TestParseControlGroup(t *testing.T) {
	tests := []struct {
		in      string
		want    ControlGroup
		wantErr bool
	}{
		{"generic", GroupGeneric, false},
		{"device", GroupDevice, false},
		{"V4L2", GroupDevice, false},
		{"resolution", GroupResolution, false},
		{"quality", GroupQuality, false},
		{" jpeg_quality ", GroupQuality, false},
		{"audio", "", true},
	}
	for _, tt := range tests {
		got, err := ParseControlGroup(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseControlGroup(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseControlGroup(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
