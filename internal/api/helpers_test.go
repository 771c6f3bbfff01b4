package api

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/uvcnode/internal/events"
	"github.com/smazurov/uvcnode/internal/input"
)

// stubDevice produces a fixed compressed frame every few milliseconds.
type stubDevice struct {
	mu       sync.Mutex
	frame    []byte
	controls map[uint32]int32
	width    int
	height   int
}

func newStubDevice() *stubDevice {
	frame := make([]byte, 2048)
	frame[0], frame[1] = 0xFF, 0xD8
	return &stubDevice{frame: frame, controls: make(map[uint32]int32), width: 640, height: 480}
}

func (d *stubDevice) Format() input.Format {
	d.mu.Lock()
	defer d.mu.Unlock()
	return input.Format{Width: d.width, Height: d.height, PixelFormat: "MJPG", Compressed: true, MaxFrameSize: 64 * 1024}
}

func (d *stubDevice) Resolutions() []input.ResolutionOption {
	return []input.ResolutionOption{{Width: 320, Height: 240}, {Width: 640, Height: 480}}
}

func (d *stubDevice) Grab(ctx context.Context) (input.RawFrame, error) {
	select {
	case <-ctx.Done():
		return input.RawFrame{}, ctx.Err()
	case <-time.After(2 * time.Millisecond):
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return input.RawFrame{Data: d.frame, Width: d.width, Height: d.height, Compressed: true}, nil
}

func (d *stubDevice) SetControl(id uint32, value int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.controls[id] = value
	return nil
}

func (d *stubDevice) control(id uint32) (int32, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.controls[id]
	return v, ok
}

func (d *stubDevice) SetResolution(width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.width, d.height = width, height
	return nil
}

func (d *stubDevice) SetJPEGQuality(int) (bool, error) { return false, nil }
func (d *stubDevice) Release() error                   { return nil }
func (d *stubDevice) Close() error                     { return nil }

type testEnv struct {
	server *httptest.Server
	source *input.Source
	device *stubDevice
	bus    *events.Bus
}

// newTestEnv starts one input with the given id behind a test server.
// Input ids must be unique per test because metrics are process-global.
func newTestEnv(t *testing.T, id int, configure func(*Options)) *testEnv {
	t.Helper()

	bus := events.New()
	device := newStubDevice()

	cfg := input.DefaultConfig()
	cfg.ID = id
	src, err := input.New(input.Options{
		Config: cfg,
		Device: device,
		Bus:    bus,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		FatalHandler: func(err error) {
			t.Errorf("unexpected fatal error: %v", err)
		},
	})
	if err != nil {
		t.Fatalf("input.New: %v", err)
	}

	manager := input.NewManager()
	if err := manager.Add(src); err != nil {
		t.Fatalf("Add: %v", err)
	}

	opts := &Options{Inputs: manager, EventBus: bus, SnapshotTimeout: 2 * time.Second}
	if configure != nil {
		configure(opts)
	}
	srv := httptest.NewServer(NewServer(opts).Handler())

	if err := src.Start(); err != nil {
		srv.Close()
		t.Fatalf("Start: %v", err)
	}

	t.Cleanup(func() {
		srv.Close()
		manager.StopAll()
		_ = bus.Close()
	})

	return &testEnv{server: srv, source: src, device: device, bus: bus}
}

func (e *testEnv) do(t *testing.T, method, path, body string, header http.Header) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func basicAuth(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}

// waitFor polls cond until it holds or timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
