package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/smazurov/uvcnode/internal/api/models"
	"github.com/smazurov/uvcnode/internal/input"
)

func TestAuth(t *testing.T) {
	env := newTestEnv(t, 300, func(o *Options) {
		o.AuthUsername = "admin"
		o.AuthPassword = "secret"
	})

	tests := []struct {
		name   string
		path   string
		header http.Header
		want   int
	}{
		{"health is public", "/api/health", nil, http.StatusOK},
		{"version is public", "/api/version", nil, http.StatusOK},
		{"missing credentials", "/api/inputs", nil, http.StatusUnauthorized},
		{"wrong password", "/api/inputs", http.Header{"Authorization": {"Basic " + basicAuth("admin", "nope")}}, http.StatusUnauthorized},
		{"bearer token", "/api/inputs", http.Header{"Authorization": {"Bearer abc"}}, http.StatusUnauthorized},
		{"header credentials", "/api/inputs", http.Header{"Authorization": {"Basic " + basicAuth("admin", "secret")}}, http.StatusOK},
		{"query credentials", "/api/inputs?auth=" + basicAuth("admin", "secret"), nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodGet, tt.path, "", tt.header)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestListAndGetInputs(t *testing.T) {
	env := newTestEnv(t, 301, nil)

	resp := env.do(t, http.MethodGet, "/api/inputs", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var list models.InputListData
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Count != 1 || len(list.Inputs) != 1 {
		t.Fatalf("inputs = %+v, want exactly one", list)
	}
	if list.Inputs[0].ID != 301 || list.Inputs[0].Device != "/dev/video0" {
		t.Errorf("input = %+v", list.Inputs[0])
	}

	resp = env.do(t, http.MethodGet, "/api/inputs/301", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var status input.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Resolution.Width != 640 || status.Resolution.Height != 480 {
		t.Errorf("resolution = %v, want 640x480", status.Resolution)
	}
	if status.Quality != 80 {
		t.Errorf("quality = %d, want 80", status.Quality)
	}

	if resp := env.do(t, http.MethodGet, "/api/inputs/7", "", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown input status = %d, want 404", resp.StatusCode)
	}
}

func TestControlsAndResolutions(t *testing.T) {
	env := newTestEnv(t, 302, nil)

	resp := env.do(t, http.MethodGet, "/api/inputs/302/controls", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("controls status = %d", resp.StatusCode)
	}
	var controls models.ControlsData
	if err := json.NewDecoder(resp.Body).Decode(&controls); err != nil {
		t.Fatalf("decode: %v", err)
	}
	groups := map[input.ControlGroup]bool{}
	for _, c := range controls.Controls {
		groups[c.Group] = true
	}
	if !groups[input.GroupQuality] || !groups[input.GroupResolution] {
		t.Errorf("controls %+v lack the quality or resolution group", controls.Controls)
	}

	resp = env.do(t, http.MethodGet, "/api/inputs/302/resolutions", "", nil)
	var res models.ResolutionsData
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Resolutions) != 2 || res.Current != 1 {
		t.Errorf("resolutions = %+v, want 2 entries with current 1", res)
	}
}

func TestCommand(t *testing.T) {
	env := newTestEnv(t, 303, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"quality in range", `{"group":"quality","value":75}`, http.StatusOK},
		{"quality alias", `{"group":"jpeg_quality","value":100}`, http.StatusOK},
		{"quality too high", `{"group":"quality","value":101}`, http.StatusBadRequest},
		{"quality negative", `{"group":"quality","value":-1}`, http.StatusBadRequest},
		{"resolution index", `{"group":"resolution","value":0}`, http.StatusOK},
		{"resolution out of range", `{"group":"resolution","value":2}`, http.StatusBadRequest},
		{"device control", `{"group":"v4l2","control_id":9963776,"value":12}`, http.StatusOK},
		{"unknown generic control", `{"group":"generic","control_id":42,"value":1}`, http.StatusNotFound},
		{"unknown group", `{"group":"bogus","value":1}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/inputs/303/command", tt.body, nil)
			if resp.StatusCode != tt.want {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("status = %d, want %d: %s", resp.StatusCode, tt.want, body)
			}
		})
	}

	if v, ok := env.device.control(9963776); !ok || v != 12 {
		t.Errorf("device control = %d (set %v), want 12", v, ok)
	}
	status := env.source.Status()
	if status.Quality != 100 {
		t.Errorf("quality = %d, want 100", status.Quality)
	}
	if status.Resolution.Width != 320 {
		t.Errorf("resolution = %v, want 320x240", status.Resolution)
	}
}

func TestCommandDisabled(t *testing.T) {
	env := newTestEnv(t, 304, func(o *Options) { o.CommandsDisabled = true })

	resp := env.do(t, http.MethodPost, "/api/inputs/304/command", `{"group":"quality","value":50}`, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if q := env.source.Status().Quality; q != 80 {
		t.Errorf("quality changed to %d", q)
	}
}

func TestPauseResume(t *testing.T) {
	env := newTestEnv(t, 305, nil)

	for _, step := range []struct {
		path string
		want string
	}{
		{"/api/inputs/305/pause", "paused"},
		{"/api/inputs/305/pause", "paused"},
		{"/api/inputs/305/resume", "active"},
	} {
		resp := env.do(t, http.MethodPost, step.path, "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status = %d", step.path, resp.StatusCode)
		}
		var state models.StateData
		if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if state.State != step.want {
			t.Errorf("%s state = %q, want %q", step.path, state.State, step.want)
		}
	}

	env.source.Stop()
	if resp := env.do(t, http.MethodPost, "/api/inputs/305/resume", "", nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("resume after stop status = %d, want 409", resp.StatusCode)
	}
}

func TestSnapshot(t *testing.T) {
	env := newTestEnv(t, 306, nil)

	resp := env.do(t, http.MethodGet, "/api/inputs/306/snapshot", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q", ct)
	}
	if resp.Header.Get("X-Frame-Generation") == "" {
		t.Error("missing X-Frame-Generation header")
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !bytes.Equal(body, env.device.frame) {
		t.Errorf("body is %d bytes, want the %d byte device frame", len(body), len(env.device.frame))
	}

	waitFor(t, time.Second, "consumer released", func() bool { return env.source.Consumers() == 0 })
}

func TestSnapshotStoppedInput(t *testing.T) {
	env := newTestEnv(t, 307, nil)
	env.source.Stop()

	resp := env.do(t, http.MethodGet, "/api/inputs/307/snapshot?timeout_ms=200", "", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestPrometheusEndpoint(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "uvcnode_up 1\n")
	})
	env := newTestEnv(t, 308, func(o *Options) {
		o.PrometheusHandler = handler
		o.AuthUsername = "admin"
		o.AuthPassword = "secret"
	})

	resp := env.do(t, http.MethodGet, "/metrics", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 without credentials", resp.StatusCode)
	}
}
