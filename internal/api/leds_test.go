package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sync"
	"testing"
)

type fakeLEDs struct {
	mu   sync.Mutex
	sets []string
}

func (f *fakeLEDs) Set(ledType string, enabled bool, pattern string) error {
	if ledType == "missing" {
		return errors.New("no such LED")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	state := "off"
	if enabled {
		state = "on"
	}
	f.sets = append(f.sets, ledType+":"+state+":"+pattern)
	return nil
}

func (f *fakeLEDs) Available() []string { return []string{"user", "system"} }
func (f *fakeLEDs) Patterns() []string  { return []string{"solid", "blink"} }

func TestLEDRoutes(t *testing.T) {
	leds := &fakeLEDs{}
	env := newTestEnv(t, 313, func(o *Options) { o.LEDController = leds })

	resp := env.do(t, http.MethodGet, "/api/leds/capabilities", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("capabilities status = %d", resp.StatusCode)
	}
	var caps LEDCapabilities
	if err := json.NewDecoder(resp.Body).Decode(&caps); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(caps.AvailableTypes, []string{"user", "system"}) || !slices.Equal(caps.AvailablePatterns, []string{"solid", "blink"}) {
		t.Errorf("capabilities = %+v", caps)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"enable with pattern", `{"type":"user","enabled":true,"pattern":"blink"}`, http.StatusNoContent},
		{"disable", `{"type":"system","enabled":false}`, http.StatusNoContent},
		{"unknown LED", `{"type":"missing","enabled":true}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/leds", tt.body, nil)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}

	leds.mu.Lock()
	defer leds.mu.Unlock()
	if want := []string{"user:on:blink", "system:off:"}; !slices.Equal(leds.sets, want) {
		t.Errorf("Set calls = %v, want %v", leds.sets, want)
	}
}

func TestLEDRoutesWithoutController(t *testing.T) {
	env := newTestEnv(t, 314, nil)
	if resp := env.do(t, http.MethodGet, "/api/leds/capabilities", "", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when no controller is configured", resp.StatusCode)
	}
}
