package led

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/smazurov/uvcnode/internal/events"
)

// Mode selects how the manager drives the LED.
type Mode string

// LED modes. ModeAuto follows input state: on while any input streams,
// blinking while paused, off otherwise.
const (
	ModeOn    Mode = "on"
	ModeOff   Mode = "off"
	ModeBlink Mode = "blink"
	ModeAuto  Mode = "auto"
)

// ParseMode accepts on, off, blink and auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeOn, ModeOff, ModeBlink, ModeAuto:
		return m, nil
	default:
		return "", fmt.Errorf("invalid LED mode %q: want on, off, blink or auto", s)
	}
}

// Manager applies a Mode to one LED, listening to input state events in
// auto mode.
type Manager struct {
	controller  Controller
	eventBus    *events.Bus
	logger      *slog.Logger
	ledType     string
	mode        Mode
	unsubscribe func()

	mu     sync.Mutex
	states map[int]string // input ID -> streaming state
}

// NewManager creates a manager for ledType, or the controller's first
// LED when ledType is empty.
func NewManager(controller Controller, eventBus *events.Bus, logger *slog.Logger, mode Mode, ledType string) *Manager {
	if ledType == "" {
		if available := controller.Available(); len(available) > 0 {
			ledType = available[0]
		}
	}
	return &Manager{
		controller: controller,
		eventBus:   eventBus,
		logger:     logger,
		ledType:    ledType,
		mode:       mode,
		states:     make(map[int]string),
	}
}

// Start applies the mode. In auto mode the LED starts off and follows
// InputStateChangedEvent.
func (m *Manager) Start() {
	switch m.mode {
	case ModeOn:
		m.set(true, "solid")
	case ModeBlink:
		m.set(true, "blink")
	case ModeAuto:
		m.set(false, "solid")
		m.unsubscribe = m.eventBus.Subscribe(m.handleEvent)
	default:
		m.set(false, "solid")
	}
	m.logger.Info("LED manager started", "mode", m.mode, "led", m.ledType)
}

// Stop unsubscribes from events and switches the LED off.
func (m *Manager) Stop() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.set(false, "solid")
	m.logger.Info("LED manager stopped")
}

// Controller returns the underlying LED controller.
func (m *Manager) Controller() Controller {
	return m.controller
}

func (m *Manager) handleEvent(e events.InputStateChangedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[e.InputID] = e.State
	m.logger.Debug("Input state changed", "input_id", e.InputID, "state", e.State)

	on, pattern := aggregate(m.states)
	m.set(on, pattern)
}

// aggregate reduces per-input states to one LED setting.
func aggregate(states map[int]string) (bool, string) {
	paused := false
	for _, s := range states {
		switch s {
		case "active":
			return true, "solid"
		case "paused":
			paused = true
		}
	}
	if paused {
		return true, "blink"
	}
	return false, "solid"
}

func (m *Manager) set(on bool, pattern string) {
	if m.ledType == "" {
		return
	}
	if err := m.controller.Set(m.ledType, on, pattern); err != nil {
		m.logger.Warn("Failed to set LED", "led", m.ledType, "on", on, "pattern", pattern, "error", err)
	}
}
