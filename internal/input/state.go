package input

import (
	"context"
	"sync"
)

// StreamingState is the lifecycle state of an input.
type StreamingState int

// Streaming states. Stopped is terminal.
const (
	StateActive StreamingState = iota
	StatePaused
	StateStoppedIdle
	StateStopped
)

func (s StreamingState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StatePaused:
		return "paused"
	case StateStoppedIdle:
		return "stopped_idle"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// stateMachine tracks the loop-driven state (Active, StoppedIdle,
// Stopped) and the externally toggled pause flag separately. Paused is
// reported on top of the loop state, so Resume returns to whichever
// state the loop is actually in.
//
// Mutations are serialized through notifyMu and onChange runs under it,
// so observers see changes in the order they happened. onChange must not
// mutate the state machine.
type stateMachine struct {
	notifyMu sync.Mutex
	mu       sync.Mutex
	cond     *sync.Cond
	base     StreamingState
	paused   bool
	onChange func(prev, next StreamingState)
}

func newStateMachine(onChange func(prev, next StreamingState)) *stateMachine {
	m := &stateMachine{base: StateActive, onChange: onChange}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *stateMachine) get() StreamingState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current()
}

// current requires m.mu.
func (m *stateMachine) current() StreamingState {
	if m.paused && m.base != StateStopped {
		return StatePaused
	}
	return m.base
}

// update applies fn under the lock and reports the visible change, if any.
// fn returns false to leave the state untouched.
func (m *stateMachine) update(fn func() bool) bool {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	prev := m.current()
	ok := fn()
	next := m.current()
	if ok {
		m.cond.Broadcast()
	}
	m.mu.Unlock()

	if prev != next {
		m.changed(prev, next)
	}
	return ok
}

// transition moves the loop state from -> to only if it is currently from.
// While paused the change is recorded but Paused stays visible.
func (m *stateMachine) transition(from, to StreamingState) bool {
	return m.update(func() bool {
		if m.base != from {
			return false
		}
		m.base = to
		return true
	})
}

// set forces the loop state, refusing to leave Stopped.
func (m *stateMachine) set(to StreamingState) {
	m.update(func() bool {
		if m.base == to || m.base == StateStopped {
			return false
		}
		m.base = to
		return true
	})
}

// pause suspends frame production. Pausing twice is a no-op.
func (m *stateMachine) pause() error {
	return m.setPaused(true)
}

// resume clears the pause; the visible state falls back to the loop state.
func (m *stateMachine) resume() error {
	return m.setPaused(false)
}

func (m *stateMachine) setPaused(paused bool) error {
	var err error
	m.update(func() bool {
		if m.base == StateStopped {
			err = ErrNotRunning
			return false
		}
		if m.paused == paused {
			return false
		}
		m.paused = paused
		return true
	})
	return err
}

// waitWhilePaused blocks while the state is Paused.
func (m *stateMachine) waitWhilePaused(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.cond.Broadcast()
	})
	defer stop()

	for m.paused && m.base != StateStopped {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.cond.Wait()
	}
	return ctx.Err()
}

func (m *stateMachine) changed(prev, next StreamingState) {
	if m.onChange != nil {
		m.onChange(prev, next)
	}
}
