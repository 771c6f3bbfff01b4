package input

import (
	"fmt"
	"sort"
	"sync"
)

// Manager holds the inputs of one process by ID.
type Manager struct {
	mu      sync.RWMutex
	sources map[int]*Source
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{sources: make(map[int]*Source)}
}

// Add registers s. IDs must be unique.
func (m *Manager) Add(s *Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sources[s.ID()]; exists {
		return fmt.Errorf("input %d already registered", s.ID())
	}
	m.sources[s.ID()] = s
	return nil
}

// Get returns the input with the given ID.
func (m *Manager) Get(id int) (*Source, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sources[id]
	return s, ok
}

// List returns all inputs ordered by ID.
func (m *Manager) List() []*Source {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Source, 0, len(m.sources))
	for _, s := range m.sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// StopAll stops every input concurrently and waits for their cleanup.
func (m *Manager) StopAll() {
	var wg sync.WaitGroup
	for _, s := range m.List() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Stop()
		}()
	}
	wg.Wait()
}
