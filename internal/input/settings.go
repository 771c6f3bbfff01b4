package input

import "sync"

// settings is the configuration block shared between the capture loop
// and the command router.
type settings struct {
	mu              sync.RWMutex
	quality         int
	minimumSize     int
	stopOnIdle      bool
	resolutionIndex int
	width           int
	height          int
}

type settingsSnapshot struct {
	quality         int
	minimumSize     int
	stopOnIdle      bool
	resolutionIndex int
	width           int
	height          int
}

func (s *settings) snapshot() settingsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return settingsSnapshot{
		quality:         s.quality,
		minimumSize:     s.minimumSize,
		stopOnIdle:      s.stopOnIdle,
		resolutionIndex: s.resolutionIndex,
		width:           s.width,
		height:          s.height,
	}
}
