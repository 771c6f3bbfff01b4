package exporters

import (
	"context"
	"sync"
	"time"

	"github.com/smazurov/uvcnode/internal/events"
	"github.com/smazurov/uvcnode/internal/metrics"
)

// EventPublisher interface for publishing events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// SSEExporter periodically publishes an InputMetricsEvent per input,
// deriving the frame rate from the published counter.
type SSEExporter struct {
	eventBus EventPublisher
	interval time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	last     map[int]uint64
	lastTick time.Time
}

// NewSSEExporter creates a new SSE exporter.
func NewSSEExporter(eventBus EventPublisher) *SSEExporter {
	return &SSEExporter{
		eventBus: eventBus,
		interval: time.Second,
		last:     make(map[int]uint64),
	}
}

// Start begins the export loop.
func (s *SSEExporter) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.lastTick = time.Now()
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the exporter and waits for the goroutine to finish.
func (s *SSEExporter) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *SSEExporter) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.publish(now)
		}
	}
}

func (s *SSEExporter) publish(now time.Time) {
	elapsed := now.Sub(s.lastTick).Seconds()
	s.lastTick = now

	for id, m := range metrics.GetAll() {
		var fps float64
		if prev, ok := s.last[id]; ok && elapsed > 0 && m.FramesPublished >= prev {
			fps = float64(m.FramesPublished-prev) / elapsed
		}
		s.last[id] = m.FramesPublished

		s.eventBus.Publish(events.InputMetricsEvent{
			InputID:         id,
			FPS:             fps,
			FramesPublished: m.FramesPublished,
			FramesDropped:   m.FramesDropped,
			Consumers:       m.Consumers,
		})
	}
}
