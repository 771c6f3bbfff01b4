package exporters

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/uvcnode/internal/events"
	"github.com/smazurov/uvcnode/internal/metrics"
)

type mockEventBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (m *mockEventBus) Publish(ev events.Event) {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
}

func (m *mockEventBus) forInput(id int) []events.InputMetricsEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []events.InputMetricsEvent
	for _, ev := range m.events {
		if e, ok := ev.(events.InputMetricsEvent); ok && e.InputID == id {
			out = append(out, e)
		}
	}
	return out
}

func TestSSEExporterFrameRate(t *testing.T) {
	const id = 77
	metrics.Delete(id)
	defer metrics.Delete(id)

	mock := &mockEventBus{}
	exporter := NewSSEExporter(mock)

	start := time.Now()
	exporter.lastTick = start
	metrics.FramePublished(id, 10)
	exporter.publish(start.Add(time.Second))

	for range 25 {
		metrics.FramePublished(id, 10)
	}
	metrics.SetConsumers(id, 2)
	exporter.publish(start.Add(2 * time.Second))

	got := mock.forInput(id)
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].FPS != 0 {
		t.Errorf("first sample FPS = %v, want 0", got[0].FPS)
	}
	if math.Abs(got[1].FPS-25) > 0.001 {
		t.Errorf("second sample FPS = %v, want 25", got[1].FPS)
	}
	if got[1].FramesPublished != 26 || got[1].Consumers != 2 {
		t.Errorf("unexpected sample %+v", got[1])
	}
}

func TestSSEExporterStartStop(t *testing.T) {
	const id = 78
	metrics.Delete(id)
	defer metrics.Delete(id)
	metrics.SetConsumers(id, 1)

	mock := &mockEventBus{}
	exporter := NewSSEExporter(mock)
	exporter.interval = 20 * time.Millisecond

	exporter.Start(context.Background())
	deadline := time.After(2 * time.Second)
	for len(mock.forInput(id)) == 0 {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for metrics event")
		case <-time.After(10 * time.Millisecond):
		}
	}
	exporter.Stop()
}
