// Package metrics provides Prometheus metrics for capture inputs and a
// local cache of the same counters for status and SSE consumers.
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// States reported by the input_state gauge.
var States = []string{"active", "paused", "stopped_idle", "stopped"}

var (
	framesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uvcnode",
		Subsystem: "input",
		Name:      "frames_published_total",
		Help:      "Frames published to the frame slot",
	}, []string{"input_id"})

	framesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uvcnode",
		Subsystem: "input",
		Name:      "frames_dropped_total",
		Help:      "Frames discarded before publishing",
	}, []string{"input_id", "reason"})

	frameBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "uvcnode",
		Subsystem: "input",
		Name:      "frame_bytes",
		Help:      "Size of the last published frame",
	}, []string{"input_id"})

	consumers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "uvcnode",
		Subsystem: "input",
		Name:      "consumers",
		Help:      "Registered frame consumers",
	}, []string{"input_id"})

	inputState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "uvcnode",
		Subsystem: "input",
		Name:      "state",
		Help:      "Streaming state, 1 for the current state and 0 otherwise",
	}, []string{"input_id", "state"})

	commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uvcnode",
		Subsystem: "input",
		Name:      "commands_total",
		Help:      "Control commands by group and result",
	}, []string{"input_id", "group", "result"})

	cache   = make(map[int]*InputMetrics)
	cacheMu sync.RWMutex
)

// InputMetrics holds current counter values for one input.
type InputMetrics struct {
	FramesPublished uint64
	FramesDropped   uint64
	LastFrameBytes  int
	Consumers       int
	State           string
}

func label(inputID int) string {
	return strconv.Itoa(inputID)
}

// FramePublished records a published frame of size bytes.
func FramePublished(inputID, size int) {
	id := label(inputID)
	framesPublished.WithLabelValues(id).Inc()
	frameBytes.WithLabelValues(id).Set(float64(size))
	updateCache(inputID, func(m *InputMetrics) {
		m.FramesPublished++
		m.LastFrameBytes = size
	})
}

// FrameDropped records a discarded frame.
func FrameDropped(inputID int, reason string) {
	framesDropped.WithLabelValues(label(inputID), reason).Inc()
	updateCache(inputID, func(m *InputMetrics) { m.FramesDropped++ })
}

// SetConsumers sets the registered consumer count.
func SetConsumers(inputID, n int) {
	consumers.WithLabelValues(label(inputID)).Set(float64(n))
	updateCache(inputID, func(m *InputMetrics) { m.Consumers = n })
}

// SetState marks state as the current streaming state.
func SetState(inputID int, state string) {
	id := label(inputID)
	for _, s := range States {
		v := 0.0
		if s == state {
			v = 1
		}
		inputState.WithLabelValues(id, s).Set(v)
	}
	updateCache(inputID, func(m *InputMetrics) { m.State = state })
}

// CommandHandled counts a control command outcome.
func CommandHandled(inputID int, group string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	commands.WithLabelValues(label(inputID), group, result).Inc()
}

// Delete removes all series and cached values for an input.
func Delete(inputID int) {
	id := label(inputID)
	framesPublished.DeleteLabelValues(id)
	frameBytes.DeleteLabelValues(id)
	consumers.DeleteLabelValues(id)
	framesDropped.DeletePartialMatch(prometheus.Labels{"input_id": id})
	inputState.DeletePartialMatch(prometheus.Labels{"input_id": id})
	commands.DeletePartialMatch(prometheus.Labels{"input_id": id})

	cacheMu.Lock()
	delete(cache, inputID)
	cacheMu.Unlock()
}

// Get returns a copy of the cached values for an input, nil if unknown.
func Get(inputID int) *InputMetrics {
	cacheMu.RLock()
	defer cacheMu.RUnlock()
	if m, ok := cache[inputID]; ok {
		dup := *m
		return &dup
	}
	return nil
}

// GetAll returns copies of the cached values for every input.
func GetAll() map[int]*InputMetrics {
	cacheMu.RLock()
	defer cacheMu.RUnlock()
	result := make(map[int]*InputMetrics, len(cache))
	for id, m := range cache {
		dup := *m
		result[id] = &dup
	}
	return result
}

func updateCache(inputID int, update func(*InputMetrics)) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	m, ok := cache[inputID]
	if !ok {
		m = &InputMetrics{}
		cache[inputID] = m
	}
	update(m)
}
