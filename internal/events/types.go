package events

// Event type constants for kelindar/event.
const (
	TypeInputStateChanged uint32 = iota + 1
	TypeConsumersChanged
	TypeCommandApplied
	TypeFrameDropped
	TypeLogEntry
	TypeInputMetrics
	TypeDeviceChanged
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// InputStateChangedEvent is published on every streaming state transition.
// Used for LED control and SSE clients.
type InputStateChangedEvent struct {
	InputID   int    `json:"input_id" example:"0" doc:"Input index"`
	Name      string `json:"name" example:"uvc" doc:"Input name"`
	State     string `json:"state" example:"active" enum:"active,paused,stopped_idle,stopped" doc:"New streaming state"`
	Previous  string `json:"previous" example:"stopped_idle" doc:"Previous streaming state"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for InputStateChangedEvent.
func (e InputStateChangedEvent) Type() uint32 { return TypeInputStateChanged }

// ConsumersChangedEvent is published when the number of frame consumers changes.
type ConsumersChangedEvent struct {
	InputID   int    `json:"input_id" example:"0" doc:"Input index"`
	Consumers int    `json:"consumers" example:"2" doc:"Registered consumers"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ConsumersChangedEvent.
func (e ConsumersChangedEvent) Type() uint32 { return TypeConsumersChanged }

// CommandAppliedEvent reports the outcome of a control command.
type CommandAppliedEvent struct {
	InputID   int    `json:"input_id" example:"0" doc:"Input index"`
	Group     string `json:"group" example:"quality" doc:"Control group"`
	ControlID uint32 `json:"control_id" example:"10094851" doc:"Control identifier"`
	Value     int32  `json:"value" example:"60" doc:"Requested value"`
	OK        bool   `json:"ok" doc:"Whether the command succeeded"`
	Error     string `json:"error,omitempty" doc:"Failure reason"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CommandAppliedEvent.
func (e CommandAppliedEvent) Type() uint32 { return TypeCommandApplied }

// FrameDroppedEvent is published when a captured frame is discarded.
type FrameDroppedEvent struct {
	InputID   int    `json:"input_id" example:"0" doc:"Input index"`
	Size      int    `json:"size" example:"412" doc:"Frame size in bytes"`
	Reason    string `json:"reason" example:"undersized" enum:"undersized,encode_failed,too_large" doc:"Drop reason"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for FrameDroppedEvent.
func (e FrameDroppedEvent) Type() uint32 { return TypeFrameDropped }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" example:"2026-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"capture" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }

// InputMetricsEvent is a periodic throughput sample for one input.
type InputMetricsEvent struct {
	InputID         int     `json:"input_id" example:"0" doc:"Input index"`
	FPS             float64 `json:"fps" example:"24.8" doc:"Frames published per second over the last interval"`
	FramesPublished uint64  `json:"frames_published" example:"1200" doc:"Frames published since start"`
	FramesDropped   uint64  `json:"frames_dropped" example:"3" doc:"Frames dropped since start"`
	Consumers       int     `json:"consumers" example:"1" doc:"Registered consumers"`
}

// Type returns the event type identifier for InputMetricsEvent.
func (e InputMetricsEvent) Type() uint32 { return TypeInputMetrics }

// DeviceChangedEvent is published when a V4L2 node appears or disappears.
type DeviceChangedEvent struct {
	Action     string `json:"action" example:"remove" enum:"add,remove,change" doc:"Kernel uevent action"`
	Path       string `json:"path" example:"/dev/video0" doc:"Device node"`
	Configured bool   `json:"configured" doc:"Whether the node is the one the input captures from"`
	Timestamp  string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceChangedEvent.
func (e DeviceChangedEvent) Type() uint32 { return TypeDeviceChanged }
