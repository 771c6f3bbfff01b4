package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/uvcnode/internal/events"
)

// registerSSERoutes registers the input event stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Input state transitions, consumer counts, command outcomes, dropped frames and device hotplug",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"input-state":   events.InputStateChangedEvent{},
		"consumers":     events.ConsumersChangedEvent{},
		"command":       events.CommandAppliedEvent{},
		"frame-dropped": events.FrameDroppedEvent{},
		"device":        events.DeviceChangedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.InputStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ConsumersChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.CommandAppliedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.FrameDroppedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.DeviceChangedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Current state of every input, so clients start from a known view.
		if s.options.Inputs != nil {
			now := time.Now().UTC().Format(time.RFC3339)
			for _, src := range s.options.Inputs.List() {
				state := src.State().String()
				if err := send.Data(events.InputStateChangedEvent{
					InputID:   src.ID(),
					Name:      src.Name(),
					State:     state,
					Previous:  state,
					Timestamp: now,
				}); err != nil {
					return
				}
			}
		}

		forward(ctx, eventCh, send)
	})
}

// forward relays events to the client until it disconnects.
func forward(ctx context.Context, eventCh <-chan any, send sse.Sender) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-eventCh:
			if err := send.Data(event); err != nil {
				return
			}
		}
	}
}
