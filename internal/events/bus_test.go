package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan InputStateChangedEvent, 1)

	unsub := bus.Subscribe(func(e InputStateChangedEvent) {
		received <- e
	})
	defer unsub()

	ev := InputStateChangedEvent{InputID: 1, State: "paused", Previous: "active"}
	bus.Publish(ev)

	select {
	case got := <-received:
		if got != ev {
			t.Errorf("got %+v, want %+v", got, ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan ConsumersChangedEvent, 1)

	unsub := bus.Subscribe(func(e ConsumersChangedEvent) {
		received <- e
	})

	bus.Publish(ConsumersChangedEvent{Consumers: 1})
	<-received

	unsub()

	bus.Publish(ConsumersChangedEvent{Consumers: 2})
	select {
	case <-received:
		t.Fatal("received event after unsubscribe")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	stateReceived := make(chan bool, 1)
	commandReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ InputStateChangedEvent) { stateReceived <- true })
	defer unsub1()
	unsub2 := bus.Subscribe(func(_ CommandAppliedEvent) { commandReceived <- true })
	defer unsub2()

	bus.Publish(InputStateChangedEvent{State: "active"})
	<-stateReceived

	select {
	case <-commandReceived:
		t.Fatal("command subscriber received a state event")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)
	unsub := bus.Subscribe(func(_ FrameDroppedEvent) { receivedCh <- true })
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range eventsPerGoroutine {
				bus.Publish(FrameDroppedEvent{Reason: "undersized"})
			}
		}()
	}
	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestBus_AllEventTypes(t *testing.T) {
	bus := New()

	tests := []struct {
		name  string
		event Event
	}{
		{"InputStateChanged", InputStateChangedEvent{State: "active"}},
		{"ConsumersChanged", ConsumersChangedEvent{Consumers: 3}},
		{"CommandApplied", CommandAppliedEvent{Group: "quality", OK: true}},
		{"FrameDropped", FrameDroppedEvent{Reason: "undersized"}},
		{"LogEntry", LogEntryEvent{Message: "hello"}},
		{"InputMetrics", InputMetricsEvent{FPS: 25}},
		{"DeviceChanged", DeviceChangedEvent{Action: "remove", Path: "/dev/video0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			received := make(chan Event, 1)

			var unsub func()
			switch tt.event.(type) {
			case InputStateChangedEvent:
				unsub = bus.Subscribe(func(e InputStateChangedEvent) { received <- e })
			case ConsumersChangedEvent:
				unsub = bus.Subscribe(func(e ConsumersChangedEvent) { received <- e })
			case CommandAppliedEvent:
				unsub = bus.Subscribe(func(e CommandAppliedEvent) { received <- e })
			case FrameDroppedEvent:
				unsub = bus.Subscribe(func(e FrameDroppedEvent) { received <- e })
			case LogEntryEvent:
				unsub = bus.Subscribe(func(e LogEntryEvent) { received <- e })
			case InputMetricsEvent:
				unsub = bus.Subscribe(func(e InputMetricsEvent) { received <- e })
			case DeviceChangedEvent:
				unsub = bus.Subscribe(func(e DeviceChangedEvent) { received <- e })
			}
			defer unsub()

			bus.Publish(tt.event)

			select {
			case got := <-received:
				if got.Type() != tt.event.Type() {
					t.Errorf("Type() = %d, want %d", got.Type(), tt.event.Type())
				}
			case <-time.After(time.Second):
				t.Fatal("timeout waiting for event")
			}
		})
	}
}

func TestBus_UnknownHandler(_ *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	unsub()
}

func TestBus_Nil(_ *testing.T) {
	var bus *Bus
	bus.Publish(InputStateChangedEvent{})
	bus.Subscribe(func(InputStateChangedEvent) {})()
	SubscribeToChannel[ConsumersChangedEvent](bus, make(chan any, 1))()
	_ = bus.Close()
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)

	unsub := SubscribeToChannel[CommandAppliedEvent](bus, ch)
	defer unsub()

	bus.Publish(CommandAppliedEvent{Group: "resolution", Value: 2, OK: true})

	select {
	case got := <-ch:
		ev, ok := got.(CommandAppliedEvent)
		if !ok {
			t.Fatalf("got %T, want CommandAppliedEvent", got)
		}
		if ev.Group != "resolution" || ev.Value != 2 {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel delivery")
	}

	// A full channel drops rather than blocking the dispatcher.
	bus.Publish(CommandAppliedEvent{Group: "quality"})
	bus.Publish(CommandAppliedEvent{Group: "quality"})
	time.Sleep(20 * time.Millisecond)
}

func TestEventJSON(t *testing.T) {
	data, err := json.Marshal(CommandAppliedEvent{InputID: 0, Group: "device", ControlID: 0x00980900, Value: 5, OK: false, Error: "busy"})
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"input_id", "group", "control_id", "value", "ok", "error"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing json key %q in %s", key, data)
		}
	}
}
