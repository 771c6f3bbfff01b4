package input

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smazurov/uvcnode/internal/events"
	"github.com/smazurov/uvcnode/internal/metrics"
)

// Options configures a Source.
type Options struct {
	Config  Config
	Device  CaptureDevice
	Encoder FrameEncoder

	// Registry is consulted once at construction when
	// Config.DynamicControls is set.
	Registry        ControlRegistry
	GenericControls []ControlDescriptor

	Bus          *events.Bus
	Logger       *slog.Logger
	FatalHandler func(error)
}

// Source is one capture input: the orchestrator, its command router and
// the consumer-facing frame API.
type Source struct {
	cfg    Config
	logger *slog.Logger
	bus    *events.Bus
	orch   *Orchestrator
	router *CommandRouter
	format Format
}

// Status is a point-in-time summary of a Source.
type Status struct {
	ID              int              `json:"id" example:"0"`
	Name            string           `json:"name" example:"uvc"`
	Device          string           `json:"device" example:"/dev/video0"`
	State           string           `json:"state" example:"active" enum:"active,paused,stopped_idle,stopped"`
	Consumers       int              `json:"consumers" example:"1"`
	Generation      uint64           `json:"generation" example:"1042" doc:"Frames published so far"`
	LastFrameAt     *time.Time       `json:"last_frame_at,omitempty"`
	LastFrameBytes  int              `json:"last_frame_bytes" example:"48213"`
	Format          Format           `json:"format"`
	FPS             int              `json:"fps" example:"25"`
	Quality         int              `json:"quality" example:"80"`
	MinimumSize     int              `json:"minimum_size" example:"0"`
	StopOnIdle      bool             `json:"stop_on_idle"`
	Resolution      ResolutionOption `json:"resolution"`
	ResolutionIndex int              `json:"resolution_index" example:"3"`
}

// New builds a Source around an opened device. Controls are enumerated
// here, once.
func New(opts Options) (*Source, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Device == nil {
		return nil, errors.New("capture device is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("input_id", cfg.ID)

	format := opts.Device.Format()
	if !format.Compressed && opts.Encoder == nil {
		return nil, &StartupError{Op: "configure encoder", Err: fmt.Errorf("device delivers raw %s frames and no encoder is set", format.PixelFormat)}
	}

	s := &Source{cfg: cfg, logger: logger, bus: opts.Bus, format: format}

	orch, err := NewOrchestrator(OrchestratorOptions{
		Config:         cfg,
		Device:         opts.Device,
		Encoder:        opts.Encoder,
		Logger:         logger,
		Bus:            opts.Bus,
		FatalHandler:   opts.FatalHandler,
		OnStateChange:  s.stateChanged,
		OnDemandChange: s.consumersChanged,
	})
	if err != nil {
		return nil, err
	}
	s.orch = orch

	resolutions := opts.Device.Resolutions()
	current := ResolutionOption{Width: format.Width, Height: format.Height}
	index := indexOfResolution(resolutions, current)
	if index < 0 {
		resolutions = append(resolutions, current)
		index = len(resolutions) - 1
	}
	orch.settings.resolutionIndex = index
	orch.settings.width = current.Width
	orch.settings.height = current.Height

	var native []ControlDescriptor
	if cfg.DynamicControls && opts.Registry != nil {
		native, err = opts.Registry.Enumerate()
		if err != nil {
			logger.Warn("Control enumeration failed, continuing without device controls", "error", err)
			native = nil
		} else {
			logger.Info("Enumerated device controls", "count", len(native))
		}
	}

	s.router = newCommandRouter(opts.Device, orch.settings, resolutions, native, opts.GenericControls,
		logger, s.commandHandled)

	metrics.SetState(cfg.ID, StateActive.String())
	metrics.SetConsumers(cfg.ID, 0)
	return s, nil
}

// ID returns the input index.
func (s *Source) ID() int {
	return s.cfg.ID
}

// Name returns the configured input name.
func (s *Source) Name() string {
	return s.cfg.Name
}

// Start spawns the capture loop.
func (s *Source) Start() error {
	if err := s.orch.Start(); err != nil {
		return err
	}
	s.logger.Info("Input started",
		"device", s.cfg.Device,
		"format", s.format.PixelFormat,
		"width", s.format.Width,
		"height", s.format.Height,
		"fps", s.cfg.FPS,
		"stop_on_idle", s.cfg.StopOnIdle)
	return nil
}

// Stop requests shutdown and waits for cleanup.
func (s *Source) Stop() {
	s.orch.RequestStop()
	s.orch.Wait()
}

// RequestStop cancels the capture loop without waiting.
func (s *Source) RequestStop() {
	s.orch.RequestStop()
}

// Wait blocks until the input has stopped.
func (s *Source) Wait() {
	s.orch.Wait()
}

// Done is closed once the input has stopped.
func (s *Source) Done() <-chan struct{} {
	return s.orch.Done()
}

// State returns the current streaming state.
func (s *Source) State() StreamingState {
	return s.orch.State()
}

// Pause stops frame production until Resume.
func (s *Source) Pause() error {
	return s.orch.Pause()
}

// Resume restarts frame production after Pause.
func (s *Source) Resume() error {
	return s.orch.Resume()
}

// Consumers returns the number of live subscriptions.
func (s *Source) Consumers() int {
	return s.orch.demand.Count()
}

// Generation returns the number of frames published so far.
func (s *Source) Generation() uint64 {
	if slot := s.orch.Slot(); slot != nil {
		return slot.Generation()
	}
	return 0
}

// Subscription is one registered frame consumer. Close it when done so
// an idle input can release the device.
type Subscription struct {
	ID     string
	source *Source
	once   sync.Once

	mu   sync.Mutex
	last uint64
}

// Subscribe registers a consumer.
func (s *Source) Subscribe() *Subscription {
	sub := &Subscription{ID: uuid.NewString(), source: s}
	n := s.orch.demand.Register()
	s.logger.Debug("Consumer subscribed", "subscription", sub.ID, "consumers", n)
	return sub
}

// Next blocks until a frame newer than the last one returned is published.
// Concurrent callers share the cursor, so each frame goes to at least one
// of them and the cursor never moves backwards.
func (sub *Subscription) Next(ctx context.Context) (Frame, error) {
	sub.mu.Lock()
	last := sub.last
	sub.mu.Unlock()

	frame, err := sub.source.NextFrame(ctx, last)
	if err != nil {
		return Frame{}, err
	}

	sub.mu.Lock()
	sub.last = max(sub.last, frame.Generation)
	sub.mu.Unlock()
	return frame, nil
}

// Close unregisters the consumer. Extra calls are no-ops.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		n := sub.source.orch.demand.Unregister()
		sub.source.logger.Debug("Consumer unsubscribed", "subscription", sub.ID, "consumers", n)
	})
}

// LatestFrame returns the most recently published frame.
func (s *Source) LatestFrame() (Frame, error) {
	slot := s.orch.Slot()
	if slot == nil {
		return Frame{}, ErrNotRunning
	}
	frame := slot.Snapshot()
	if frame.Generation == 0 {
		return Frame{}, ErrNoFrame
	}
	return frame, nil
}

// NextFrame waits for a frame with generation greater than after.
func (s *Source) NextFrame(ctx context.Context, after uint64) (Frame, error) {
	slot := s.orch.Slot()
	if slot == nil {
		return Frame{}, ErrNotRunning
	}
	return slot.WaitForNext(ctx, after)
}

// Command applies a control change. It fails with ErrNotRunning once the
// input has stopped.
func (s *Source) Command(ctx context.Context, group ControlGroup, id uint32, value int32) error {
	if s.State() == StateStopped {
		return ErrNotRunning
	}
	return s.router.Command(ctx, group, id, value)
}

// Controls lists every addressable control.
func (s *Source) Controls() []ControlDescriptor {
	return s.router.Controls()
}

// Resolutions returns the selectable resolutions and the current index.
func (s *Source) Resolutions() ([]ResolutionOption, int) {
	return s.router.Resolutions()
}

// Status summarises the input.
func (s *Source) Status() Status {
	cfg := s.orch.settings.snapshot()
	st := Status{
		ID:              s.cfg.ID,
		Name:            s.cfg.Name,
		Device:          s.cfg.Device,
		State:           s.State().String(),
		Consumers:       s.Consumers(),
		Format:          s.format,
		FPS:             s.cfg.FPS,
		Quality:         cfg.quality,
		MinimumSize:     cfg.minimumSize,
		StopOnIdle:      cfg.stopOnIdle,
		Resolution:      ResolutionOption{Width: cfg.width, Height: cfg.height},
		ResolutionIndex: cfg.resolutionIndex,
	}
	st.Format.Width, st.Format.Height = cfg.width, cfg.height
	if slot := s.orch.Slot(); slot != nil {
		frame := slot.Snapshot()
		st.Generation = frame.Generation
		if frame.Generation > 0 {
			ts := frame.Timestamp
			st.LastFrameAt = &ts
			st.LastFrameBytes = len(frame.Data)
		}
	}
	return st
}

// ApplyTunables pushes changed runtime settings through the same paths
// as commands. Every field is attempted; the errors are joined.
func (s *Source) ApplyTunables(ctx context.Context, t Tunables) error {
	var errs []error

	if t.Quality != nil {
		if err := s.Command(ctx, GroupQuality, QualityControlID, int32(*t.Quality)); err != nil {
			errs = append(errs, err)
		}
	}

	if t.Resolution != nil {
		list, current := s.Resolutions()
		index := indexOfResolution(list, *t.Resolution)
		switch {
		case index < 0:
			errs = append(errs, &ValidationError{Field: "resolution", Value: t.Resolution.String(), Reason: "not offered by the device"})
		case index != current:
			if err := s.Command(ctx, GroupResolution, ResolutionControlID, int32(index)); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if t.MinimumSize != nil {
		if *t.MinimumSize < 0 {
			errs = append(errs, &ValidationError{Field: "minimum_size", Value: *t.MinimumSize, Reason: "must not be negative"})
		} else {
			s.orch.settings.mu.Lock()
			s.orch.settings.minimumSize = *t.MinimumSize
			s.orch.settings.mu.Unlock()
		}
	}

	if t.StopOnIdle != nil {
		s.orch.settings.mu.Lock()
		s.orch.settings.stopOnIdle = *t.StopOnIdle
		s.orch.settings.mu.Unlock()
		if !*t.StopOnIdle {
			s.orch.demand.Wake()
		}
	}

	return errors.Join(errs...)
}

func (s *Source) stateChanged(prev, next StreamingState) {
	s.logger.Info("Input state changed", "from", prev.String(), "to", next.String())
	metrics.SetState(s.cfg.ID, next.String())
	s.bus.Publish(events.InputStateChangedEvent{
		InputID:   s.cfg.ID,
		Name:      s.cfg.Name,
		State:     next.String(),
		Previous:  prev.String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Source) consumersChanged(n int) {
	metrics.SetConsumers(s.cfg.ID, n)
	s.bus.Publish(events.ConsumersChangedEvent{
		InputID:   s.cfg.ID,
		Consumers: n,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Source) commandHandled(res CommandResult) {
	metrics.CommandHandled(s.cfg.ID, string(res.Group), res.Err == nil)
	ev := events.CommandAppliedEvent{
		InputID:   s.cfg.ID,
		Group:     string(res.Group),
		ControlID: res.ControlID,
		Value:     res.Value,
		OK:        res.Err == nil,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	s.bus.Publish(ev)
}
