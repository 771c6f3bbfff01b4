package input

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/uvcnode/internal/events"
	"github.com/smazurov/uvcnode/internal/metrics"
)

// Below this rate the loop sleeps between frames instead of relying on
// the device to block.
const pacedFPSThreshold = 5

// Frame drop reasons, also used as metric labels.
const (
	DropUndersized   = "undersized"
	DropEncodeFailed = "encode_failed"
	DropTooLarge     = "too_large"
)

// OrchestratorOptions wires an Orchestrator.
type OrchestratorOptions struct {
	Config  Config
	Device  CaptureDevice
	Encoder FrameEncoder
	Logger  *slog.Logger
	Bus     *events.Bus

	// FatalHandler receives unrecoverable loop errors. The default logs
	// and exits the process.
	FatalHandler func(error)

	OnStateChange  func(prev, next StreamingState)
	OnDemandChange func(consumers int)

	Clock func() time.Time
}

// Orchestrator runs the capture loop of one input: it waits out pauses
// and idle periods, grabs, filters, encodes and publishes frames.
type Orchestrator struct {
	id      int
	fps     int
	maxSize int
	device  CaptureDevice
	encoder FrameEncoder
	logger  *slog.Logger
	bus     *events.Bus
	fatal   func(error)
	now     func() time.Time

	settings *settings
	state    *stateMachine
	demand   *DemandTracker
	slot     atomic.Pointer[FrameSlot]
	packed   []byte // loop-owned scratch for unpadding raw rows

	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	started bool
	cleanup sync.Once
	done    chan struct{}
}

// NewOrchestrator creates a stopped orchestrator. Nothing touches the
// device until Start.
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
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
	o := &Orchestrator{
		id:      cfg.ID,
		fps:     cfg.FPS,
		maxSize: cfg.MaxFrameBytes,
		device:  opts.Device,
		encoder: opts.Encoder,
		logger:  logger,
		bus:     opts.Bus,
		fatal:   opts.FatalHandler,
		now:     opts.Clock,
		settings: &settings{
			quality:     cfg.Quality,
			minimumSize: cfg.MinimumSize,
			stopOnIdle:  cfg.StopOnIdle,
			width:       cfg.Width,
			height:      cfg.Height,
		},
		state:  newStateMachine(opts.OnStateChange),
		demand: NewDemandTracker(logger, opts.OnDemandChange),
		done:   make(chan struct{}),
	}
	if o.fatal == nil {
		o.fatal = func(err error) {
			o.logger.Error("Capture loop failed, exiting", "error", err)
			os.Exit(1)
		}
	}
	if o.now == nil {
		o.now = time.Now
	}
	o.ctx, o.cancel = context.WithCancel(context.Background())
	return o, nil
}

// Start allocates the frame slot and spawns the capture loop. An input
// whose frames cannot be buffered fails with a StartupError.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return errors.New("capture loop already started")
	}
	if o.ctx.Err() != nil {
		return ErrNotRunning
	}

	capacity := o.frameCapacity()
	if capacity > o.maxSize {
		return &StartupError{
			Op:  "allocate frame buffer",
			Err: fmt.Errorf("%d bytes exceeds limit of %d", capacity, o.maxSize),
		}
	}
	slot, err := NewFrameSlot(capacity)
	if err != nil {
		return &StartupError{Op: "allocate frame buffer", Err: err}
	}
	o.slot.Store(slot)
	o.started = true

	o.logger.Info("Capture loop starting", "capacity", capacity, "fps", o.fps)
	go o.run()
	return nil
}

// frameCapacity sizes the slot for the largest frame any selectable
// resolution can produce.
func (o *Orchestrator) frameCapacity() int {
	format := o.device.Format()
	perPixel := 2
	if !format.Compressed {
		// encoder output at quality 100 can exceed packed 4:2:2 input
		perPixel = 3
	}

	capacity := max(format.MaxFrameSize, format.Width*format.Height*perPixel)
	for _, r := range o.device.Resolutions() {
		capacity = max(capacity, r.Width*r.Height*perPixel)
	}
	return capacity
}

// RequestStop cancels the loop. Cleanup runs exactly once, whether the
// loop is grabbing, paused, idle or was never started.
func (o *Orchestrator) RequestStop() {
	o.cancel()

	o.mu.Lock()
	started := o.started
	o.mu.Unlock()
	if !started {
		o.runCleanup()
	}
}

// Wait blocks until cleanup has finished.
func (o *Orchestrator) Wait() {
	<-o.done
}

// Done is closed once cleanup has finished.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// Slot returns the frame slot, nil before Start.
func (o *Orchestrator) Slot() *FrameSlot {
	return o.slot.Load()
}

// Demand returns the consumer tracker.
func (o *Orchestrator) Demand() *DemandTracker {
	return o.demand
}

// State returns the current streaming state.
func (o *Orchestrator) State() StreamingState {
	return o.state.get()
}

// Pause suspends frame production until Resume.
func (o *Orchestrator) Pause() error {
	return o.state.pause()
}

// Resume ends a pause.
func (o *Orchestrator) Resume() error {
	return o.state.resume()
}

func (o *Orchestrator) run() {
	defer o.runCleanup()

	for o.ctx.Err() == nil {
		if err := o.state.waitWhilePaused(o.ctx); err != nil {
			return
		}

		cfg := o.settings.snapshot()
		if cfg.stopOnIdle && o.demand.Count() == 0 {
			if err := o.idle(); err != nil {
				return
			}
			continue
		}

		raw, err := o.device.Grab(o.ctx)
		if err != nil {
			if o.ctx.Err() != nil {
				return
			}
			o.fatal(&GrabError{Err: err})
			return
		}

		o.handleFrame(raw, cfg)

		if err := o.pace(); err != nil {
			return
		}
	}
}

// idle releases the device and blocks until a consumer registers or
// stop-on-idle is switched off.
func (o *Orchestrator) idle() error {
	if err := o.device.Release(); err != nil {
		o.logger.Warn("Failed to release device", "error", err)
	}
	if o.state.transition(StateActive, StateStoppedIdle) {
		o.logger.Info("No consumers, capture idle")
	}

	err := o.demand.waitForDemand(o.ctx, func() bool {
		return o.settings.snapshot().stopOnIdle
	})

	if err == nil && o.state.transition(StateStoppedIdle, StateActive) {
		o.logger.Info("Consumers present, capture resuming", "consumers", o.demand.Count())
	}
	return err
}

func (o *Orchestrator) handleFrame(raw RawFrame, cfg settingsSnapshot) {
	if len(raw.Data) < cfg.minimumSize {
		o.drop(len(raw.Data), DropUndersized, nil)
		return
	}

	data := raw.Data
	if !raw.Compressed {
		if o.encoder == nil {
			o.drop(len(raw.Data), DropEncodeFailed, errors.New("no encoder for raw frames"))
			return
		}
		encoded, err := o.compress(raw, cfg.quality)
		if err != nil {
			o.drop(len(raw.Data), DropEncodeFailed, err)
			return
		}
		data = encoded
	}

	_, err := o.Slot().Publish(data, o.now())
	switch {
	case errors.Is(err, ErrFrameTooLarge):
		o.drop(len(data), DropTooLarge, err)
		return
	case err != nil:
		return
	}
	metrics.FramePublished(o.id, len(data))
}

// compress encodes a raw YUYV frame, removing row padding first when the
// encoder cannot skip it.
func (o *Orchestrator) compress(raw RawFrame, quality int) ([]byte, error) {
	row := raw.Width * 2
	if raw.Stride <= row {
		return o.encoder.Compress(raw.Data, raw.Width, raw.Height, quality)
	}
	if enc, ok := o.encoder.(StridedEncoder); ok {
		return enc.CompressStrided(raw.Data, raw.Width, raw.Height, raw.Stride, quality)
	}

	if need := raw.Stride*(raw.Height-1) + row; raw.Height <= 0 || len(raw.Data) < need {
		return nil, fmt.Errorf("short raw frame: %d bytes for %d rows of stride %d", len(raw.Data), raw.Height, raw.Stride)
	}
	size := row * raw.Height
	if cap(o.packed) < size {
		o.packed = make([]byte, size)
	}
	o.packed = o.packed[:size]
	for y := range raw.Height {
		copy(o.packed[y*row:(y+1)*row], raw.Data[y*raw.Stride:])
	}
	return o.encoder.Compress(o.packed, raw.Width, raw.Height, quality)
}

func (o *Orchestrator) drop(size int, reason string, err error) {
	if err != nil {
		o.logger.Warn("Dropping frame", "size", size, "reason", reason, "error", err)
	} else {
		o.logger.Debug("Dropping frame", "size", size, "reason", reason)
	}
	metrics.FrameDropped(o.id, reason)
	o.bus.Publish(events.FrameDroppedEvent{
		InputID:   o.id,
		Size:      size,
		Reason:    reason,
		Timestamp: o.now().UTC().Format(time.RFC3339),
	})
}

func (o *Orchestrator) pace() error {
	if o.fps <= 0 || o.fps >= pacedFPSThreshold {
		return nil
	}
	timer := time.NewTimer(time.Second / time.Duration(o.fps))
	defer timer.Stop()
	select {
	case <-o.ctx.Done():
		return o.ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (o *Orchestrator) runCleanup() {
	o.cleanup.Do(func() {
		o.state.set(StateStopped)
		if err := o.device.Close(); err != nil {
			o.logger.Warn("Failed to close device", "error", err)
		}
		if slot := o.slot.Load(); slot != nil {
			slot.Close()
		}
		o.logger.Info("Capture loop stopped")
		close(o.done)
	})
}
