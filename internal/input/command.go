package input

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// CommandResult is handed to the router's observer after every command.
type CommandResult struct {
	Group     ControlGroup
	ControlID uint32
	Value     int32
	Err       error
}

// CommandRouter applies runtime reconfiguration to a running input.
// Commands are synchronous and either fully apply or leave every
// recorded value untouched.
type CommandRouter struct {
	device   CaptureDevice
	settings *settings
	logger   *slog.Logger
	onResult func(CommandResult)

	// mu guards descriptor values; resolutions is immutable after
	// construction.
	mu          sync.Mutex
	generic     map[uint32]*ControlDescriptor
	native      map[uint32]*ControlDescriptor
	order       []uint32
	resolutions []ResolutionOption
}

func newCommandRouter(device CaptureDevice, s *settings, resolutions []ResolutionOption,
	native, generic []ControlDescriptor, logger *slog.Logger, onResult func(CommandResult),
) *CommandRouter {
	r := &CommandRouter{
		device:      device,
		settings:    s,
		logger:      logger,
		onResult:    onResult,
		generic:     make(map[uint32]*ControlDescriptor, len(generic)),
		native:      make(map[uint32]*ControlDescriptor, len(native)),
		resolutions: append([]ResolutionOption(nil), resolutions...),
	}
	for _, c := range native {
		c.Group = GroupDevice
		r.native[c.ID] = &c
		r.order = append(r.order, c.ID)
	}
	for _, c := range generic {
		c.Group = GroupGeneric
		r.generic[c.ID] = &c
	}
	return r
}

// Command routes value to the control id within group.
func (r *CommandRouter) Command(ctx context.Context, group ControlGroup, id uint32, value int32) error {
	err := ctx.Err()
	if err == nil {
		switch group {
		case GroupGeneric:
			err = r.setGeneric(id, value)
		case GroupDevice:
			err = r.setDevice(id, value)
		case GroupResolution:
			err = r.setResolution(int(value))
		case GroupQuality:
			err = r.setQuality(int(value))
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownGroup, group)
		}
	}

	if err != nil {
		r.logger.Warn("Command failed", "group", group, "control_id", id, "value", value, "error", err)
	} else {
		r.logger.Debug("Command applied", "group", group, "control_id", id, "value", value)
	}
	if r.onResult != nil {
		r.onResult(CommandResult{Group: group, ControlID: id, Value: value, Err: err})
	}
	return err
}

func (r *CommandRouter) setGeneric(id uint32, value int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.generic[id]
	if !ok {
		return fmt.Errorf("%w: 0x%08x", ErrControlNotFound, id)
	}
	c.Value = value
	return nil
}

func (r *CommandRouter) setDevice(id uint32, value int32) error {
	if err := r.device.SetControl(id, value); err != nil {
		return &DeviceCommandError{Op: fmt.Sprintf("set control 0x%08x", id), Err: err}
	}
	r.mu.Lock()
	if c, ok := r.native[id]; ok {
		c.Value = value
	}
	r.mu.Unlock()
	return nil
}

func (r *CommandRouter) setResolution(index int) error {
	if index < 0 || index >= len(r.resolutions) {
		return &ValidationError{
			Field:  "resolution index",
			Value:  index,
			Reason: fmt.Sprintf("must be within 0..%d", len(r.resolutions)-1),
		}
	}
	res := r.resolutions[index]

	r.settings.mu.Lock()
	defer r.settings.mu.Unlock()
	if err := r.device.SetResolution(res.Width, res.Height); err != nil {
		return &DeviceCommandError{Op: "set resolution " + res.String(), Err: err}
	}
	r.settings.resolutionIndex = index
	r.settings.width = res.Width
	r.settings.height = res.Height
	return nil
}

func (r *CommandRouter) setQuality(quality int) error {
	if quality < 0 || quality > 100 {
		return &ValidationError{Field: "quality", Value: quality, Reason: "must be within 0..100"}
	}

	r.settings.mu.Lock()
	defer r.settings.mu.Unlock()
	supported, err := r.device.SetJPEGQuality(quality)
	if err != nil {
		return &DeviceCommandError{Op: "set jpeg quality", Err: err}
	}
	if !supported {
		r.logger.Debug("Device has no compression control, quality applies to the encoder", "quality", quality)
	}
	r.settings.quality = quality
	return nil
}

// Resolutions returns the selectable resolutions and the current index.
func (r *CommandRouter) Resolutions() ([]ResolutionOption, int) {
	r.settings.mu.RLock()
	current := r.settings.resolutionIndex
	r.settings.mu.RUnlock()
	return append([]ResolutionOption(nil), r.resolutions...), current
}

// Controls describes every addressable control with its current value:
// the quality and resolution selectors, native controls in enumeration
// order, then generic controls by ID.
func (r *CommandRouter) Controls() []ControlDescriptor {
	cfg := r.settings.snapshot()

	out := []ControlDescriptor{
		{
			ID: QualityControlID, Name: "Compression Quality", Group: GroupQuality, Type: "integer",
			Value: int32(cfg.quality), Min: 0, Max: 100, Step: 1, Default: 80,
		},
	}
	if len(r.resolutions) > 0 {
		res := ControlDescriptor{
			ID: ResolutionControlID, Name: "Resolution", Group: GroupResolution, Type: "menu",
			Value: int32(cfg.resolutionIndex), Min: 0, Max: int32(len(r.resolutions) - 1), Step: 1,
		}
		for i, opt := range r.resolutions {
			res.Menu = append(res.Menu, MenuEntry{Index: uint32(i), Name: opt.String(), Value: int64(i)})
		}
		out = append(out, res)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		out = append(out, *r.native[id])
	}
	genericIDs := make([]uint32, 0, len(r.generic))
	for id := range r.generic {
		genericIDs = append(genericIDs, id)
	}
	sort.Slice(genericIDs, func(i, j int) bool { return genericIDs[i] < genericIDs[j] })
	for _, id := range genericIDs {
		out = append(out, *r.generic[id])
	}
	return out
}
