package input

import (
	"context"
	"fmt"
	"strings"
)

// RawFrame is one frame as delivered by a CaptureDevice. Data is only
// valid until the next Grab.
type RawFrame struct {
	Data       []byte
	Width      int
	Height     int
	Stride     int // bytes per row of raw frames, 0 when tightly packed
	Compressed bool
}

// Format is the format negotiated with the device.
type Format struct {
	Width        int    `json:"width" example:"640" doc:"Frame width in pixels"`
	Height       int    `json:"height" example:"480" doc:"Frame height in pixels"`
	PixelFormat  string `json:"pixel_format" example:"MJPG" doc:"Negotiated FourCC"`
	Compressed   bool   `json:"compressed" doc:"Whether frames arrive already compressed"`
	BytesPerLine int    `json:"bytes_per_line,omitempty" example:"1280" doc:"Row stride of raw frames"`
	MaxFrameSize int    `json:"max_frame_size" example:"614400" doc:"Largest frame the driver may deliver"`
}

// ResolutionOption is one entry of the active format's resolution list.
type ResolutionOption struct {
	Width  int `json:"width" example:"640"`
	Height int `json:"height" example:"480"`
}

func (r ResolutionOption) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// CaptureDevice is a capture node. Implementations must be safe for
// concurrent use and must never interleave SetResolution with a frame
// read in progress.
type CaptureDevice interface {
	// Format returns the currently negotiated format.
	Format() Format
	// Resolutions lists the sizes offered for the active pixel format.
	Resolutions() []ResolutionOption
	// Grab blocks until a frame is available or ctx is done.
	Grab(ctx context.Context) (RawFrame, error)
	SetControl(id uint32, value int32) error
	SetResolution(width, height int) error
	// SetJPEGQuality reports supported=false, err=nil when the device has
	// no compression quality setting.
	SetJPEGQuality(quality int) (supported bool, err error)
	// Release stops streaming but keeps the device open. The next Grab
	// restarts it.
	Release() error
	Close() error
}

// FrameEncoder compresses raw frames.
type FrameEncoder interface {
	Compress(raw []byte, width, height, quality int) ([]byte, error)
}

// StridedEncoder is implemented by encoders that read padded rows in
// place. Other encoders get a packed copy.
type StridedEncoder interface {
	CompressStrided(raw []byte, width, height, stride, quality int) ([]byte, error)
}

// ControlRegistry enumerates device controls.
type ControlRegistry interface {
	Enumerate() ([]ControlDescriptor, error)
}

// ControlGroup selects how a command is routed.
type ControlGroup string

// Control groups.
const (
	GroupGeneric    ControlGroup = "generic"
	GroupDevice     ControlGroup = "device"
	GroupResolution ControlGroup = "resolution"
	GroupQuality    ControlGroup = "quality"
)

// ParseControlGroup accepts the group names and their v4l2/jpeg_quality aliases.
func ParseControlGroup(s string) (ControlGroup, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "generic":
		return GroupGeneric, nil
	case "device", "v4l2":
		return GroupDevice, nil
	case "resolution":
		return GroupResolution, nil
	case "quality", "jpeg_quality":
		return GroupQuality, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGroup, s)
	}
}

// Synthetic control IDs for the resolution and quality groups.
const (
	ResolutionControlID uint32 = 0x00fe0001
	QualityControlID    uint32 = 0x009d0903
)

// MenuEntry is one option of a menu control.
type MenuEntry struct {
	Index uint32 `json:"index"`
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// ControlDescriptor describes a control as exposed to clients.
type ControlDescriptor struct {
	ID       uint32       `json:"id" example:"9963776" doc:"Control identifier"`
	Name     string       `json:"name" example:"Brightness"`
	Group    ControlGroup `json:"group" example:"device" enum:"generic,device,resolution,quality"`
	Type     string       `json:"type" example:"integer"`
	Value    int32        `json:"value"`
	Min      int32        `json:"min"`
	Max      int32        `json:"max"`
	Step     int32        `json:"step"`
	Default  int32        `json:"default"`
	ReadOnly bool         `json:"read_only,omitempty"`
	Menu     []MenuEntry  `json:"menu,omitempty"`
}
