//go:build linux && (amd64 || arm64)

package v4l2

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"
)

// QueryControls opens devicePath and lists its controls.
func QueryControls(devicePath string) ([]Control, error) {
	fd, err := openDevice(devicePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open device: %w", err)
	}
	defer closeDevice(fd)

	return queryControls(fd)
}

// Controls lists the controls of the open stream.
func (s *Stream) Controls() ([]Control, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}
	return queryControls(s.fd)
}

// SetControl writes a control value.
func (s *Stream) SetControl(id uint32, value int32) error {
	if s.closed {
		return ErrStreamClosed
	}
	ctrl := v4l2Control{id: id, value: value}
	if err := ioctl(s.fd, vidiocSCtrl, unsafe.Pointer(&ctrl)); err != nil {
		return fmt.Errorf("VIDIOC_S_CTRL 0x%08x=%d: %w", id, value, err)
	}
	return nil
}

// GetControl reads a control value.
func (s *Stream) GetControl(id uint32) (int32, error) {
	if s.closed {
		return 0, ErrStreamClosed
	}
	return getControl(s.fd, id)
}

// SetJPEGQuality sets the encoder quality on devices that compress in
// hardware. Drivers without VIDIOC_S_JPEGCOMP return ErrUnsupported.
func (s *Stream) SetJPEGQuality(quality int) error {
	if s.closed {
		return ErrStreamClosed
	}

	var comp v4l2JPEGCompression
	if err := ioctl(s.fd, vidiocGJPEGComp, unsafe.Pointer(&comp)); err != nil {
		if isUnsupported(err) {
			return ErrUnsupported
		}
		return fmt.Errorf("VIDIOC_G_JPEGCOMP: %w", err)
	}

	comp.quality = int32(quality)
	if err := ioctl(s.fd, vidiocSJPEGComp, unsafe.Pointer(&comp)); err != nil {
		if isUnsupported(err) {
			return ErrUnsupported
		}
		return fmt.Errorf("VIDIOC_S_JPEGCOMP %d: %w", quality, err)
	}
	return nil
}

func getControl(fd int, id uint32) (int32, error) {
	ctrl := v4l2Control{id: id}
	if err := ioctl(fd, vidiocGCtrl, unsafe.Pointer(&ctrl)); err != nil {
		return 0, fmt.Errorf("VIDIOC_G_CTRL 0x%08x: %w", id, err)
	}
	return ctrl.value, nil
}

// queryControls walks the control list with V4L2_CTRL_FLAG_NEXT_CTRL,
// falling back to scanning the user and camera class ranges on drivers
// that predate it.
func queryControls(fd int) ([]Control, error) {
	var controls []Control

	id := uint32(CtrlFlagNextCtrl)
	for {
		qc := v4l2Queryctrl{id: id}
		err := ioctl(fd, vidiocQueryctrl, unsafe.Pointer(&qc))
		if err != nil {
			if errors.Is(err, syscall.EINVAL) && id == CtrlFlagNextCtrl {
				return scanControls(fd), nil
			}
			if errors.Is(err, syscall.EINVAL) {
				break
			}
			return nil, fmt.Errorf("VIDIOC_QUERYCTRL: %w", err)
		}
		id = qc.id | CtrlFlagNextCtrl

		if c, ok := describeControl(fd, &qc); ok {
			controls = append(controls, c)
		}
	}

	return controls, nil
}

func scanControls(fd int) []Control {
	var controls []Control
	for _, base := range []uint32{CIDBase, CIDCameraClassBase} {
		for id := base; id < base+64; id++ {
			qc := v4l2Queryctrl{id: id}
			if err := ioctl(fd, vidiocQueryctrl, unsafe.Pointer(&qc)); err != nil {
				continue
			}
			if c, ok := describeControl(fd, &qc); ok {
				controls = append(controls, c)
			}
		}
	}
	return controls
}

func describeControl(fd int, qc *v4l2Queryctrl) (Control, bool) {
	typ := ControlType(qc.typ)
	if qc.flags&CtrlFlagDisabled != 0 || typ == CtrlTypeClass {
		return Control{}, false
	}

	c := Control{
		ID:       qc.id,
		Type:     typ,
		Name:     cstr(qc.name[:]),
		Minimum:  qc.minimum,
		Maximum:  qc.maximum,
		Step:     qc.step,
		Default:  qc.defaultValue,
		Value:    qc.defaultValue,
		Flags:    qc.flags,
		ReadOnly: qc.flags&CtrlFlagReadOnly != 0,
	}

	switch typ {
	case CtrlTypeInteger, CtrlTypeBoolean, CtrlTypeMenu, CtrlTypeIntegerMenu, CtrlTypeBitmask:
		if qc.flags&CtrlFlagWriteOnly == 0 {
			if v, err := getControl(fd, qc.id); err == nil {
				c.Value = v
			}
		}
	}

	if typ == CtrlTypeMenu || typ == CtrlTypeIntegerMenu {
		c.Menu = queryMenu(fd, qc, typ == CtrlTypeIntegerMenu)
	}

	return c, true
}

func queryMenu(fd int, qc *v4l2Queryctrl, integer bool) []MenuItem {
	if qc.minimum < 0 || qc.maximum < qc.minimum {
		return nil
	}

	var items []MenuItem
	for i := uint32(qc.minimum); i <= uint32(qc.maximum); i++ {
		qm := v4l2Querymenu{id: qc.id, index: i}
		if err := ioctl(fd, vidiocQuerymenu, unsafe.Pointer(&qm)); err != nil {
			// Menus may have holes.
			continue
		}
		item := MenuItem{Index: i}
		if integer {
			item.Value = qm.value()
			item.Name = fmt.Sprintf("%d", item.Value)
		} else {
			item.Name = cstr(qm.name[:])
			item.Value = int64(i)
		}
		items = append(items, item)
	}
	return items
}
