package uvc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const v4lLinkRoot = "/dev/v4l"

// ResolveDevicePath turns a stable device ID, as listed by the devices
// command, into a node path. Absolute paths are returned unchanged.
func ResolveDevicePath(device string) (string, error) {
	return resolveDevicePath(v4lLinkRoot, device)
}

func resolveDevicePath(root, device string) (string, error) {
	if device == "" || filepath.IsAbs(device) {
		return device, nil
	}

	var dirs []string
	switch {
	case strings.HasPrefix(device, "usb-"):
		dirs = []string{"by-id", "by-path"}
	case strings.HasPrefix(device, "platform-"), strings.HasPrefix(device, "pci-"):
		dirs = []string{"by-path"}
	default:
		return "", fmt.Errorf("%q is neither a device path nor a stable device ID", device)
	}

	for _, dir := range dirs {
		path := filepath.Join(root, dir, device)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no stable symlink found for device ID %s", device)
}

// NodePath follows udev symlinks to the /dev node behind path. It returns
// path unchanged when the link cannot be followed. Resolve it while the
// device is present: the links vanish with the device.
func NodePath(path string) string {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return resolved
}
