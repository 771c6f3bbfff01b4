package uvc

// DeviceEvent reports a V4L2 node being added, removed or changed.
type DeviceEvent struct {
	Action string // "add", "remove" or "change"
	Path   string // /dev node
}
