// Package hotplug reports kernel device add/remove events read from the
// netlink uevent socket, without cgo or libudev.
package hotplug

import (
	"bytes"
	"strings"
)

// Actions the device layer cares about.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionChange = "change"
	ActionBind   = "bind"
	ActionUnbind = "unbind"
)

// Subsystems that carry PEQ-capable devices.
const (
	SubsystemHIDRaw = "hidraw"
	SubsystemTTY    = "tty"
	SubsystemUSB    = "usb"
)

// Event is one kernel uevent.
type Event struct {
	Action    string
	KObj      string
	Subsystem string
	DevType   string
	DevName   string
	Env       map[string]string
}

// DevNode returns the /dev path of the node the event is about, or "" for
// events without a device node.
func (e Event) DevNode() string {
	if e.DevName == "" {
		return ""
	}
	if strings.HasPrefix(e.DevName, "/dev/") {
		return e.DevName
	}
	return "/dev/" + e.DevName
}

// Removed reports whether the event means the node is gone.
func (e Event) Removed() bool {
	return e.Action == ActionRemove || e.Action == ActionUnbind
}

// ParseUEvent parses "ACTION@KOBJ\0KEY=VALUE\0...". Messages relayed by
// udevd carry a binary "libudev" header that is skipped.
func ParseUEvent(data []byte) *Event {
	if bytes.HasPrefix(data, []byte("libudev")) {
		data = skipLibudevHeader(data)
	}

	parts := bytes.Split(data, []byte{0})
	if len(parts) == 0 || len(parts[0]) == 0 {
		return nil
	}
	action, kobj, ok := strings.Cut(string(parts[0]), "@")
	if !ok || action == "" {
		return nil
	}

	ev := &Event{Action: action, KObj: kobj, Env: make(map[string]string)}
	for _, part := range parts[1:] {
		key, value, ok := strings.Cut(string(part), "=")
		if !ok || key == "" {
			continue
		}
		ev.Env[key] = value
		switch key {
		case "SUBSYSTEM":
			ev.Subsystem = value
		case "DEVTYPE":
			ev.DevType = value
		case "DEVNAME":
			ev.DevName = value
		}
	}
	return ev
}

func skipLibudevHeader(data []byte) []byte {
	for i := 0; i < len(data)-1; i++ {
		if data[i] != 0 {
			continue
		}
		rest := data[i+1:]
		head := rest
		if end := bytes.IndexByte(rest, 0); end >= 0 {
			head = rest[:end]
		}
		if at := bytes.IndexByte(head, '@'); at > 0 && at < 20 {
			return rest
		}
	}
	return data
}
