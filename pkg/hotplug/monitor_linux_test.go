//go:build linux

package hotplug

import "testing"

func TestMonitorFilter(t *testing.T) {
	m := &Monitor{subsystems: make(map[string]struct{})}
	if !m.wants("net") {
		t.Error("unfiltered monitor should accept every subsystem")
	}
	m.Filter(SubsystemHIDRaw, SubsystemTTY)
	for _, s := range []string{SubsystemHIDRaw, SubsystemTTY} {
		if !m.wants(s) {
			t.Errorf("wants(%q) = false", s)
		}
	}
	if m.wants(SubsystemUSB) {
		t.Error("wants(usb) = true after filtering")
	}
}
