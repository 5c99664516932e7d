//go:build linux

package connector

import (
	"context"

	"github.com/smazurov/peqlink/pkg/hotplug"
)

// watchRemoval fires when the kernel reports node removed. It returns nil
// when the uevent socket cannot be opened; writes still probe liveness.
func watchRemoval(ctx context.Context, subsystem, node string) <-chan struct{} {
	events, err := hotplug.Watch(ctx, subsystem)
	if err != nil {
		logger().Debug("Hotplug monitor unavailable", "subsystem", subsystem, "error", err)
		return nil
	}
	removed := make(chan struct{})
	go func() {
		for ev := range events {
			if ev.Removed() && ev.DevNode() == node {
				close(removed)
				// Drain until Run closes events on cancellation.
				for range events {
				}
				return
			}
		}
	}()
	return removed
}
