// Package systemd reports service state to systemd when peqlink runs as a
// notify-type unit. Outside systemd every call is a no-op.
package systemd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/smazurov/peqlink/internal/logging"
)

// Ready tells systemd the API server is accepting requests. It reports
// whether a notification socket was present.
func Ready() bool {
	return notify(daemon.SdNotifyReady)
}

// Stopping tells systemd shutdown has begun.
func Stopping() bool {
	return notify(daemon.SdNotifyStopping)
}

func notify(state string) bool {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logging.GetLogger("main").Warn("systemd notification failed", "state", state, "error", err)
	}
	return sent
}

// Watchdog pings the systemd watchdog at half its interval until ctx ends.
// It returns false without starting when the unit has no watchdog.
func Watchdog(ctx context.Context) bool {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return false
	}
	go func() {
		ticker := time.NewTicker(interval / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				notify(daemon.SdNotifyWatchdog)
			}
		}
	}()
	return true
}
