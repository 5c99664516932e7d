package config

import (
	"time"

	"github.com/smazurov/peqlink/internal/events"
	"github.com/smazurov/peqlink/internal/logging"
	"github.com/smazurov/peqlink/internal/registry"
)

// WatchOverrides reloads the registry override file whenever it changes.
// A file that fails to parse leaves the active catalogue in place. Both
// outcomes are published on bus as a RegistryReloadedEvent.
func WatchOverrides(path string, reg *registry.Registry, bus *events.Bus, debounce time.Duration) (*Watcher[*registry.Catalog], error) {
	logger := logging.GetLogger("registry")
	opts := []WatcherOption[*registry.Catalog]{
		WithErrorHandler[*registry.Catalog](func(err error) {
			logger.Error("Registry overrides rejected, keeping previous catalogue", "path", path, "error", err)
			bus.Publish(events.RegistryReloadedEvent{
				Vendors:   len(reg.Catalog().Vendors),
				Error:     err.Error(),
				Timestamp: events.Now(),
			})
			bus.Notify(events.LevelError, "", "Device registry overrides could not be loaded: "+err.Error(), 10*time.Second)
		}),
	}
	if debounce > 0 {
		opts = append(opts, WithDebounce[*registry.Catalog](debounce))
	}

	w := NewConfigWatcher(path, registry.LoadOverrides, logger, opts...)
	w.OnReload(func(ov *registry.Catalog) {
		reg.Apply(ov)
		bus.Publish(events.RegistryReloadedEvent{
			Vendors:   len(reg.Catalog().Vendors),
			Timestamp: events.Now(),
		})
		bus.Notify(events.LevelInfo, "", "Device registry reloaded.", 5*time.Second)
	})
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}
