// Package logging provides the per-module slog loggers used across peqlink.
//
// Each package takes its logger once, usually in a package variable:
//
//	var logger = logging.GetLogger("hid")
//
// and main applies the configuration later:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"hid": "debug"},
//	})
//
// Loggers handed out before Initialize pick up the configured level and
// outputs in place. Module names in use: main, api, http, registry, hid,
// serial, network, vendors, connector, orchestrator.
//
// Records go to stdout (or Config.Output) when it is connected, to the
// systemd journal when running under journald, and always to an in-memory
// history read by GET /api/logs. Transports log every frame at debug, so
//
//	journalctl -t peqlink MODULE=hid -p debug
//
// or the history endpoint with module=hid gives a byte-level trace to attach
// to a report about an experimental device. While such a device is
// connected its protocol modules are raised to debug with SetModuleLevel.
package logging
