package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smazurov/peqlink/cmd"
	"github.com/smazurov/peqlink/internal/api"
	"github.com/smazurov/peqlink/internal/config"
	"github.com/smazurov/peqlink/internal/connector"
	"github.com/smazurov/peqlink/internal/events"
	"github.com/smazurov/peqlink/internal/filterlist"
	"github.com/smazurov/peqlink/internal/logging"
	"github.com/smazurov/peqlink/internal/orchestrator"
	"github.com/smazurov/peqlink/internal/registry"
	"github.com/smazurov/peqlink/internal/systemd"
	"github.com/smazurov/peqlink/internal/transport"
	"github.com/smazurov/peqlink/internal/vendors"
	"github.com/spf13/cobra"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port       string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	CORSOrigin string `help:"Allowed CORS origin" default:"*" toml:"server.cors_origin" env:"SERVER_CORS_ORIGIN"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Registry settings
	RegistryOverrides string `help:"Device registry override file" default:"" toml:"registry.overrides" env:"REGISTRY_OVERRIDES"`
	RegistryWatch     bool   `help:"Reload the override file when it changes" default:"true" toml:"registry.watch" env:"REGISTRY_WATCH"`

	// Device timeouts
	DeviceReadTimeoutMs int `help:"Single HID read timeout in milliseconds" default:"1000" toml:"device.read_timeout_ms" env:"DEVICE_READ_TIMEOUT_MS"`
	DevicePullTimeoutMs int `help:"Whole pull timeout in milliseconds" default:"10000" toml:"device.pull_timeout_ms" env:"DEVICE_PULL_TIMEOUT_MS"`

	// Network device settings
	NetworkTimeoutMs int  `help:"Network device request timeout in milliseconds" default:"5000" toml:"network.timeout_ms" env:"NETWORK_TIMEOUT_MS"`
	NetworkRetries   int  `help:"Network device request retries" default:"2" toml:"network.retries" env:"NETWORK_RETRIES"`
	NetworkInsecure  bool `help:"Accept self-signed device certificates" default:"true" toml:"network.insecure_tls" env:"NETWORK_INSECURE_TLS"`

	// Observability settings
	MetricsEnabled bool `help:"Serve Prometheus metrics on /metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Logging settings
	LoggingLevel        string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat       string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingAPI          string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP         string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingRegistry     string `help:"Registry logging level" default:"info" toml:"logging.registry" env:"LOGGING_REGISTRY"`
	LoggingHID          string `help:"HID transport logging level" default:"info" toml:"logging.hid" env:"LOGGING_HID"`
	LoggingSerial       string `help:"Serial transport logging level" default:"info" toml:"logging.serial" env:"LOGGING_SERIAL"`
	LoggingNetwork      string `help:"Network transport logging level" default:"info" toml:"logging.network" env:"LOGGING_NETWORK"`
	LoggingVendors      string `help:"Vendor protocol logging level" default:"info" toml:"logging.vendors" env:"LOGGING_VENDORS"`
	LoggingConnector    string `help:"Connector logging level" default:"info" toml:"logging.connector" env:"LOGGING_CONNECTOR"`
	LoggingOrchestrator string `help:"Session logging level" default:"info" toml:"logging.orchestrator" env:"LOGGING_ORCHESTRATOR"`
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func main() {
	var root *cobra.Command

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// CLI flags win over env and the config file
		if loadErr := config.LoadConfig(opts, root); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"api":          opts.LoggingAPI,
				"http":         opts.LoggingHTTP,
				"registry":     opts.LoggingRegistry,
				"hid":          opts.LoggingHID,
				"serial":       opts.LoggingSerial,
				"network":      opts.LoggingNetwork,
				"vendors":      opts.LoggingVendors,
				"connector":    opts.LoggingConnector,
				"orchestrator": opts.LoggingOrchestrator,
			},
		})

		logger := logging.GetLogger("main")

		// Create event bus for in-process event handling
		eventBus := events.New()

		// Buffered log lines are streamed to /api/logs/stream
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Seq:        entry.Seq,
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		reg, err := registry.NewWithOverrides(opts.RegistryOverrides)
		if err != nil {
			logger.Error("Failed to load registry overrides, using built-in catalogue", "path", opts.RegistryOverrides, "error", err)
			reg = registry.New()
		}

		timeouts := vendors.DefaultTimeouts()
		timeouts.Read = millis(opts.DeviceReadTimeoutMs)
		timeouts.Pull = millis(opts.DevicePullTimeoutMs)
		netOpts := transport.DefaultNetworkOptions()
		netOpts.Timeout = millis(opts.NetworkTimeoutMs)
		netOpts.RetryMax = opts.NetworkRetries
		netOpts.Insecure = opts.NetworkInsecure

		filters := filterlist.New(eventBus)
		orch := orchestrator.New(orchestrator.Options{
			Connectors: connector.Default(connector.Options{
				Registry: reg,
				Timeouts: timeouts,
				Network:  netOpts,
			}),
			FilterList: filters,
			Bus:        eventBus,
		})

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			CORSOrigin:   opts.CORSOrigin,
			Orchestrator: orch,
			FilterList:   filters,
			Registry:     reg,
			EventBus:     eventBus,
		}
		if opts.MetricsEnabled {
			apiOpts.PrometheusHandler = promhttp.Handler()
		}

		server := api.NewServer(apiOpts)

		var watcher *config.Watcher[*registry.Catalog]
		watchdogCtx, stopWatchdog := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			if opts.RegistryOverrides != "" && opts.RegistryWatch {
				w, watchErr := config.WatchOverrides(opts.RegistryOverrides, reg, eventBus, 0)
				if watchErr != nil {
					logger.Warn("Failed to watch registry overrides", "path", opts.RegistryOverrides, "error", watchErr)
				} else {
					watcher = w
				}
			}

			if systemd.Watchdog(watchdogCtx) {
				logger.Debug("systemd watchdog enabled")
			}
			// Ready once the listener has had a moment to bind
			time.AfterFunc(100*time.Millisecond, func() { systemd.Ready() })

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			systemd.Stopping()
			stopWatchdog()
			if watcher != nil {
				if stopErr := watcher.Stop(); stopErr != nil {
					logger.Warn("Error stopping registry watcher", "error", stopErr)
				}
			}
			// Closes the device session before the listener goes away
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
		})
	})

	root = cli.Root()
	root.Use = "peqlink"
	root.Short = "Parametric EQ for USB and network audio devices"

	root.AddCommand(
		cmd.CreateDevicesCmd(),
		cmd.CreatePullCmd(),
		cmd.CreatePushCmd(),
		cmd.CreateRegistryCmd(),
	)

	cli.Run()
}
