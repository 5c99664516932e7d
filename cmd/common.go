// Package cmd holds the one-shot subcommands that talk to a device without
// starting the API server.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/smazurov/peqlink/internal/connector"
	"github.com/smazurov/peqlink/internal/events"
	"github.com/smazurov/peqlink/internal/filterlist"
	"github.com/smazurov/peqlink/internal/logging"
	"github.com/smazurov/peqlink/internal/orchestrator"
	"github.com/smazurov/peqlink/internal/peq"
	"github.com/smazurov/peqlink/internal/registry"
	"github.com/spf13/cobra"
)

// commandTimeout bounds a whole subcommand, connect included.
const commandTimeout = 30 * time.Second

// deviceFlags select and open one device.
type deviceFlags struct {
	transport  string
	path       string
	ip         string
	deviceType string
	overrides  string
	confirm    bool
	logLevel   string
}

func (f *deviceFlags) register(cmd *cobra.Command, withTarget bool) {
	cmd.Flags().StringVarP(&f.transport, "transport", "t", string(peq.TransportHID), "Transport: hid, serial or network")
	cmd.Flags().StringVar(&f.overrides, "overrides", "", "Registry override file")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "warn", "Logging level (debug, info, warn, error)")
	if !withTarget {
		return
	}
	cmd.Flags().StringVar(&f.path, "path", "", "HID path or serial port, empty for the first supported device")
	cmd.Flags().StringVar(&f.ip, "ip", "", "Address of a network device")
	cmd.Flags().StringVar(&f.deviceType, "device-type", "", "Network device vendor, for example WiiM")
	cmd.Flags().BoolVar(&f.confirm, "experimental", false, "Connect to devices whose support is experimental")
}

// env is what a subcommand runs against.
type env struct {
	orch *orchestrator.Orchestrator
	list *filterlist.Store
	reg  *registry.Registry
}

func (f *deviceFlags) setup() (*env, error) {
	logging.Initialize(logging.Config{Level: f.logLevel, Format: "text", Output: os.Stderr})

	reg, err := registry.NewWithOverrides(f.overrides)
	if err != nil {
		return nil, err
	}
	bus := events.New()
	list := filterlist.New(bus)
	orch := orchestrator.New(orchestrator.Options{
		Connectors: connector.Default(connector.Options{Registry: reg}),
		FilterList: list,
		Bus:        bus,
	})
	return &env{orch: orch, list: list, reg: reg}, nil
}

func (f *deviceFlags) connect(ctx context.Context, e *env) (*connector.DeviceSession, error) {
	return e.orch.Connect(ctx, orchestrator.ConnectRequest{
		Request: connector.Request{
			Transport:  peq.TransportKind(f.transport),
			Path:       f.path,
			IP:         f.ip,
			DeviceType: f.deviceType,
		},
		ConfirmExperimental: f.confirm,
	})
}

func printWarnings(w io.Writer, warnings []peq.Warning) {
	for _, warning := range warnings {
		fmt.Fprintf(w, "warning: %s (%s)\n", warning.Message, warning.Code)
	}
}

func fail(cmd *cobra.Command, err error) {
	fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
	os.Exit(1)
}
