// Package connector finds attachable devices, opens them over the right
// transport and hands back a DeviceSession bound to the vendor driver the
// registry picked for them.
package connector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/smazurov/peqlink/internal/logging"
	"github.com/smazurov/peqlink/internal/peq"
	"github.com/smazurov/peqlink/internal/registry"
	"github.com/smazurov/peqlink/internal/transport"
	"github.com/smazurov/peqlink/internal/vendors"
)

// Request selects the device to connect to.
type Request struct {
	Transport peq.TransportKind `json:"transport" enum:"hid,serial,network" doc:"Transport the device is reached over"`
	// Path is the HID device path or serial port name. Empty picks the
	// first supported device attached.
	Path string `json:"path,omitempty" example:"/dev/hidraw3" doc:"HID path or serial port, empty for the first supported device"`
	IP   string `json:"ip,omitempty" example:"192.168.1.60" doc:"Address of a network device"`
	// DeviceType names the network vendor, for example "WiiM".
	DeviceType string `json:"device_type,omitempty" example:"WiiM" doc:"Network device vendor"`
}

// Device identifies one attached device.
type Device struct {
	Transport    peq.TransportKind `json:"transport"`
	Path         string            `json:"path"`
	VendorID     uint16            `json:"vendor_id"`
	ProductID    uint16            `json:"product_id"`
	Manufacturer string            `json:"manufacturer,omitempty"`
	Product      string            `json:"product,omitempty"`
	Serial       string            `json:"serial,omitempty"`
}

// Candidate is a device together with what the registry knows about it.
type Candidate struct {
	Device
	Vendor     string         `json:"vendor,omitempty"`
	Capability peq.Capability `json:"capability"`
	Known      bool           `json:"known" doc:"Product matched a registry entry"`
	Supported  bool           `json:"supported" doc:"A driver exists for this device"`
}

// Connector opens devices of one transport.
type Connector interface {
	Transport() peq.TransportKind
	Candidates(ctx context.Context) ([]Candidate, error)
	Connect(ctx context.Context, req Request) (*DeviceSession, error)
}

// Options are shared by every connector.
type Options struct {
	Registry *registry.Registry
	Timeouts vendors.Timeouts
	Network  transport.NetworkOptions
	// SerialBaud is the line speed for serial devices.
	SerialBaud int
	// SlotCacheTTL bounds how long live slot lists are reused.
	SlotCacheTTL time.Duration
	// Settle replaces firmware settle sleeps, for tests.
	Settle func(ctx context.Context, d time.Duration) error
	// WatchRemoval signals when the device node goes away. Nil uses the
	// platform hotplug monitor.
	WatchRemoval func(ctx context.Context, subsystem, node string) <-chan struct{}
}

// DefaultSerialBaud is the line speed serial DSPs expect.
const DefaultSerialBaud = 115200

func (o Options) withDefaults() Options {
	if o.Registry == nil {
		o.Registry = registry.New()
	}
	if o.Timeouts == (vendors.Timeouts{}) {
		o.Timeouts = vendors.DefaultTimeouts()
	}
	if o.Network == (transport.NetworkOptions{}) {
		o.Network = transport.DefaultNetworkOptions()
	}
	if o.SerialBaud == 0 {
		o.SerialBaud = DefaultSerialBaud
	}
	if o.SlotCacheTTL == 0 {
		o.SlotCacheTTL = 5 * time.Minute
	}
	if o.WatchRemoval == nil {
		o.WatchRemoval = watchRemoval
	}
	return o
}

// Set dispatches requests to the connector for their transport.
type Set struct {
	connectors map[peq.TransportKind]Connector
}

// NewSet groups connectors by transport.
func NewSet(cs ...Connector) *Set {
	s := &Set{connectors: make(map[peq.TransportKind]Connector, len(cs))}
	for _, c := range cs {
		s.connectors[c.Transport()] = c
	}
	return s
}

// Default returns HID, serial and network connectors sharing opts.
func Default(opts Options) *Set {
	return NewSet(NewHID(opts), NewSerial(opts), NewNetwork(opts))
}

// Get returns the connector for kind.
func (s *Set) Get(kind peq.TransportKind) (Connector, error) {
	c, ok := s.connectors[kind]
	if !ok {
		return nil, peq.NewDeviceError(peq.ErrCodeInvalidParams, fmt.Sprintf("unknown transport %q", kind), nil)
	}
	return c, nil
}

// Candidates lists the attachable devices of kind.
func (s *Set) Candidates(ctx context.Context, kind peq.TransportKind) ([]Candidate, error) {
	c, err := s.Get(kind)
	if err != nil {
		return nil, err
	}
	return c.Candidates(ctx)
}

// Connect opens the device req selects.
func (s *Set) Connect(ctx context.Context, req Request) (*DeviceSession, error) {
	c, err := s.Get(req.Transport)
	if err != nil {
		return nil, err
	}
	return c.Connect(ctx, req)
}

// driverFor returns the vendor driver for c, or an UNSUPPORTED_DEVICE
// error naming the device.
func driverFor(c Candidate, what string) (vendors.Handler, error) {
	if c.Capability.Handler == "" {
		return nil, peq.NewDeviceError(peq.ErrCodeUnsupportedDevice, what+" is not a supported device", nil)
	}
	h, ok := vendors.Lookup(c.Capability.Handler)
	if !ok {
		return nil, peq.NewDeviceError(peq.ErrCodeUnsupportedDevice,
			fmt.Sprintf("%s needs driver %q, which is not available", what, c.Capability.Handler), nil)
	}
	return h, nil
}

func supported(res registry.Resolution) bool {
	if res.Generic || res.Capability.Handler == "" {
		return false
	}
	_, ok := vendors.Lookup(res.Capability.Handler)
	return ok
}

func logger() *slog.Logger {
	return logging.GetLogger("connector")
}
