package connector

import (
	"context"
	"fmt"
	"slices"

	"github.com/smazurov/peqlink/internal/peq"
	"github.com/smazurov/peqlink/internal/transport"
	"github.com/smazurov/peqlink/internal/vendors"
	"github.com/smazurov/peqlink/pkg/hotplug"
)

// Serial connects USB serial DSPs.
type Serial struct {
	opts Options

	// Enumerate and Open default to go.bug.st/serial.
	Enumerate func() ([]transport.SerialInfo, error)
	Open      func(name string, baud int) (transport.SerialPort, error)
}

// NewSerial returns a serial connector.
func NewSerial(opts Options) *Serial {
	return &Serial{
		opts:      opts.withDefaults(),
		Enumerate: transport.EnumerateSerial,
		Open:      transport.OpenSerial,
	}
}

// Transport implements Connector.
func (c *Serial) Transport() peq.TransportKind { return peq.TransportSerial }

// Candidates lists USB serial ports whose vendor is in the registry.
func (c *Serial) Candidates(_ context.Context) ([]Candidate, error) {
	ports, err := c.Enumerate()
	if err != nil {
		return nil, err
	}
	vids := c.opts.Registry.VendorIDs(peq.TransportSerial)
	var out []Candidate
	for _, p := range ports {
		if slices.Contains(vids, p.VendorID) {
			out = append(out, c.candidate(p))
		}
	}
	return out, nil
}

func (c *Serial) candidate(p transport.SerialInfo) Candidate {
	res := c.opts.Registry.ResolveProductID(peq.TransportSerial, p.VendorID, p.ProductID)
	cand := Candidate{
		Device: Device{
			Transport: peq.TransportSerial,
			Path:      p.Name,
			VendorID:  p.VendorID,
			ProductID: p.ProductID,
			Product:   p.Product,
			Serial:    p.Serial,
		},
		Vendor:     res.Vendor,
		Capability: res.Capability,
		Known:      res.Known,
		// Serial products are only usable when their product id is listed.
		Supported: res.Known && supported(res),
	}
	if cand.Product == "" {
		cand.Product = res.Capability.Model
	}
	cand.Manufacturer = res.Capability.Manufacturer
	return cand
}

// Connect opens req.Path, or the first supported port when no path is given.
func (c *Serial) Connect(ctx context.Context, req Request) (*DeviceSession, error) {
	cand, err := c.choose(ctx, req.Path)
	if err != nil {
		return nil, err
	}
	if !cand.Known {
		return nil, peq.NewDeviceError(peq.ErrCodeUnsupportedDevice,
			fmt.Sprintf("unsupported serial device (0x%x)", cand.ProductID), nil)
	}
	h, err := driverFor(cand, cand.Path)
	if err != nil {
		return nil, err
	}

	port, err := c.Open(cand.Path, c.opts.SerialBaud)
	if err != nil {
		return nil, peq.Disconnected("open serial port", err)
	}
	target := &vendors.Target{
		Capability: cand.Capability.Clone(),
		Timeouts:   c.opts.Timeouts,
		Serial:     transport.NewSerialSession(port),
		Settle:     c.opts.Settle,
	}
	s := newSession(cand, h, target, target.Serial.Close)
	s.probe = c.probe(s)
	s.watch(c.opts.WatchRemoval(s.ctx, hotplug.SubsystemTTY, cand.Path))
	return s, nil
}

func (c *Serial) choose(ctx context.Context, name string) (Candidate, error) {
	cands, err := c.Candidates(ctx)
	if err != nil {
		return Candidate{}, err
	}
	for _, cand := range cands {
		if name == "" && cand.Supported || name != "" && cand.Path == name {
			return cand, nil
		}
	}
	if name != "" {
		return Candidate{}, peq.Disconnected("connect", fmt.Errorf("no supported serial device at %s", name))
	}
	return Candidate{}, peq.NewDeviceError(peq.ErrCodeUnsupportedDevice, "no supported serial device attached", nil)
}

// probe checks the port is still enumerated.
func (c *Serial) probe(s *DeviceSession) func(ctx context.Context) error {
	return func(context.Context) error {
		ports, err := c.Enumerate()
		if err != nil {
			return peq.Disconnected("liveness check", err)
		}
		for _, p := range ports {
			if p.Name == s.Device.Path {
				return nil
			}
		}
		return peq.Disconnected("liveness check", fmt.Errorf("%s is no longer attached", s.Device.Path))
	}
}
