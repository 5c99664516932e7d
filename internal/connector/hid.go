package connector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/smazurov/peqlink/internal/logging"
	"github.com/smazurov/peqlink/internal/peq"
	"github.com/smazurov/peqlink/internal/transport"
	"github.com/smazurov/peqlink/internal/vendors"
	"github.com/smazurov/peqlink/pkg/hotplug"
)

// vendorUsagePage is the first vendor-defined HID usage page. PEQ commands
// travel on the vendor interface of composite devices.
const vendorUsagePage = 0xFF00

// HID connects USB HID devices.
type HID struct {
	opts   Options
	logger *slog.Logger

	// Enumerate and Open default to hidapi.
	Enumerate func(vendorID, productID uint16) ([]transport.HIDInfo, error)
	Open      func(path string, numbered bool) (transport.HIDDevice, error)
}

// NewHID returns a HID connector.
func NewHID(opts Options) *HID {
	return &HID{
		opts:      opts.withDefaults(),
		logger:    logging.GetLogger("connector"),
		Enumerate: transport.EnumerateHID,
		Open:      transport.OpenHID,
	}
}

// Transport implements Connector.
func (c *HID) Transport() peq.TransportKind { return peq.TransportHID }

// Candidates lists attached HID devices whose vendor is in the registry,
// one entry per device.
func (c *HID) Candidates(_ context.Context) ([]Candidate, error) {
	infos, err := c.Enumerate(0, 0)
	if err != nil {
		return nil, err
	}
	known := make(map[uint16]bool)
	for _, id := range c.opts.Registry.VendorIDs(peq.TransportHID) {
		known[id] = true
	}

	var out []Candidate
	for _, info := range preferVendorInterface(infos) {
		if !known[info.VendorID] {
			continue
		}
		out = append(out, c.candidate(info))
	}
	c.logger.Debug("Enumerated HID candidates", "attached", len(infos), "candidates", len(out))
	return out, nil
}

func (c *HID) candidate(info transport.HIDInfo) Candidate {
	res := c.opts.Registry.Resolve(peq.TransportHID, info.VendorID, info.Product)
	return Candidate{
		Device: Device{
			Transport:    peq.TransportHID,
			Path:         info.Path,
			VendorID:     info.VendorID,
			ProductID:    info.ProductID,
			Manufacturer: info.Manufacturer,
			Product:      info.Product,
			Serial:       info.Serial,
		},
		Vendor:     res.Vendor,
		Capability: res.Capability,
		Known:      res.Known,
		Supported:  supported(res),
	}
}

// Connect opens req.Path, or the first supported device when no path is
// given.
func (c *HID) Connect(ctx context.Context, req Request) (*DeviceSession, error) {
	cand, err := c.choose(ctx, req.Path)
	if err != nil {
		return nil, err
	}
	h, err := driverFor(cand, fmt.Sprintf("%s (%04x)", cand.Product, cand.VendorID))
	if err != nil {
		return nil, err
	}

	reportID := vendors.ReportID(cand.Capability)
	dev, err := c.Open(cand.Path, reportID != 0)
	if err != nil {
		return nil, peq.Disconnected("open HID device", err)
	}

	target := &vendors.Target{
		Capability: cand.Capability.Clone(),
		Timeouts:   c.opts.Timeouts,
		HID:        transport.NewHIDSession(dev, reportID),
		Settle:     c.opts.Settle,
	}
	s := newSession(cand, h, target, func() error { return target.HID.Close() })
	s.probe = c.probe(s, reportID)
	s.watch(c.opts.WatchRemoval(s.ctx, hotplug.SubsystemHIDRaw, cand.Path))
	return s, nil
}

func (c *HID) choose(ctx context.Context, path string) (Candidate, error) {
	if path != "" {
		infos, err := c.Enumerate(0, 0)
		if err != nil {
			return Candidate{}, err
		}
		for _, info := range infos {
			if info.Path == path {
				return c.candidate(info), nil
			}
		}
		return Candidate{}, peq.Disconnected("connect", fmt.Errorf("no HID device at %s", path))
	}

	cands, err := c.Candidates(ctx)
	if err != nil {
		return Candidate{}, err
	}
	for _, cand := range cands {
		if cand.Supported {
			return cand, nil
		}
	}
	return Candidate{}, peq.NewDeviceError(peq.ErrCodeUnsupportedDevice, "no supported HID device attached", nil)
}

// probe re-resolves the device before a write. When the device is still
// attached but the OS closed the handle, or it came back under another
// path, the handle is reopened and swapped into the target.
func (c *HID) probe(s *DeviceSession, reportID byte) func(ctx context.Context) error {
	return func(context.Context) error {
		infos, err := c.Enumerate(s.Device.VendorID, s.Device.ProductID)
		if err != nil {
			return peq.Disconnected("liveness check", err)
		}
		var match *transport.HIDInfo
		for i := range infos {
			if infos[i].Path == s.Device.Path {
				match = &infos[i]
				break
			}
		}
		if match == nil {
			if same := preferVendorInterface(infos); len(same) > 0 {
				match = &same[0]
			}
		}
		if match == nil {
			return peq.Disconnected("liveness check", fmt.Errorf("%s is no longer attached", s.Device.Path))
		}
		if match.Path == s.Device.Path && s.target.HID.Err() == nil {
			return nil
		}

		dev, err := c.Open(match.Path, reportID != 0)
		if err != nil {
			return peq.Disconnected("reopen HID device", err)
		}
		old := s.target.HID
		s.target.HID = transport.NewHIDSession(dev, reportID)
		_ = old.Close()
		s.logger.Info("Reopened HID device", "old_path", s.Device.Path, "path", match.Path)
		s.Device.Path = match.Path
		return nil
	}
}

// preferVendorInterface keeps one interface per physical device, the
// vendor-defined one when the device exposes several.
func preferVendorInterface(infos []transport.HIDInfo) []transport.HIDInfo {
	type key struct {
		vid, pid uint16
		serial   string
		product  string
	}
	index := make(map[key]int)
	var out []transport.HIDInfo
	for _, info := range infos {
		k := key{info.VendorID, info.ProductID, info.Serial, info.Product}
		i, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, info)
			continue
		}
		if out[i].UsagePage < vendorUsagePage && info.UsagePage >= vendorUsagePage {
			out[i] = info
		}
	}
	return out
}
