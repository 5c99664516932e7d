package connector

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/patrickmn/go-cache"

	"github.com/smazurov/peqlink/internal/peq"
	"github.com/smazurov/peqlink/internal/registry"
	"github.com/smazurov/peqlink/internal/transport"
	"github.com/smazurov/peqlink/internal/vendors"
)

// Network connects LAN devices by address. There is no discovery: the
// candidates are the network vendors the registry knows.
type Network struct {
	opts  Options
	slots *cache.Cache
}

// NewNetwork returns a network connector.
func NewNetwork(opts Options) *Network {
	opts = opts.withDefaults()
	return &Network{
		opts:  opts,
		slots: cache.New(opts.SlotCacheTTL, 2*opts.SlotCacheTTL),
	}
}

// Transport implements Connector.
func (c *Network) Transport() peq.TransportKind { return peq.TransportNetwork }

// Candidates lists the selectable network device types.
func (c *Network) Candidates(_ context.Context) ([]Candidate, error) {
	var out []Candidate
	for _, v := range c.opts.Registry.Catalog().Vendors {
		if v.Transport != peq.TransportNetwork {
			continue
		}
		res, _ := c.opts.Registry.ResolveNamed(v.Name, "")
		out = append(out, networkCandidate(res, ""))
	}
	return out, nil
}

func networkCandidate(res registry.Resolution, host string) Candidate {
	return Candidate{
		Device: Device{
			Transport:    peq.TransportNetwork,
			Path:         host,
			Manufacturer: res.Capability.Manufacturer,
			Product:      res.Capability.Model,
		},
		Vendor:     res.Vendor,
		Capability: res.Capability,
		Known:      res.Known,
		Supported:  supported(res),
	}
}

// Connect prepares a session for the device at req.IP. When DeviceType is
// empty and the registry holds a single network vendor, that one is used.
func (c *Network) Connect(ctx context.Context, req Request) (*DeviceSession, error) {
	host := strings.TrimSpace(req.IP)
	if host == "" {
		return nil, peq.NewDeviceError(peq.ErrCodeInvalidParams, "no IP address provided", nil)
	}
	if strings.ContainsAny(host, "/?#@ ") {
		return nil, peq.NewDeviceError(peq.ErrCodeInvalidParams, fmt.Sprintf("invalid device address %q", host), nil)
	}
	if ip := net.ParseIP(host); ip != nil && ip.To4() == nil {
		host = "[" + host + "]"
	}

	deviceType := req.DeviceType
	if deviceType == "" {
		cands, _ := c.Candidates(ctx)
		if len(cands) != 1 {
			return nil, peq.NewDeviceError(peq.ErrCodeInvalidParams, "device type is required", nil)
		}
		deviceType = cands[0].Vendor
	}
	if res, ok := c.opts.Registry.ResolveNamed(deviceType, ""); !ok || res.Capability.Transport != peq.TransportNetwork {
		return nil, peq.NewDeviceError(peq.ErrCodeUnsupportedDevice, fmt.Sprintf("unsupported device type %q", deviceType), nil)
	}
	return c.Session(deviceType, transport.NewNetworkSession(host, c.opts.Network))
}

// Session builds a session around an existing network session, for callers
// that need to configure the HTTP client themselves.
func (c *Network) Session(deviceType string, n *transport.NetworkSession) (*DeviceSession, error) {
	res, ok := c.opts.Registry.ResolveNamed(deviceType, "")
	if !ok {
		return nil, peq.NewDeviceError(peq.ErrCodeUnsupportedDevice, fmt.Sprintf("unsupported device type %q", deviceType), nil)
	}
	cand := networkCandidate(res, n.Host())
	h, err := driverFor(cand, deviceType)
	if err != nil {
		return nil, err
	}
	target := &vendors.Target{
		Capability: cand.Capability.Clone(),
		Timeouts:   c.opts.Timeouts,
		Network:    n,
		Settle:     c.opts.Settle,
	}
	s := newSession(cand, h, target, n.Close)
	s.slots = c.slots
	s.slotKey = deviceType + "@" + n.Host()
	return s, nil
}
