package registry

import (
	"log/slog"
	"sync/atomic"

	"github.com/smazurov/peqlink/internal/logging"
	"github.com/smazurov/peqlink/internal/peq"
)

// Registry serves lookups against the built-in catalogue merged with an
// optional override file. Reloads swap the whole catalogue, so a lookup
// never observes a half-applied override.
type Registry struct {
	current atomic.Pointer[Catalog]
	logger  *slog.Logger
}

// New returns a registry over the built-in catalogue.
func New() *Registry {
	r := &Registry{logger: logging.GetLogger("registry")}
	r.current.Store(Builtin())
	return r
}

// NewWithOverrides returns a registry with the overrides at path applied.
// An empty path means no overrides.
func NewWithOverrides(path string) (*Registry, error) {
	r := New()
	if path == "" {
		return r, nil
	}
	ov, err := LoadOverrides(path)
	if err != nil {
		return nil, err
	}
	r.Apply(ov)
	return r, nil
}

// Apply replaces the active catalogue with the built-in one merged with ov.
func (r *Registry) Apply(ov *Catalog) {
	merged := Merge(Builtin(), ov)
	r.current.Store(merged)
	n := 0
	if ov != nil {
		n = len(ov.Vendors)
	}
	r.logger.Info("Registry catalogue updated", "vendors", len(merged.Vendors), "override_vendors", n)
}

// Catalog returns the active catalogue. Callers must not modify it.
func (r *Registry) Catalog() *Catalog {
	return r.current.Load()
}

// Resolve looks up a device by vendor id and product name.
func (r *Registry) Resolve(transport peq.TransportKind, vendorID uint16, productName string) Resolution {
	res := r.Catalog().Resolve(transport, vendorID, productName)
	r.logger.Debug("Resolved device",
		"transport", transport,
		"vendor_id", vendorID,
		"product", productName,
		"vendor", res.Vendor,
		"handler", res.Capability.Handler,
		"known", res.Known,
		"generic", res.Generic)
	return res
}

// ResolveProductID looks up a device by numeric ids.
func (r *Registry) ResolveProductID(transport peq.TransportKind, vendorID, productID uint16) Resolution {
	return r.Catalog().ResolveProductID(transport, vendorID, productID)
}

// ResolveNamed looks up a device by vendor name.
func (r *Registry) ResolveNamed(vendorName, model string) (Resolution, bool) {
	return r.Catalog().ResolveNamed(vendorName, model)
}

// VendorIDs returns the vendor ids registered for transport.
func (r *Registry) VendorIDs(transport peq.TransportKind) []uint16 {
	return r.Catalog().VendorIDs(transport)
}
