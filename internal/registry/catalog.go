// Package registry maps attached devices to their capability records.
//
// The catalogue is data: a list of vendors, each with the vendor ids it
// answers to, a default model config and per-product overrides keyed by the
// product name the device reports. Resolving a device merges the product
// override over the vendor default, field by field.
package registry

import (
	"slices"
	"strings"

	"github.com/smazurov/peqlink/internal/peq"
)

// ModelConfig is a partial capability record. Nil fields inherit.
type ModelConfig struct {
	MinGain             *float64    `toml:"min_gain,omitempty" json:"min_gain,omitempty"`
	MaxGain             *float64    `toml:"max_gain,omitempty" json:"max_gain,omitempty"`
	MaxFilters          *int        `toml:"max_filters,omitempty" json:"max_filters,omitempty"`
	FirstWritableEQSlot *int        `toml:"first_writable_eq_slot,omitempty" json:"first_writable_eq_slot,omitempty"`
	MaxWritableEQSlots  *int        `toml:"max_writable_eq_slots,omitempty" json:"max_writable_eq_slots,omitempty"`
	DisabledPresetID    *int        `toml:"disabled_preset_id,omitempty" json:"disabled_preset_id,omitempty"`
	SupportsPregain     *bool       `toml:"supports_pregain,omitempty" json:"supports_pregain,omitempty"`
	SupportsLSHSFilters *bool       `toml:"supports_lshs_filters,omitempty" json:"supports_lshs_filters,omitempty"`
	Compensate2X        *bool       `toml:"compensate_2x,omitempty" json:"compensate_2x,omitempty"`
	DisconnectOnSave    *bool       `toml:"disconnect_on_save,omitempty" json:"disconnect_on_save,omitempty"`
	Experimental        *bool       `toml:"experimental,omitempty" json:"experimental,omitempty"`
	ReportID            *int        `toml:"report_id,omitempty" json:"report_id,omitempty"`
	SchemeNo            *int        `toml:"scheme_no,omitempty" json:"scheme_no,omitempty"`
	AvailableSlots      []peq.Slot  `toml:"available_slots,omitempty" json:"available_slots,omitempty"`
	DefaultResetFilter  *peq.Filter `toml:"default_reset_filter,omitempty" json:"default_reset_filter,omitempty"`
}

// Merge returns m with every field set in o replacing its own.
func (m ModelConfig) Merge(o ModelConfig) ModelConfig {
	out := m
	if o.MinGain != nil {
		out.MinGain = o.MinGain
	}
	if o.MaxGain != nil {
		out.MaxGain = o.MaxGain
	}
	if o.MaxFilters != nil {
		out.MaxFilters = o.MaxFilters
	}
	if o.FirstWritableEQSlot != nil {
		out.FirstWritableEQSlot = o.FirstWritableEQSlot
	}
	if o.MaxWritableEQSlots != nil {
		out.MaxWritableEQSlots = o.MaxWritableEQSlots
	}
	if o.DisabledPresetID != nil {
		out.DisabledPresetID = o.DisabledPresetID
	}
	if o.SupportsPregain != nil {
		out.SupportsPregain = o.SupportsPregain
	}
	if o.SupportsLSHSFilters != nil {
		out.SupportsLSHSFilters = o.SupportsLSHSFilters
	}
	if o.Compensate2X != nil {
		out.Compensate2X = o.Compensate2X
	}
	if o.DisconnectOnSave != nil {
		out.DisconnectOnSave = o.DisconnectOnSave
	}
	if o.Experimental != nil {
		out.Experimental = o.Experimental
	}
	if o.ReportID != nil {
		out.ReportID = o.ReportID
	}
	if o.SchemeNo != nil {
		out.SchemeNo = o.SchemeNo
	}
	if o.AvailableSlots != nil {
		out.AvailableSlots = o.AvailableSlots
	}
	if o.DefaultResetFilter != nil {
		out.DefaultResetFilter = o.DefaultResetFilter
	}
	return out
}

// apply writes the set fields of m onto c.
func (m ModelConfig) apply(c *peq.Capability) {
	if m.MinGain != nil {
		c.MinGain = *m.MinGain
	}
	if m.MaxGain != nil {
		c.MaxGain = *m.MaxGain
	}
	if m.MaxFilters != nil {
		c.MaxFilters = *m.MaxFilters
	}
	if m.FirstWritableEQSlot != nil {
		c.FirstWritableEQSlot = *m.FirstWritableEQSlot
	}
	if m.MaxWritableEQSlots != nil {
		c.MaxWritableEQSlots = *m.MaxWritableEQSlots
	}
	if m.DisabledPresetID != nil {
		c.DisabledPresetID = *m.DisabledPresetID
	}
	if m.SupportsPregain != nil {
		c.SupportsPregain = *m.SupportsPregain
	}
	if m.SupportsLSHSFilters != nil {
		c.SupportsLSHSFilters = *m.SupportsLSHSFilters
	}
	if m.Compensate2X != nil {
		c.Compensate2X = *m.Compensate2X
	}
	if m.DisconnectOnSave != nil {
		c.DisconnectOnSave = *m.DisconnectOnSave
	}
	if m.Experimental != nil {
		c.Experimental = *m.Experimental
	}
	if m.ReportID != nil {
		c.ReportID = *m.ReportID
	}
	if m.SchemeNo != nil {
		c.SchemeNo = *m.SchemeNo
	}
	if m.AvailableSlots != nil {
		c.AvailableSlots = append([]peq.Slot(nil), m.AvailableSlots...)
	}
	if m.DefaultResetFilter != nil {
		f := *m.DefaultResetFilter
		c.DefaultResetFilter = &f
	}
}

// Device is a per-product entry.
type Device struct {
	Manufacturer string      `toml:"manufacturer,omitempty" json:"manufacturer,omitempty"`
	Handler      string      `toml:"handler,omitempty" json:"handler,omitempty"`
	ProductID    uint16      `toml:"product_id,omitempty" json:"product_id,omitempty" doc:"USB product id, used where the OS reports no product name"`
	ModelConfig  ModelConfig `toml:"model_config" json:"model_config"`
}

// Vendor groups the devices sharing a protocol family.
type Vendor struct {
	Name               string            `toml:"name" json:"name"`
	VendorIDs          []uint16          `toml:"vendor_ids,omitempty" json:"vendor_ids,omitempty"`
	Manufacturer       string            `toml:"manufacturer" json:"manufacturer"`
	Handler            string            `toml:"handler" json:"handler"`
	Transport          peq.TransportKind `toml:"transport" json:"transport"`
	DefaultModelConfig ModelConfig       `toml:"default_model_config" json:"default_model_config"`
	Devices            map[string]Device `toml:"devices,omitempty" json:"devices,omitempty"`
}

// Catalog is the full set of vendors.
type Catalog struct {
	Vendors []Vendor `toml:"vendors" json:"vendors"`
}

// Resolution is the outcome of a lookup.
type Resolution struct {
	Vendor     string         `json:"vendor"`
	Capability peq.Capability `json:"capability"`
	// Known is false when the product name matched no device entry and the
	// vendor default was used.
	Known bool `json:"known"`
	// Generic is true when no vendor matched and the conservative fallback
	// record was returned.
	Generic bool `json:"generic"`
}

// baseCapability is what every record starts from before the vendor
// default and product override are applied. Pregain and shelf support are
// assumed unless a record says otherwise.
func baseCapability(v Vendor, model string) peq.Capability {
	return peq.Capability{
		Manufacturer:        v.Manufacturer,
		Model:               model,
		Handler:             v.Handler,
		Transport:           v.Transport,
		DisabledPresetID:    peq.DisabledSlotID,
		SupportsPregain:     true,
		SupportsLSHSFilters: true,
	}
}

// GenericCapability is the fallback for unknown vendors: few filters, no
// shelves, no driver and flagged experimental.
func GenericCapability(transport peq.TransportKind, model string) peq.Capability {
	reset := peq.NeutralFilter()
	return peq.Capability{
		Model:               model,
		Transport:           transport,
		MinGain:             -12,
		MaxGain:             12,
		MaxFilters:          5,
		FirstWritableEQSlot: -1,
		DisabledPresetID:    peq.DisabledSlotID,
		SupportsPregain:     false,
		SupportsLSHSFilters: false,
		Experimental:        true,
		DefaultResetFilter:  &reset,
	}
}

// vendorFor returns the first vendor of transport that answers to vendorID.
func (c *Catalog) vendorFor(transport peq.TransportKind, vendorID uint16) (Vendor, bool) {
	for _, v := range c.Vendors {
		if v.Transport == transport && slices.Contains(v.VendorIDs, vendorID) {
			return v, true
		}
	}
	return Vendor{}, false
}

// VendorByName returns the vendor entry called name, case-insensitively.
func (c *Catalog) VendorByName(name string) (Vendor, bool) {
	for _, v := range c.Vendors {
		if strings.EqualFold(v.Name, name) {
			return v, true
		}
	}
	return Vendor{}, false
}

// Resolve looks up a device: the exact product name within the vendor's
// table, else the vendor default, else the generic fallback. A device
// entry's handler and manufacturer take precedence over the vendor's.
func (c *Catalog) Resolve(transport peq.TransportKind, vendorID uint16, productName string) Resolution {
	v, ok := c.vendorFor(transport, vendorID)
	if !ok {
		return Resolution{Capability: GenericCapability(transport, productName), Generic: true}
	}
	d, known := v.Devices[productName]
	return Resolution{Vendor: v.Name, Capability: build(v, productName, d), Known: known}
}

// ResolveProductID looks up a device that reports only numeric ids, as USB
// serial ports do.
func (c *Catalog) ResolveProductID(transport peq.TransportKind, vendorID, productID uint16) Resolution {
	v, ok := c.vendorFor(transport, vendorID)
	if !ok {
		return Resolution{Capability: GenericCapability(transport, ""), Generic: true}
	}
	for _, name := range sortedNames(v.Devices) {
		if d := v.Devices[name]; d.ProductID == productID {
			return Resolution{Vendor: v.Name, Capability: build(v, name, d), Known: true}
		}
	}
	return Resolution{Vendor: v.Name, Capability: build(v, "", Device{})}
}

// ResolveNamed looks up a device selected by vendor name, as network
// devices are.
func (c *Catalog) ResolveNamed(vendorName, model string) (Resolution, bool) {
	v, ok := c.VendorByName(vendorName)
	if !ok {
		return Resolution{}, false
	}
	if model == "" {
		model = v.Name
	}
	d, known := v.Devices[model]
	return Resolution{Vendor: v.Name, Capability: build(v, model, d), Known: known}, true
}

func build(v Vendor, model string, d Device) peq.Capability {
	c := baseCapability(v, model)
	if d.Manufacturer != "" {
		c.Manufacturer = d.Manufacturer
	}
	if d.Handler != "" {
		c.Handler = d.Handler
	}
	v.DefaultModelConfig.Merge(d.ModelConfig).apply(&c)
	return c
}

// VendorIDs returns every vendor id registered for transport.
func (c *Catalog) VendorIDs(transport peq.TransportKind) []uint16 {
	var ids []uint16
	for _, v := range c.Vendors {
		if v.Transport != transport {
			continue
		}
		for _, id := range v.VendorIDs {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Entries flattens the catalogue into one resolved record per product,
// followed by one record per vendor default.
func (c *Catalog) Entries() []Resolution {
	var out []Resolution
	for _, v := range c.Vendors {
		for _, name := range sortedNames(v.Devices) {
			out = append(out, Resolution{Vendor: v.Name, Capability: build(v, name, v.Devices[name]), Known: true})
		}
		out = append(out, Resolution{Vendor: v.Name, Capability: build(v, "", Device{})})
	}
	return out
}

func sortedNames(devices map[string]Device) []string {
	names := make([]string, 0, len(devices))
	for name := range devices {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Clone returns a deep copy of c.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{Vendors: make([]Vendor, len(c.Vendors))}
	for i, v := range c.Vendors {
		v.VendorIDs = slices.Clone(v.VendorIDs)
		devices := make(map[string]Device, len(v.Devices))
		for name, d := range v.Devices {
			devices[name] = d
		}
		v.Devices = devices
		out.Vendors[i] = v
	}
	return out
}
