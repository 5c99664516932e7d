package registry

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/smazurov/peqlink/internal/peq"
)

// ParseOverrides decodes a TOML override document. Unknown keys are
// rejected so a typo does not silently leave a device unconfigured.
func ParseOverrides(data []byte) (*Catalog, error) {
	var c Catalog
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to parse registry overrides: %w", err)
	}
	for i, v := range c.Vendors {
		if v.Name == "" {
			return nil, fmt.Errorf("registry overrides: vendor %d has no name", i)
		}
		switch v.Transport {
		case "", peq.TransportHID, peq.TransportSerial, peq.TransportNetwork:
		default:
			return nil, fmt.Errorf("registry overrides: vendor %q: unknown transport %q", v.Name, v.Transport)
		}
	}
	return &c, nil
}

// LoadOverrides reads and parses path.
func LoadOverrides(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry overrides: %w", err)
	}
	return ParseOverrides(data)
}

// Merge returns base with overrides applied. A vendor override with the
// name of a known vendor extends it: ids are added, set fields replace,
// and product entries merge key by key. Any other vendor is appended.
func Merge(base, overrides *Catalog) *Catalog {
	out := base.Clone()
	if overrides == nil {
		return out
	}
	for _, ov := range overrides.Vendors {
		idx := -1
		for i, v := range out.Vendors {
			if v.Name == ov.Name {
				idx = i
				break
			}
		}
		if idx < 0 {
			if ov.Transport == "" {
				ov.Transport = peq.TransportHID
			}
			if ov.Manufacturer == "" {
				ov.Manufacturer = ov.Name
			}
			out.Vendors = append(out.Vendors, ov)
			continue
		}
		out.Vendors[idx] = mergeVendor(out.Vendors[idx], ov)
	}
	return out
}

func mergeVendor(v, ov Vendor) Vendor {
	for _, id := range ov.VendorIDs {
		found := false
		for _, have := range v.VendorIDs {
			if have == id {
				found = true
				break
			}
		}
		if !found {
			v.VendorIDs = append(v.VendorIDs, id)
		}
	}
	if ov.Manufacturer != "" {
		v.Manufacturer = ov.Manufacturer
	}
	if ov.Handler != "" {
		v.Handler = ov.Handler
	}
	if ov.Transport != "" {
		v.Transport = ov.Transport
	}
	v.DefaultModelConfig = v.DefaultModelConfig.Merge(ov.DefaultModelConfig)
	if v.Devices == nil && len(ov.Devices) > 0 {
		v.Devices = make(map[string]Device, len(ov.Devices))
	}
	for name, od := range ov.Devices {
		d := v.Devices[name]
		if od.Manufacturer != "" {
			d.Manufacturer = od.Manufacturer
		}
		if od.Handler != "" {
			d.Handler = od.Handler
		}
		if od.ProductID != 0 {
			d.ProductID = od.ProductID
		}
		d.ModelConfig = d.ModelConfig.Merge(od.ModelConfig)
		v.Devices[name] = d
	}
	return v
}

// EncodeTOML renders c as an override document.
func EncodeTOML(c *Catalog) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode catalogue: %w", err)
	}
	return buf.Bytes(), nil
}
