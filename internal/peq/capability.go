package peq

// TransportKind identifies how a device is reached.
type TransportKind string

// Supported transports.
const (
	TransportHID     TransportKind = "hid"
	TransportSerial  TransportKind = "serial"
	TransportNetwork TransportKind = "network"
)

// Capability is the resolved, immutable description of one device model.
type Capability struct {
	Manufacturer        string        `json:"manufacturer" toml:"manufacturer"`
	Model               string        `json:"model" toml:"model"`
	Handler             string        `json:"handler" toml:"handler" doc:"Vendor protocol driver name"`
	Transport           TransportKind `json:"transport" toml:"transport"`
	MinGain             float64       `json:"min_gain" toml:"min_gain"`
	MaxGain             float64       `json:"max_gain" toml:"max_gain"`
	MaxFilters          int           `json:"max_filters" toml:"max_filters"`
	FirstWritableEQSlot int           `json:"first_writable_eq_slot" toml:"first_writable_eq_slot"`
	MaxWritableEQSlots  int           `json:"max_writable_eq_slots" toml:"max_writable_eq_slots"`
	AvailableSlots      []Slot        `json:"available_slots" toml:"available_slots"`
	DisabledPresetID    int           `json:"disabled_preset_id" toml:"disabled_preset_id"`
	SupportsPregain     bool          `json:"supports_pregain" toml:"supports_pregain"`
	SupportsLSHSFilters bool          `json:"supports_lshs_filters" toml:"supports_lshs_filters"`
	Compensate2X        bool          `json:"compensate_2x" toml:"compensate_2x"`
	DisconnectOnSave    bool          `json:"disconnect_on_save" toml:"disconnect_on_save"`
	Experimental        bool          `json:"experimental" toml:"experimental"`
	ReportID            int           `json:"report_id,omitempty" toml:"report_id,omitempty" doc:"HID report id, 0 for the driver default"`
	SchemeNo            int           `json:"scheme_no,omitempty" toml:"scheme_no,omitempty"`
	DefaultResetFilter  *Filter       `json:"default_reset_filter,omitempty" toml:"default_reset_filter,omitempty"`
}

// Clone returns a copy that does not share slices or pointers with c.
func (c Capability) Clone() Capability {
	out := c
	if c.AvailableSlots != nil {
		out.AvailableSlots = append([]Slot(nil), c.AvailableSlots...)
	}
	if c.DefaultResetFilter != nil {
		f := *c.DefaultResetFilter
		out.DefaultResetFilter = &f
	}
	return out
}

// HasSlot reports whether id is one of the capability's slots.
func (c Capability) HasSlot(id int) bool {
	for _, s := range c.AvailableSlots {
		if s.ID == id {
			return true
		}
	}
	return false
}
