package codec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smazurov/peqlink/internal/peq"
)

// JDSProduct is the product string every JDS Labs request carries.
const JDSProduct = "JDS Labs Element IV"

// JDS Labs band names in hardware order.
var (
	JDSTenBandOrder = []string{
		"Lowshelf",
		"Peaking 1", "Peaking 2", "Peaking 3", "Peaking 4",
		"Peaking 5", "Peaking 6", "Peaking 7", "Peaking 8",
		"Highshelf",
	}
	JDSTwelveBandOrder = []string{
		"Lowshelf 1", "Lowshelf 2",
		"Peaking 1", "Peaking 2", "Peaking 3", "Peaking 4",
		"Peaking 5", "Peaking 6", "Peaking 7", "Peaking 8",
		"Highshelf 1", "Highshelf 2",
	}
)

// JDS Labs filter type names used by 12-band firmware.
const (
	jdsLowShelf  = "LOWSHELF"
	jdsPeaking   = "PEAKING"
	jdsHighShelf = "HIGHSHELF"
)

// JDSRequest is one NUL-terminated JSON request.
type JDSRequest struct {
	Product       string            `json:"Product"`
	FormatOutput  bool              `json:"FormatOutput,omitempty"`
	Action        string            `json:"Action"`
	Configuration *JDSConfiguration `json:"Configuration,omitempty"`
}

// JDSConfiguration is the Configuration object of requests and responses.
type JDSConfiguration struct {
	General map[string]JDSValue `json:"General,omitempty"`
	DSP     *JDSDSP             `json:"DSP,omitempty"`
}

// JDSDSP holds per-output DSP settings. Entries are raw because the Preamp
// entry has a different shape from the bands.
type JDSDSP struct {
	Headphone map[string]json.RawMessage `json:"Headphone,omitempty"`
	RCA       map[string]json.RawMessage `json:"RCA,omitempty"`
}

// JDSValue is a described setting.
type JDSValue struct {
	Elements []string `json:"Elements,omitempty"`
	Current  any      `json:"Current"`
}

type jdsNumber struct {
	Current float64 `json:"Current"`
}

type jdsBandDescribe struct {
	Frequency *jdsNumber `json:"Frequency"`
	Gain      *jdsNumber `json:"Gain"`
	Q         *jdsNumber `json:"Q"`
	Type      *struct {
		Current string `json:"Current"`
	} `json:"Type"`
}

type jdsPreampDescribe struct {
	Gain *jdsNumber `json:"Gain"`
}

type jdsBandUpdate struct {
	Gain      float64   `json:"Gain"`
	Frequency float64   `json:"Frequency"`
	Q         float64   `json:"Q"`
	Type      *JDSValue `json:"Type,omitempty"`
}

type jdsPreampUpdate struct {
	Gain float64 `json:"Gain"`
	Mode string  `json:"Mode"`
}

// JDSResponse is a decoded device answer.
type JDSResponse struct {
	Status        *bool             `json:"Status,omitempty"`
	Configuration *JDSConfiguration `json:"Configuration,omitempty"`
}

// JDSLabs encodes the JDS Labs serial JSON protocol.
type JDSLabs struct{}

// DescribeRequest asks the device for its full configuration.
func (JDSLabs) DescribeRequest() JDSRequest {
	return JDSRequest{Product: JDSProduct, Action: "Describe"}
}

// EncodeFilterType maps a filter type to a 12-band type name.
func (JDSLabs) EncodeFilterType(t peq.FilterType) string {
	switch t {
	case peq.LowShelf:
		return jdsLowShelf
	case peq.HighShelf:
		return jdsHighShelf
	default:
		return jdsPeaking
	}
}

// DecodeFilterType maps a 12-band type name back, defaulting to peaking.
func (JDSLabs) DecodeFilterType(name string) peq.FilterType {
	switch name {
	case jdsLowShelf:
		return peq.LowShelf
	case jdsHighShelf:
		return peq.HighShelf
	default:
		return peq.Peaking
	}
}

// bandKind returns the fixed type of a band from its name.
func bandKind(name string) peq.FilterType {
	switch {
	case strings.HasPrefix(name, "Lowshelf"):
		return peq.LowShelf
	case strings.HasPrefix(name, "Highshelf"):
		return peq.HighShelf
	default:
		return peq.Peaking
	}
}

// BandOrder returns the band names for 10 or 12 band hardware.
func (JDSLabs) BandOrder(twelveBand bool) []string {
	if twelveBand {
		return JDSTwelveBandOrder
	}
	return JDSTenBandOrder
}

// UpdateRequest writes globalGain and filters to the headphone output.
// Only as many bands as there are filters are written.
func (c JDSLabs) UpdateRequest(globalGain float64, filters []peq.Filter, twelveBand bool) (JDSRequest, error) {
	headphone := make(map[string]json.RawMessage)

	preamp, err := json.Marshal(jdsPreampUpdate{Gain: globalGain, Mode: "AUTO"})
	if err != nil {
		return JDSRequest{}, fmt.Errorf("encode preamp: %w", err)
	}
	headphone["Preamp"] = preamp

	for i, name := range c.BandOrder(twelveBand) {
		if i >= len(filters) {
			break
		}
		f := filters[i]
		band := jdsBandUpdate{Gain: f.EffectiveGain(), Frequency: f.Freq, Q: f.Q}
		if twelveBand {
			t := f.Type
			if t == "" {
				t = bandKind(name)
			}
			band.Type = &JDSValue{
				Elements: []string{jdsLowShelf, jdsPeaking, jdsHighShelf},
				Current:  c.EncodeFilterType(t),
			}
		}
		raw, err := json.Marshal(band)
		if err != nil {
			return JDSRequest{}, fmt.Errorf("encode band %q: %w", name, err)
		}
		headphone[name] = raw
	}

	return JDSRequest{
		Product:      JDSProduct,
		FormatOutput: true,
		Action:       "Update",
		Configuration: &JDSConfiguration{
			DSP: &JDSDSP{Headphone: headphone},
		},
	}, nil
}

// HasTwelveBands reports whether a Describe response comes from 12-band
// firmware: numbered shelf bands present and unnumbered ones absent.
func (JDSLabs) HasTwelveBands(resp *JDSResponse) bool {
	if resp == nil || resp.Configuration == nil || resp.Configuration.DSP == nil {
		return false
	}
	bands := resp.Configuration.DSP.RCA
	if bands == nil {
		bands = resp.Configuration.DSP.Headphone
	}
	has := func(name string) bool {
		_, ok := bands[name]
		return ok
	}
	twelve := has("Lowshelf 1") || has("Lowshelf 2") || has("Highshelf 1") || has("Highshelf 2")
	ten := has("Lowshelf") || has("Highshelf")
	return twelve && !ten
}

// DecodeFilters extracts the headphone bands and preamp from a Describe
// response. Missing or unreadable bands get the firmware defaults.
func (c JDSLabs) DecodeFilters(resp *JDSResponse) (peq.FilterSet, bool, error) {
	if resp == nil || resp.Configuration == nil || resp.Configuration.DSP == nil {
		return peq.FilterSet{}, false, peq.NewDeviceError(peq.ErrCodeProtocolDecode, "describe response has no DSP section", nil)
	}
	twelve := c.HasTwelveBands(resp)
	headphone := resp.Configuration.DSP.Headphone

	set := peq.FilterSet{}
	for _, name := range c.BandOrder(twelve) {
		f := jdsDefaultBand(name)
		var band jdsBandDescribe
		if raw, ok := headphone[name]; ok && json.Unmarshal(raw, &band) == nil {
			if band.Frequency != nil {
				f.Freq = band.Frequency.Current
			}
			if band.Gain != nil {
				f.Gain = band.Gain.Current
			}
			if band.Q != nil {
				f.Q = band.Q.Current
			}
			if twelve && band.Type != nil {
				f.Type = c.DecodeFilterType(band.Type.Current)
			}
		}
		set.Filters = append(set.Filters, f)
	}

	var preamp jdsPreampDescribe
	if raw, ok := headphone["Preamp"]; ok && json.Unmarshal(raw, &preamp) == nil && preamp.Gain != nil {
		set.GlobalGain = preamp.Gain.Current
	}
	return set, twelve, nil
}

func jdsDefaultBand(name string) peq.Filter {
	kind := bandKind(name)
	freq := 1000.0
	switch kind {
	case peq.LowShelf:
		freq = 80
	case peq.HighShelf:
		freq = 10000
	}
	return peq.Filter{Type: kind, Freq: freq, Gain: 0, Q: 0.707}
}

// DecodeSlotID maps the input mode to a slot: USB is 0, anything else 1.
func (JDSLabs) DecodeSlotID(resp *JDSResponse) (int, error) {
	if resp == nil || resp.Configuration == nil || resp.Configuration.General == nil {
		return 0, peq.NewDeviceError(peq.ErrCodeProtocolDecode, "describe response has no General section", nil)
	}
	if mode, ok := resp.Configuration.General["Input Mode"]; ok && mode.Current == "USB" {
		return 0, nil
	}
	return 1, nil
}

// Confirmed reports whether an Update response acknowledged the write.
func (JDSLabs) Confirmed(resp *JDSResponse) bool {
	return resp != nil && resp.Status != nil && *resp.Status
}
