// Package peq holds the value types shared by every layer of the device PEQ
// stack: filter bands, filter sets, hardware slots and device capabilities.
package peq

import "math"

// FilterType identifies the shape of a single PEQ band. The string values
// match the labels used by the filter-editing UI.
type FilterType string

// Filter types understood by the UI. Vendors map these onto their own codes.
const (
	Peaking   FilterType = "PK"
	LowShelf  FilterType = "LSQ"
	HighShelf FilterType = "HSQ"
	LowPass   FilterType = "LPF"
	HighPass  FilterType = "HPF"
)

// IsShelf reports whether t is a low or high shelf.
func (t FilterType) IsShelf() bool {
	return t == LowShelf || t == HighShelf
}

// Valid reports whether t is one of the known filter types.
func (t FilterType) Valid() bool {
	switch t {
	case Peaking, LowShelf, HighShelf, LowPass, HighPass:
		return true
	default:
		return false
	}
}

// Frequency and Q limits applied before anything is written to hardware.
const (
	MinFreq     = 20.0
	MaxFreq     = 20000.0
	DefaultFreq = 100.0
	MinQ        = 0.01
	MaxQ        = 100.0
	DefaultQ    = 1.0
)

// DisabledSlotID is the slot id the UI uses for "PEQ off".
const DisabledSlotID = -1

// Filter is one biquad-style PEQ band.
type Filter struct {
	Type     FilterType `json:"type" toml:"type" example:"PK" doc:"Filter type (PK, LSQ, HSQ, LPF, HPF)"`
	Freq     float64    `json:"freq" toml:"freq" example:"1000" doc:"Center/corner frequency in Hz"`
	Gain     float64    `json:"gain" toml:"gain" example:"-3.5" doc:"Gain in dB"`
	Q        float64    `json:"q" toml:"q" example:"1.41" doc:"Quality factor"`
	Disabled bool       `json:"disabled" toml:"disabled" doc:"Band is written as a neutral band"`
}

// NeutralFilter returns the zero-effect band used to pad fixed-size hardware tables.
func NeutralFilter() Filter {
	return Filter{Type: Peaking, Freq: DefaultFreq, Gain: 0, Q: DefaultQ}
}

// EffectiveGain returns the gain that must be written to hardware. Disabled
// bands are written with zero gain because hardware slots cannot be omitted.
func (f Filter) EffectiveGain() float64 {
	if f.Disabled {
		return 0
	}
	return f.Gain
}

// IsZero reports whether every numeric field is zero, which is how most
// devices report an unused band.
func (f Filter) IsZero() bool {
	return f.Freq == 0 && f.Gain == 0 && f.Q == 0
}

// FilterSet is an ordered list of bands plus the pre-amp. Index in Filters is
// the hardware band index.
type FilterSet struct {
	GlobalGain float64  `json:"global_gain" toml:"global_gain" example:"-6" doc:"Pre-amp gain in dB"`
	Filters    []Filter `json:"filters" toml:"filters" doc:"Ordered filter bands"`
}

// Clone returns a deep copy of s.
func (s FilterSet) Clone() FilterSet {
	out := FilterSet{GlobalGain: s.GlobalGain}
	if s.Filters != nil {
		out.Filters = append([]Filter(nil), s.Filters...)
	}
	return out
}

// AutoPreamp returns -max(gain) over all filters, the anti-clipping pre-amp
// applied when the caller does not supply one. An empty list yields 0.
func AutoPreamp(filters []Filter) float64 {
	if len(filters) == 0 {
		return 0
	}
	maxGain := math.Inf(-1)
	for _, f := range filters {
		if f.Gain > maxGain {
			maxGain = f.Gain
		}
	}
	if maxGain == 0 {
		return 0
	}
	return -maxGain
}

// Slot is an addressable hardware preset.
type Slot struct {
	ID   int    `json:"id" toml:"id" example:"160" doc:"Vendor slot id"`
	Name string `json:"name" toml:"name" example:"USER1" doc:"Slot display name"`
}

// PullResult is what a device returns for a pull. When the transport timed
// out part way through a multi-report read, Complete is false and Filters
// holds whatever arrived.
type PullResult struct {
	FilterSet
	CurrentSlot int  `json:"current_slot"`
	Complete    bool `json:"complete"`
	Received    int  `json:"received"`
	Expected    int  `json:"expected"`
}

// CompletePull wraps a fully received filter set.
func CompletePull(set FilterSet, slot int) PullResult {
	return PullResult{
		FilterSet:   set,
		CurrentSlot: slot,
		Complete:    true,
		Received:    len(set.Filters),
		Expected:    len(set.Filters),
	}
}
