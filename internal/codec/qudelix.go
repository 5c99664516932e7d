package codec

import "github.com/smazurov/peqlink/internal/peq"

// Qudelix app protocol opcodes. Every report is a big-endian 16-bit opcode
// followed by its payload.
const (
	QudelixReportID = 0x4B

	QudelixReqEqPreset    = 0x0004
	QudelixSetEqEnable    = 0x0102
	QudelixSetEqPreGain   = 0x0105
	QudelixSetEqGain      = 0x0106
	QudelixSetEqFilter    = 0x0107
	QudelixSetEqFreq      = 0x0108
	QudelixSetEqQ         = 0x0109
	QudelixSetEqPreset    = 0x010B
	QudelixSaveEqPreset   = 0x0202
	QudelixRspEqPreset    = 0x8004
	QudelixRspEqPresetL   = 0x8006
	QudelixRspEqPresetH   = 0x8007
	qudelixBandRecordSize = 7

	// QudelixCustomSlot is the slot the device always reports as active.
	QudelixCustomSlot = 101
)

// Qudelix filter type codes.
const (
	qxLowPass   = 7
	qxHighPass  = 8
	qxLowShelf  = 10
	qxHighShelf = 11
	qxPeaking   = 13
)

// Qudelix encodes the Qudelix 5K app protocol.
type Qudelix struct{}

// EncodeFilterType maps a filter type to the Qudelix type code.
func (Qudelix) EncodeFilterType(t peq.FilterType) byte {
	switch t {
	case peq.LowShelf:
		return qxLowShelf
	case peq.HighShelf:
		return qxHighShelf
	case peq.LowPass:
		return qxLowPass
	case peq.HighPass:
		return qxHighPass
	default:
		return qxPeaking
	}
}

// DecodeFilterType maps a Qudelix type code back, defaulting to peaking.
func (Qudelix) DecodeFilterType(code byte) peq.FilterType {
	switch code {
	case qxLowShelf:
		return peq.LowShelf
	case qxHighShelf:
		return peq.HighShelf
	case qxLowPass:
		return peq.LowPass
	case qxHighPass:
		return peq.HighPass
	default:
		return peq.Peaking
	}
}

// Command frames an opcode and payload.
func (Qudelix) Command(op uint16, payload ...byte) []byte {
	hi, lo := putBE(op)
	return append([]byte{hi, lo}, payload...)
}

// EncodeEnable turns the EQ on or off.
func (c Qudelix) EncodeEnable(enabled bool) []byte {
	v := byte(0)
	if enabled {
		v = 1
	}
	return c.Command(QudelixSetEqEnable, v)
}

// EncodeGlobalGain sets the same x10 pre-gain on both channels.
func (c Qudelix) EncodeGlobalGain(db float64) []byte {
	hi, lo := putBE(EncodeInt16(Scale(db, 10)))
	return c.Command(QudelixSetEqPreGain, hi, lo, hi, lo)
}

// EncodeFilter returns the four commands that set band index.
func (c Qudelix) EncodeFilter(index int, f peq.Filter) [][]byte {
	freqHi, freqLo := putBE(uint16(Round(f.Freq)))
	gainHi, gainLo := putBE(EncodeInt16(Scale(f.EffectiveGain(), 10)))
	qHi, qLo := putBE(uint16(Scale(f.Q, 100)))
	i := byte(index)
	return [][]byte{
		c.Command(QudelixSetEqFilter, i, c.EncodeFilterType(f.Type)),
		c.Command(QudelixSetEqFreq, i, freqHi, freqLo),
		c.Command(QudelixSetEqGain, i, gainHi, gainLo),
		c.Command(QudelixSetEqQ, i, qHi, qLo),
	}
}

// EncodeSlotSelect switches to a stored preset.
func (c Qudelix) EncodeSlotSelect(slot int) []byte {
	return c.Command(QudelixSetEqPreset, byte(slot))
}

// EncodeSave stores the running EQ into slot.
func (c Qudelix) EncodeSave(slot int) []byte {
	return c.Command(QudelixSaveEqPreset, byte(slot))
}

// QueryPreset requests the user preset.
func (c Qudelix) QueryPreset() []byte {
	return c.Command(QudelixReqEqPreset, 0x01)
}

// IsPresetResponse reports whether resp carries preset band data.
func (Qudelix) IsPresetResponse(resp []byte) bool {
	if len(resp) < 4 {
		return false
	}
	switch u16be(resp, 0) {
	case QudelixRspEqPreset, QudelixRspEqPresetL, QudelixRspEqPresetH:
		return true
	default:
		return false
	}
}

// EncodeBand builds one 7-byte band record as found in preset responses.
func (c Qudelix) EncodeBand(f peq.Filter) []byte {
	freqHi, freqLo := putBE(uint16(Round(f.Freq)))
	gainHi, gainLo := putBE(EncodeInt16(Scale(f.Gain, 10)))
	qHi, qLo := putBE(uint16(Scale(f.Q, 100)))
	return []byte{c.EncodeFilterType(f.Type), freqHi, freqLo, gainHi, gainLo, qHi, qLo}
}

// DecodePreset parses up to maxBands band records from a preset response,
// skipping unused all-zero bands, followed by the pre-gain when present.
func (c Qudelix) DecodePreset(resp []byte, maxBands int) ([]peq.Filter, float64) {
	var filters []peq.Filter
	offset := 2
	for i := 0; i < maxBands; i++ {
		if offset+qudelixBandRecordSize-1 >= len(resp) {
			break
		}
		rec := resp[offset : offset+qudelixBandRecordSize]
		offset += qudelixBandRecordSize

		freq := float64(u16be(rec, 1))
		gain := float64(DecodeInt16(u16be(rec, 3))) / 10
		q := float64(u16be(rec, 5)) / 100
		if freq == 0 && gain == 0 && q == 0 {
			continue
		}
		filters = append(filters, peq.Filter{
			Type: c.DecodeFilterType(rec[0]),
			Freq: freq,
			Gain: gain,
			Q:    q,
		})
	}

	var preGain float64
	if offset+2 <= len(resp) {
		preGain = float64(DecodeInt16(u16be(resp, offset))) / 10
	}
	return filters, preGain
}
