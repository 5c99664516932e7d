package codec

import (
	"math"

	"github.com/smazurov/peqlink/internal/peq"
)

// FiiO report framing.
const (
	FiiOSetHeader1 = 0xAA
	FiiOSetHeader2 = 0x0A
	FiiOGetHeader1 = 0xBB
	FiiOGetHeader2 = 0x0B
	FiiOEnd        = 0xEE

	FiiOCmdFilterParams = 0x15
	FiiOCmdPresetSwitch = 0x16
	FiiOCmdGlobalGain   = 0x17
	FiiOCmdFilterCount  = 0x18
	FiiOCmdSave         = 0x19

	// FiiODefaultReportID is used when the capability does not name one.
	FiiODefaultReportID = 7
)

// FiiO encodes the JadeAudio / SnowSky / FiiO HID protocol. Multi-byte
// values are big-endian; gain is x10 two's complement and Q is x100.
type FiiO struct{}

func fiioSet(cmd byte, payload ...byte) []byte {
	frame := []byte{FiiOSetHeader1, FiiOSetHeader2, 0, 0, cmd, byte(len(payload) - 1)}
	frame = append(frame, payload...)
	return append(frame, FiiOEnd)
}

func fiioGet(cmd byte, payload ...byte) []byte {
	frame := []byte{FiiOGetHeader1, FiiOGetHeader2, 0, 0, cmd}
	frame = append(frame, payload...)
	return append(frame, FiiOEnd)
}

// EncodeFilterType maps a filter type to the FiiO type byte.
func (FiiO) EncodeFilterType(t peq.FilterType) byte {
	switch t {
	case peq.LowShelf:
		return 1
	case peq.HighShelf:
		return 2
	default:
		return 0
	}
}

// DecodeFilterType maps a FiiO type byte back, defaulting to peaking.
func (FiiO) DecodeFilterType(code byte) peq.FilterType {
	switch code {
	case 1:
		return peq.LowShelf
	case 2:
		return peq.HighShelf
	default:
		return peq.Peaking
	}
}

// EncodeGain returns the x10 two's-complement gain as hi, lo.
func (FiiO) EncodeGain(db float64) (hi, lo byte) {
	return putBE(EncodeInt16(Scale(db, 10)))
}

// DecodeGain reverses EncodeGain.
func (FiiO) DecodeGain(hi, lo byte) float64 {
	return float64(DecodeInt16(uint16(hi)<<8|uint16(lo))) / 10
}

// EncodeFilter builds the set-params frame for band index. Disabled bands
// are written with zero gain. Band gain and frequency truncate toward zero,
// unlike the global gain and Q which round.
func (c FiiO) EncodeFilter(index int, f peq.Filter) []byte {
	gainHi, gainLo := putBE(EncodeInt16(int(math.Trunc(f.EffectiveGain() * 10))))
	freqHi, freqLo := putBE(uint16(math.Trunc(f.Freq)))
	qHi, qLo := putBE(uint16(Scale(f.Q, 100)))
	return fiioSet(FiiOCmdFilterParams,
		byte(index), gainHi, gainLo, freqHi, freqLo, qHi, qLo, c.EncodeFilterType(f.Type), 0)
}

// EncodeGlobalGain builds the set-global-gain frame.
func (c FiiO) EncodeGlobalGain(db float64) []byte {
	hi, lo := c.EncodeGain(db)
	return fiioSet(FiiOCmdGlobalGain, hi, lo, 0)
}

// EncodeFilterCount builds the set-band-count frame.
func (FiiO) EncodeFilterCount(n int) []byte {
	return fiioSet(FiiOCmdFilterCount, byte(n), 0)
}

// EncodeSlotSelect builds the preset-switch frame.
func (FiiO) EncodeSlotSelect(slot int) []byte {
	return fiioSet(FiiOCmdPresetSwitch, byte(slot), 0)
}

// EncodeSave builds the save-to-slot frame.
func (FiiO) EncodeSave(slot int) []byte {
	return fiioSet(FiiOCmdSave, byte(slot), 0)
}

// QueryFilter requests band index.
func (FiiO) QueryFilter(index int) []byte {
	return fiioGet(FiiOCmdFilterParams, 1, byte(index), 0)
}

// QueryGlobalGain requests the global gain.
func (FiiO) QueryGlobalGain() []byte { return fiioGet(FiiOCmdGlobalGain, 0, 0) }

// QueryFilterCount requests the number of active bands.
func (FiiO) QueryFilterCount() []byte { return fiioGet(FiiOCmdFilterCount, 0, 0) }

// QuerySlot requests the active preset.
func (FiiO) QuerySlot() []byte { return fiioGet(FiiOCmdPresetSwitch, 0, 0) }

// ResponseCommand returns the command byte of a get response, or false when
// the report is not a FiiO get response.
func (FiiO) ResponseCommand(resp []byte) (byte, bool) {
	if len(resp) < 5 || resp[0] != FiiOGetHeader1 || resp[1] != FiiOGetHeader2 {
		return 0, false
	}
	return resp[4], true
}

// DecodeFilter parses a params response into its band index and filter.
// A band whose gain, frequency and Q are all zero is unused and comes back
// disabled. Q of zero decodes as 1.
func (c FiiO) DecodeFilter(resp []byte) (int, peq.Filter) {
	if len(resp) < 14 {
		return -1, disabledBand()
	}
	gain := c.DecodeGain(resp[7], resp[8])
	freq := float64(u16be(resp, 9))
	rawQ := u16be(resp, 11)
	q := float64(rawQ) / 100
	if rawQ == 0 {
		q = 1
	}
	return int(resp[6]), peq.Filter{
		Type:     c.DecodeFilterType(resp[13]),
		Freq:     freq,
		Gain:     gain,
		Q:        q,
		Disabled: gain == 0 && freq == 0 && rawQ == 0,
	}
}

// DecodeGlobalGain parses a global gain response.
func (c FiiO) DecodeGlobalGain(resp []byte) float64 {
	return c.DecodeGain(at(resp, 6), at(resp, 7))
}

// DecodeFilterCount parses a band count response.
func (FiiO) DecodeFilterCount(resp []byte) int {
	return int(at(resp, 6))
}

// DecodeSlotID parses a preset response. disabledPresetID maps to
// peq.DisabledSlotID.
func (FiiO) DecodeSlotID(resp []byte, disabledPresetID int) int {
	id := int(at(resp, 6))
	if id == disabledPresetID {
		return peq.DisabledSlotID
	}
	return id
}
