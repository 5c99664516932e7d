package codec

import (
	"fmt"
	"math"

	"github.com/smazurov/peqlink/internal/peq"
)

// Moondrop command bytes. Reports are sent on MoondropReportID.
const (
	MoondropReportID = 0x4B

	MoondropWrite = 0x01
	MoondropRead  = 0x80

	MoondropCmdSaveToFlash = 0x01
	MoondropCmdPregain     = 0x03
	MoondropCmdResetEQ     = 0x05
	MoondropCmdUpdateEQ    = 0x09
	MoondropCmdCoeffToReg  = 0x0A
	MoondropCmdVersion     = 0x0C
	MoondropCmdActiveSlot  = 0x0F

	moondropPacketLen = 63
)

// Moondrop encodes the Moondrop HID protocol: each band is written as
// Q2.30 biquad coefficients plus its human-readable parameters.
type Moondrop struct{}

// EncodeFilterType maps a filter type to the Moondrop type byte.
func (Moondrop) EncodeFilterType(t peq.FilterType) byte {
	switch t {
	case peq.LowShelf:
		return 1
	case peq.HighShelf:
		return 3
	default:
		return 2
	}
}

// DecodeFilterType maps a Moondrop type byte back, defaulting to peaking.
func (Moondrop) DecodeFilterType(code byte) peq.FilterType {
	switch code {
	case 1:
		return peq.LowShelf
	case 3:
		return peq.HighShelf
	default:
		return peq.Peaking
	}
}

// Coefficients returns the five quantized coefficients for a band in wire order.
func (Moondrop) Coefficients(freq, gainDB, q float64) [5]int32 {
	b := PeakingBiquad(freq, gainDB, q, DSPSampleRate)
	return [5]int32{Quantize(b.B0), Quantize(b.B1), Quantize(b.B2), Quantize(-b.A1), Quantize(-b.A2)}
}

// splitFixed splits v into a 1/256 fraction byte and a signed integer
// byte, so that int8(intPart) + frac/256 recovers v.
func splitFixed(v float64) (frac, intPart byte) {
	n := Round(v * 256)
	return byte(n & 0xFF), byte(n >> 8)
}

// EncodeFilter builds the 63-byte write packet for band index.
func (c Moondrop) EncodeFilter(index int, f peq.Filter) []byte {
	gain := f.EffectiveGain()
	freq := Round(f.Freq)
	p := make([]byte, moondropPacketLen)
	p[0] = MoondropWrite
	p[1] = MoondropCmdUpdateEQ
	p[2] = 0x18
	p[4] = byte(index)
	copy(p[7:], packCoefficients(c.Coefficients(float64(freq), gain, f.Q)))
	p[27], p[28] = putLE(uint16(freq))
	p[29], p[30] = splitFixed(f.Q)
	p[31], p[32] = splitFixed(gain)
	p[33] = c.EncodeFilterType(f.Type)
	p[35] = 7
	return p
}

// EncodeFilterEnable latches band index's coefficients into the DSP registers.
func (Moondrop) EncodeFilterEnable(index int) []byte {
	p := make([]byte, moondropPacketLen)
	p[0] = MoondropWrite
	p[1] = MoondropCmdCoeffToReg
	p[2] = byte(index)
	p[4], p[5], p[6] = 0xFF, 0xFF, 0xFF
	return p
}

// EncodeGlobalGain builds the pregain write packet.
func (Moondrop) EncodeGlobalGain(db float64) []byte {
	return []byte{MoondropWrite, MoondropCmdPregain, 0x02, 0x00, byte(int(math.Trunc(db)))}
}

// EncodeSave commits the current EQ to flash.
func (Moondrop) EncodeSave() []byte {
	return []byte{MoondropWrite, MoondropCmdSaveToFlash}
}

// EncodeResetEQ restores the factory EQ.
func (Moondrop) EncodeResetEQ() []byte {
	return []byte{MoondropWrite, MoondropCmdResetEQ, 1, 4, 0}
}

// QueryFilter requests band index.
func (Moondrop) QueryFilter(index int) []byte {
	return []byte{MoondropRead, MoondropCmdUpdateEQ, 0x18, 0x00, byte(index), 0x00}
}

// QuerySlot requests the active EQ slot.
func (Moondrop) QuerySlot() []byte { return []byte{MoondropRead, MoondropCmdActiveSlot, 0x00} }

// QueryGlobalGain requests the pregain.
func (Moondrop) QueryGlobalGain() []byte { return []byte{MoondropRead, MoondropCmdPregain} }

// QueryVersion requests the firmware version.
func (Moondrop) QueryVersion() []byte { return []byte{MoondropRead, MoondropCmdVersion} }

// IsResponse reports whether resp answers a read of cmd.
func (Moondrop) IsResponse(resp []byte, cmd byte) bool {
	return len(resp) >= 2 && resp[0] == MoondropRead && resp[1] == cmd
}

// DecodeFilter parses a band read response. Bands with a frequency outside
// (10, 24000) Hz are uninitialized memory and come back disabled.
func (c Moondrop) DecodeFilter(resp []byte) peq.Filter {
	if len(resp) < 34 {
		return disabledBand()
	}
	freq := float64(u16le(resp, 27))
	q := float64(resp[30]) + float64(resp[29])/256
	gain := FloorTenth(float64(int8(resp[32])) + float64(resp[31])/256)
	valid := freq > 10 && freq < 24000 && !math.IsNaN(gain) && !math.IsNaN(q)
	if !valid {
		return peq.Filter{Type: c.DecodeFilterType(resp[33]), Freq: 0, Gain: 0, Q: 1, Disabled: true}
	}
	return peq.Filter{Type: c.DecodeFilterType(resp[33]), Freq: freq, Gain: gain, Q: q}
}

// DecodeGlobalGain parses a pregain response.
func (Moondrop) DecodeGlobalGain(resp []byte) float64 {
	return float64(int8(at(resp, 4)))
}

// DecodeSlotID parses an active slot response.
func (Moondrop) DecodeSlotID(resp []byte) int {
	return int(at(resp, 3))
}

// DecodeVersion parses a firmware version response.
func (Moondrop) DecodeVersion(resp []byte) string {
	return fmt.Sprintf("%d.%d.%d", at(resp, 3), at(resp, 4), at(resp, 5))
}
