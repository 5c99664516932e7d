package codec

import (
	"strconv"
	"strings"

	"github.com/smazurov/peqlink/internal/peq"
)

// Walkplay command bytes.
const (
	WalkplayReportID = 0x4B

	WalkplayRead  = 0x80
	WalkplayWrite = 0x01
	walkplayEnd   = 0x00

	WalkplayCmdFlashEQ    = 0x01
	WalkplayCmdGlobalGain = 0x03
	WalkplayCmdPEQValues  = 0x09
	WalkplayCmdTempWrite  = 0x0A
	WalkplayCmdVersion    = 0x0C

	// WalkplayMinFilterReport is the shortest report that carries a band.
	WalkplayMinFilterReport = 32
	// WalkplayMinSlotReport is the shortest band report that also carries the slot.
	WalkplayMinSlotReport = 37
)

// Walkplay encodes the Walkplay HID protocol shared by many DSP dongles.
// Q and gain are 8.8 fixed point, little-endian.
type Walkplay struct{}

// EncodeFilterType maps a filter type to the Walkplay type byte.
func (Walkplay) EncodeFilterType(t peq.FilterType) byte {
	switch t {
	case peq.LowShelf:
		return 1
	case peq.HighShelf:
		return 3
	default:
		return 2
	}
}

// DecodeFilterType maps a Walkplay type byte back, defaulting to peaking.
func (Walkplay) DecodeFilterType(code byte) peq.FilterType {
	switch code {
	case 1:
		return peq.LowShelf
	case 3:
		return peq.HighShelf
	default:
		return peq.Peaking
	}
}

// Coefficients returns the five quantized coefficients for a band in wire
// order. The feedback terms are negated after quantization.
func (Walkplay) Coefficients(freq, gainDB, q float64) [5]int32 {
	b := PeakingBiquad(freq, gainDB, q, DSPSampleRate)
	return [5]int32{Quantize(b.B0), Quantize(b.B1), Quantize(b.B2), -Quantize(b.A1), -Quantize(b.A2)}
}

// EncodeFilter builds the write packet for band index targeting slot.
func (c Walkplay) EncodeFilter(index int, f peq.Filter, slot int) []byte {
	gain := f.EffectiveGain()
	freq := int(f.Freq)
	p := []byte{WalkplayWrite, WalkplayCmdPEQValues, 0x18, 0x00, byte(index), 0x00, 0x00}
	p = append(p, packCoefficients(c.Coefficients(float64(freq), gain, f.Q))...)
	freqLo, freqHi := putLE(uint16(freq))
	qLo, qHi := putLE(uint16(Scale(f.Q, 256)))
	gainLo, gainHi := putLE(EncodeInt16(Scale(gain, 256)))
	return append(p,
		freqLo, freqHi,
		qLo, qHi,
		gainLo, gainHi,
		c.EncodeFilterType(f.Type),
		0x00,
		byte(slot),
		walkplayEnd,
	)
}

// EncodeGlobalGain builds the global gain write, whole dB only.
func (Walkplay) EncodeGlobalGain(db float64) []byte {
	return []byte{WalkplayWrite, WalkplayCmdGlobalGain, 0x00, 0x00, byte(Round(db))}
}

// EncodeTempWrite applies written bands to the running DSP.
func (Walkplay) EncodeTempWrite() []byte {
	return []byte{WalkplayWrite, WalkplayCmdTempWrite, 0x04, 0x00, 0x00, 0xFF, 0xFF, walkplayEnd}
}

// EncodeFlash persists the running EQ.
func (Walkplay) EncodeFlash() []byte {
	return []byte{WalkplayWrite, WalkplayCmdFlashEQ, 0x01, walkplayEnd}
}

// EncodeSlotSelect enables slot, or disables EQ when enabled is false.
func (Walkplay) EncodeSlotSelect(enabled bool, slot int) []byte {
	en := byte(0)
	if enabled {
		en = 1
	} else {
		slot = 0
	}
	return []byte{WalkplayWrite, WalkplayCmdFlashEQ, en, byte(slot), walkplayEnd}
}

// QueryFilter requests band index.
func (Walkplay) QueryFilter(index int) []byte {
	return []byte{WalkplayRead, WalkplayCmdPEQValues, 0x00, 0x00, byte(index), walkplayEnd}
}

// QueryCurrent requests the EQ header, whose slot byte names the active slot.
func (Walkplay) QueryCurrent() []byte {
	return []byte{WalkplayRead, WalkplayCmdPEQValues, walkplayEnd}
}

// QueryVersion requests the firmware version.
func (Walkplay) QueryVersion() []byte {
	return []byte{WalkplayRead, WalkplayCmdVersion, walkplayEnd}
}

// QueryGlobalGain requests the global gain.
func (Walkplay) QueryGlobalGain() []byte {
	return []byte{WalkplayRead, WalkplayCmdGlobalGain, 0x00}
}

// IsResponse reports whether resp answers a read of cmd.
func (Walkplay) IsResponse(resp []byte, cmd byte) bool {
	return len(resp) >= 2 && resp[0] == WalkplayRead && resp[1] == cmd
}

// IsFilterReport reports whether resp is long enough to carry a band.
func (Walkplay) IsFilterReport(resp []byte) bool {
	return len(resp) >= WalkplayMinFilterReport
}

// DecodeFilter parses a band report into its index and filter. Q and gain
// are rounded to 0.1. A band with zero frequency, Q and gain is disabled.
func (c Walkplay) DecodeFilter(resp []byte) (int, peq.Filter) {
	if len(resp) < WalkplayMinFilterReport {
		return -1, disabledBand()
	}
	freq := float64(u16le(resp, 27))
	q := RoundTenth(float64(u16le(resp, 29)) / 256)
	gain := RoundTenth(float64(DecodeInt16(u16le(resp, 31))) / 256)
	return int(resp[4]), peq.Filter{
		Type:     c.DecodeFilterType(at(resp, 33)),
		Freq:     freq,
		Gain:     gain,
		Q:        q,
		Disabled: freq == 0 && q == 0 && gain == 0,
	}
}

// DecodeSlotID returns the slot byte of a band report, or -1 when the
// report is too short to carry one.
func (Walkplay) DecodeSlotID(resp []byte) int {
	if len(resp) < 36 {
		return -1
	}
	return int(resp[35])
}

// DecodeGlobalGain parses a global gain response.
func (Walkplay) DecodeGlobalGain(resp []byte) float64 {
	return float64(int8(at(resp, 4)))
}

// DecodeVersion returns the ASCII firmware version, or "" when unreadable.
func (Walkplay) DecodeVersion(resp []byte) string {
	if len(resp) < 6 {
		return ""
	}
	return string(resp[3:6])
}

// ParseVersion reads the numeric prefix of a firmware version string,
// reporting false when there is none.
func ParseVersion(v string) (float64, bool) {
	end := strings.IndexFunc(v, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	if end >= 0 {
		v = v[:end]
	}
	n, err := strconv.ParseFloat(strings.TrimRight(v, "."), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
