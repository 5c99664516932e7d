package codec

import "github.com/smazurov/peqlink/internal/peq"

// KTMicro command and field bytes.
const (
	KTMicroReportID = 0x4B

	KTMicroCmdRead   = 0x52
	KTMicroCmdWrite  = 0x57
	KTMicroCmdCommit = 0x53
	KTMicroCmdClear  = 0x43

	KTMicroFieldSlot       = 0x24
	KTMicroFieldFirstBand  = 0x26
	KTMicroFieldGlobalGain = 0x66

	// ktSlotReadArg is the argument the firmware expects on a slot read.
	ktSlotReadArg = 0x03
)

// KTMicro encodes the KT Micro HID protocol. Each band occupies two field
// ids: one for gain and frequency, the next for Q and type. When
// Compensate2X is set the device stores frequency doubled, so writes are
// halved and reads doubled.
type KTMicro struct {
	Compensate2X bool
}

// BandFields returns the gain/frequency and Q/type field ids for band index.
func (KTMicro) BandFields(index int) (gainFreq, qType byte) {
	gainFreq = byte(KTMicroFieldFirstBand + index*2)
	return gainFreq, gainFreq + 1
}

// EncodeFilterType maps a filter type to the KT Micro type byte.
func (KTMicro) EncodeFilterType(t peq.FilterType) byte {
	switch t {
	case peq.LowShelf:
		return 3
	case peq.HighShelf:
		return 4
	default:
		return 0
	}
}

// DecodeFilterType maps a KT Micro type byte back, defaulting to peaking.
func (KTMicro) DecodeFilterType(code byte) peq.FilterType {
	switch code {
	case 3:
		return peq.LowShelf
	case 4:
		return peq.HighShelf
	default:
		return peq.Peaking
	}
}

func ktRead(field byte) []byte {
	return []byte{field, 0x00, 0x00, 0x00, KTMicroCmdRead, 0x00, 0x00, 0x00, 0x00}
}

func ktWrite(field byte, b6, b7, b8, b9 byte) []byte {
	return []byte{field, 0x00, 0x00, 0x00, KTMicroCmdWrite, 0x00, b6, b7, b8, b9}
}

// EncodeFilter builds the two write packets for band index. Disabled bands
// are written with zero gain.
func (c KTMicro) EncodeFilter(index int, f peq.Filter) (gainFreq, qType []byte) {
	gfField, qField := c.BandFields(index)
	freq := f.Freq
	if c.Compensate2X {
		freq /= 2
	}
	gainLo, gainHi := putLE(EncodeInt16(Scale(f.EffectiveGain(), 10)))
	freqLo, freqHi := putLE(uint16(Round(freq)))
	qLo, qHi := putLE(uint16(Scale(f.Q, 1000)))
	return ktWrite(gfField, gainLo, gainHi, freqLo, freqHi),
		ktWrite(qField, qLo, qHi, c.EncodeFilterType(f.Type), 0x00)
}

// QueryFilter builds the two read packets for band index.
func (c KTMicro) QueryFilter(index int) (gainFreq, qType []byte) {
	gfField, qField := c.BandFields(index)
	return ktRead(gfField), ktRead(qField)
}

// IsFieldResponse reports whether resp answers a read of field.
func (KTMicro) IsFieldResponse(resp []byte, field byte) bool {
	return len(resp) >= 5 && resp[0] == field && resp[4] == KTMicroCmdRead
}

// DecodeGainFreq parses a gain/frequency field response.
func (c KTMicro) DecodeGainFreq(resp []byte) (gain, freq float64) {
	gain = float64(DecodeInt16(u16le(resp, 6))) / 10
	freq = float64(u16le(resp, 8))
	if c.Compensate2X {
		freq *= 2
	}
	return gain, freq
}

// DecodeQType parses a Q/type field response.
func (c KTMicro) DecodeQType(resp []byte) (float64, peq.FilterType) {
	return float64(u16le(resp, 6)) / 1000, c.DecodeFilterType(at(resp, 8))
}

// DecodeFilter combines both field responses of one band.
func (c KTMicro) DecodeFilter(gainFreq, qType []byte) peq.Filter {
	if len(gainFreq) < 10 || len(qType) < 9 {
		return disabledBand()
	}
	gain, freq := c.DecodeGainFreq(gainFreq)
	q, t := c.DecodeQType(qType)
	return peq.Filter{Type: t, Freq: freq, Gain: gain, Q: q}
}

// EncodeGlobalGain builds the pregain write, whole dB only.
func (KTMicro) EncodeGlobalGain(db float64) []byte {
	p := ktRead(KTMicroFieldGlobalGain)
	p[4] = KTMicroCmdWrite
	p[6] = byte(Round(db))
	return p
}

// QueryGlobalGain builds the pregain read.
func (KTMicro) QueryGlobalGain() []byte { return ktRead(KTMicroFieldGlobalGain) }

// DecodeGlobalGain parses a pregain response.
func (KTMicro) DecodeGlobalGain(resp []byte) float64 {
	return float64(int8(at(resp, 6)))
}

// EncodeSlotSelect activates slot. Writing the disabled preset id turns EQ off.
func (KTMicro) EncodeSlotSelect(slot int) []byte {
	return ktWrite(KTMicroFieldSlot, byte(slot), 0x00, 0x00, 0x00)
}

// QuerySlot builds the active slot read.
func (KTMicro) QuerySlot() []byte {
	return []byte{KTMicroFieldSlot, 0x00, 0x00, 0x00, KTMicroCmdRead, 0x00, ktSlotReadArg, 0x00, 0x00, 0x00}
}

// DecodeSlotID parses an active slot response.
func (KTMicro) DecodeSlotID(resp []byte) int {
	return int(at(resp, 6))
}

// EncodeCommit persists written bands.
func (KTMicro) EncodeCommit() []byte { return ktCommand(KTMicroCmdCommit) }

// EncodeClear resets all bands.
func (KTMicro) EncodeClear() []byte { return ktCommand(KTMicroCmdClear) }

func ktCommand(cmd byte) []byte {
	return []byte{0x00, 0x00, 0x00, 0x00, cmd, 0x00, 0x00, 0x00, 0x00, 0x00}
}
