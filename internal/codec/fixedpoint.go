// Package codec translates filter bands to and from each vendor's wire
// layout. Codecs are pure: they never touch a transport and never fail on
// short or garbled input, returning a neutral disabled band instead.
package codec

import (
	"math"

	"github.com/smazurov/peqlink/internal/peq"
)

// Round rounds half toward positive infinity, which is what every vendor
// firmware tool this package interoperates with does.
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// Scale multiplies v by factor and rounds to the nearest integer.
func Scale(v, factor float64) int {
	return Round(v * factor)
}

// EncodeInt16 returns the 16-bit two's-complement form of v.
func EncodeInt16(v int) uint16 {
	if v < 0 {
		v += 0x10000
	}
	return uint16(v & 0xFFFF)
}

// DecodeInt16 reverses EncodeInt16.
func DecodeInt16(raw uint16) int {
	v := int(raw)
	if v > 0x7FFF {
		v -= 0x10000
	}
	return v
}

// RoundTenth rounds v to one decimal place.
func RoundTenth(v float64) float64 {
	return float64(Round(v*10)) / 10
}

// FloorTenth truncates v toward negative infinity at one decimal place.
func FloorTenth(v float64) float64 {
	return math.Floor(v*10) / 10
}

// at returns b[i], or 0 when the report is too short.
func at(b []byte, i int) byte {
	if i < 0 || i >= len(b) {
		return 0
	}
	return b[i]
}

func u16be(b []byte, i int) uint16 {
	return uint16(at(b, i))<<8 | uint16(at(b, i+1))
}

func u16le(b []byte, i int) uint16 {
	return uint16(at(b, i)) | uint16(at(b, i+1))<<8
}

func putBE(v uint16) (hi, lo byte) {
	return byte(v >> 8), byte(v)
}

func putLE(v uint16) (lo, hi byte) {
	return byte(v), byte(v >> 8)
}

// disabledBand is what decoders return for reports they cannot read.
func disabledBand() peq.Filter {
	return peq.Filter{Type: peq.Peaking, Freq: 0, Gain: 0, Q: peq.DefaultQ, Disabled: true}
}
