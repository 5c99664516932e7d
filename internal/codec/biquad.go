package codec

import (
	"encoding/binary"
	"math"
)

// DSPSampleRate is the fixed rate the Walkplay and Moondrop DSPs design
// their coefficients at, regardless of the stream's actual rate.
const DSPSampleRate = 96000.0

// coeffScale is the Q2.30 fixed-point scale used for coefficients on the wire.
const coeffScale = 1 << 30

// Biquad holds one second-order section normalized by a0, in RBJ cookbook
// notation: H(z) = (B0 + B1 z^-1 + B2 z^-2) / (1 + A1 z^-1 + A2 z^-2).
type Biquad struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// PeakingBiquad designs an RBJ peaking EQ section.
func PeakingBiquad(freq, gainDB, q, sampleRate float64) Biquad {
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / sampleRate
	alpha := math.Sin(w0) / (2 * q)
	cosW0 := math.Cos(w0)
	a0 := 1 + alpha/a

	return Biquad{
		B0: (1 + alpha*a) / a0,
		B1: (-2 * cosW0) / a0,
		B2: (1 - alpha*a) / a0,
		A1: (-2 * cosW0) / a0,
		A2: (1 - alpha/a) / a0,
	}
}

// Quantize converts a coefficient to Q2.30.
func Quantize(c float64) int32 {
	return int32(Round(c * coeffScale))
}

// packCoefficients writes five Q2.30 values little-endian into 20 bytes.
func packCoefficients(q [5]int32) []byte {
	out := make([]byte, 20)
	for i, v := range q {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(v))
	}
	return out
}
