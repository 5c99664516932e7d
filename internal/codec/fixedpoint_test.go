package codec

import (
	"math"
	"testing"
)

func TestInt16RoundTrip(t *testing.T) {
	for v := -32768; v <= 32767; v++ {
		if got := DecodeInt16(EncodeInt16(v)); got != v {
			t.Fatalf("DecodeInt16(EncodeInt16(%d)) = %d", v, got)
		}
	}
}

func TestEncodeInt16(t *testing.T) {
	tests := []struct {
		in   int
		want uint16
	}{
		{0, 0x0000},
		{35, 0x0023},
		{-1, 0xFFFF},
		{-35, 0xFFDD},
		{-120, 0xFF88},
		{-32768, 0x8000},
	}
	for _, tt := range tests {
		if got := EncodeInt16(tt.in); got != tt.want {
			t.Errorf("EncodeInt16(%d) = %#04x, want %#04x", tt.in, got, tt.want)
		}
	}
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0.5, 1},
		{-0.5, 0},
		{-1.5, -1},
		{2.49, 2},
		{-127.5, -127},
	}
	for _, tt := range tests {
		if got := Round(tt.in); got != tt.want {
			t.Errorf("Round(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestShortReportsDoNotPanic(t *testing.T) {
	short := [][]byte{nil, {}, {0xBB}, {0x80, 0x09, 0x18}}
	for _, b := range short {
		if _, f := (FiiO{}).DecodeFilter(b); !f.Disabled {
			t.Errorf("FiiO.DecodeFilter(%x) not disabled", b)
		}
		if f := (Moondrop{}).DecodeFilter(b); !f.Disabled {
			t.Errorf("Moondrop.DecodeFilter(%x) not disabled", b)
		}
		if _, f := (Walkplay{}).DecodeFilter(b); !f.Disabled {
			t.Errorf("Walkplay.DecodeFilter(%x) not disabled", b)
		}
		if f := (KTMicro{}).DecodeFilter(b, b); !f.Disabled {
			t.Errorf("KTMicro.DecodeFilter(%x) not disabled", b)
		}
		if filters, _ := (Qudelix{}).DecodePreset(b, 10); len(filters) != 0 {
			t.Errorf("Qudelix.DecodePreset(%x) returned %d filters", b, len(filters))
		}
		_ = (Moondrop{}).DecodeGlobalGain(b)
		_ = (Walkplay{}).DecodeSlotID(b)
		_ = (KTMicro{}).DecodeSlotID(b)
	}
}

func TestPeakingBiquadUnityAtZeroGain(t *testing.T) {
	b := PeakingBiquad(1000, 0, 1, DSPSampleRate)
	if math.Abs(b.B0-1) > 1e-12 {
		t.Errorf("B0 = %v, want 1", b.B0)
	}
	if math.Abs(b.B2-b.A2) > 1e-12 {
		t.Errorf("B2 = %v, A2 = %v, want equal", b.B2, b.A2)
	}
	if b.B1 != b.A1 {
		t.Errorf("B1 = %v, A1 = %v, want equal", b.B1, b.A1)
	}
}

func TestCoefficientsQuantization(t *testing.T) {
	for _, c := range [][5]int32{
		(Moondrop{}).Coefficients(1000, 0, 1),
		(Walkplay{}).Coefficients(1000, 0, 1),
	} {
		if c[0] != 1<<30 {
			t.Errorf("b0 = %d, want %d", c[0], 1<<30)
		}
		if d := c[3] + c[1]; d < -1 || d > 1 {
			t.Errorf("a1 %d is not the negation of b1 %d", c[3], c[1])
		}
		if d := c[4] + c[2]; d < -1 || d > 1 {
			t.Errorf("a2 %d is not the negation of b2 %d", c[4], c[2])
		}
	}
}

func TestPackCoefficientsLittleEndian(t *testing.T) {
	got := packCoefficients([5]int32{1 << 30, -1, 0, 0x01020304, 0})
	want := []byte{
		0x00, 0x00, 0x00, 0x40,
		0xFF, 0xFF, 0xFF, 0xFF,
		0x00, 0x00, 0x00, 0x00,
		0x04, 0x03, 0x02, 0x01,
		0x00, 0x00, 0x00, 0x00,
	}
	if string(got) != string(want) {
		t.Errorf("packCoefficients() = % x, want % x", got, want)
	}
}
