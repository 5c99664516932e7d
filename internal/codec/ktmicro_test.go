package codec

import (
	"bytes"
	"testing"

	"github.com/smazurov/peqlink/internal/peq"
)

func TestKTMicroBandFields(t *testing.T) {
	tests := []struct {
		index  int
		gf, qt byte
	}{
		{0, 0x26, 0x27},
		{1, 0x28, 0x29},
		{4, 0x2E, 0x2F},
	}
	for _, tt := range tests {
		gf, qt := (KTMicro{}).BandFields(tt.index)
		if gf != tt.gf || qt != tt.qt {
			t.Errorf("BandFields(%d) = %#x, %#x, want %#x, %#x", tt.index, gf, qt, tt.gf, tt.qt)
		}
	}
}

func TestKTMicroEncodeFilter(t *testing.T) {
	f := peq.Filter{Type: peq.LowShelf, Freq: 100, Gain: -3.5, Q: 0.707}

	gf, qt := (KTMicro{}).EncodeFilter(1, f)
	wantGF := []byte{0x28, 0x00, 0x00, 0x00, 0x57, 0x00, 0xDD, 0xFF, 0x64, 0x00}
	wantQT := []byte{0x29, 0x00, 0x00, 0x00, 0x57, 0x00, 0xC3, 0x02, 0x03, 0x00}
	if !bytes.Equal(gf, wantGF) {
		t.Errorf("gain/freq = % X, want % X", gf, wantGF)
	}
	if !bytes.Equal(qt, wantQT) {
		t.Errorf("q/type = % X, want % X", qt, wantQT)
	}

	// Doubling devices get half the frequency on the wire.
	comp := KTMicro{Compensate2X: true}
	gf, qt = comp.EncodeFilter(1, f)
	if gf[8] != 50 || gf[9] != 0 {
		t.Errorf("compensated freq bytes = % X, want 32 00", gf[8:10])
	}
	if got := comp.DecodeFilter(gf, qt).Freq; got != 100 {
		t.Errorf("compensated decode freq = %v, want 100", got)
	}
}

func TestKTMicroQueries(t *testing.T) {
	c := KTMicro{}
	gf, qt := c.QueryFilter(0)
	tests := []struct {
		name string
		got  []byte
		want []byte
	}{
		{"read gain/freq", gf, []byte{0x26, 0x00, 0x00, 0x00, 0x52, 0x00, 0x00, 0x00, 0x00}},
		{"read q/type", qt, []byte{0x27, 0x00, 0x00, 0x00, 0x52, 0x00, 0x00, 0x00, 0x00}},
		{"read slot", c.QuerySlot(), []byte{0x24, 0x00, 0x00, 0x00, 0x52, 0x00, 0x03, 0x00, 0x00, 0x00}},
		{"select slot", c.EncodeSlotSelect(3), []byte{0x24, 0x00, 0x00, 0x00, 0x57, 0x00, 0x03, 0x00, 0x00, 0x00}},
		{"pregain", c.EncodeGlobalGain(-3), []byte{0x66, 0x00, 0x00, 0x00, 0x57, 0x00, 0xFD, 0x00, 0x00}},
		{"read pregain", c.QueryGlobalGain(), []byte{0x66, 0x00, 0x00, 0x00, 0x52, 0x00, 0x00, 0x00, 0x00}},
		{"commit", c.EncodeCommit(), []byte{0x00, 0x00, 0x00, 0x00, 0x53, 0x00, 0x00, 0x00, 0x00, 0x00}},
		{"clear", c.EncodeClear(), []byte{0x00, 0x00, 0x00, 0x00, 0x43, 0x00, 0x00, 0x00, 0x00, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !bytes.Equal(tt.got, tt.want) {
				t.Errorf("got % X, want % X", tt.got, tt.want)
			}
		})
	}
}

func TestKTMicroDecodeResponses(t *testing.T) {
	c := KTMicro{}
	resp := []byte{0x26, 0x00, 0x00, 0x00, 0x52, 0x00, 0x3C, 0x00, 0xE8, 0x03}
	if !c.IsFieldResponse(resp, 0x26) {
		t.Error("field response not matched")
	}
	if c.IsFieldResponse(resp, 0x27) {
		t.Error("field response matched the wrong field")
	}
	if gain, freq := c.DecodeGainFreq(resp); gain != 6 || freq != 1000 {
		t.Errorf("DecodeGainFreq() = %v, %v, want 6, 1000", gain, freq)
	}
	if got := c.DecodeSlotID([]byte{0x24, 0, 0, 0, 0x52, 0, 0x02}); got != 2 {
		t.Errorf("DecodeSlotID() = %d, want 2", got)
	}
	if got := c.DecodeGlobalGain([]byte{0x66, 0, 0, 0, 0x52, 0, 0xFA}); got != -6 {
		t.Errorf("DecodeGlobalGain() = %v, want -6", got)
	}
}
