package codec

import (
	"bytes"
	"testing"

	"github.com/smazurov/peqlink/internal/peq"
)

func TestFiiOFrames(t *testing.T) {
	c := FiiO{}
	tests := []struct {
		name string
		got  []byte
		want []byte
	}{
		{
			name: "filter",
			got:  c.EncodeFilter(2, peq.Filter{Type: peq.Peaking, Freq: 1000, Gain: -3.5, Q: 1.41}),
			want: []byte{0xAA, 0x0A, 0x00, 0x00, 0x15, 0x08, 0x02, 0xFF, 0xDD, 0x03, 0xE8, 0x00, 0x8D, 0x00, 0x00, 0xEE},
		},
		{
			name: "high shelf filter",
			got:  c.EncodeFilter(0, peq.Filter{Type: peq.HighShelf, Freq: 10000, Gain: 4, Q: 0.71}),
			want: []byte{0xAA, 0x0A, 0x00, 0x00, 0x15, 0x08, 0x00, 0x00, 0x28, 0x27, 0x10, 0x00, 0x47, 0x02, 0x00, 0xEE},
		},
		{
			name: "global gain",
			got:  c.EncodeGlobalGain(6),
			want: []byte{0xAA, 0x0A, 0x00, 0x00, 0x17, 0x02, 0x00, 0x3C, 0x00, 0xEE},
		},
		{
			name: "negative global gain",
			got:  c.EncodeGlobalGain(-2),
			want: []byte{0xAA, 0x0A, 0x00, 0x00, 0x17, 0x02, 0xFF, 0xEC, 0x00, 0xEE},
		},
		{
			name: "filter count",
			got:  c.EncodeFilterCount(5),
			want: []byte{0xAA, 0x0A, 0x00, 0x00, 0x18, 0x01, 0x05, 0x00, 0xEE},
		},
		{
			name: "preset switch",
			got:  c.EncodeSlotSelect(160),
			want: []byte{0xAA, 0x0A, 0x00, 0x00, 0x16, 0x01, 0xA0, 0x00, 0xEE},
		},
		{
			name: "save",
			got:  c.EncodeSave(161),
			want: []byte{0xAA, 0x0A, 0x00, 0x00, 0x19, 0x01, 0xA1, 0x00, 0xEE},
		},
		{
			name: "query filter",
			got:  c.QueryFilter(3),
			want: []byte{0xBB, 0x0B, 0x00, 0x00, 0x15, 0x01, 0x03, 0x00, 0xEE},
		},
		{
			name: "query gain",
			got:  c.QueryGlobalGain(),
			want: []byte{0xBB, 0x0B, 0x00, 0x00, 0x17, 0x00, 0x00, 0xEE},
		},
		{
			name: "query count",
			got:  c.QueryFilterCount(),
			want: []byte{0xBB, 0x0B, 0x00, 0x00, 0x18, 0x00, 0x00, 0xEE},
		},
		{
			name: "query preset",
			got:  c.QuerySlot(),
			want: []byte{0xBB, 0x0B, 0x00, 0x00, 0x16, 0x00, 0x00, 0xEE},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !bytes.Equal(tt.got, tt.want) {
				t.Errorf("got % X, want % X", tt.got, tt.want)
			}
		})
	}
}

func TestFiiODecodeResponses(t *testing.T) {
	c := FiiO{}

	gain := []byte{0xBB, 0x0B, 0x00, 0x00, 0x17, 0x02, 0xFF, 0xEC, 0x00, 0xEE}
	if cmd, ok := c.ResponseCommand(gain); !ok || cmd != FiiOCmdGlobalGain {
		t.Fatalf("ResponseCommand() = %#x, %v", cmd, ok)
	}
	if got := c.DecodeGlobalGain(gain); got != -2 {
		t.Errorf("DecodeGlobalGain() = %v, want -2", got)
	}

	count := []byte{0xBB, 0x0B, 0x00, 0x00, 0x18, 0x01, 0x07, 0x00, 0xEE}
	if got := c.DecodeFilterCount(count); got != 7 {
		t.Errorf("DecodeFilterCount() = %d, want 7", got)
	}

	preset := []byte{0xBB, 0x0B, 0x00, 0x00, 0x16, 0x01, 0x04, 0x00, 0xEE}
	if got := c.DecodeSlotID(preset, 4); got != peq.DisabledSlotID {
		t.Errorf("DecodeSlotID(disabled) = %d, want %d", got, peq.DisabledSlotID)
	}
	if got := c.DecodeSlotID(preset, 11); got != 4 {
		t.Errorf("DecodeSlotID() = %d, want 4", got)
	}

	if _, ok := c.ResponseCommand([]byte{0xAA, 0x0A, 0x00, 0x00, 0x17}); ok {
		t.Error("set frame accepted as a get response")
	}
}

func TestFiiODecodeUnusedBand(t *testing.T) {
	resp := []byte{0xBB, 0x0B, 0x00, 0x00, 0x15, 0x08, 0x04, 0, 0, 0, 0, 0, 0, 0, 0, 0xEE}
	idx, f := (FiiO{}).DecodeFilter(resp)
	if idx != 4 {
		t.Errorf("index = %d, want 4", idx)
	}
	if !f.Disabled {
		t.Error("all-zero band not disabled")
	}
	if f.Q != 1 {
		t.Errorf("q = %v, want 1", f.Q)
	}
}

func TestFiiOBandTruncates(t *testing.T) {
	c := FiiO{}
	tests := []struct {
		name     string
		filter   peq.Filter
		wantGain []byte
		wantFreq []byte
	}{
		{"small negative gain", peq.Filter{Type: peq.Peaking, Freq: 1000, Gain: -0.15, Q: 1}, []byte{0xFF, 0xFF}, []byte{0x03, 0xE8}},
		{"fractional positive gain", peq.Filter{Type: peq.Peaking, Freq: 1000, Gain: 2.56, Q: 1}, []byte{0x00, 0x19}, []byte{0x03, 0xE8}},
		{"fractional negative gain", peq.Filter{Type: peq.Peaking, Freq: 1000, Gain: -2.56, Q: 1}, []byte{0xFF, 0xE7}, []byte{0x03, 0xE8}},
		{"fractional frequency", peq.Filter{Type: peq.Peaking, Freq: 1000.7, Gain: 1, Q: 1}, []byte{0x00, 0x0A}, []byte{0x03, 0xE8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := c.EncodeFilter(0, tt.filter)
			if !bytes.Equal(frame[7:9], tt.wantGain) {
				t.Errorf("gain bytes = % X, want % X", frame[7:9], tt.wantGain)
			}
			if !bytes.Equal(frame[9:11], tt.wantFreq) {
				t.Errorf("freq bytes = % X, want % X", frame[9:11], tt.wantFreq)
			}
		})
	}

	// global gain keeps rounding
	if got := c.EncodeGlobalGain(2.56); got[6] != 0x00 || got[7] != 0x1A {
		t.Errorf("global gain bytes = % X, want 00 1A", got[6:8])
	}
}
