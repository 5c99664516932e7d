package codec

import (
	"bytes"
	"testing"

	"github.com/smazurov/peqlink/internal/peq"
)

func TestWalkplayEncodeFilterLayout(t *testing.T) {
	p := (Walkplay{}).EncodeFilter(4, peq.Filter{Type: peq.LowShelf, Freq: 105.7, Gain: -6, Q: 0.5}, 101)
	if len(p) != WalkplayMinSlotReport {
		t.Fatalf("len = %d, want %d", len(p), WalkplayMinSlotReport)
	}
	if !bytes.Equal(p[:7], []byte{0x01, 0x09, 0x18, 0x00, 0x04, 0x00, 0x00}) {
		t.Errorf("header = % X", p[:7])
	}
	// Frequency is truncated, not rounded.
	want := []byte{0x69, 0x00, 0x80, 0x00, 0x00, 0xFA, 0x01, 0x00, 0x65, 0x00}
	if !bytes.Equal(p[27:], want) {
		t.Errorf("parameters = % X, want % X", p[27:], want)
	}
	if got := (Walkplay{}).DecodeSlotID(p); got != 101 {
		t.Errorf("DecodeSlotID() = %d, want 101", got)
	}
}

func TestWalkplayShortFrames(t *testing.T) {
	c := Walkplay{}
	tests := []struct {
		name string
		got  []byte
		want []byte
	}{
		{"global gain", c.EncodeGlobalGain(-6), []byte{0x01, 0x03, 0x00, 0x00, 0xFA}},
		{"temp write", c.EncodeTempWrite(), []byte{0x01, 0x0A, 0x04, 0x00, 0x00, 0xFF, 0xFF, 0x00}},
		{"flash", c.EncodeFlash(), []byte{0x01, 0x01, 0x01, 0x00}},
		{"enable slot", c.EncodeSlotSelect(true, 3), []byte{0x01, 0x01, 0x01, 0x03, 0x00}},
		{"disable", c.EncodeSlotSelect(false, 3), []byte{0x01, 0x01, 0x00, 0x00, 0x00}},
		{"read band", c.QueryFilter(7), []byte{0x80, 0x09, 0x00, 0x00, 0x07, 0x00}},
		{"read header", c.QueryCurrent(), []byte{0x80, 0x09, 0x00}},
		{"read version", c.QueryVersion(), []byte{0x80, 0x0C, 0x00}},
		{"read gain", c.QueryGlobalGain(), []byte{0x80, 0x03, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !bytes.Equal(tt.got, tt.want) {
				t.Errorf("got % X, want % X", tt.got, tt.want)
			}
		})
	}
}

func TestWalkplayDecodeScalars(t *testing.T) {
	c := Walkplay{}
	if got := c.DecodeGlobalGain([]byte{0x80, 0x03, 0x00, 0x00, 0xFD}); got != -3 {
		t.Errorf("DecodeGlobalGain() = %v, want -3", got)
	}
	if got := c.DecodeSlotID(make([]byte, 35)); got != -1 {
		t.Errorf("DecodeSlotID(short) = %d, want -1", got)
	}
	if got := c.DecodeVersion([]byte{0x80, 0x0C, 0x00, '1', '.', '3'}); got != "1.3" {
		t.Errorf("DecodeVersion() = %q, want 1.3", got)
	}
	if got := c.DecodeVersion([]byte{0x80, 0x0C}); got != "" {
		t.Errorf("DecodeVersion(short) = %q, want empty", got)
	}
	if !c.IsResponse([]byte{0x80, 0x0C, 0x00}, WalkplayCmdVersion) {
		t.Error("version response not matched")
	}
	if c.IsFilterReport(make([]byte, 31)) {
		t.Error("31-byte report treated as a band")
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1.3", 1.3, true},
		{"2.0", 2, true},
		{"10.", 10, true},
		{"1.2a", 1.2, true},
		{"", 0, false},
		{"abc", 0, false},
		{"\x00\x00\x00", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseVersion(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseVersion(%q) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
