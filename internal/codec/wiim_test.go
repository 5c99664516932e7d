package codec

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/smazurov/peqlink/internal/peq"
)

func TestWiiMEncodeBandsOrder(t *testing.T) {
	bands := (WiiM{}).EncodeBands([]peq.Filter{
		{Type: peq.HighShelf, Freq: 8000, Gain: -2, Q: 0.7},
		{Type: peq.Peaking, Freq: 1000, Gain: 3, Q: 1, Disabled: true},
	})
	want := []WiiMBand{
		{"a_mode", 2}, {"b_mode", -1},
		{"a_freq", 8000}, {"a_q", 0.7}, {"a_gain", -2},
		{"b_freq", 1000}, {"b_q", 1}, {"b_gain", 3},
	}
	if len(bands) != len(want) {
		t.Fatalf("got %d params, want %d", len(bands), len(want))
	}
	for i := range want {
		if bands[i] != want[i] {
			t.Errorf("param %d = %+v, want %+v", i, bands[i], want[i])
		}
	}
}

func TestWiiMFilterTypes(t *testing.T) {
	tests := []struct {
		typ  peq.FilterType
		mode int
	}{
		{peq.LowShelf, 0},
		{peq.Peaking, 1},
		{peq.HighShelf, 2},
	}
	for _, tt := range tests {
		if got := (WiiM{}).EncodeFilterType(tt.typ); got != tt.mode {
			t.Errorf("EncodeFilterType(%s) = %d, want %d", tt.typ, got, tt.mode)
		}
		if got, on := (WiiM{}).DecodeFilterType(tt.mode); got != tt.typ || !on {
			t.Errorf("DecodeFilterType(%d) = %s, %v", tt.mode, got, on)
		}
	}
	if _, on := (WiiM{}).DecodeFilterType(-1); on {
		t.Error("mode -1 decoded as on")
	}
}

func TestWiiMDecodeBandsIgnoresUnknown(t *testing.T) {
	filters := (WiiM{}).DecodeBands([]WiiMBand{
		{"b_gain", 4},
		{"bypass", 1},
		{"b_freq", 300},
		{"a_mode", -1},
		{"b_mode", 0},
		{"ab_q", 9},
	})
	if len(filters) != 2 {
		t.Fatalf("got %d filters, want 2", len(filters))
	}
	if !filters[0].Disabled {
		t.Error("band a not disabled")
	}
	want := peq.Filter{Type: peq.LowShelf, Freq: 300, Gain: 4, Q: peq.DefaultQ}
	if filters[1] != want {
		t.Errorf("band b = %+v, want %+v", filters[1], want)
	}
}

func TestWiiMCommand(t *testing.T) {
	c := WiiM{}

	got, err := c.Command(WiiMCmdListPreset, WiiMPluginURI)
	if err != nil {
		t.Fatal(err)
	}
	if want := "EQv2GetList:http%3A%2F%2Fmoddevices.com%2Fplugins%2Fcaps%2FEqNp"; got != want {
		t.Errorf("Command(string) = %q, want %q", got, want)
	}

	got, err = c.Command(WiiMCmdSave, c.SavePayload())
	if err != nil {
		t.Fatal(err)
	}
	cmd, escaped, ok := strings.Cut(got, ":")
	if !ok || cmd != WiiMCmdSave {
		t.Fatalf("Command() = %q", got)
	}
	if strings.ContainsAny(escaped, "{}\" +") {
		t.Errorf("payload not escaped: %q", escaped)
	}
	raw, err := url.QueryUnescape(escaped)
	if err != nil {
		t.Fatal(err)
	}
	var src WiiMSource
	if err := json.Unmarshal([]byte(raw), &src); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if src != (WiiMSource{SourceName: "wifi", PluginURI: WiiMPluginURI, Name: "HeadphoneEQ"}) {
		t.Errorf("payload = %+v", src)
	}
}

func TestEncodeURIComponentSpaces(t *testing.T) {
	if got := EncodeURIComponent("a b+c"); got != "a%20b%2Bc" {
		t.Errorf("EncodeURIComponent() = %q", got)
	}
}
