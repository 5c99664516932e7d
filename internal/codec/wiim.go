package codec

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/smazurov/peqlink/internal/peq"
)

// WiiM HTTP API constants.
const (
	WiiMPluginURI  = "http://moddevices.com/plugins/caps/EqNp"
	WiiMSourceName = "wifi"
	WiiMPresetName = "HeadphoneEQ"

	WiiMCmdSetBand    = "EQSetLV2SourceBand"
	WiiMCmdGetBand    = "EQGetLV2SourceBandEx"
	WiiMCmdSave       = "EQSourceSave"
	WiiMCmdEnable     = "EQChangeSourceFX"
	WiiMCmdDisable    = "EQSourceOff"
	WiiMCmdListPreset = "EQv2GetList"

	wiimModeOff       = -1
	wiimModeLowShelf  = 0
	wiimModePeak      = 1
	wiimModeHighShelf = 2
)

// WiiMBand is one named band parameter.
type WiiMBand struct {
	ParamName string  `json:"param_name"`
	Value     float64 `json:"value"`
}

// WiiMSetBand is the EQSetLV2SourceBand payload.
type WiiMSetBand struct {
	PluginURI   string     `json:"pluginURI"`
	SourceName  string     `json:"source_name"`
	EQBand      []WiiMBand `json:"EQBand"`
	EQStat      string     `json:"EQStat"`
	ChannelMode string     `json:"channelMode"`
}

// WiiMSource addresses the EQ of a source.
type WiiMSource struct {
	SourceName string `json:"source_name"`
	PluginURI  string `json:"pluginURI"`
	Name       string `json:"Name,omitempty"`
}

// WiiMResponse is the JSON body the device answers with.
type WiiMResponse struct {
	Status string     `json:"status"`
	EQBand []WiiMBand `json:"EQBand,omitempty"`
}

// OK reports whether the device accepted the command.
func (r WiiMResponse) OK() bool { return r.Status == "OK" }

// WiiM encodes the WiiM / LinkPlay HTTP API.
type WiiM struct{}

// EncodeFilterType maps a filter type to a WiiM band mode.
func (WiiM) EncodeFilterType(t peq.FilterType) int {
	switch t {
	case peq.LowShelf:
		return wiimModeLowShelf
	case peq.HighShelf:
		return wiimModeHighShelf
	default:
		return wiimModePeak
	}
}

// DecodeFilterType maps a band mode back. The second result is false for
// the "off" mode and for unknown modes.
func (WiiM) DecodeFilterType(mode int) (peq.FilterType, bool) {
	switch mode {
	case wiimModeLowShelf:
		return peq.LowShelf, true
	case wiimModePeak:
		return peq.Peaking, true
	case wiimModeHighShelf:
		return peq.HighShelf, true
	default:
		return peq.Peaking, false
	}
}

func bandLetter(index int) string {
	return string(rune('a' + index))
}

// EncodeBands lays out every mode first, then frequency, Q and gain per band.
func (c WiiM) EncodeBands(filters []peq.Filter) []WiiMBand {
	bands := make([]WiiMBand, 0, len(filters)*4)
	for i, f := range filters {
		mode := c.EncodeFilterType(f.Type)
		if f.Disabled {
			mode = wiimModeOff
		}
		bands = append(bands, WiiMBand{ParamName: bandLetter(i) + "_mode", Value: float64(mode)})
	}
	for i, f := range filters {
		l := bandLetter(i)
		bands = append(bands,
			WiiMBand{ParamName: l + "_freq", Value: f.Freq},
			WiiMBand{ParamName: l + "_q", Value: f.Q},
			WiiMBand{ParamName: l + "_gain", Value: f.Gain},
		)
	}
	return bands
}

// DecodeBands rebuilds filters from named band parameters in any order.
// Parameters with an unrecognized name are ignored.
func (c WiiM) DecodeBands(bands []WiiMBand) []peq.Filter {
	var filters []peq.Filter
	grow := func(i int) {
		for len(filters) <= i {
			filters = append(filters, peq.Filter{Type: peq.Peaking, Q: peq.DefaultQ})
		}
	}
	for _, b := range bands {
		letter, field, ok := strings.Cut(b.ParamName, "_")
		if !ok || len(letter) != 1 || letter[0] < 'a' || letter[0] > 'z' {
			continue
		}
		i := int(letter[0] - 'a')
		switch field {
		case "mode":
			grow(i)
			t, on := c.DecodeFilterType(int(b.Value))
			filters[i].Type = t
			filters[i].Disabled = !on
		case "freq":
			grow(i)
			filters[i].Freq = b.Value
		case "q":
			grow(i)
			filters[i].Q = b.Value
		case "gain":
			grow(i)
			filters[i].Gain = b.Value
		}
	}
	return filters
}

// SetBandPayload builds the EQSetLV2SourceBand payload.
func (c WiiM) SetBandPayload(filters []peq.Filter) WiiMSetBand {
	return WiiMSetBand{
		PluginURI:   WiiMPluginURI,
		SourceName:  WiiMSourceName,
		EQBand:      c.EncodeBands(filters),
		EQStat:      "On",
		ChannelMode: "Stereo",
	}
}

// SourcePayload addresses the wifi source EQ.
func (WiiM) SourcePayload() WiiMSource {
	return WiiMSource{SourceName: WiiMSourceName, PluginURI: WiiMPluginURI}
}

// SavePayload names the saved preset.
func (c WiiM) SavePayload() WiiMSource {
	p := c.SourcePayload()
	p.Name = WiiMPresetName
	return p
}

// EncodeURIComponent escapes s the way browsers escape a query component.
func EncodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Command renders the value of the command query parameter, "Cmd:" followed
// by the escaped payload. A string payload is escaped as-is, anything else
// as JSON.
func (WiiM) Command(cmd string, payload any) (string, error) {
	var body string
	switch p := payload.(type) {
	case string:
		body = p
	default:
		raw, err := json.Marshal(p)
		if err != nil {
			return "", fmt.Errorf("encode %s payload: %w", cmd, err)
		}
		body = string(raw)
	}
	return cmd + ":" + EncodeURIComponent(body), nil
}
