package registry

import "github.com/smazurov/peqlink/internal/peq"

// Driver names. Each one selects a vendors.Handler.
const (
	HandlerFiiO     = "fiio"
	HandlerWalkplay = "walkplay"
	HandlerMoondrop = "moondrop"
	HandlerKTMicro  = "ktmicro"
	HandlerQudelix  = "qudelix"
	HandlerJDSLabs  = "jdslabs"
	HandlerWiiM     = "wiim"
)

func ptr[T any](v T) *T { return &v }

func neutral() *peq.Filter {
	f := peq.NeutralFilter()
	return &f
}

var fiioPresetSlots = []peq.Slot{
	{ID: 0, Name: "Jazz"}, {ID: 1, Name: "Pop"}, {ID: 2, Name: "Rock"}, {ID: 3, Name: "Dance"},
	{ID: 4, Name: "R&B"}, {ID: 5, Name: "Classic"}, {ID: 6, Name: "Hip-hop"}, {ID: 7, Name: "Monitor"},
	{ID: 160, Name: "USER1"}, {ID: 161, Name: "USER2"}, {ID: 162, Name: "USER3"}, {ID: 163, Name: "USER4"},
	{ID: 164, Name: "USER5"}, {ID: 165, Name: "USER6"}, {ID: 166, Name: "USER7"}, {ID: 167, Name: "USER8"},
	{ID: 168, Name: "USER9"}, {ID: 169, Name: "USER10"},
}

// Ten-band FiiO dongles with three user slots. USER1 sits at id 4 on these.
var fiioTenBandSlots = []peq.Slot{
	{ID: 0, Name: "Jazz"}, {ID: 1, Name: "Pop"}, {ID: 2, Name: "Rock"}, {ID: 3, Name: "Dance"},
	{ID: 5, Name: "R&B"}, {ID: 6, Name: "Classic"}, {ID: 7, Name: "Hip-hop"},
	{ID: 4, Name: "USER1"}, {ID: 8, Name: "USER2"}, {ID: 9, Name: "USER3"},
}

var fiioSequentialSlots = []peq.Slot{
	{ID: 0, Name: "Jazz"}, {ID: 1, Name: "Pop"}, {ID: 2, Name: "Rock"}, {ID: 3, Name: "Dance"},
	{ID: 4, Name: "R&B"}, {ID: 5, Name: "Classic"}, {ID: 6, Name: "Hip-hop"},
	{ID: 7, Name: "USER1"}, {ID: 8, Name: "USER2"}, {ID: 9, Name: "USER3"},
}

func fiioTenBand(disabled int, reportID *int, slots []peq.Slot) ModelConfig {
	return ModelConfig{
		MinGain:             ptr(-12.0),
		MaxGain:             ptr(12.0),
		MaxFilters:          ptr(10),
		FirstWritableEQSlot: ptr(7),
		MaxWritableEQSlots:  ptr(3),
		DisconnectOnSave:    ptr(false),
		DisabledPresetID:    ptr(disabled),
		Experimental:        ptr(false),
		ReportID:            reportID,
		AvailableSlots:      slots,
	}
}

func scheme(no int, experimental bool) ModelConfig {
	m := ModelConfig{SchemeNo: ptr(no)}
	if experimental {
		m.Experimental = ptr(true)
	}
	return m
}

func scheme16(experimental bool) ModelConfig {
	m := scheme(16, experimental)
	m.MaxFilters = ptr(10)
	return m
}

// Builtin returns the compiled-in catalogue.
func Builtin() *Catalog {
	return &Catalog{Vendors: []Vendor{
		fiioVendor(),
		walkplayVendor(),
		ktmicroVendor(),
		jdsLabsVendor(),
		wiimVendor(),
	}}
}

func fiioVendor() Vendor {
	return Vendor{
		Name:         "FiiO",
		VendorIDs:    []uint16{0x2972, 0x0A12},
		Manufacturer: "FiiO",
		Handler:      HandlerFiiO,
		Transport:    peq.TransportHID,
		DefaultModelConfig: ModelConfig{
			MinGain:             ptr(-12.0),
			MaxGain:             ptr(12.0),
			MaxFilters:          ptr(5),
			FirstWritableEQSlot: ptr(-1),
			MaxWritableEQSlots:  ptr(0),
			DisconnectOnSave:    ptr(true),
			DisabledPresetID:    ptr(-1),
			Experimental:        ptr(true),
			SupportsLSHSFilters: ptr(true),
			SupportsPregain:     ptr(true),
			DefaultResetFilter:  neutral(),
			ReportID:            ptr(7),
			AvailableSlots:      fiioPresetSlots,
		},
		Devices: map[string]Device{
			"SNOWSKY Melody": {ModelConfig: ModelConfig{
				MaxFilters:          ptr(5),
				FirstWritableEQSlot: ptr(-1),
				MaxWritableEQSlots:  ptr(0),
				DisconnectOnSave:    ptr(true),
			}},
			"JadeAudio JIEZI": {ModelConfig: ModelConfig{
				MaxFilters:          ptr(5),
				FirstWritableEQSlot: ptr(3),
				MaxWritableEQSlots:  ptr(1),
				DisconnectOnSave:    ptr(true),
				DisabledPresetID:    ptr(4),
				Experimental:        ptr(false),
				ReportID:            ptr(2),
			}},
			"JadeAudio JA11": {ModelConfig: ModelConfig{
				MaxFilters:          ptr(5),
				FirstWritableEQSlot: ptr(3),
				MaxWritableEQSlots:  ptr(1),
				DisconnectOnSave:    ptr(true),
				DisabledPresetID:    ptr(4),
				Experimental:        ptr(false),
				ReportID:            ptr(2),
				AvailableSlots: []peq.Slot{
					{ID: 0, Name: "Vocal"}, {ID: 1, Name: "Classic"}, {ID: 2, Name: "Bass"}, {ID: 3, Name: "USER1"},
				},
			}},
			"FIIO KA17":           {ModelConfig: fiioTenBand(11, ptr(1), fiioTenBandSlots)},
			"FIIO Q7":             {ModelConfig: fiioTenBand(11, ptr(1), fiioTenBandSlots)},
			"FIIO KA17 (MQA HID)": {ModelConfig: fiioTenBand(11, ptr(1), fiioTenBandSlots)},
			"FIIO BT11 (UAC1.0)":  {ModelConfig: fiioTenBand(11, ptr(1), fiioTenBandSlots)},
			"FIIO Air Link":       {ModelConfig: fiioTenBand(11, ptr(1), fiioTenBandSlots)},
			"FIIO BTR13":          {ModelConfig: fiioTenBand(12, nil, fiioSequentialSlots)},
			"BTR17":               {ModelConfig: fiioTenBand(11, nil, nil)},
			"FIIO KA15":           {ModelConfig: fiioTenBand(11, nil, fiioSequentialSlots)},
			"LS-TC2": {ModelConfig: ModelConfig{
				MaxFilters:          ptr(5),
				FirstWritableEQSlot: ptr(3),
				MaxWritableEQSlots:  ptr(1),
				DisconnectOnSave:    ptr(true),
				DisabledPresetID:    ptr(11),
				Experimental:        ptr(true),
				AvailableSlots: []peq.Slot{
					{ID: 0, Name: "Vocal"}, {ID: 1, Name: "Classic"}, {ID: 2, Name: "Bass"}, {ID: 3, Name: "Dance"},
					{ID: 4, Name: "R&B"}, {ID: 5, Name: "Classic"}, {ID: 6, Name: "Hip-hop"}, {ID: 160, Name: "USER1"},
				},
			}},
			"Qudelix-5K USB DAC 48KHz": {
				Manufacturer: "Qudelix",
				Handler:      HandlerQudelix,
				ModelConfig: ModelConfig{
					MaxFilters:          ptr(10),
					FirstWritableEQSlot: ptr(1),
					MaxWritableEQSlots:  ptr(4),
					DisconnectOnSave:    ptr(false),
					DisabledPresetID:    ptr(-1),
					Experimental:        ptr(true),
					AvailableSlots: []peq.Slot{
						{ID: 101, Name: "Custom"}, {ID: 1, Name: "Preset 1"}, {ID: 2, Name: "Preset 2"},
						{ID: 3, Name: "Preset 3"}, {ID: 4, Name: "Preset 4"},
					},
				},
			},
		},
	}
}

func walkplayVendor() Vendor {
	moondrop := func(m ModelConfig) Device {
		return Device{Manufacturer: "Moondrop", Handler: HandlerMoondrop, ModelConfig: m}
	}
	return Vendor{
		Name:         "WalkPlay",
		VendorIDs:    []uint16{0x3302, 0x0762, 0x35D8, 0x2FC6, 0x0104, 0xB445, 0x0661, 0x0666, 0x0D8C},
		Manufacturer: "WalkPlay",
		Handler:      HandlerWalkplay,
		Transport:    peq.TransportHID,
		DefaultModelConfig: ModelConfig{
			MinGain:             ptr(-12.0),
			MaxGain:             ptr(6.0),
			MaxFilters:          ptr(8),
			SchemeNo:            ptr(10),
			FirstWritableEQSlot: ptr(-1),
			MaxWritableEQSlots:  ptr(0),
			DisconnectOnSave:    ptr(false),
			DisabledPresetID:    ptr(-1),
			SupportsPregain:     ptr(true),
			DefaultResetFilter:  neutral(),
			SupportsLSHSFilters: ptr(false),
			Experimental:        ptr(false),
			AvailableSlots:      []peq.Slot{{ID: 101, Name: "Custom"}},
		},
		// Several keys carry a trailing space because that is the USB
		// product string the firmware reports.
		Devices: map[string]Device{
			"FIIO FX17 ": {
				Manufacturer: "FiiO",
				Handler:      HandlerFiiO,
				ModelConfig: ModelConfig{
					MaxGain:             ptr(12.0),
					MaxFilters:          ptr(10),
					FirstWritableEQSlot: ptr(7),
					MaxWritableEQSlots:  ptr(3),
					DisabledPresetID:    ptr(11),
					Experimental:        ptr(false),
					AvailableSlots:      fiioPresetSlots,
				},
			},
			"Rays":                    moondrop(ModelConfig{SupportsLSHSFilters: ptr(false), SupportsPregain: ptr(true)}),
			"Marigold":                moondrop(ModelConfig{SupportsLSHSFilters: ptr(false), SupportsPregain: ptr(true)}),
			"FreeDSP Pro":             moondrop(ModelConfig{}),
			"ddHiFi DSP IEM - Memory": moondrop(ModelConfig{}),
			"EPZ TP13 AI ENC audio": {
				Manufacturer: "EPZ",
				ModelConfig:  ModelConfig{SupportsLSHSFilters: ptr(false), SupportsPregain: ptr(true)},
			},
			"Quark2":                      {Manufacturer: "Moondrop"},
			"ECHO-A":                      {Manufacturer: "Moondrop"},
			"Hi-MAX":                      {ModelConfig: ModelConfig{Experimental: ptr(false)}},
			"BGVP MX1":                    {ModelConfig: scheme(15, true)},
			"DT04":                        {Manufacturer: "LETSHUOER", ModelConfig: scheme(15, true)},
			"MD-QT-042":                   {Manufacturer: "Moondrop", ModelConfig: scheme(15, true)},
			"MOONDROP HiFi with PD":       {Manufacturer: "Moondrop", ModelConfig: scheme(15, true)},
			"DAWN PRO 2":                  {Manufacturer: "Moondrop", ModelConfig: scheme(15, true)},
			"CS431XX":                     {ModelConfig: scheme(15, true)},
			"ES9039 ":                     {ModelConfig: scheme(15, true)},
			"Dual CS43198":                {ModelConfig: scheme(15, true)},
			"ES9039 HiFi DSP Audio":       {ModelConfig: scheme(15, true)},
			"didiHiFi DSP Cable - Memory": {Manufacturer: "ddHifi", ModelConfig: scheme(15, true)},
			"TANCHJIM-STARGATE II": {
				Manufacturer: "Tanchim",
				ModelConfig:  ModelConfig{SchemeNo: ptr(15), SupportsLSHSFilters: ptr(false)},
			},
			"AE6":                    {ModelConfig: scheme16(true)},
			"KM_HA03":                {ModelConfig: scheme16(true)},
			"TP35 Pro":               {ModelConfig: scheme16(false)},
			"DA5":                    {ModelConfig: scheme16(true)},
			"G303":                   {ModelConfig: scheme16(true)},
			"HiFi DSP Audio with PD": {Manufacturer: "ddHifi", ModelConfig: scheme16(true)},
		},
	}
}

func ktmicroVendor() Vendor {
	return Vendor{
		Name:         "KT Micro",
		VendorIDs:    []uint16{0x31B2},
		Manufacturer: "KT Micro",
		Handler:      HandlerKTMicro,
		Transport:    peq.TransportHID,
		DefaultModelConfig: ModelConfig{
			MinGain:             ptr(-12.0),
			MaxGain:             ptr(12.0),
			MaxFilters:          ptr(5),
			FirstWritableEQSlot: ptr(-1),
			MaxWritableEQSlots:  ptr(0),
			Compensate2X:        ptr(true),
			DisconnectOnSave:    ptr(true),
			DisabledPresetID:    ptr(0x02),
			Experimental:        ptr(false),
			SupportsPregain:     ptr(false),
			SupportsLSHSFilters: ptr(true),
			DefaultResetFilter:  neutral(),
			AvailableSlots:      []peq.Slot{{ID: 0x03, Name: "Custom"}},
		},
		Devices: map[string]Device{
			"Kiwi Ears-Allegro PRO": {
				Manufacturer: "Kiwi Ears",
				ModelConfig:  ModelConfig{SupportsLSHSFilters: ptr(false), DisconnectOnSave: ptr(true)},
			},
			"KT02H20 HIFI Audio": {
				Manufacturer: "JCally",
				ModelConfig:  ModelConfig{SupportsLSHSFilters: ptr(false)},
			},
			"TANCHJIM BUNNY DSP": {
				Manufacturer: "TANCHJIM",
				ModelConfig:  ModelConfig{Compensate2X: ptr(false), SupportsPregain: ptr(true)},
			},
			"CDSP":     {Manufacturer: "Moondrop", ModelConfig: ModelConfig{Compensate2X: ptr(false)}},
			"Chu2 DSP": {Manufacturer: "Moondrop", ModelConfig: ModelConfig{Compensate2X: ptr(false)}},
		},
	}
}

func jdsLabsVendor() Vendor {
	return Vendor{
		Name:         "JDS Labs",
		VendorIDs:    []uint16{0x152A},
		Manufacturer: "JDS Labs",
		Handler:      HandlerJDSLabs,
		Transport:    peq.TransportSerial,
		Devices: map[string]Device{
			"Element IV": {
				ProductID: 35066,
				ModelConfig: ModelConfig{
					MinGain:             ptr(-12.0),
					MaxGain:             ptr(12.0),
					MaxFilters:          ptr(10),
					FirstWritableEQSlot: ptr(0),
					MaxWritableEQSlots:  ptr(1),
					DisconnectOnSave:    ptr(false),
					DisabledPresetID:    ptr(-1),
					Experimental:        ptr(true),
					AvailableSlots:      []peq.Slot{{ID: 0, Name: "Headphones"}, {ID: 1, Name: "RCA"}},
				},
			},
		},
	}
}

// WiiM devices are reached by IP and pick their vendor by name.
func wiimVendor() Vendor {
	return Vendor{
		Name:         "WiiM",
		Manufacturer: "WiiM",
		Handler:      HandlerWiiM,
		Transport:    peq.TransportNetwork,
		DefaultModelConfig: ModelConfig{
			MinGain:             ptr(-12.0),
			MaxGain:             ptr(12.0),
			MaxFilters:          ptr(10),
			FirstWritableEQSlot: ptr(0),
			MaxWritableEQSlots:  ptr(1),
			DisconnectOnSave:    ptr(false),
			DisabledPresetID:    ptr(-1),
			DefaultResetFilter:  neutral(),
			AvailableSlots:      []peq.Slot{{ID: 0, Name: "HeadphoneEQ"}},
		},
	}
}
