package orchestrator

import (
	"strings"
	"testing"

	"github.com/smazurov/peqlink/internal/peq"
)

func pk(freq, gain, q float64) peq.Filter {
	return peq.Filter{Type: peq.Peaking, Freq: freq, Gain: gain, Q: q}
}

func capability(maxFilters int, shelves, pregain bool, reset *peq.Filter) peq.Capability {
	return peq.Capability{
		MaxFilters:          maxFilters,
		SupportsLSHSFilters: shelves,
		SupportsPregain:     pregain,
		DefaultResetFilter:  reset,
	}
}

func codes(ws []peq.Warning) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Code
	}
	return out
}

func TestValidateTruncates(t *testing.T) {
	in := make([]peq.Filter, 12)
	for i := range in {
		in[i] = pk(float64(100+i), 1, 1)
	}
	plan := Validate(capability(5, true, true, nil), nil, in)

	if len(plan.Filters) != 5 {
		t.Fatalf("len(Filters) = %d, want 5", len(plan.Filters))
	}
	if plan.Filters[4].Freq != 104 {
		t.Errorf("kept the wrong filters: %+v", plan.Filters)
	}
	n := 0
	for _, w := range plan.Warnings {
		if w.Code == peq.WarnFiltersTruncated {
			n++
			want := "This device only supports 5 PEQ filters - only first 5 will be applied."
			if w.Message != want {
				t.Errorf("message = %q", w.Message)
			}
		}
	}
	if n != 1 {
		t.Errorf("truncation warnings = %d, want 1", n)
	}
	if len(in) != 12 {
		t.Error("input slice was modified")
	}
}

func TestValidateClamps(t *testing.T) {
	in := []peq.Filter{
		pk(10, 1, 1),
		pk(30000, 1, 1),
		pk(1000, 1, 0),
		pk(1000, 1, 250),
		pk(20, 1, 0.01),
	}
	plan := Validate(capability(10, true, true, nil), nil, in)

	want := []peq.Filter{
		pk(100, 1, 1),
		pk(100, 1, 1),
		pk(1000, 1, 1),
		pk(1000, 1, 1),
		pk(20, 1, 0.01),
	}
	for i := range want {
		if plan.Filters[i] != want[i] {
			t.Errorf("filter %d = %+v, want %+v", i, plan.Filters[i], want[i])
		}
	}
	if got := codes(plan.Warnings); len(got) != 1 || got[0] != peq.WarnValuesClamped {
		t.Errorf("warnings = %v", got)
	}
	if !strings.HasPrefix(plan.Warnings[0].Message, "4 filter(s)") {
		t.Errorf("message = %q", plan.Warnings[0].Message)
	}
	if in[0].Freq != 10 {
		t.Error("input filter was modified")
	}
}

func TestValidateShelvesAndPregain(t *testing.T) {
	highShelf := peq.Filter{Type: peq.HighShelf, Freq: 8000, Gain: 3, Q: 0.7}
	flatShelf := peq.Filter{Type: peq.LowShelf, Freq: 80, Gain: 0, Q: 0.7}
	offShelf := peq.Filter{Type: peq.LowShelf, Freq: 80, Gain: 5, Q: 0.7, Disabled: true}

	tests := []struct {
		name       string
		cap        peq.Capability
		preamp     *float64
		in         []peq.Filter
		wantTypes  []peq.FilterType
		wantPreamp float64
		wantCodes  []string
	}{
		{
			name:       "shelves supported",
			cap:        capability(10, true, true, nil),
			in:         []peq.Filter{highShelf},
			wantTypes:  []peq.FilterType{peq.HighShelf},
			wantPreamp: -3,
		},
		{
			name:       "shelf rewritten to flat peak",
			cap:        capability(10, false, true, nil),
			in:         []peq.Filter{highShelf, flatShelf, offShelf},
			wantTypes:  []peq.FilterType{peq.Peaking, peq.LowShelf, peq.LowShelf},
			wantPreamp: -5,
			wantCodes:  []string{peq.WarnShelfUnsupported},
		},
		{
			name:       "no pregain",
			cap:        capability(10, true, false, nil),
			in:         []peq.Filter{pk(1000, 4, 1)},
			wantTypes:  []peq.FilterType{peq.Peaking},
			wantPreamp: -4,
			wantCodes:  []string{peq.WarnPregainIgnored},
		},
		{
			name:       "neither",
			cap:        capability(10, false, false, nil),
			in:         []peq.Filter{highShelf},
			wantTypes:  []peq.FilterType{peq.Peaking},
			wantPreamp: -3,
			wantCodes:  []string{peq.WarnShelfAndPregain},
		},
		{
			name:       "explicit preamp",
			cap:        capability(10, true, false, nil),
			preamp:     func() *float64 { v := 1.5; return &v }(),
			in:         []peq.Filter{pk(1000, 4, 1)},
			wantTypes:  []peq.FilterType{peq.Peaking},
			wantPreamp: 1.5,
		},
		{
			name:       "cuts only",
			cap:        capability(10, true, false, nil),
			in:         []peq.Filter{pk(1000, -4, 1), pk(2000, -1, 1)},
			wantTypes:  []peq.FilterType{peq.Peaking, peq.Peaking},
			wantPreamp: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Validate(tt.cap, tt.preamp, tt.in)
			if len(plan.Filters) != len(tt.wantTypes) {
				t.Fatalf("len(Filters) = %d", len(plan.Filters))
			}
			for i, typ := range tt.wantTypes {
				if plan.Filters[i].Type != typ {
					t.Errorf("filter %d type = %s, want %s", i, plan.Filters[i].Type, typ)
				}
			}
			if plan.Preamp != tt.wantPreamp {
				t.Errorf("Preamp = %v, want %v", plan.Preamp, tt.wantPreamp)
			}
			got := codes(plan.Warnings)
			if strings.Join(got, ",") != strings.Join(tt.wantCodes, ",") {
				t.Errorf("warnings = %v, want %v", got, tt.wantCodes)
			}
		})
	}
}

func TestValidateRewrittenShelfHasNoGain(t *testing.T) {
	in := []peq.Filter{{Type: peq.HighShelf, Freq: 8000, Gain: 3, Q: 0.7}}
	plan := Validate(capability(10, false, true, nil), nil, in)
	if f := plan.Filters[0]; f.Type != peq.Peaking || f.Gain != 0 || f.Freq != 8000 || f.Q != 0.7 {
		t.Errorf("rewritten filter = %+v", f)
	}
}

func TestValidatePads(t *testing.T) {
	reset := peq.NeutralFilter()
	in := []peq.Filter{pk(100, 1, 1), pk(200, 2, 1), pk(300, 3, 1), pk(400, 4, 1), pk(500, 5, 1)}

	plan := Validate(capability(10, true, true, &reset), nil, in)
	if len(plan.Filters) != 10 {
		t.Fatalf("len(Filters) = %d, want 10", len(plan.Filters))
	}
	for i := 5; i < 10; i++ {
		if plan.Filters[i] != (peq.Filter{Type: peq.Peaking, Freq: 100, Gain: 0, Q: 1}) {
			t.Errorf("filter %d = %+v, want the neutral template", i, plan.Filters[i])
		}
	}
	if plan.Preamp != -5 {
		t.Errorf("Preamp = %v, want -5", plan.Preamp)
	}

	unpadded := Validate(capability(10, true, true, nil), nil, in)
	if len(unpadded.Filters) != 5 {
		t.Errorf("without a reset filter len(Filters) = %d, want 5", len(unpadded.Filters))
	}
}
