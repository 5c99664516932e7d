package vendors

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/peqlink/internal/codec"
	"github.com/smazurov/peqlink/internal/peq"
	"github.com/smazurov/peqlink/internal/registry"
	"github.com/smazurov/peqlink/internal/transport"
)

// scriptedPort answers each NUL-terminated request with the next reply.
type scriptedPort struct {
	mu      sync.Mutex
	replies []string
	pending []byte
	written []string
}

func (p *scriptedPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, strings.TrimSuffix(string(b), "\x00"))
	if len(p.replies) > 0 {
		p.pending = append(p.pending, p.replies[0]+"\x00"...)
		p.replies = p.replies[1:]
	}
	return len(b), nil
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if len(p.pending) == 0 {
		p.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		return 0, nil
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	p.mu.Unlock()
	return n, nil
}

func (p *scriptedPort) SetReadTimeout(time.Duration) error { return nil }
func (p *scriptedPort) Close() error                       { return nil }

func (p *scriptedPort) requests() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.written...)
}

const jdsDescribeTenBand = `{
  "Status": true,
  "Configuration": {
    "General": {"Input Mode": {"Elements": ["USB", "SPDIF"], "Current": "SPDIF"}},
    "DSP": {"Headphone": {
      "Preamp": {"Gain": {"Current": -3}},
      "Lowshelf": {"Frequency": {"Current": 90}, "Gain": {"Current": 2}, "Q": {"Current": 0.7}},
      "Peaking 1": {"Frequency": {"Current": 1000}, "Gain": {"Current": -1.5}, "Q": {"Current": 2}}
    }}
  }
}`

func jdsTarget(t *testing.T, replies ...string) (*Target, *scriptedPort) {
	t.Helper()
	port := &scriptedPort{replies: replies}
	s := transport.NewSerialSession(port)
	t.Cleanup(func() { s.Close() })
	return &Target{
		Capability: peq.Capability{Handler: registry.HandlerJDSLabs, MaxFilters: 12, MinGain: -12, MaxGain: 12},
		Timeouts:   testTimeouts(),
		Serial:     s,
	}, port
}

func TestJDSLabsPull(t *testing.T) {
	target, _ := jdsTarget(t, jdsDescribeTenBand)

	res, err := (&JDSLabs{}).Pull(context.Background(), target, 0)
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if len(res.Filters) != 10 || res.GlobalGain != -3 {
		t.Fatalf("result = %+v", res)
	}
	if res.CurrentSlot != 1 {
		t.Errorf("CurrentSlot = %d, want 1 for SPDIF", res.CurrentSlot)
	}
	want := []peq.Filter{
		{Type: peq.LowShelf, Freq: 90, Gain: 2, Q: 0.7},
		{Type: peq.Peaking, Freq: 1000, Gain: -1.5, Q: 2},
		// Missing bands get the firmware defaults.
		{Type: peq.Peaking, Freq: 1000, Gain: 0, Q: 0.707},
	}
	assertFilters(t, res.Filters[:3], want)
	if res.Filters[9].Type != peq.HighShelf {
		t.Errorf("last band = %+v, want high shelf", res.Filters[9])
	}
}

func TestJDSLabsPushReusesPulledLayout(t *testing.T) {
	target, port := jdsTarget(t, jdsDescribeTenBand, `{"Status": true}`)
	h := &JDSLabs{}
	ctx := context.Background()

	if _, err := h.Pull(ctx, target, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Push(ctx, target, 0, -2, sampleFilters); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	reqs := port.requests()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want describe then update", len(reqs))
	}
	var update codec.JDSRequest
	if err := json.Unmarshal([]byte(reqs[1]), &update); err != nil {
		t.Fatal(err)
	}
	if update.Action != "Update" {
		t.Errorf("Action = %q", update.Action)
	}
	if _, ok := update.Configuration.DSP.Headphone["Lowshelf"]; !ok {
		t.Errorf("update lacks the 10-band shelf: %v", reqs[1])
	}
}

func TestJDSLabsTwelveBandDetection(t *testing.T) {
	tests := []struct {
		name     string
		filters  int
		replies  []string
		requests int
		band     string
	}{
		{"more than ten filters", 12, []string{`{"Status": true}`}, 1, "Lowshelf 1"},
		{"describe", 3, []string{`{"Configuration":{"DSP":{"Headphone":{"Lowshelf 1":{}}}}}`, `{"Status": true}`}, 2, "Lowshelf 1"},
		{"describe fails", 3, []string{`not json`, `{"Status": true}`}, 2, "Lowshelf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, port := jdsTarget(t, tt.replies...)
			filters := make([]peq.Filter, tt.filters)
			for i := range filters {
				filters[i] = peq.NeutralFilter()
			}
			if _, err := (&JDSLabs{}).Push(context.Background(), target, 0, 0, filters); err != nil {
				t.Fatalf("Push() error = %v", err)
			}
			reqs := port.requests()
			if len(reqs) != tt.requests {
				t.Fatalf("requests = %d, want %d", len(reqs), tt.requests)
			}
			if !strings.Contains(reqs[len(reqs)-1], `"`+tt.band+`"`) {
				t.Errorf("update lacks band %q: %s", tt.band, reqs[len(reqs)-1])
			}
		})
	}
}

func TestJDSLabsUnconfirmedUpdate(t *testing.T) {
	target, _ := jdsTarget(t, `{"Status": false}`)
	target.setTwelveBand(false)
	_, err := (&JDSLabs{}).Push(context.Background(), target, 0, 0, sampleFilters)
	if !errors.Is(err, peq.ErrProtocolDecode) {
		t.Errorf("error = %v, want protocol decode", err)
	}
}

func TestJDSLabsSilentDevice(t *testing.T) {
	target, _ := jdsTarget(t)
	if _, err := (&JDSLabs{}).CurrentSlot(context.Background(), target); !errors.Is(err, peq.ErrTimeout) {
		t.Errorf("error = %v, want timeout", err)
	}
}
