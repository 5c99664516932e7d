package vendors

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/peqlink/internal/codec"
	"github.com/smazurov/peqlink/internal/peq"
	"github.com/smazurov/peqlink/internal/registry"
)

// fakeFiiO remembers every set frame and answers get frames with the stored
// value, which shares the set frame's layout.
type fakeFiiO struct {
	mu     sync.Mutex
	frames map[[2]byte][]byte
	drop   func(data []byte) bool
}

func newFakeFiiO() *fakeFiiO {
	return &fakeFiiO{frames: map[[2]byte][]byte{}}
}

func (f *fakeFiiO) respond(_ byte, data []byte) [][]byte {
	if len(data) < 7 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := data[4]
	key := [2]byte{cmd, 0}
	if cmd == codec.FiiOCmdFilterParams {
		key[1] = data[6]
	}
	switch data[0] {
	case codec.FiiOSetHeader1:
		f.frames[key] = append([]byte(nil), data...)
	case codec.FiiOGetHeader1:
		if f.drop != nil && f.drop(data) {
			return nil
		}
		stored, ok := f.frames[key]
		if !ok {
			return nil
		}
		r := append([]byte(nil), stored...)
		r[0], r[1] = codec.FiiOGetHeader1, codec.FiiOGetHeader2
		return [][]byte{r}
	}
	return nil
}

func fiioCapability() peq.Capability {
	return peq.Capability{
		Handler:          registry.HandlerFiiO,
		MinGain:          -12,
		MaxGain:          12,
		MaxFilters:       10,
		DisabledPresetID: 11,
		ReportID:         1,
		AvailableSlots:   []peq.Slot{{ID: 0, Name: "Jazz"}, {ID: 3, Name: "USER1"}},
	}
}

func TestFiiOPushSequence(t *testing.T) {
	fake := newFakeFiiO()
	r := newHIDRig(t, fiioCapability(), fake.respond)
	h := &FiiO{}

	disconnect, err := h.Push(context.Background(), r.target, 3, -2, sampleFilters)
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if disconnect {
		t.Error("Push() requested a disconnect")
	}

	var cmds []byte
	for _, rep := range r.dev.Sent() {
		if rep.ID != 1 {
			t.Errorf("report ID = %d, want 1", rep.ID)
		}
		cmds = append(cmds, rep.Data[4])
	}
	want := []byte{
		codec.FiiOCmdGlobalGain, codec.FiiOCmdFilterCount,
		codec.FiiOCmdFilterParams, codec.FiiOCmdFilterParams, codec.FiiOCmdFilterParams,
		codec.FiiOCmdSave,
	}
	if string(cmds) != string(want) {
		t.Errorf("commands = % X, want % X", cmds, want)
	}

	// Global gain is written relative to the firmware's built-in attenuation.
	gain := codec.FiiO{}.DecodeGlobalGain(fake.frames[[2]byte{codec.FiiOCmdGlobalGain, 0}])
	if gain != 10 {
		t.Errorf("written global gain = %v, want 10", gain)
	}
	if s := r.settled(); len(s) != 2 || s[0] != 100*time.Millisecond {
		t.Errorf("settles = %v, want two 100ms waits", s)
	}
}

func TestFiiOPushTruncates(t *testing.T) {
	c := fiioCapability()
	c.MaxFilters = 2
	r := newHIDRig(t, c, nil)

	if _, err := (&FiiO{}).Push(context.Background(), r.target, 0, 0, sampleFilters); err != nil {
		t.Fatal(err)
	}
	params := 0
	for _, d := range r.dev.SentData() {
		if d[4] == codec.FiiOCmdFilterParams {
			params++
		}
	}
	if params != 2 {
		t.Errorf("wrote %d bands, want 2", params)
	}
}

func TestFiiOPushPullRoundTrip(t *testing.T) {
	fake := newFakeFiiO()
	r := newHIDRig(t, fiioCapability(), fake.respond)
	h := &FiiO{}
	ctx := context.Background()

	if err := h.EnablePEQ(ctx, r.target, true, 3); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Push(ctx, r.target, 3, -2, sampleFilters); err != nil {
		t.Fatal(err)
	}

	res, err := h.Pull(ctx, r.target, 3)
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if !res.Complete || res.Received != 3 {
		t.Errorf("result = %+v, want complete with 3 filters", res)
	}
	if res.CurrentSlot != 3 {
		t.Errorf("CurrentSlot = %d, want 3", res.CurrentSlot)
	}
	if res.GlobalGain != 10 {
		t.Errorf("GlobalGain = %v, want the device value 10", res.GlobalGain)
	}
	assertFilters(t, res.Filters, sampleFilters)
}

func TestFiiOPullPartial(t *testing.T) {
	fake := newFakeFiiO()
	r := newHIDRig(t, fiioCapability(), fake.respond)
	h := &FiiO{}
	ctx := context.Background()
	if _, err := h.Push(ctx, r.target, 0, 0, sampleFilters); err != nil {
		t.Fatal(err)
	}

	fake.mu.Lock()
	fake.drop = func(data []byte) bool { return data[4] == codec.FiiOCmdFilterParams && data[6] == 2 }
	fake.mu.Unlock()

	res, err := h.Pull(ctx, r.target, 0)
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if res.Complete || res.Received != 2 || res.Expected != 3 {
		t.Errorf("result = %+v, want partial 2 of 3", res)
	}
	if r.target.HID.Pending() != 0 {
		t.Errorf("Pending() = %d after pull", r.target.HID.Pending())
	}
}

func TestFiiOPullSilentDevice(t *testing.T) {
	r := newHIDRig(t, fiioCapability(), nil)
	_, err := (&FiiO{}).Pull(context.Background(), r.target, 0)
	if !errors.Is(err, peq.ErrTimeout) {
		t.Errorf("error = %v, want timeout", err)
	}
}

func TestFiiOCurrentSlot(t *testing.T) {
	fake := newFakeFiiO()
	r := newHIDRig(t, fiioCapability(), fake.respond)
	h := &FiiO{}
	ctx := context.Background()

	tests := []struct {
		enabled bool
		slot    int
		want    int
	}{
		{true, 3, 3},
		{true, 11, peq.DisabledSlotID},
		// Disabling selects the preset numbered maxFilters.
		{false, 3, 10},
	}
	for _, tt := range tests {
		if err := h.EnablePEQ(ctx, r.target, tt.enabled, tt.slot); err != nil {
			t.Fatal(err)
		}
		got, err := h.CurrentSlot(ctx, r.target)
		if err != nil {
			t.Fatalf("CurrentSlot() error = %v", err)
		}
		if got != tt.want {
			t.Errorf("EnablePEQ(%v, %d) then CurrentSlot() = %d, want %d", tt.enabled, tt.slot, got, tt.want)
		}
	}
}

func TestFiiODisconnectOnSave(t *testing.T) {
	c := fiioCapability()
	c.DisconnectOnSave = true
	r := newHIDRig(t, c, nil)
	disconnect, err := (&FiiO{}).Push(context.Background(), r.target, 0, 0, sampleFilters[:1])
	if err != nil {
		t.Fatal(err)
	}
	if !disconnect {
		t.Error("Push() did not report disconnectOnSave")
	}
}
