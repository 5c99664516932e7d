package vendors

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/peqlink/internal/codec"
	"github.com/smazurov/peqlink/internal/peq"
	"github.com/smazurov/peqlink/internal/registry"
)

// fakeKTMicro keeps one 10-byte register per field id.
type fakeKTMicro struct {
	mu      sync.Mutex
	fields  map[byte][]byte
	commits int
	clears  int
}

func newFakeKTMicro(slot byte) *fakeKTMicro {
	f := &fakeKTMicro{fields: map[byte][]byte{}}
	f.fields[codec.KTMicroFieldSlot] = []byte{codec.KTMicroFieldSlot, 0, 0, 0, codec.KTMicroCmdWrite, 0, slot, 0, 0, 0}
	return f
}

func (f *fakeKTMicro) respond(_ byte, data []byte) [][]byte {
	if len(data) < 5 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch data[4] {
	case codec.KTMicroCmdWrite:
		f.fields[data[0]] = append([]byte(nil), data...)
	case codec.KTMicroCmdCommit:
		f.commits++
	case codec.KTMicroCmdClear:
		f.clears++
	case codec.KTMicroCmdRead:
		r := make([]byte, 10)
		if stored, ok := f.fields[data[0]]; ok {
			copy(r, stored)
		}
		r[0], r[4] = data[0], codec.KTMicroCmdRead
		return [][]byte{r}
	}
	return nil
}

func (f *fakeKTMicro) field(id byte) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields[id]
}

func ktCapability() peq.Capability {
	return peq.Capability{
		Handler:          registry.HandlerKTMicro,
		MinGain:          -12,
		MaxGain:          12,
		MaxFilters:       3,
		DisabledPresetID: 2,
		AvailableSlots:   []peq.Slot{{ID: 1, Name: "Custom"}},
		SupportsPregain:  true,
	}
}

func TestKTMicroPushPullRoundTrip(t *testing.T) {
	fake := newFakeKTMicro(1)
	r := newHIDRig(t, ktCapability(), fake.respond)
	h := &KTMicro{}
	ctx := context.Background()

	if _, err := h.Push(ctx, r.target, 1, -5, sampleFilters); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if fake.commits != 1 {
		t.Errorf("commits = %d, want 1", fake.commits)
	}
	if s := r.settled(); len(s) != 1 || s[0] != time.Second {
		t.Errorf("settles = %v, want one 1s wait after commit", s)
	}

	res, err := h.Pull(ctx, r.target, 1)
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if !res.Complete || res.GlobalGain != -5 {
		t.Errorf("result = %+v", res)
	}
	assertFilters(t, res.Filters, sampleFilters)
}

func TestKTMicroCompensate2X(t *testing.T) {
	c := ktCapability()
	c.Compensate2X = true
	fake := newFakeKTMicro(1)
	r := newHIDRig(t, c, fake.respond)
	h := &KTMicro{}
	ctx := context.Background()

	filters := []peq.Filter{{Type: peq.Peaking, Freq: 100, Gain: 1, Q: 1}}
	if _, err := h.Push(ctx, r.target, 1, 0, filters); err != nil {
		t.Fatal(err)
	}
	gf := fake.field(0x26)
	if raw := binary.LittleEndian.Uint16(gf[8:10]); raw != 50 {
		t.Errorf("stored frequency = %d, want 50", raw)
	}

	c.MaxFilters = 1
	r.target.Capability = c
	res, err := h.Pull(ctx, r.target, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Filters[0].Freq != 100 {
		t.Errorf("read back frequency = %v, want 100", res.Filters[0].Freq)
	}
}

func TestKTMicroPushEnablesDisabledEQ(t *testing.T) {
	fake := newFakeKTMicro(2)
	r := newHIDRig(t, ktCapability(), fake.respond)

	if _, err := (&KTMicro{}).Push(context.Background(), r.target, 5, 0, sampleFilters[:1]); err != nil {
		t.Fatal(err)
	}
	if slot := fake.field(codec.KTMicroFieldSlot)[6]; slot != 1 {
		t.Errorf("slot after push = %d, want the first available slot 1", slot)
	}
}

func TestKTMicroPregainOnlyWhenSupported(t *testing.T) {
	c := ktCapability()
	c.SupportsPregain = false
	fake := newFakeKTMicro(1)
	r := newHIDRig(t, c, fake.respond)

	if _, err := (&KTMicro{}).Push(context.Background(), r.target, 1, -4, sampleFilters); err != nil {
		t.Fatal(err)
	}
	if fake.field(codec.KTMicroFieldGlobalGain) != nil {
		t.Error("pregain written to a device without pregain support")
	}
}

func TestKTMicroEnableAndReset(t *testing.T) {
	fake := newFakeKTMicro(1)
	r := newHIDRig(t, ktCapability(), fake.respond)
	h := &KTMicro{}
	ctx := context.Background()

	if err := h.EnablePEQ(ctx, r.target, false, 1); err != nil {
		t.Fatal(err)
	}
	slot, err := h.CurrentSlot(ctx, r.target)
	if err != nil || slot != 2 {
		t.Errorf("CurrentSlot() after disable = %d, %v, want 2", slot, err)
	}

	if err := h.EnablePEQ(ctx, r.target, true, 1); err != nil {
		t.Fatal(err)
	}
	if slot, _ := h.CurrentSlot(ctx, r.target); slot != 1 {
		t.Errorf("CurrentSlot() after enable = %d, want 1", slot)
	}

	if err := h.Reset(ctx, r.target); err != nil {
		t.Fatal(err)
	}
	if fake.clears != 1 {
		t.Errorf("clears = %d", fake.clears)
	}
	if s := r.settled(); len(s) != 1 || s[0] != 200*time.Millisecond {
		t.Errorf("settles = %v", s)
	}
}
