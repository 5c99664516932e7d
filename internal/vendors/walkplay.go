package vendors

import (
	"context"
	"errors"
	"time"

	"github.com/smazurov/peqlink/internal/codec"
	"github.com/smazurov/peqlink/internal/peq"
	"github.com/smazurov/peqlink/internal/registry"
)

const (
	walkplayQuerySpacing = 50 * time.Millisecond
	walkplayQueryDrain   = 100 * time.Millisecond
	walkplayVersionRead  = 2 * time.Second
	walkplayGainRead     = 100 * time.Millisecond
)

// Walkplay drives Walkplay DSP dongles and the many rebrands built on them.
type Walkplay struct {
	codec codec.Walkplay
}

func (*Walkplay) Name() string { return registry.HandlerWalkplay }

func (h *Walkplay) response(cmd byte) func([]byte) bool {
	return func(r []byte) bool { return h.codec.IsResponse(r, cmd) }
}

// Version reads the ASCII firmware version.
func (h *Walkplay) Version(ctx context.Context, t *Target) (string, error) {
	s, err := t.hid()
	if err != nil {
		return "", err
	}
	resp, err := s.Exchange(ctx, h.codec.QueryVersion(), h.response(codec.WalkplayCmdVersion), walkplayVersionRead)
	if err != nil {
		return "", err
	}
	v := h.codec.DecodeVersion(resp)
	t.setVersion(v)
	return v, nil
}

// CurrentSlot reads the firmware version first; firmware whose version
// does not parse does not answer slot queries, so -1 is returned.
func (h *Walkplay) CurrentSlot(ctx context.Context, t *Target) (int, error) {
	v, err := h.Version(ctx, t)
	if err != nil {
		return 0, err
	}
	if _, ok := codec.ParseVersion(v); !ok {
		logger().Warn("Could not parse firmware version", "version", v)
		return peq.DisabledSlotID, nil
	}

	s, _ := t.hid()
	resp, err := s.Exchange(ctx, h.codec.QueryCurrent(), h.response(codec.WalkplayCmdPEQValues), t.Timeouts.Read)
	if err != nil {
		return 0, err
	}
	return h.codec.DecodeSlotID(resp), nil
}

func (h *Walkplay) Pull(ctx context.Context, t *Target, _ int) (peq.PullResult, error) {
	s, err := t.hid()
	if err != nil {
		return peq.PullResult{}, err
	}
	want := t.Capability.MaxFilters

	sub := s.Subscribe(h.codec.IsFilterReport)
	defer sub.Close()

	for i := 0; i < want; i++ {
		if err := s.Send(ctx, h.codec.QueryFilter(i)); err != nil {
			return peq.PullResult{}, err
		}
		if err := t.settle(ctx, walkplayQuerySpacing); err != nil {
			return peq.PullResult{}, err
		}
	}
	if err := t.settle(ctx, walkplayQueryDrain); err != nil {
		return peq.PullResult{}, err
	}

	bands := map[int]peq.Filter{}
	slot := peq.DisabledSlotID
	err = sub.Await(ctx, t.Timeouts.Pull, func(r []byte) bool {
		idx, f := h.codec.DecodeFilter(r)
		if idx >= 0 && idx < want {
			bands[idx] = f
		}
		if len(r) >= codec.WalkplayMinSlotReport {
			slot = h.codec.DecodeSlotID(r)
		}
		return len(bands) >= want
	})
	sub.Close()

	set := peq.FilterSet{Filters: orderedBands(bands, want)}
	if err != nil && !(errors.Is(err, peq.ErrTimeout) && len(bands) > 0) {
		return peq.PullResult{}, err
	}

	// The gain read is best effort: older firmware never answers it.
	if resp, gerr := s.Exchange(ctx, h.codec.QueryGlobalGain(), h.response(codec.WalkplayCmdGlobalGain), walkplayGainRead); gerr == nil {
		set.GlobalGain = h.codec.DecodeGlobalGain(resp)
	} else {
		logger().Debug("Walkplay global gain read failed", "error", gerr)
	}

	if err != nil {
		return partial(set, slot, want), nil
	}
	return peq.CompletePull(set, slot), nil
}

func (h *Walkplay) Push(ctx context.Context, t *Target, slot int, preamp float64, filters []peq.Filter) (bool, error) {
	s, err := t.hid()
	if err != nil {
		return false, err
	}
	n := writableCount(filters, t.Capability)
	for i := 0; i < n; i++ {
		if err := s.Send(ctx, h.codec.EncodeFilter(i, filters[i], slot)); err != nil {
			return false, err
		}
	}
	for _, frame := range [][]byte{h.codec.EncodeGlobalGain(preamp), h.codec.EncodeTempWrite(), h.codec.EncodeFlash()} {
		if err := s.Send(ctx, frame); err != nil {
			return false, err
		}
	}
	return t.Capability.DisconnectOnSave, nil
}

func (h *Walkplay) EnablePEQ(ctx context.Context, t *Target, enabled bool, slot int) error {
	s, err := t.hid()
	if err != nil {
		return err
	}
	return s.Send(ctx, h.codec.EncodeSlotSelect(enabled, slot))
}
