package vendors

import (
	"context"
	"errors"

	"github.com/smazurov/peqlink/internal/codec"
	"github.com/smazurov/peqlink/internal/peq"
	"github.com/smazurov/peqlink/internal/registry"
)

// Moondrop drives Moondrop dongles. Every read is a single request and
// response; there is no slot select, so EnablePEQ does nothing.
type Moondrop struct {
	codec codec.Moondrop
}

func (*Moondrop) Name() string { return registry.HandlerMoondrop }

func (h *Moondrop) read(ctx context.Context, t *Target, req []byte, cmd byte) ([]byte, error) {
	s, err := t.hid()
	if err != nil {
		return nil, err
	}
	return s.Exchange(ctx, req, func(r []byte) bool { return h.codec.IsResponse(r, cmd) }, t.Timeouts.Read)
}

func (h *Moondrop) CurrentSlot(ctx context.Context, t *Target) (int, error) {
	resp, err := h.read(ctx, t, h.codec.QuerySlot(), codec.MoondropCmdActiveSlot)
	if err != nil {
		return 0, err
	}
	return h.codec.DecodeSlotID(resp), nil
}

func (h *Moondrop) Version(ctx context.Context, t *Target) (string, error) {
	resp, err := h.read(ctx, t, h.codec.QueryVersion(), codec.MoondropCmdVersion)
	if err != nil {
		return "", err
	}
	v := h.codec.DecodeVersion(resp)
	t.setVersion(v)
	return v, nil
}

// Pull reads the bands one by one. A timeout after at least one band
// returns what was read so far.
func (h *Moondrop) Pull(ctx context.Context, t *Target, slot int) (peq.PullResult, error) {
	want := t.Capability.MaxFilters
	var set peq.FilterSet
	for i := 0; i < want; i++ {
		resp, err := h.read(ctx, t, h.codec.QueryFilter(i), codec.MoondropCmdUpdateEQ)
		if err != nil {
			if errors.Is(err, peq.ErrTimeout) && len(set.Filters) > 0 {
				return partial(set, slot, want), nil
			}
			return peq.PullResult{}, err
		}
		set.Filters = append(set.Filters, h.codec.DecodeFilter(resp))
	}

	resp, err := h.read(ctx, t, h.codec.QueryGlobalGain(), codec.MoondropCmdPregain)
	switch {
	case err == nil:
		set.GlobalGain = h.codec.DecodeGlobalGain(resp)
	case errors.Is(err, peq.ErrTimeout):
		logger().Warn("Moondrop pregain read timed out, assuming 0 dB")
	default:
		return peq.PullResult{}, err
	}
	return peq.CompletePull(set, slot), nil
}

func (h *Moondrop) Push(ctx context.Context, t *Target, _ int, preamp float64, filters []peq.Filter) (bool, error) {
	s, err := t.hid()
	if err != nil {
		return false, err
	}
	n := writableCount(filters, t.Capability)
	for i := 0; i < n; i++ {
		if err := s.Send(ctx, h.codec.EncodeFilter(i, filters[i])); err != nil {
			return false, err
		}
		if err := s.Send(ctx, h.codec.EncodeFilterEnable(i)); err != nil {
			return false, err
		}
	}
	if err := s.Send(ctx, h.codec.EncodeGlobalGain(preamp)); err != nil {
		return false, err
	}
	if err := s.Send(ctx, h.codec.EncodeSave()); err != nil {
		return false, err
	}
	return t.Capability.DisconnectOnSave, nil
}

func (*Moondrop) EnablePEQ(context.Context, *Target, bool, int) error { return nil }

// Reset restores the factory EQ.
func (h *Moondrop) Reset(ctx context.Context, t *Target) error {
	s, err := t.hid()
	if err != nil {
		return err
	}
	return s.Send(ctx, h.codec.EncodeResetEQ())
}
