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
	ktmicroCommitSettle = time.Second
	ktmicroClearSettle  = 200 * time.Millisecond
)

// KTMicro drives KT Micro based dongles. Each band is two fields that are
// read and written separately.
type KTMicro struct{}

func (*KTMicro) Name() string { return registry.HandlerKTMicro }

func ktCodec(t *Target) codec.KTMicro {
	return codec.KTMicro{Compensate2X: t.Capability.Compensate2X}
}

func (*KTMicro) CurrentSlot(ctx context.Context, t *Target) (int, error) {
	s, err := t.hid()
	if err != nil {
		return 0, err
	}
	c := ktCodec(t)
	resp, err := s.Exchange(ctx, c.QuerySlot(), func(r []byte) bool {
		return len(r) > 0 && r[0] == codec.KTMicroFieldSlot
	}, t.Timeouts.Read)
	if err != nil {
		return 0, err
	}
	return c.DecodeSlotID(resp), nil
}

func (*KTMicro) readBand(ctx context.Context, t *Target, i int) (peq.Filter, error) {
	s, _ := t.hid()
	c := ktCodec(t)
	gfField, qField := c.BandFields(i)
	sub := s.Subscribe(func(r []byte) bool {
		return c.IsFieldResponse(r, gfField) || c.IsFieldResponse(r, qField)
	})
	defer sub.Close()

	gfReq, qReq := c.QueryFilter(i)
	if err := s.Send(ctx, gfReq); err != nil {
		return peq.Filter{}, err
	}
	if err := s.Send(ctx, qReq); err != nil {
		return peq.Filter{}, err
	}

	var gf, qt []byte
	err := sub.Await(ctx, t.Timeouts.Read, func(r []byte) bool {
		if r[0] == gfField {
			gf = r
		} else {
			qt = r
		}
		return gf != nil && qt != nil
	})
	if err != nil {
		return peq.Filter{}, err
	}
	return c.DecodeFilter(gf, qt), nil
}

func (h *KTMicro) Pull(ctx context.Context, t *Target, slot int) (peq.PullResult, error) {
	s, err := t.hid()
	if err != nil {
		return peq.PullResult{}, err
	}
	want := t.Capability.MaxFilters
	var set peq.FilterSet
	for i := 0; i < want; i++ {
		f, err := h.readBand(ctx, t, i)
		if err != nil {
			if errors.Is(err, peq.ErrTimeout) && len(set.Filters) > 0 {
				return partial(set, slot, want), nil
			}
			return peq.PullResult{}, err
		}
		set.Filters = append(set.Filters, f)
	}

	c := ktCodec(t)
	resp, err := s.Exchange(ctx, c.QueryGlobalGain(), func(r []byte) bool {
		return c.IsFieldResponse(r, codec.KTMicroFieldGlobalGain)
	}, t.Timeouts.Read)
	if err == nil {
		set.GlobalGain = c.DecodeGlobalGain(resp)
	} else {
		logger().Debug("KT Micro pregain read failed", "error", err)
	}
	return peq.CompletePull(set, slot), nil
}

// Push enables the first available slot when EQ is currently off, since
// the firmware ignores band writes while disabled.
func (h *KTMicro) Push(ctx context.Context, t *Target, slot int, preamp float64, filters []peq.Filter) (bool, error) {
	s, err := t.hid()
	if err != nil {
		return false, err
	}
	c := ktCodec(t)

	current, err := h.CurrentSlot(ctx, t)
	if err != nil {
		return false, err
	}
	if current == t.Capability.DisabledPresetID && len(t.Capability.AvailableSlots) > 0 {
		slot = t.Capability.AvailableSlots[0].ID
		if err := h.EnablePEQ(ctx, t, true, slot); err != nil {
			return false, err
		}
	}

	n := writableCount(filters, t.Capability)
	for i := 0; i < n; i++ {
		gf, qt := c.EncodeFilter(i, filters[i])
		if err := s.Send(ctx, gf); err != nil {
			return false, err
		}
		if err := s.Send(ctx, qt); err != nil {
			return false, err
		}
	}
	if t.Capability.SupportsPregain {
		if err := s.Send(ctx, c.EncodeGlobalGain(preamp)); err != nil {
			return false, err
		}
	}
	if err := s.Send(ctx, c.EncodeCommit()); err != nil {
		return false, err
	}
	if err := t.settle(ctx, ktmicroCommitSettle); err != nil {
		return false, err
	}
	return t.Capability.DisconnectOnSave, nil
}

// EnablePEQ writes slot, or the disabled preset id when turning EQ off.
func (*KTMicro) EnablePEQ(ctx context.Context, t *Target, enabled bool, slot int) error {
	s, err := t.hid()
	if err != nil {
		return err
	}
	if !enabled || slot == t.Capability.DisabledPresetID {
		slot = t.Capability.DisabledPresetID
	}
	return s.Send(ctx, ktCodec(t).EncodeSlotSelect(slot))
}

// Reset clears every band.
func (*KTMicro) Reset(ctx context.Context, t *Target) error {
	s, err := t.hid()
	if err != nil {
		return err
	}
	if err := s.Send(ctx, ktCodec(t).EncodeClear()); err != nil {
		return err
	}
	return t.settle(ctx, ktmicroClearSettle)
}
