package vendors

import (
	"context"
	"errors"
	"time"

	"github.com/smazurov/peqlink/internal/codec"
	"github.com/smazurov/peqlink/internal/peq"
	"github.com/smazurov/peqlink/internal/registry"
)

const fiioSettle = 100 * time.Millisecond

// FiiO drives FiiO, JadeAudio and SnowSky dongles.
type FiiO struct {
	codec codec.FiiO
}

func (*FiiO) Name() string { return registry.HandlerFiiO }

func (h *FiiO) isResponse(cmd byte) func([]byte) bool {
	return func(r []byte) bool {
		got, ok := h.codec.ResponseCommand(r)
		return ok && got == cmd
	}
}

func (h *FiiO) CurrentSlot(ctx context.Context, t *Target) (int, error) {
	s, err := t.hid()
	if err != nil {
		return 0, err
	}
	resp, err := s.Exchange(ctx, h.codec.QuerySlot(), h.isResponse(codec.FiiOCmdPresetSwitch), t.Timeouts.Pull)
	if err != nil {
		return 0, err
	}
	return h.codec.DecodeSlotID(resp, t.Capability.DisabledPresetID), nil
}

// Pull asks for the preset, band count and global gain, then for each band
// once the count is known.
func (h *FiiO) Pull(ctx context.Context, t *Target, _ int) (peq.PullResult, error) {
	s, err := t.hid()
	if err != nil {
		return peq.PullResult{}, err
	}

	sub := s.Subscribe(func(r []byte) bool {
		_, ok := h.codec.ResponseCommand(r)
		return ok
	})
	defer sub.Close()

	for _, q := range [][]byte{h.codec.QuerySlot(), h.codec.QueryFilterCount(), h.codec.QueryGlobalGain()} {
		if err := s.Send(ctx, q); err != nil {
			return peq.PullResult{}, err
		}
	}

	var (
		set       peq.FilterSet
		slot      = peq.DisabledSlotID
		count     = -1
		gotGain   bool
		bands     = map[int]peq.Filter{}
		sendErr   error
		requested bool
	)
	err = sub.Await(ctx, t.Timeouts.Pull, func(r []byte) bool {
		cmd, _ := h.codec.ResponseCommand(r)
		switch cmd {
		case codec.FiiOCmdFilterParams:
			if idx, f := h.codec.DecodeFilter(r); idx >= 0 {
				bands[idx] = f
			}
		case codec.FiiOCmdGlobalGain:
			set.GlobalGain = h.codec.DecodeGlobalGain(r)
			gotGain = true
		case codec.FiiOCmdPresetSwitch:
			slot = h.codec.DecodeSlotID(r, t.Capability.DisabledPresetID)
		case codec.FiiOCmdFilterCount:
			count = h.codec.DecodeFilterCount(r)
			if !requested {
				requested = true
				for i := 0; i < count; i++ {
					if sendErr = s.Send(ctx, h.codec.QueryFilter(i)); sendErr != nil {
						return true
					}
				}
			}
		}
		return count >= 0 && gotGain && len(bands) >= count
	})
	if sendErr != nil {
		return peq.PullResult{}, sendErr
	}

	set.Filters = orderedBands(bands, count)
	if err != nil {
		if errors.Is(err, peq.ErrTimeout) && (len(bands) > 0 || count >= 0) {
			return partial(set, slot, count), nil
		}
		return peq.PullResult{}, err
	}
	return peq.CompletePull(set, slot), nil
}

// orderedBands returns bands 0..n-1 in index order, skipping missing ones.
func orderedBands(bands map[int]peq.Filter, n int) []peq.Filter {
	if n < 0 {
		n = 0
		for idx := range bands {
			if idx+1 > n {
				n = idx + 1
			}
		}
	}
	out := make([]peq.Filter, 0, len(bands))
	for i := 0; i < n; i++ {
		if f, ok := bands[i]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Push writes the global gain offset by maxGain, since the firmware already
// attenuates by that much, then the band count, the bands and a save.
func (h *FiiO) Push(ctx context.Context, t *Target, slot int, preamp float64, filters []peq.Filter) (bool, error) {
	s, err := t.hid()
	if err != nil {
		return false, err
	}
	n := writableCount(filters, t.Capability)

	if err := s.Send(ctx, h.codec.EncodeGlobalGain(t.Capability.MaxGain+preamp)); err != nil {
		return false, err
	}
	if err := s.Send(ctx, h.codec.EncodeFilterCount(n)); err != nil {
		return false, err
	}
	if err := t.settle(ctx, fiioSettle); err != nil {
		return false, err
	}
	for i := 0; i < n; i++ {
		if err := s.Send(ctx, h.codec.EncodeFilter(i, filters[i])); err != nil {
			return false, err
		}
	}
	if err := t.settle(ctx, fiioSettle); err != nil {
		return false, err
	}
	if err := s.Send(ctx, h.codec.EncodeSave(slot)); err != nil {
		return false, err
	}
	return t.Capability.DisconnectOnSave, nil
}

// EnablePEQ selects slot. Disabling selects the preset numbered maxFilters,
// which the firmware treats as off.
func (h *FiiO) EnablePEQ(ctx context.Context, t *Target, enabled bool, slot int) error {
	s, err := t.hid()
	if err != nil {
		return err
	}
	if !enabled {
		slot = t.Capability.MaxFilters
	}
	return s.Send(ctx, h.codec.EncodeSlotSelect(slot))
}
