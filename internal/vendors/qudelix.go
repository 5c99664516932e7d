package vendors

import (
	"context"
	"time"

	"github.com/smazurov/peqlink/internal/codec"
	"github.com/smazurov/peqlink/internal/peq"
	"github.com/smazurov/peqlink/internal/registry"
)

const (
	qudelixCommandSpacing = 20 * time.Millisecond
	qudelixDefaultBands   = 10
)

// Qudelix drives the Qudelix 5K over its USB HID app channel.
type Qudelix struct {
	codec codec.Qudelix
}

func (*Qudelix) Name() string { return registry.HandlerQudelix }

// send writes one command and waits out the spacing the firmware needs
// between commands.
func (*Qudelix) send(ctx context.Context, t *Target, cmd []byte) error {
	s, err := t.hid()
	if err != nil {
		return err
	}
	if err := s.Send(ctx, cmd); err != nil {
		return err
	}
	return t.settle(ctx, qudelixCommandSpacing)
}

// CurrentSlot always reports the custom slot; the device has no query for it.
func (*Qudelix) CurrentSlot(context.Context, *Target) (int, error) {
	return codec.QudelixCustomSlot, nil
}

func (h *Qudelix) Pull(ctx context.Context, t *Target, slot int) (peq.PullResult, error) {
	s, err := t.hid()
	if err != nil {
		return peq.PullResult{}, err
	}
	maxBands := t.Capability.MaxFilters
	if maxBands <= 0 {
		maxBands = qudelixDefaultBands
	}

	sub := s.Subscribe(h.codec.IsPresetResponse)
	defer sub.Close()
	if err := h.send(ctx, t, h.codec.QueryPreset()); err != nil {
		return peq.PullResult{}, err
	}

	var set peq.FilterSet
	err = sub.Await(ctx, t.Timeouts.Preset, func(r []byte) bool {
		set.Filters, set.GlobalGain = h.codec.DecodePreset(r, maxBands)
		return true
	})
	if err != nil {
		return peq.PullResult{}, err
	}
	return peq.CompletePull(set, slot), nil
}

func (h *Qudelix) Push(ctx context.Context, t *Target, slot int, preamp float64, filters []peq.Filter) (bool, error) {
	cmds := [][]byte{h.codec.EncodeEnable(true), h.codec.EncodeGlobalGain(preamp)}
	n := writableCount(filters, t.Capability)
	// disabled bands are still written, with zero gain
	for i := 0; i < n; i++ {
		cmds = append(cmds, h.codec.EncodeFilter(i, filters[i])...)
	}
	if slot > 0 {
		cmds = append(cmds, h.codec.EncodeSave(slot))
	}
	for _, cmd := range cmds {
		if err := h.send(ctx, t, cmd); err != nil {
			return false, err
		}
	}
	return t.Capability.DisconnectOnSave, nil
}

func (h *Qudelix) EnablePEQ(ctx context.Context, t *Target, enabled bool, slot int) error {
	if err := h.send(ctx, t, h.codec.EncodeEnable(enabled)); err != nil {
		return err
	}
	if enabled && slot > 0 {
		return h.send(ctx, t, h.codec.EncodeSlotSelect(slot))
	}
	return nil
}
