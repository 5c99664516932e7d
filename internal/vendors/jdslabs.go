package vendors

import (
	"context"

	"github.com/smazurov/peqlink/internal/codec"
	"github.com/smazurov/peqlink/internal/peq"
	"github.com/smazurov/peqlink/internal/registry"
)

// JDSLabs drives the JDS Labs Element IV over its serial JSON protocol.
type JDSLabs struct {
	codec codec.JDSLabs
}

func (*JDSLabs) Name() string { return registry.HandlerJDSLabs }

func (h *JDSLabs) describe(ctx context.Context, t *Target) (*codec.JDSResponse, error) {
	s, err := t.serial()
	if err != nil {
		return nil, err
	}
	var resp codec.JDSResponse
	if err := s.Request(ctx, h.codec.DescribeRequest(), &resp, t.Timeouts.Serial); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CurrentSlot maps the input mode to a slot: USB is 0, SPDIF is 1.
func (h *JDSLabs) CurrentSlot(ctx context.Context, t *Target) (int, error) {
	resp, err := h.describe(ctx, t)
	if err != nil {
		return 0, err
	}
	return h.codec.DecodeSlotID(resp)
}

func (h *JDSLabs) Pull(ctx context.Context, t *Target, slot int) (peq.PullResult, error) {
	resp, err := h.describe(ctx, t)
	if err != nil {
		return peq.PullResult{}, err
	}
	set, twelve, err := h.codec.DecodeFilters(resp)
	if err != nil {
		return peq.PullResult{}, err
	}
	t.setTwelveBand(twelve)
	if current, err := h.codec.DecodeSlotID(resp); err == nil {
		slot = current
	}
	return peq.CompletePull(set, slot), nil
}

// twelveBand reports whether the device runs 12-band firmware, asking it
// only when neither a previous pull nor the filter count tells.
func (h *JDSLabs) twelveBand(ctx context.Context, t *Target, filters []peq.Filter) bool {
	if v, ok := t.cachedTwelveBand(); ok {
		return v
	}
	if len(filters) > len(codec.JDSTenBandOrder) {
		t.setTwelveBand(true)
		return true
	}
	resp, err := h.describe(ctx, t)
	if err != nil {
		logger().Warn("JDS Labs band layout detection failed, assuming 10 bands", "error", err)
		return false
	}
	twelve := h.codec.HasTwelveBands(resp)
	t.setTwelveBand(twelve)
	return twelve
}

func (h *JDSLabs) Push(ctx context.Context, t *Target, _ int, preamp float64, filters []peq.Filter) (bool, error) {
	s, err := t.serial()
	if err != nil {
		return false, err
	}
	req, err := h.codec.UpdateRequest(preamp, filters, h.twelveBand(ctx, t, filters))
	if err != nil {
		return false, err
	}
	var resp codec.JDSResponse
	if err := s.Request(ctx, req, &resp, t.Timeouts.Serial); err != nil {
		return false, err
	}
	if !h.codec.Confirmed(&resp) {
		return false, peq.NewDeviceError(peq.ErrCodeProtocolDecode, "device did not confirm the update", nil)
	}
	return t.Capability.DisconnectOnSave, nil
}

func (*JDSLabs) EnablePEQ(context.Context, *Target, bool, int) error { return nil }

func (t *Target) cachedTwelveBand() (bool, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.twelveBand == nil {
		return false, false
	}
	return *t.twelveBand, true
}

func (t *Target) setTwelveBand(v bool) {
	t.mu.Lock()
	t.twelveBand = &v
	t.mu.Unlock()
}
