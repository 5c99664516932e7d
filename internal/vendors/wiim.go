package vendors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/smazurov/peqlink/internal/codec"
	"github.com/smazurov/peqlink/internal/peq"
	"github.com/smazurov/peqlink/internal/registry"
	"github.com/smazurov/peqlink/internal/transport"
)

// WiiM drives WiiM streamers over their LAN HTTP API. Writes are best
// effort: a response that cannot be read or is not JSON counts as success,
// because many firmware versions answer with an empty or opaque body.
type WiiM struct {
	codec codec.WiiM
}

func (*WiiM) Name() string { return registry.HandlerWiiM }

var wiimUnreadableSlots = []peq.Slot{{ID: 0, Name: "Cannot read"}}

func (h *WiiM) command(ctx context.Context, t *Target, cmd string, payload any) (transport.NetworkResponse, error) {
	n, err := t.network()
	if err != nil {
		return transport.NetworkResponse{}, err
	}
	q, err := h.codec.Command(cmd, payload)
	if err != nil {
		return transport.NetworkResponse{}, peq.NewDeviceError(peq.ErrCodeInvalidParams, "encode command", err)
	}
	return n.Command(ctx, q)
}

// decode parses a JSON body. ok is false when there is no readable JSON.
func decodeWiiM(resp transport.NetworkResponse) (codec.WiiMResponse, bool) {
	var out codec.WiiMResponse
	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 || json.Unmarshal(body, &out) != nil {
		return out, false
	}
	return out, true
}

func statusErr(cmd string, resp transport.NetworkResponse) error {
	return peq.NewDeviceError(peq.ErrCodeProtocolDecode,
		fmt.Sprintf("%s failed with HTTP %d", cmd, resp.StatusCode), nil)
}

// write sends a command whose outcome may be unreadable.
func (h *WiiM) write(ctx context.Context, t *Target, cmd string, payload any) error {
	resp, err := h.command(ctx, t, cmd, payload)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return statusErr(cmd, resp)
	}
	if r, ok := decodeWiiM(resp); ok && !r.OK() {
		return peq.NewDeviceError(peq.ErrCodeProtocolDecode, fmt.Sprintf("%s rejected: status %q", cmd, r.Status), nil)
	}
	return nil
}

// CurrentSlot is always 0; the API has a single source EQ.
func (*WiiM) CurrentSlot(context.Context, *Target) (int, error) { return 0, nil }

// AvailableSlots asks for the preset list, whose answer cannot be read, and
// returns a placeholder slot.
func (h *WiiM) AvailableSlots(ctx context.Context, t *Target) ([]peq.Slot, error) {
	if _, err := h.command(ctx, t, codec.WiiMCmdListPreset, codec.WiiMPluginURI); err != nil {
		logger().Warn("WiiM preset list request failed", "error", err)
	}
	return append([]peq.Slot(nil), wiimUnreadableSlots...), nil
}

func (h *WiiM) Pull(ctx context.Context, t *Target, slot int) (peq.PullResult, error) {
	resp, err := h.command(ctx, t, codec.WiiMCmdGetBand, h.codec.SourcePayload())
	if err != nil {
		return peq.PullResult{}, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return peq.PullResult{}, statusErr(codec.WiiMCmdGetBand, resp)
	}
	r, ok := decodeWiiM(resp)
	if !ok {
		return peq.PullResult{}, peq.NewDeviceError(peq.ErrCodeProtocolDecode, "band response is not readable JSON", nil)
	}
	if !r.OK() {
		return peq.PullResult{}, peq.NewDeviceError(peq.ErrCodeProtocolDecode, fmt.Sprintf("band read rejected: status %q", r.Status), nil)
	}
	return peq.CompletePull(peq.FilterSet{Filters: h.codec.DecodeBands(r.EQBand)}, slot), nil
}

// Push writes the bands then saves them under the headphone preset name.
// The device has no preamp control.
func (h *WiiM) Push(ctx context.Context, t *Target, _ int, _ float64, filters []peq.Filter) (bool, error) {
	n := writableCount(filters, t.Capability)
	if err := h.write(ctx, t, codec.WiiMCmdSetBand, h.codec.SetBandPayload(filters[:n])); err != nil {
		return false, err
	}
	if err := h.write(ctx, t, codec.WiiMCmdSave, h.codec.SavePayload()); err != nil {
		return false, err
	}
	return t.Capability.DisconnectOnSave, nil
}

// EnablePEQ needs a readable acknowledgement, unlike the other writes.
func (h *WiiM) EnablePEQ(ctx context.Context, t *Target, enabled bool, _ int) error {
	cmd := codec.WiiMCmdDisable
	if enabled {
		cmd = codec.WiiMCmdEnable
	}
	resp, err := h.command(ctx, t, cmd, h.codec.SourcePayload())
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusErr(cmd, resp)
	}
	if r, ok := decodeWiiM(resp); ok {
		if !r.OK() {
			return peq.NewDeviceError(peq.ErrCodeProtocolDecode, fmt.Sprintf("%s rejected: status %q", cmd, r.Status), nil)
		}
		return nil
	}
	if string(bytes.TrimSpace(resp.Body)) == "OK" {
		return nil
	}
	return peq.NewDeviceError(peq.ErrCodeProtocolDecode, cmd+" answer is not readable", nil)
}
