// Package vendors holds the per-vendor protocol drivers. A driver runs the
// multi-step command sequences of one device family over a transport
// session, using the matching codec for every byte it sends or reads.
package vendors

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/smazurov/peqlink/internal/codec"
	"github.com/smazurov/peqlink/internal/logging"
	"github.com/smazurov/peqlink/internal/peq"
	"github.com/smazurov/peqlink/internal/registry"
	"github.com/smazurov/peqlink/internal/transport"
)

// Handler drives one device family.
type Handler interface {
	Name() string
	CurrentSlot(ctx context.Context, t *Target) (int, error)
	Pull(ctx context.Context, t *Target, slot int) (peq.PullResult, error)
	// Push writes filters and preamp to slot and reports whether the device
	// drops off the bus after saving.
	Push(ctx context.Context, t *Target, slot int, preamp float64, filters []peq.Filter) (bool, error)
	EnablePEQ(ctx context.Context, t *Target, enabled bool, slot int) error
}

// SlotLister is implemented by drivers that query slots live instead of
// taking them from the capability.
type SlotLister interface {
	AvailableSlots(ctx context.Context, t *Target) ([]peq.Slot, error)
}

// Versioner is implemented by drivers that can read a firmware version.
type Versioner interface {
	Version(ctx context.Context, t *Target) (string, error)
}

// Resetter is implemented by drivers that can restore factory EQ.
type Resetter interface {
	Reset(ctx context.Context, t *Target) error
}

// Timeouts bounds device reads.
type Timeouts struct {
	// Read applies to single-value reads.
	Read time.Duration
	// Pull applies to multi-report pull sequences.
	Pull time.Duration
	// Preset applies to preset dumps that arrive as one response.
	Preset time.Duration
	// Serial applies to one serial request.
	Serial time.Duration
}

// DefaultTimeouts returns the timeouts used when none are configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Read:   transport.DefaultReadTimeout,
		Pull:   10 * time.Second,
		Preset: 5 * time.Second,
		Serial: transport.DefaultSerialTimeout,
	}
}

// Target is everything a driver needs to talk to one open device. Exactly
// one of the transport fields is set.
type Target struct {
	Capability peq.Capability
	Timeouts   Timeouts

	HID     *transport.HIDSession
	Serial  *transport.SerialSession
	Network *transport.NetworkSession

	// Settle waits out a firmware settling delay. Nil sleeps.
	Settle func(ctx context.Context, d time.Duration) error

	mu         sync.Mutex
	twelveBand *bool
	version    string
}

func (t *Target) settle(ctx context.Context, d time.Duration) error {
	if t.Settle != nil {
		return t.Settle(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Target) hid() (*transport.HIDSession, error) {
	if t.HID == nil {
		return nil, peq.NewDeviceError(peq.ErrCodeNotConnected, "no HID session", nil)
	}
	return t.HID, nil
}

func (t *Target) serial() (*transport.SerialSession, error) {
	if t.Serial == nil {
		return nil, peq.NewDeviceError(peq.ErrCodeNotConnected, "no serial session", nil)
	}
	return t.Serial, nil
}

func (t *Target) network() (*transport.NetworkSession, error) {
	if t.Network == nil {
		return nil, peq.NewDeviceError(peq.ErrCodeNotConnected, "no network session", nil)
	}
	return t.Network, nil
}

// FirmwareVersion returns the last version a driver read, if any.
func (t *Target) FirmwareVersion() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.version
}

func (t *Target) setVersion(v string) {
	t.mu.Lock()
	t.version = v
	t.mu.Unlock()
}

var (
	handlersMu sync.RWMutex
	handlers   = map[string]Handler{}
)

// Register makes h available under h.Name().
func Register(h Handler) {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	handlers[h.Name()] = h
}

// Lookup returns the driver registered under name.
func Lookup(name string) (Handler, bool) {
	handlersMu.RLock()
	defer handlersMu.RUnlock()
	h, ok := handlers[name]
	return h, ok
}

// Names lists the registered drivers.
func Names() []string {
	handlersMu.RLock()
	defer handlersMu.RUnlock()
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(&FiiO{})
	Register(&Walkplay{})
	Register(&Moondrop{})
	Register(&KTMicro{})
	Register(&Qudelix{})
	Register(&JDSLabs{})
	Register(&WiiM{})
}

// ReportID returns the HID report ID to tag output reports with for c.
func ReportID(c peq.Capability) byte {
	if c.ReportID != 0 {
		return byte(c.ReportID)
	}
	switch c.Handler {
	case registry.HandlerFiiO:
		return codec.FiiODefaultReportID
	default:
		return codec.WalkplayReportID
	}
}

func logger() *slog.Logger {
	return logging.GetLogger("vendors")
}

// partial wraps what arrived before a multi-report read timed out.
func partial(set peq.FilterSet, slot, expected int) peq.PullResult {
	return peq.PullResult{
		FilterSet:   set,
		CurrentSlot: slot,
		Complete:    false,
		Received:    len(set.Filters),
		Expected:    expected,
	}
}

func writableCount(filters []peq.Filter, c peq.Capability) int {
	if c.MaxFilters > 0 && len(filters) > c.MaxFilters {
		return c.MaxFilters
	}
	return len(filters)
}
