package connector

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/smazurov/peqlink/internal/metrics"
	"github.com/smazurov/peqlink/internal/peq"
	"github.com/smazurov/peqlink/internal/vendors"
)

var (
	errSessionClosed = errors.New("session closed")
	errUnplugged     = errors.New("device node removed")
)

// DeviceSession is one open device. Operations on it run one at a time.
type DeviceSession struct {
	ID         string         `json:"id"`
	Device     Device         `json:"device"`
	Vendor     string         `json:"vendor"`
	Capability peq.Capability `json:"capability"`
	Known      bool           `json:"known"`
	OpenedAt   time.Time      `json:"opened_at"`

	handler vendors.Handler
	target  *vendors.Target
	logger  *slog.Logger

	// probe checks the device is still attached before a write. It may
	// swap the target's transport for a reopened one.
	probe   func(ctx context.Context) error
	release func() error

	slots   *cache.Cache
	slotKey string

	opMu     sync.Mutex
	handleMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error

	lost     chan struct{}
	lostOnce sync.Once
	lostErr  atomic.Pointer[lostCause]
}

type lostCause struct{ err error }

func newSession(c Candidate, h vendors.Handler, t *vendors.Target, release func() error) *DeviceSession {
	ctx, cancel := context.WithCancel(context.Background())
	s := &DeviceSession{
		ID:         uuid.NewString(),
		Device:     c.Device,
		Vendor:     c.Vendor,
		Capability: c.Capability.Clone(),
		Known:      c.Known,
		OpenedAt:   time.Now(),
		handler:    h,
		target:     t,
		release:    release,
		ctx:        ctx,
		cancel:     cancel,
		lost:       make(chan struct{}),
	}
	s.logger = logger().With("session", s.ID, "handler", h.Name())
	metrics.SetConnected(string(c.Transport), true)
	s.logger.Info("Device session opened",
		"transport", c.Transport,
		"path", c.Path,
		"manufacturer", s.Capability.Manufacturer,
		"model", s.Capability.Model,
		"experimental", s.Capability.Experimental)
	return s
}

// watch marks the session lost when removed fires.
func (s *DeviceSession) watch(removed <-chan struct{}) {
	if removed == nil {
		return
	}
	go func() {
		select {
		case <-removed:
			s.markLost(peq.Disconnected("hotplug", errUnplugged))
		case <-s.ctx.Done():
		}
	}()
}

// Handler returns the vendor driver name.
func (s *DeviceSession) Handler() string { return s.handler.Name() }

// Lost is closed when the device is found to be gone.
func (s *DeviceSession) Lost() <-chan struct{} { return s.lost }

// LostErr returns why the session was marked lost, or nil.
func (s *DeviceSession) LostErr() error {
	if c := s.lostErr.Load(); c != nil {
		return c.err
	}
	return nil
}

func (s *DeviceSession) markLost(err error) {
	s.lostOnce.Do(func() {
		s.lostErr.Store(&lostCause{err: err})
		close(s.lost)
		s.logger.Warn("Device lost", "error", err)
	})
}

// Closed reports whether Close was called.
func (s *DeviceSession) Closed() bool { return s.closed.Load() }

// Close releases the transport and wakes any operation waiting on the
// device. It is safe to call more than once.
func (s *DeviceSession) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		s.handleMu.Lock()
		if s.release != nil {
			s.closeErr = s.release()
		}
		s.handleMu.Unlock()
		metrics.SetConnected(string(s.Device.Transport), false)
		metrics.DeleteDeviceStats(s.ID)
		s.logger.Info("Device session closed")
	})
	return s.closeErr
}

// do runs one operation. Writes are preceded by a liveness probe.
func (s *DeviceSession) do(ctx context.Context, op string, write bool, fn func(ctx context.Context) (bool, error)) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.closed.Load() {
		return peq.Disconnected(op, errSessionClosed)
	}
	if err := s.LostErr(); err != nil {
		return err
	}
	if write && s.probe != nil {
		s.handleMu.Lock()
		err := s.probe(ctx)
		s.handleMu.Unlock()
		if err != nil {
			s.markLost(err)
			metrics.RecordOperation(s.ID, s.handler.Name(), op, metrics.ResultError)
			return err
		}
	}

	start := time.Now()
	complete, err := fn(ctx)
	result := metrics.ResultOK
	switch {
	case errors.Is(err, peq.ErrTimeout):
		result = metrics.ResultTimeout
	case err != nil:
		result = metrics.ResultError
	case !complete:
		result = metrics.ResultPartial
	}
	metrics.RecordOperation(s.ID, s.handler.Name(), op, result)
	if errors.Is(err, peq.ErrDeviceDisconnected) {
		s.markLost(err)
	}
	s.logger.Debug("Device operation", "op", op, "result", result, "duration", time.Since(start), "error", err)
	return err
}

// CurrentSlot reads the active slot.
func (s *DeviceSession) CurrentSlot(ctx context.Context) (int, error) {
	var slot int
	err := s.do(ctx, "current_slot", false, func(ctx context.Context) (bool, error) {
		var err error
		slot, err = s.handler.CurrentSlot(ctx, s.target)
		return true, err
	})
	return slot, err
}

// AvailableSlots returns the device's slots. Drivers without a live query
// answer from the capability; live answers are cached.
func (s *DeviceSession) AvailableSlots(ctx context.Context) ([]peq.Slot, error) {
	lister, ok := s.handler.(vendors.SlotLister)
	if !ok {
		return append([]peq.Slot(nil), s.Capability.AvailableSlots...), nil
	}
	if s.slots != nil {
		if v, ok := s.slots.Get(s.slotKey); ok {
			return append([]peq.Slot(nil), v.([]peq.Slot)...), nil
		}
	}
	var slots []peq.Slot
	err := s.do(ctx, "available_slots", false, func(ctx context.Context) (bool, error) {
		var err error
		slots, err = lister.AvailableSlots(ctx, s.target)
		return true, err
	})
	if err != nil {
		return nil, err
	}
	if s.slots != nil {
		s.slots.SetDefault(s.slotKey, append([]peq.Slot(nil), slots...))
	}
	return slots, nil
}

// Pull reads the filters stored in slot. A result with Complete false is
// what arrived before the device stopped answering.
func (s *DeviceSession) Pull(ctx context.Context, slot int) (peq.PullResult, error) {
	var res peq.PullResult
	err := s.do(ctx, "pull", false, func(ctx context.Context) (bool, error) {
		var err error
		res, err = s.handler.Pull(ctx, s.target, slot)
		return res.Complete, err
	})
	return res, err
}

// Push writes filters and preamp to slot and reports whether the device
// must be reconnected afterwards. Callers validate filters first.
func (s *DeviceSession) Push(ctx context.Context, slot int, preamp float64, filters []peq.Filter) (bool, error) {
	var disconnect bool
	err := s.do(ctx, "push", true, func(ctx context.Context) (bool, error) {
		var err error
		disconnect, err = s.handler.Push(ctx, s.target, slot, preamp, filters)
		return true, err
	})
	return disconnect, err
}

// EnablePEQ switches to slot, or to the disabled preset.
func (s *DeviceSession) EnablePEQ(ctx context.Context, enabled bool, slot int) error {
	return s.do(ctx, "enable", true, func(ctx context.Context) (bool, error) {
		return true, s.handler.EnablePEQ(ctx, s.target, enabled, slot)
	})
}

// Version reads the firmware version where the driver supports it.
func (s *DeviceSession) Version(ctx context.Context) (string, bool, error) {
	v, ok := s.handler.(vendors.Versioner)
	if !ok {
		return "", false, nil
	}
	if cached := s.target.FirmwareVersion(); cached != "" {
		return cached, true, nil
	}
	var version string
	err := s.do(ctx, "version", false, func(ctx context.Context) (bool, error) {
		var err error
		version, err = v.Version(ctx, s.target)
		return true, err
	})
	return version, true, err
}

// Reset restores the factory EQ where the driver supports it.
func (s *DeviceSession) Reset(ctx context.Context) (bool, error) {
	r, ok := s.handler.(vendors.Resetter)
	if !ok {
		return false, nil
	}
	return true, s.do(ctx, "reset", true, func(ctx context.Context) (bool, error) {
		return true, r.Reset(ctx, s.target)
	})
}

// Stats returns the recorded operation counters for the session.
func (s *DeviceSession) Stats() *metrics.DeviceStats {
	return metrics.GetDeviceStats(s.ID)
}
