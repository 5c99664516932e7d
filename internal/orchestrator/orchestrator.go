// Package orchestrator owns the single device session and drives pulls,
// pushes and slot changes through the connectors. Results reach the user
// as notifications on the event bus and through the filter list.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/peqlink/internal/connector"
	"github.com/smazurov/peqlink/internal/events"
	"github.com/smazurov/peqlink/internal/logging"
	"github.com/smazurov/peqlink/internal/peq"
)

// PushCooldown is how long after a push further pushes are ignored.
const PushCooldown = 200 * time.Millisecond

// Toast durations.
const (
	notifyShort = 5 * time.Second
	notifyLong  = 10 * time.Second
)

// protocolModules log at debug while an experimental device is connected.
var protocolModules = []string{"hid", "serial", "network", "vendors", "connector"}

// Connectors opens devices. *connector.Set satisfies it.
type Connectors interface {
	Candidates(ctx context.Context, kind peq.TransportKind) ([]connector.Candidate, error)
	Connect(ctx context.Context, req connector.Request) (*connector.DeviceSession, error)
}

// FilterList is the host UI's edited filter list.
type FilterList interface {
	FiltersToElem(set peq.FilterSet)
	ElemToFilters() peq.FilterSet
}

// Options configure an Orchestrator.
type Options struct {
	Connectors Connectors
	FilterList FilterList
	Bus        *events.Bus
	// Now replaces time.Now, for tests.
	Now func() time.Time
}

// ConnectRequest asks for a session. Experimental devices are only kept
// open when ConfirmExperimental is set.
type ConnectRequest struct {
	connector.Request
	ConfirmExperimental bool `json:"confirm_experimental,omitempty" doc:"Accept a device whose support is experimental"`
}

// PullOutcome reports a pull.
type PullOutcome struct {
	Result   peq.PullResult `json:"result"`
	Warnings []peq.Warning  `json:"warnings,omitempty"`
}

// PushOutcome reports a push. Skipped is set when the push arrived during
// the cooldown and nothing was written.
type PushOutcome struct {
	Plan
	Slot               int  `json:"slot"`
	DisconnectRequired bool `json:"disconnect_required"`
	Skipped            bool `json:"skipped,omitempty"`
}

// Orchestrator serializes the session lifecycle. At most one session is
// open at a time.
type Orchestrator struct {
	connectors Connectors
	list       FilterList
	bus        *events.Bus
	now        func() time.Time
	logger     *slog.Logger

	mu         sync.Mutex
	session    *connector.DeviceSession
	connecting bool
	lastPush   time.Time
	levels     map[string]string
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Bus == nil {
		opts.Bus = events.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		connectors: opts.Connectors,
		list:       opts.FilterList,
		bus:        opts.Bus,
		now:        opts.Now,
		logger:     logger(),
	}
}

func logger() *slog.Logger {
	return logging.GetLogger("orchestrator")
}

// Candidates lists attachable devices of one transport.
func (o *Orchestrator) Candidates(ctx context.Context, kind peq.TransportKind) ([]connector.Candidate, error) {
	return o.connectors.Candidates(ctx, kind)
}

// Connect opens a session. It fails with SESSION_ACTIVE while another
// session is open.
func (o *Orchestrator) Connect(ctx context.Context, req ConnectRequest) (*connector.DeviceSession, error) {
	o.mu.Lock()
	if o.session != nil && o.session.LostErr() != nil {
		o.closeLocked(events.CloseDisconnected)
	}
	if o.session != nil || o.connecting {
		o.mu.Unlock()
		return nil, peq.ErrSessionActive
	}
	o.connecting = true
	o.mu.Unlock()

	s, err := o.connectors.Connect(ctx, req.Request)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.connecting = false
	if err != nil {
		o.logger.Warn("Connect failed", "transport", req.Transport, "path", req.Path, "ip", req.IP, "error", err)
		o.bus.Notify(events.LevelError, errorCode(err), connectFailure(req.Transport, err), notifyShort)
		return nil, err
	}

	c := s.Capability
	if c.Experimental && !req.ConfirmExperimental {
		_ = s.Close()
		msg := fmt.Sprintf("%s is marked as an experimental device. Confirm to connect anyway.", c.Model)
		o.logger.Info("Experimental device not confirmed", "model", c.Model)
		o.bus.Notify(events.LevelWarning, peq.WarnExperimental, msg, notifyLong)
		return nil, peq.NewDeviceError(peq.ErrCodeExperimental, msg, nil)
	}

	o.session = s
	if c.Experimental {
		o.levels = make(map[string]string, len(protocolModules))
		for _, m := range protocolModules {
			o.levels[m] = logging.SetModuleLevel(m, "debug")
		}
		o.logger.Info("Enabling detailed logs for experimental device", "model", c.Model)
		o.bus.Notify(events.LevelWarning, peq.WarnExperimental,
			fmt.Sprintf("%s is an experimental device. If it works for you, please share the logs so it can be marked supported.", c.Model),
			notifyLong)
	}
	go o.watch(s)

	o.bus.Publish(events.SessionOpenedEvent{
		SessionID:    s.ID,
		Transport:    string(s.Device.Transport),
		Manufacturer: c.Manufacturer,
		Model:        c.Model,
		Handler:      s.Handler(),
		Experimental: c.Experimental,
		Timestamp:    events.Now(),
	})
	o.bus.Notify(events.LevelSuccess, "", fmt.Sprintf("Connected to %s %s", c.Manufacturer, c.Model), notifyShort)
	return s, nil
}

// watch tears the session down when its device goes away.
func (o *Orchestrator) watch(s *connector.DeviceSession) {
	<-s.Lost()
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session != s {
		return
	}
	o.logger.Warn("Device went away", "session", s.ID, "error", s.LostErr())
	o.bus.Notify(events.LevelError, peq.ErrCodeDeviceDisconnected, "Device disconnected.", notifyShort)
	o.closeLocked(events.CloseDisconnected)
}

// Session returns the open session or NOT_CONNECTED.
func (o *Orchestrator) Session() (*connector.DeviceSession, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil, peq.ErrNotConnected
	}
	return o.session, nil
}

// Disconnect closes the session. Calling it with no session is not an error.
func (o *Orchestrator) Disconnect() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closeLocked(events.CloseUser)
}

func (o *Orchestrator) closeLocked(reason string) {
	s := o.session
	if s == nil {
		return
	}
	o.session = nil
	if err := s.Close(); err != nil {
		o.logger.Warn("Closing device failed", "session", s.ID, "error", err)
	}
	for m, level := range o.levels {
		logging.SetModuleLevel(m, level)
	}
	o.levels = nil
	o.bus.Publish(events.SessionClosedEvent{SessionID: s.ID, Reason: reason, Timestamp: events.Now()})
	o.logger.Info("Session closed", "session", s.ID, "reason", reason)
}

// fail reports a device failure and, unless the request itself was bad,
// tears the session down before returning err.
func (o *Orchestrator) fail(s *connector.DeviceSession, message string, err error) error {
	o.logger.Error(message, "session", s.ID, "error", err)
	o.bus.Notify(events.LevelError, errorCode(err), message, notifyShort)
	if errors.Is(err, peq.ErrInvalidParams) {
		return err
	}
	reason := events.CloseError
	if errors.Is(err, peq.ErrDeviceDisconnected) {
		reason = events.CloseDisconnected
	}
	o.mu.Lock()
	if o.session == s {
		o.closeLocked(reason)
	}
	o.mu.Unlock()
	return err
}

// SlotInfo lists a session's slots.
type SlotInfo struct {
	Slots       []peq.Slot `json:"slots"`
	CurrentSlot int        `json:"current_slot" doc:"Active slot, -1 when PEQ is off"`
}

// Slots returns the available slots and the active one.
func (o *Orchestrator) Slots(ctx context.Context) (SlotInfo, error) {
	s, err := o.Session()
	if err != nil {
		return SlotInfo{}, err
	}
	slots, err := s.AvailableSlots(ctx)
	if err != nil {
		return SlotInfo{}, o.fail(s, "Failed to read PEQ slots.", err)
	}
	current, err := s.CurrentSlot(ctx)
	if err != nil {
		return SlotInfo{}, o.fail(s, "Failed to read the active PEQ slot.", err)
	}
	return SlotInfo{Slots: slots, CurrentSlot: current}, nil
}

// SelectSlot activates slotID, or turns PEQ off for DisabledSlotID.
func (o *Orchestrator) SelectSlot(ctx context.Context, slotID int) error {
	s, err := o.Session()
	if err != nil {
		return err
	}
	enabled := slotID != peq.DisabledSlotID
	if err := s.EnablePEQ(ctx, enabled, slotID); err != nil {
		o.logger.Error("Failed to update PEQ slot", "slot", slotID, "error", err)
		o.bus.Notify(events.LevelError, errorCode(err), "Failed to update PEQ slot.", notifyShort)
		if errors.Is(err, peq.ErrDeviceDisconnected) {
			o.mu.Lock()
			if o.session == s {
				o.closeLocked(events.CloseDisconnected)
			}
			o.mu.Unlock()
		}
		return err
	}
	if enabled {
		o.logger.Info("PEQ enabled", "slot", slotID)
	} else {
		o.logger.Info("PEQ disabled")
	}
	o.bus.Publish(events.SlotChangedEvent{SessionID: s.ID, Slot: slotID, Enabled: enabled, Timestamp: events.Now()})
	return nil
}

// Pull reads slot and hands the filters to the filter list. An empty
// result leaves the list untouched.
func (o *Orchestrator) Pull(ctx context.Context, slot int) (PullOutcome, error) {
	s, err := o.Session()
	if err != nil {
		return PullOutcome{}, err
	}
	res, err := s.Pull(ctx, slot)
	if err != nil {
		return PullOutcome{}, o.fail(s, "Failed to pull PEQ filters from device.", err)
	}

	out := PullOutcome{Result: res}
	if !res.Complete {
		w := peq.Warning{Code: peq.WarnIncompletePull, Message: fmt.Sprintf(
			"Device stopped answering: received %d of %d filters.", res.Received, res.Expected)}
		out.Warnings = append(out.Warnings, w)
		o.bus.Notify(events.LevelWarning, w.Code, w.Message, notifyShort)
	}

	if len(res.Filters) > 0 {
		o.list.FiltersToElem(res.FilterSet)
		o.bus.Notify(events.LevelSuccess, "", "PEQ filters successfully pulled from device.", notifyShort)
	} else {
		w := peq.Warning{Code: peq.WarnNoFiltersOnDevice, Message: "No PEQ filters found on the device."}
		out.Warnings = append(out.Warnings, w)
		o.bus.Notify(events.LevelWarning, w.Code, w.Message, notifyShort)
	}

	o.logger.Info("Pulled filters", "slot", slot, "filters", len(res.Filters), "complete", res.Complete)
	o.bus.Publish(events.FiltersPulledEvent{
		SessionID: s.ID,
		Slot:      slot,
		Filters:   len(res.Filters),
		Complete:  res.Complete,
		Timestamp: events.Now(),
	})
	return out, nil
}

// Push validates the edited filter list and writes it to slot. A nil
// preamp is derived from the filters.
func (o *Orchestrator) Push(ctx context.Context, slot int, preamp *float64) (PushOutcome, error) {
	o.mu.Lock()
	if !o.lastPush.IsZero() && o.now().Sub(o.lastPush) < PushCooldown {
		o.mu.Unlock()
		o.logger.Debug("Push ignored during cooldown")
		return PushOutcome{Slot: slot, Skipped: true}, nil
	}
	s := o.session
	o.mu.Unlock()
	if s == nil {
		return PushOutcome{}, peq.ErrNotConnected
	}

	set := o.list.ElemToFilters()
	if len(set.Filters) == 0 {
		msg := "Please add at least one filter before pushing."
		o.bus.Notify(events.LevelError, peq.ErrCodeInvalidParams, msg, notifyShort)
		return PushOutcome{}, peq.NewDeviceError(peq.ErrCodeInvalidParams, msg, nil)
	}

	plan := Validate(s.Capability, preamp, set.Filters)
	for _, w := range plan.Warnings {
		d := notifyShort
		if w.Code == peq.WarnFiltersTruncated {
			d = notifyLong
		}
		o.logger.Warn(w.Message, "code", w.Code)
		o.bus.Notify(events.LevelWarning, w.Code, w.Message, d)
	}

	disconnect, err := s.Push(ctx, slot, plan.Preamp, plan.Filters)
	if err != nil {
		return PushOutcome{}, o.fail(s, "Failed to push PEQ filters to device.", err)
	}

	o.mu.Lock()
	o.lastPush = o.now()
	o.mu.Unlock()

	o.logger.Info("Pushed filters", "slot", slot, "filters", len(plan.Filters), "preamp", plan.Preamp, "disconnect", disconnect)
	o.bus.Publish(events.FiltersPushedEvent{
		SessionID:          s.ID,
		Slot:               slot,
		Filters:            len(plan.Filters),
		Preamp:             plan.Preamp,
		DisconnectRequired: disconnect,
		Timestamp:          events.Now(),
	})
	if disconnect {
		o.mu.Lock()
		if o.session == s {
			o.closeLocked(events.CloseSave)
		}
		o.mu.Unlock()
		o.bus.Notify(events.LevelSuccess, "", "PEQ Saved - Restarting", notifyShort)
	} else {
		o.bus.Notify(events.LevelSuccess, "", "PEQ Successfully pushed to device", notifyShort)
	}
	return PushOutcome{Plan: plan, Slot: slot, DisconnectRequired: disconnect}, nil
}

// Reset restores the device's factory EQ. Drivers without a reset command
// answer INVALID_PARAMS.
func (o *Orchestrator) Reset(ctx context.Context) error {
	s, err := o.Session()
	if err != nil {
		return err
	}
	supported, err := s.Reset(ctx)
	if err != nil {
		return o.fail(s, "Failed to reset the device EQ.", err)
	}
	if !supported {
		msg := fmt.Sprintf("%s cannot be reset from here.", s.Capability.Model)
		o.bus.Notify(events.LevelWarning, peq.ErrCodeInvalidParams, msg, notifyShort)
		return peq.NewDeviceError(peq.ErrCodeInvalidParams, msg, nil)
	}
	o.logger.Info("Device EQ reset", "session", s.ID)
	o.bus.Notify(events.LevelSuccess, "", "Device EQ reset to factory defaults.", notifyShort)
	return nil
}

// Close ends any open session. It is used at shutdown.
func (o *Orchestrator) Close() {
	o.Disconnect()
}

func errorCode(err error) string {
	var de *peq.DeviceError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func connectFailure(kind peq.TransportKind, err error) string {
	if errors.Is(err, peq.ErrUnsupportedDevice) {
		switch kind {
		case peq.TransportNetwork:
			return "Sorry, this network device is not currently supported."
		case peq.TransportSerial:
			return "Sorry, this USB Serial device is not currently supported."
		default:
			return "Sorry, this USB device is not currently supported."
		}
	}
	if errors.Is(err, peq.ErrInvalidParams) && kind == peq.TransportNetwork {
		return "Please enter a valid IP address."
	}
	return "Failed to connect to the device."
}
