// Package hidtest provides a scripted in-memory HID device for tests.
package hidtest

import (
	"errors"
	"sync"
	"time"
)

// ErrUnplugged is returned by a Device after Unplug.
var ErrUnplugged = errors.New("device unplugged")

// Report is one output report captured by a Device.
type Report struct {
	ID   byte
	Data []byte
}

// Responder answers an output report with zero or more input reports.
type Responder func(reportID byte, data []byte) [][]byte

// Device implements transport.HIDDevice in memory.
type Device struct {
	respond Responder
	in      chan []byte

	mu       sync.Mutex
	sent     []Report
	unplug   bool
	closed   bool
	closedCh chan struct{}
}

// New returns a Device that answers with respond, which may be nil.
func New(respond Responder) *Device {
	return &Device{
		respond:  respond,
		in:       make(chan []byte, 1024),
		closedCh: make(chan struct{}),
	}
}

// SendReport records the report and queues the responder's answers.
func (d *Device) SendReport(reportID byte, data []byte) error {
	d.mu.Lock()
	if d.unplug {
		d.mu.Unlock()
		return ErrUnplugged
	}
	if d.closed {
		d.mu.Unlock()
		return errors.New("device closed")
	}
	d.sent = append(d.sent, Report{ID: reportID, Data: append([]byte(nil), data...)})
	respond := d.respond
	d.mu.Unlock()

	if respond == nil {
		return nil
	}
	for _, r := range respond(reportID, data) {
		d.Inject(r)
	}
	return nil
}

// ReadReport returns the next queued input report.
func (d *Device) ReadReport(buf []byte, timeout time.Duration) (int, error) {
	d.mu.Lock()
	unplugged := d.unplug
	d.mu.Unlock()
	if unplugged {
		return 0, ErrUnplugged
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-d.in:
		return copy(buf, r), nil
	case <-timer.C:
		return 0, nil
	case <-d.closedCh:
		return 0, errors.New("device closed")
	}
}

// Inject queues an unsolicited input report.
func (d *Device) Inject(report []byte) {
	d.in <- append([]byte(nil), report...)
}

// Sent returns every output report so far.
func (d *Device) Sent() []Report {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Report(nil), d.sent...)
}

// SentData returns the payloads of every output report so far.
func (d *Device) SentData() [][]byte {
	reports := d.Sent()
	out := make([][]byte, len(reports))
	for i, r := range reports {
		out[i] = r.Data
	}
	return out
}

// Unplug makes every later read and write fail.
func (d *Device) Unplug() {
	d.mu.Lock()
	d.unplug = true
	d.mu.Unlock()
}

// Closed reports whether Close was called.
func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Close releases the device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.closedCh)
	}
	return nil
}
