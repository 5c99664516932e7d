// Package transport moves raw reports and requests between vendor drivers
// and devices over USB HID, USB serial and HTTP.
package transport

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/peqlink/internal/logging"
	"github.com/smazurov/peqlink/internal/metrics"
	"github.com/smazurov/peqlink/internal/peq"
)

const (
	// PollInterval bounds how long the reader blocks before checking for
	// shutdown.
	PollInterval = 100 * time.Millisecond

	// DefaultReadTimeout applies to single-value reads.
	DefaultReadTimeout = time.Second

	maxReportSize  = 64
	subscriberBuf  = 64
	transportLabel = "hid"
)

// HIDDevice is an open HID handle. ReadReport returns the report payload
// without its report ID and (0, nil) when nothing arrived within timeout.
type HIDDevice interface {
	SendReport(reportID byte, data []byte) error
	ReadReport(buf []byte, timeout time.Duration) (int, error)
	Close() error
}

// Matcher selects the input reports a listener is interested in.
type Matcher func(report []byte) bool

// Any matches every report.
func Any(report []byte) bool { return true }

// HIDSession owns one HIDDevice: a single reader goroutine dispatches every
// input report to the pending listeners whose matcher accepts it.
type HIDSession struct {
	dev      HIDDevice
	reportID byte
	logger   *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[uint64]*Subscription
	nextID  uint64
	err     error

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewHIDSession starts reading from dev. Reports are sent with reportID.
func NewHIDSession(dev HIDDevice, reportID byte) *HIDSession {
	s := &HIDSession{
		dev:      dev,
		reportID: reportID,
		logger:   logging.GetLogger("hid"),
		pending:  make(map[uint64]*Subscription),
		done:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.readLoop()
	return s
}

// ReportID returns the report ID outgoing reports are tagged with.
func (s *HIDSession) ReportID() byte { return s.reportID }

func (s *HIDSession) readLoop() {
	defer s.wg.Done()
	buf := make([]byte, maxReportSize)
	for {
		select {
		case <-s.done:
			return
		default:
		}

		n, err := s.dev.ReadReport(buf, PollInterval)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.logger.Warn("HID read failed, closing session", "error", err)
			s.fail(peq.Disconnected("read report", err))
			return
		}
		if n == 0 {
			continue
		}

		report := make([]byte, n)
		copy(report, buf[:n])
		metrics.IncReportsReceived(transportLabel)
		s.logger.Debug("HID report received", "data", hex.EncodeToString(report))
		s.dispatch(report)
	}
}

func (s *HIDSession) dispatch(report []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.pending {
		if !sub.match(report) {
			continue
		}
		select {
		case sub.ch <- report:
		default:
			metrics.IncDropped(transportLabel)
			s.logger.Warn("Listener queue full, dropping report", "listener", sub.id)
		}
	}
}

// fail records the terminal error and wakes every listener.
func (s *HIDSession) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.done) })
}

// Err returns why the session stopped, or nil while it is alive.
func (s *HIDSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Send writes one output report.
func (s *HIDSession) Send(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-s.done:
		return s.closedErr("send report")
	default:
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.logger.Debug("HID report sent", "report_id", s.reportID, "data", hex.EncodeToString(data))
	if err := s.dev.SendReport(s.reportID, data); err != nil {
		return peq.Disconnected("send report", err)
	}
	metrics.IncReportsSent(transportLabel)
	return nil
}

// Subscribe registers a listener. The caller must Close it; until then every
// matching report is queued on it.
func (s *HIDSession) Subscribe(match Matcher) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sub := &Subscription{
		s:     s,
		id:    s.nextID,
		match: match,
		ch:    make(chan []byte, subscriberBuf),
	}
	s.pending[sub.id] = sub
	return sub
}

// Pending returns the number of registered listeners.
func (s *HIDSession) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Exchange sends req and waits for the first report accepted by match.
func (s *HIDSession) Exchange(ctx context.Context, req []byte, match Matcher, timeout time.Duration) ([]byte, error) {
	sub := s.Subscribe(match)
	defer sub.Close()

	start := time.Now()
	if err := s.Send(ctx, req); err != nil {
		return nil, err
	}

	var resp []byte
	err := sub.Await(ctx, timeout, func(report []byte) bool {
		resp = report
		return true
	})
	if err != nil {
		return nil, err
	}
	metrics.ObserveLatency(transportLabel, time.Since(start))
	return resp, nil
}

// Close stops the reader, releases the device and wakes pending listeners.
// It is safe to call more than once.
func (s *HIDSession) Close() error {
	s.fail(peq.Disconnected("session", errClosed))
	s.wg.Wait()

	s.mu.Lock()
	clear(s.pending)
	s.mu.Unlock()

	return s.dev.Close()
}

// Done is closed once the session stops.
func (s *HIDSession) Done() <-chan struct{} { return s.done }

func (s *HIDSession) closedErr(op string) error {
	if err := s.Err(); err != nil {
		return err
	}
	return peq.Disconnected(op, errClosed)
}

var errClosed = errors.New("session closed")

// Subscription is one registered listener.
type Subscription struct {
	s     *HIDSession
	id    uint64
	match Matcher
	ch    chan []byte
	once  sync.Once
}

// Reports delivers matching reports in arrival order.
func (sub *Subscription) Reports() <-chan []byte { return sub.ch }

// Close deregisters the listener. Reports arriving afterwards are not
// delivered to it.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		sub.s.mu.Lock()
		delete(sub.s.pending, sub.id)
		sub.s.mu.Unlock()
	})
}

// Await feeds matching reports to handle until it returns true. It returns a
// TIMEOUT error once timeout elapses, measured on the monotonic clock from
// the call, or DEVICE_DISCONNECTED if the session stops first.
func (sub *Subscription) Await(ctx context.Context, timeout time.Duration, handle func(report []byte) bool) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case report := <-sub.ch:
			if handle(report) {
				return nil
			}
		case <-timer.C:
			metrics.IncTimeouts(transportLabel)
			return peq.Timeout("read report", context.DeadlineExceeded)
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.s.done:
			return sub.s.closedErr("read report")
		}
	}
}
