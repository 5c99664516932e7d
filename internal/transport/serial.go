package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/smazurov/peqlink/internal/logging"
	"github.com/smazurov/peqlink/internal/metrics"
	"github.com/smazurov/peqlink/internal/peq"
)

const (
	// DefaultBaudRate is what JSON-over-serial DSPs expect.
	DefaultBaudRate = 115200

	// DefaultSerialTimeout bounds one request/response exchange.
	DefaultSerialTimeout = 5 * time.Second

	serialLabel      = "serial"
	serialTerminator = 0x00
)

// SerialPort is an open serial line. Read returns (0, nil) when the read
// timeout expires without data.
type SerialPort interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// SerialInfo describes an attached serial port.
type SerialInfo struct {
	Name      string `json:"name" example:"/dev/ttyACM0" doc:"Port name"`
	VendorID  uint16 `json:"vendor_id" example:"5418" doc:"USB vendor ID, 0 for non-USB ports"`
	ProductID uint16 `json:"product_id" example:"35066" doc:"USB product ID"`
	Product   string `json:"product,omitempty" doc:"OS product description"`
	Serial    string `json:"serial,omitempty" doc:"Serial number"`
}

// EnumerateSerial lists USB serial ports.
func EnumerateSerial() ([]SerialInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	var out []SerialInfo
	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		out = append(out, SerialInfo{
			Name:      p.Name,
			VendorID:  parseHexID(p.VID),
			ProductID: parseHexID(p.PID),
			Product:   p.Product,
			Serial:    p.SerialNumber,
		})
	}
	return out, nil
}

func parseHexID(s string) uint16 {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 16)
	if err != nil {
		return 0
	}
	return uint16(v)
}

// OpenSerial opens name at baud, 8N1.
func OpenSerial(name string, baud int) (SerialPort, error) {
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return port, nil
}

// SerialSession exchanges NUL-terminated JSON documents over a SerialPort.
// Requests are strictly sequential.
type SerialSession struct {
	port   SerialPort
	logger *slog.Logger

	mu     sync.Mutex
	buf    []byte
	closed atomic.Bool
}

// NewSerialSession wraps an open port.
func NewSerialSession(port SerialPort) *SerialSession {
	return &SerialSession{
		port:   port,
		logger: logging.GetLogger("serial"),
	}
}

// Request sends req as JSON and decodes the next response into resp.
func (s *SerialSession) Request(ctx context.Context, req, resp any, timeout time.Duration) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return peq.Disconnected("serial request", errClosed)
	}

	start := time.Now()
	s.logger.Debug("Serial request", "data", string(payload))
	if _, err := s.port.Write(append(payload, serialTerminator)); err != nil {
		return peq.Disconnected("serial write", err)
	}
	metrics.IncReportsSent(serialLabel)

	frame, err := s.readFrame(ctx, timeout)
	if err != nil {
		return err
	}
	metrics.IncReportsReceived(serialLabel)
	metrics.ObserveLatency(serialLabel, time.Since(start))
	s.logger.Debug("Serial response", "data", string(frame))

	if err := json.Unmarshal(frame, resp); err != nil {
		return peq.NewDeviceError(peq.ErrCodeProtocolDecode, "decode serial response", err)
	}
	return nil
}

// readFrame reads until a terminator. Bytes after it are kept for the next
// frame.
func (s *SerialSession) readFrame(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if err := s.port.SetReadTimeout(PollInterval); err != nil {
		return nil, peq.Disconnected("serial set timeout", err)
	}
	deadline := time.Now().Add(timeout)
	chunk := make([]byte, 256)
	for {
		if i := bytes.IndexByte(s.buf, serialTerminator); i >= 0 {
			frame := bytes.TrimSpace(s.buf[:i])
			s.buf = append([]byte(nil), s.buf[i+1:]...)
			if len(frame) == 0 {
				continue
			}
			return frame, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if time.Now().After(deadline) {
			metrics.IncTimeouts(serialLabel)
			return nil, peq.Timeout("serial response", context.DeadlineExceeded)
		}

		n, err := s.port.Read(chunk)
		if err != nil || s.closed.Load() {
			if err == nil {
				err = errClosed
			}
			return nil, peq.Disconnected("serial read", err)
		}
		s.buf = append(s.buf, chunk[:n]...)
	}
}

// Close releases the port, failing an in-flight request. It is safe to call
// more than once.
func (s *SerialSession) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.port.Close()
}
