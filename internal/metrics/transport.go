// Package metrics provides Prometheus metrics for device transports and PEQ operations.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transportReports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "peqlink",
		Subsystem: "transport",
		Name:      "reports_total",
		Help:      "Reports or requests exchanged with devices",
	}, []string{"transport", "direction"})

	transportTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "peqlink",
		Subsystem: "transport",
		Name:      "timeouts_total",
		Help:      "Device reads that hit their deadline",
	}, []string{"transport"})

	transportDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "peqlink",
		Subsystem: "transport",
		Name:      "dropped_reports_total",
		Help:      "Input reports discarded because a listener was not keeping up",
	}, []string{"transport"})

	transportLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "peqlink",
		Subsystem: "transport",
		Name:      "request_duration_seconds",
		Help:      "Time from request to matched response",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"transport"})

	deviceOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "peqlink",
		Subsystem: "device",
		Name:      "operations_total",
		Help:      "PEQ operations by vendor handler and result",
	}, []string{"handler", "operation", "result"})

	deviceConnected = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "peqlink",
		Subsystem: "device",
		Name:      "connected",
		Help:      "Whether a device session is open",
	}, []string{"transport"})

	// Local cache for the API session view.
	deviceCache   = make(map[string]*DeviceStats)
	deviceCacheMu sync.RWMutex
)

// DeviceStats holds the last observed results for a device session.
type DeviceStats struct {
	Operations    int       `json:"operations"`
	Failures      int       `json:"failures"`
	Timeouts      int       `json:"timeouts"`
	LastOperation string    `json:"last_operation,omitempty"`
	LastResult    string    `json:"last_result,omitempty"`
	LastAt        time.Time `json:"last_at"`
}

// IncReportsSent counts an outgoing report or request.
func IncReportsSent(transport string) {
	transportReports.WithLabelValues(transport, "out").Inc()
}

// IncReportsReceived counts an incoming report or response.
func IncReportsReceived(transport string) {
	transportReports.WithLabelValues(transport, "in").Inc()
}

// IncTimeouts counts a read that expired.
func IncTimeouts(transport string) {
	transportTimeouts.WithLabelValues(transport).Inc()
}

// IncDropped counts an input report discarded by a full listener.
func IncDropped(transport string) {
	transportDropped.WithLabelValues(transport).Inc()
}

// ObserveLatency records a request/response round trip.
func ObserveLatency(transport string, d time.Duration) {
	transportLatency.WithLabelValues(transport).Observe(d.Seconds())
}

// SetConnected marks a transport as having an open session or not.
func SetConnected(transport string, connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	deviceConnected.WithLabelValues(transport).Set(v)
}

// RecordOperation counts a PEQ operation and updates the cached stats for sessionID.
func RecordOperation(sessionID, handler, operation, result string) {
	deviceOperations.WithLabelValues(handler, operation, result).Inc()
	updateCache(sessionID, func(s *DeviceStats) {
		s.Operations++
		switch result {
		case ResultError:
			s.Failures++
		case ResultTimeout:
			s.Failures++
			s.Timeouts++
		}
		s.LastOperation = operation
		s.LastResult = result
		s.LastAt = time.Now()
	})
}

// Operation results.
const (
	ResultOK      = "ok"
	ResultPartial = "partial"
	ResultTimeout = "timeout"
	ResultError   = "error"
)

// GetDeviceStats returns the cached stats for a session.
func GetDeviceStats(sessionID string) *DeviceStats {
	deviceCacheMu.RLock()
	defer deviceCacheMu.RUnlock()
	if s, ok := deviceCache[sessionID]; ok {
		dup := *s
		return &dup
	}
	return nil
}

// DeleteDeviceStats drops the cached stats for a closed session.
func DeleteDeviceStats(sessionID string) {
	deviceCacheMu.Lock()
	delete(deviceCache, sessionID)
	deviceCacheMu.Unlock()
}

func updateCache(sessionID string, update func(*DeviceStats)) {
	deviceCacheMu.Lock()
	defer deviceCacheMu.Unlock()
	s, ok := deviceCache[sessionID]
	if !ok {
		s = &DeviceStats{}
		deviceCache[sessionID] = s
	}
	update(s)
}
