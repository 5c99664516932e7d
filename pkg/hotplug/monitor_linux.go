//go:build linux

package hotplug

import (
	"context"
	"errors"
	"sync"
	"syscall"
)

// netlinkKobjectUEvent is NETLINK_KOBJECT_UEVENT.
const netlinkKobjectUEvent = 15

// Monitor reads uevents from the kernel broadcast group.
type Monitor struct {
	fd int

	mu         sync.RWMutex
	subsystems map[string]struct{}
}

// NewMonitor opens the uevent socket.
func NewMonitor() (*Monitor, error) {
	fd, err := syscall.Socket(syscall.AF_NETLINK, syscall.SOCK_DGRAM|syscall.SOCK_CLOEXEC, netlinkKobjectUEvent)
	if err != nil {
		return nil, err
	}
	addr := &syscall.SockaddrNetlink{Family: syscall.AF_NETLINK, Groups: 1}
	if err := syscall.Bind(fd, addr); err != nil {
		syscall.Close(fd)
		return nil, err
	}
	return &Monitor{fd: fd, subsystems: make(map[string]struct{})}, nil
}

// Filter restricts Run to the given subsystems. Without a filter every
// event is delivered.
func (m *Monitor) Filter(subsystems ...string) {
	m.mu.Lock()
	for _, s := range subsystems {
		m.subsystems[s] = struct{}{}
	}
	m.mu.Unlock()
}

func (m *Monitor) wants(subsystem string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.subsystems) == 0 {
		return true
	}
	_, ok := m.subsystems[subsystem]
	return ok
}

// Close releases the socket.
func (m *Monitor) Close() error {
	return syscall.Close(m.fd)
}

// Run delivers events until ctx is done or the socket fails. events is
// closed when Run returns.
func (m *Monitor) Run(ctx context.Context, events chan<- Event) error {
	defer close(events)

	// A receive timeout lets the loop notice cancellation.
	tv := syscall.Timeval{Sec: 1}
	if err := syscall.SetsockoptTimeval(m.fd, syscall.SOL_SOCKET, syscall.SO_RCVTIMEO, &tv); err != nil {
		return err
	}

	buf := make([]byte, 8192)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, _, err := syscall.Recvfrom(m.fd, buf, 0)
		if err != nil {
			if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EINTR) {
				continue
			}
			return err
		}
		ev := ParseUEvent(buf[:n])
		if ev == nil || !m.wants(ev.Subsystem) {
			continue
		}
		select {
		case events <- *ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Watch opens a monitor for subsystems and streams its events until ctx is
// done.
func Watch(ctx context.Context, subsystems ...string) (<-chan Event, error) {
	m, err := NewMonitor()
	if err != nil {
		return nil, err
	}
	m.Filter(subsystems...)
	events := make(chan Event, 16)
	go func() {
		defer m.Close()
		_ = m.Run(ctx, events)
	}()
	return events, nil
}

