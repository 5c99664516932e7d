package events

import (
	"sync/atomic"
	"time"

	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
	dropped    atomic.Uint64
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(NotificationEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case NotificationEvent:
		event.Publish(b.dispatcher, e)
	case SessionOpenedEvent:
		event.Publish(b.dispatcher, e)
	case SessionClosedEvent:
		event.Publish(b.dispatcher, e)
	case FiltersPulledEvent:
		event.Publish(b.dispatcher, e)
	case FiltersPushedEvent:
		event.Publish(b.dispatcher, e)
	case SlotChangedEvent:
		event.Publish(b.dispatcher, e)
	case FilterListChangedEvent:
		event.Publish(b.dispatcher, e)
	case RegistryReloadedEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler type determines which events it receives.
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e NotificationEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(NotificationEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SessionOpenedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SessionClosedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FiltersPulledEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FiltersPushedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SlotChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FilterListChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RegistryReloadedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}

// Notify publishes a NotificationEvent stamped with the current time.
func (b *Bus) Notify(level, code, message string, duration time.Duration) {
	b.Publish(NotificationEvent{
		Level:      level,
		Code:       code,
		Message:    message,
		DurationMS: int(duration / time.Millisecond),
		Timestamp:  Now(),
	})
}

// Now formats the current time the way every event carries it.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
