package events

import "github.com/kelindar/event"

// SubscribeToChannel forwards events of type T into ch for the SSE handlers,
// which select on a channel. A slow client never blocks the publisher: when
// ch is full the event is dropped and counted in Bus.Dropped.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
			bus.dropped.Add(1)
		}
	})
}

// Dropped reports how many events stream subscribers missed.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}
