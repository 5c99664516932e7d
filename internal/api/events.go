package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/peqlink/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Notifications to show the user, plus session and filter list lifecycle events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"notification":        events.NotificationEvent{},
		"session-opened":      events.SessionOpenedEvent{},
		"session-closed":      events.SessionClosedEvent{},
		"filters-pulled":      events.FiltersPulledEvent{},
		"filters-pushed":      events.FiltersPushedEvent{},
		"slot-changed":        events.SlotChangedEvent{},
		"filter-list-changed": events.FilterListChangedEvent{},
		"registry-reloaded":   events.RegistryReloadedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.NotificationEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SessionOpenedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SessionClosedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.FiltersPulledEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.FiltersPushedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SlotChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.FilterListChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.RegistryReloadedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Send initial connection confirmation
		if err := send.Data(events.NotificationEvent{
			Level:     events.LevelInfo,
			Message:   "SSE connection established",
			Timestamp: events.Now(),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
