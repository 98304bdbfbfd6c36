// Package ports define the EventBus interface for event-driven communication.
// Consumers observe state, provider and playback changes without coupling to the services.
package ports

import (
	"github.com/tejashwikalptaru/tunehub/internal/domain"
)

// EventBus delivers domain events from the services and providers to whoever listens:
// views, the session persister, media-session integrations, logging.
//
// Services publish after releasing their own locks, so handlers may call back into
// them. Implementations must be safe for concurrent use.
//
// Example usage:
//
//	subID := bus.Subscribe(domain.EventStateChanged, func(event domain.Event) {
//	    e := event.(domain.StateChangedEvent)
//	    if e.Changed.Has(domain.ChangedQueue) {
//	        view.RefreshQueue()
//	    }
//	})
//	defer bus.Unsubscribe(subID)
type EventBus interface {
	// Publish hands event to every subscriber of its type and to every SubscribeAll
	// handler. Handlers should return quickly.
	Publish(event domain.Event)

	// Subscribe registers handler for one event type. Registering the same handler
	// twice yields two subscriptions.
	Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// Unsubscribe removes a subscription. Unknown ids are ignored.
	Unsubscribe(id domain.SubscriptionID)

	// SubscribeAll registers handler for every event type.
	SubscribeAll(handler domain.EventHandler) domain.SubscriptionID

	// HasSubscribers reports whether anyone listens for eventType.
	HasSubscribers(eventType domain.EventType) bool

	// Close drops every subscription. Publishing afterwards is a no-op.
	Close() error
}

// EventFilter decides whether an event reaches a filtered subscriber.
type EventFilter func(event domain.Event) bool

// FilteringEventBus is an EventBus with filtered subscriptions.
type FilteringEventBus interface {
	EventBus

	// SubscribeFiltered registers handler for events of eventType that pass filter,
	// for example only the scan events of one provider:
	//
	//	bus.SubscribeFiltered(domain.EventScanCompleted, func(e domain.Event) bool {
	//	    return e.(domain.ScanCompletedEvent).ProviderID == "local"
	//	}, onScanned)
	SubscribeFiltered(eventType domain.EventType, filter EventFilter, handler domain.EventHandler) domain.SubscriptionID
}
