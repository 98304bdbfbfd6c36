// Package eventbus provides the in-process implementation of ports.EventBus.
package eventbus

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/ports"
)

// ErrClosed is returned by Close on a bus that is already closed.
var ErrClosed = errors.New("event bus closed")

// SyncEventBus delivers events synchronously on the publisher's goroutine, in
// subscription order. Typed, wildcard and filtered subscriptions share one ordered list.
//
// Thread-safety: Publish takes a copy of the subscription list under a read lock and
// calls handlers without holding it, so handlers may publish or (un)subscribe.
//
// Handlers run inline; a slow handler delays the publisher. Services publish only after
// releasing their own locks.
type SyncEventBus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	subs   []subscription
	closed bool

	nextID    atomic.Uint64
	published atomic.Uint64
}

type subscription struct {
	id        domain.SubscriptionID
	eventType domain.EventType
	all       bool
	filter    ports.EventFilter
	handler   domain.EventHandler
}

func (s subscription) matches(event domain.Event) bool {
	if !s.all && s.eventType != event.Type() {
		return false
	}
	return s.filter == nil || s.filter(event)
}

// NewSyncEventBus creates a new synchronous event bus.
func NewSyncEventBus(logger *slog.Logger) *SyncEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncEventBus{
		logger: logger.With(slog.String("component", "eventbus")),
	}
}

// Publish delivers event to every matching subscriber. Panics in handlers are recovered
// and logged; remaining handlers still run. Publishing on a closed bus does nothing.
func (bus *SyncEventBus) Publish(event domain.Event) {
	if event == nil {
		return
	}

	bus.mu.RLock()
	if bus.closed {
		bus.mu.RUnlock()
		return
	}
	subs := slices.Clone(bus.subs)
	bus.mu.RUnlock()

	bus.published.Add(1)
	for _, sub := range subs {
		if sub.matches(event) {
			bus.callHandler(sub, event)
		}
	}
}

func (bus *SyncEventBus) callHandler(sub subscription, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			bus.logger.Error("event handler panicked",
				slog.Any("panic", r),
				slog.String("event_type", string(event.Type())),
				slog.String("subscription", string(sub.id)))
		}
	}()
	sub.handler(event)
}

// Subscribe registers a handler for events of one type.
func (bus *SyncEventBus) Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	return bus.add(subscription{eventType: eventType, handler: handler})
}

// SubscribeAll registers a handler that receives every event.
func (bus *SyncEventBus) SubscribeAll(handler domain.EventHandler) domain.SubscriptionID {
	return bus.add(subscription{all: true, handler: handler})
}

// SubscribeFiltered registers a handler for events of one type that pass filter.
func (bus *SyncEventBus) SubscribeFiltered(eventType domain.EventType, filter ports.EventFilter, handler domain.EventHandler) domain.SubscriptionID {
	return bus.add(subscription{eventType: eventType, filter: filter, handler: handler})
}

func (bus *SyncEventBus) add(sub subscription) domain.SubscriptionID {
	if sub.handler == nil {
		panic("event handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		panic("cannot subscribe to closed event bus")
	}

	prefix := "sub"
	if sub.all {
		prefix = "sub-all"
	}
	sub.id = domain.SubscriptionID(fmt.Sprintf("%s-%d", prefix, bus.nextID.Add(1)))
	bus.subs = append(bus.subs, sub)
	return sub.id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (bus *SyncEventBus) Unsubscribe(id domain.SubscriptionID) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.subs = slices.DeleteFunc(bus.subs, func(s subscription) bool { return s.id == id })
}

// HasSubscribers reports whether an event of eventType would reach any handler,
// ignoring filters.
func (bus *SyncEventBus) HasSubscribers(eventType domain.EventType) bool {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	return slices.ContainsFunc(bus.subs, func(s subscription) bool {
		return s.all || s.eventType == eventType
	})
}

// Close drops every subscription. Later publishes are ignored.
func (bus *SyncEventBus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return ErrClosed
	}
	bus.closed = true
	bus.subs = nil

	bus.logger.Debug("event bus closed", slog.Uint64("published", bus.published.Load()))
	return nil
}

// SubscriberCount returns the number of active subscriptions.
func (bus *SyncEventBus) SubscriberCount() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.subs)
}

var _ ports.FilteringEventBus = (*SyncEventBus)(nil)
