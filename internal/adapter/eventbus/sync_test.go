package eventbus

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/logger"
	"github.com/tejashwikalptaru/tunehub/internal/testutil"
)

func newTestBus(t *testing.T) *SyncEventBus {
	t.Helper()
	bus := NewSyncEventBus(logger.NewTestLogger())
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestSyncEventBus_PublishSubscribe(t *testing.T) {
	bus := newTestBus(t)

	var received []domain.Event
	id := bus.Subscribe(domain.EventProviderActivated, func(e domain.Event) {
		received = append(received, e)
	})
	require.NotEmpty(t, id)

	bus.Publish(domain.NewProviderActivatedEvent("local"))
	bus.Publish(domain.NewProviderDeactivatedEvent("local"))

	// Verify only the subscribed type arrives
	require.Len(t, received, 1)
	e, ok := received[0].(domain.ProviderActivatedEvent)
	require.True(t, ok)
	assert.Equal(t, "local", e.ProviderID)
}

func TestSyncEventBus_DeliveryOrder(t *testing.T) {
	bus := newTestBus(t)

	var order []string
	bus.Subscribe(domain.EventStateChanged, func(domain.Event) { order = append(order, "typed-1") })
	bus.SubscribeAll(func(domain.Event) { order = append(order, "all") })
	bus.Subscribe(domain.EventStateChanged, func(domain.Event) { order = append(order, "typed-2") })

	bus.Publish(domain.NewStateChangedEvent("x", 1, domain.ChangedQueue))

	assert.Equal(t, []string{"typed-1", "all", "typed-2"}, order)
}

func TestSyncEventBus_SubscribeFiltered(t *testing.T) {
	bus := newTestBus(t)

	var got []string
	bus.SubscribeFiltered(domain.EventTracksChanged,
		func(e domain.Event) bool { return e.(domain.TracksChangedEvent).Origin != "local" },
		func(e domain.Event) { got = append(got, e.(domain.TracksChangedEvent).Origin) })

	bus.Publish(domain.NewTracksChangedEvent([]string{"local"}, "local"))
	bus.Publish(domain.NewTracksChangedEvent([]string{"local"}, "user"))

	assert.Equal(t, []string{"user"}, got)
}

func TestSyncEventBus_Unsubscribe(t *testing.T) {
	bus := newTestBus(t)

	var calls int
	id := bus.Subscribe(domain.EventVolumeChanged, func(domain.Event) { calls++ })
	bus.Publish(domain.NewVolumeChangedEvent(50))
	bus.Unsubscribe(id)
	bus.Unsubscribe("sub-unknown")
	bus.Publish(domain.NewVolumeChangedEvent(60))

	assert.Equal(t, 1, calls)
	assert.Zero(t, bus.SubscriberCount())
}

func TestSyncEventBus_HasSubscribers(t *testing.T) {
	bus := newTestBus(t)

	assert.False(t, bus.HasSubscribers(domain.EventMuteToggled))
	id := bus.SubscribeAll(func(domain.Event) {})
	assert.True(t, bus.HasSubscribers(domain.EventMuteToggled))
	bus.Unsubscribe(id)
	bus.Subscribe(domain.EventMuteToggled, func(domain.Event) {})
	assert.True(t, bus.HasSubscribers(domain.EventMuteToggled))
	assert.False(t, bus.HasSubscribers(domain.EventScanStarted))
}

func TestSyncEventBus_HandlerPanicIsolated(t *testing.T) {
	bus := newTestBus(t)

	var after bool
	bus.Subscribe(domain.EventTrackEnded, func(domain.Event) { panic("boom") })
	bus.Subscribe(domain.EventTrackEnded, func(domain.Event) { after = true })

	assert.NotPanics(t, func() { bus.Publish(domain.NewTrackEndedEvent("local")) })
	assert.True(t, after)
}

func TestSyncEventBus_HandlerMaySubscribe(t *testing.T) {
	bus := newTestBus(t)

	bus.Subscribe(domain.EventScanStarted, func(domain.Event) {
		bus.Subscribe(domain.EventScanCompleted, func(domain.Event) {})
	})

	assert.NotPanics(t, func() { bus.Publish(domain.NewScanStartedEvent("local", nil)) })
	assert.Equal(t, 2, bus.SubscriberCount())
}

func TestSyncEventBus_Close(t *testing.T) {
	bus := NewSyncEventBus(nil)

	var calls int
	bus.SubscribeAll(func(domain.Event) { calls++ })
	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Close(), ErrClosed)

	bus.Publish(domain.NewMuteToggledEvent(true))
	assert.Zero(t, calls)
	assert.Panics(t, func() { bus.Subscribe(domain.EventMuteToggled, func(domain.Event) {}) })
}

func TestSyncEventBus_NilArguments(t *testing.T) {
	bus := newTestBus(t)

	assert.NotPanics(t, func() { bus.Publish(nil) })
	assert.Panics(t, func() { bus.Subscribe(domain.EventMuteToggled, nil) })
}

func TestSyncEventBus_ConcurrentPublishAndSubscribe(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	bus := newTestBus(t)
	var delivered atomic.Int64
	bus.Subscribe(domain.EventStateChanged, func(domain.Event) { delivered.Add(1) })

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := range 50 {
				bus.Publish(domain.NewStateChangedEvent("concurrent", uint64(i*50+j), domain.ChangedQueue))
			}
		}()
		go func() {
			defer wg.Done()
			id := bus.Subscribe(domain.EventHistoryChanged, func(domain.Event) {})
			bus.Unsubscribe(id)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(8*50), delivered.Load())
}
