package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunehub/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/logger"
	"github.com/tejashwikalptaru/tunehub/internal/service"
)

type host struct {
	state    *service.StateService
	registry *service.ProviderRegistry
	playback *service.PlaybackService
}

func newHost(t *testing.T) *host {
	t.Helper()
	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus(log)
	h := &host{state: service.NewStateService(log, bus, 0)}
	h.registry = service.NewProviderRegistry(log, bus, h.state, service.RegistryConfig{})
	h.playback = service.NewPlaybackService(log, bus, h.state, h.registry, service.DefaultPlaybackConfig())
	h.registry.AttachPlayback(h.playback)
	t.Cleanup(func() {
		h.playback.Shutdown()
		h.registry.Shutdown()
		_ = bus.Close()
	})
	return h
}

func (h *host) enable(t *testing.T, f *Factory) {
	t.Helper()
	require.NoError(t, h.registry.Register(f.Descriptor(ID)))
	require.NoError(t, h.registry.Enable(context.Background(), ID))
}

func TestDemoTracks(t *testing.T) {
	tracks := DemoTracks(5)

	require.Len(t, tracks, 5)
	assert.Equal(t, "demo-01", tracks[0].URI)
	assert.Equal(t, "Album B", *tracks[1].Album)
	assert.True(t, *tracks[4].MetadataLoaded)
}

func TestFactory_PushesTracks(t *testing.T) {
	h := newHost(t)
	f := &Factory{Tracks: DemoTracks(3)}
	h.enable(t, f)

	assert.Equal(t, 1, f.Created())
	assert.Len(t, h.state.ProviderTracks(ID), 3)
}

func TestFactory_CreateErrRollsBack(t *testing.T) {
	h := newHost(t)
	f := &Factory{Tracks: DemoTracks(3), CreateErr: errors.New("offline")}
	require.NoError(t, h.registry.Register(f.Descriptor(ID)))

	err := h.registry.Enable(context.Background(), ID)
	var provErr *domain.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Empty(t, h.state.ProviderTracks(ID))
	assert.Nil(t, f.Last())
}

func TestProvider_PlaysThroughHost(t *testing.T) {
	h := newHost(t)
	f := &Factory{Tracks: DemoTracks(3)}
	h.enable(t, f)
	ctx := context.Background()

	ids := []domain.TrackID{
		domain.MustTrackID(ID, "demo-01"),
		domain.MustTrackID(ID, "demo-02"),
	}
	require.NoError(t, h.playback.PlayTracks(ctx, ids, 0))

	p := f.Last()
	assert.Equal(t, "demo-01", p.Current().URI)
	assert.Equal(t, domain.StatusPlaying, p.Status())

	require.NoError(t, h.playback.Seek(ctx, 30_000))
	assert.Equal(t, 30*time.Second, p.Position())

	require.NoError(t, h.playback.Pause(ctx))
	assert.Equal(t, domain.StatusPaused, p.Status())

	require.NoError(t, h.playback.SetVolume(40))
	vol, muted := p.Mixer()
	assert.Equal(t, 40.0, vol)
	assert.False(t, muted)

	// Finishing the track advances the queue
	require.NoError(t, h.playback.Resume(ctx))
	require.NoError(t, p.Finish())
	require.Eventually(t, func() bool { return p.Current().URI == "demo-02" }, time.Second, 5*time.Millisecond)
}

func TestProvider_LoadErr(t *testing.T) {
	h := newHost(t)
	f := &Factory{Tracks: DemoTracks(2), LoadErr: map[string]error{"demo-01": errors.New("geo blocked")}}
	h.enable(t, f)

	err := h.playback.PlayTracks(context.Background(), []domain.TrackID{domain.MustTrackID(ID, "demo-01")}, 0)
	assert.Error(t, err)
}

func TestProvider_PushAndDrop(t *testing.T) {
	h := newHost(t)
	f := &Factory{Tracks: DemoTracks(1)}
	h.enable(t, f)
	p := f.Last()

	require.NoError(t, p.Push(domain.TrackMetadata{URI: "extra"}))
	assert.Len(t, h.state.ProviderTracks(ID), 2)

	require.NoError(t, p.Drop("demo-01"))
	tracks := h.state.ProviderTracks(ID)
	require.Len(t, tracks, 1)
	assert.Equal(t, "extra", tracks[0].URI)

	assert.Error(t, p.Push())
}

func TestProvider_DisposedRejectsCalls(t *testing.T) {
	h := newHost(t)
	f := &Factory{Tracks: DemoTracks(1)}
	h.enable(t, f)
	p := f.Last()

	require.NoError(t, h.registry.Disable(ID))

	assert.ErrorIs(t, p.LoadAndPlay(context.Background(), domain.Track{URI: "demo-01"}), domain.ErrProviderDisposed)
	assert.ErrorIs(t, p.Finish(), domain.ErrProviderDisposed)
	assert.ErrorIs(t, p.Push(domain.TrackMetadata{URI: "late"}), domain.ErrProviderDisposed)
	assert.Empty(t, h.state.ProviderTracks(ID))
}
