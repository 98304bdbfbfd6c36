package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunehub/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/logger"
	"github.com/tejashwikalptaru/tunehub/internal/ports"
)

// eventRecorder keeps every published event.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func newEventRecorder(bus ports.EventBus) *eventRecorder {
	r := &eventRecorder{}
	bus.SubscribeAll(func(e domain.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
	})
	return r
}

func (r *eventRecorder) ofType(t domain.EventType) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Filter(r.events, func(e domain.Event, _ int) bool { return e.Type() == t })
}

func (r *eventRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// fakeSource is a scriptable source provider.
type fakeSource struct {
	id string
	cb ports.SourceCallbacks

	mu           sync.Mutex
	loaded       []domain.Track
	calls        []string
	volume       float64
	muted        bool
	disposed     bool
	failLoad     error
	artworkCalls int
	updates      [][]domain.Track
	playback     []domain.PlaybackState
}

func (f *fakeSource) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSource) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSource) Dispose() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disposed = true
}

func (f *fakeSource) LoadAndPlay(_ context.Context, track domain.Track) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLoad != nil {
		return f.failLoad
	}
	f.loaded = append(f.loaded, track)
	f.calls = append(f.calls, "load:"+track.URI)
	return nil
}

func (f *fakeSource) Pause() error        { f.record("pause"); return nil }
func (f *fakeSource) Resume() error       { f.record("resume"); return nil }
func (f *fakeSource) SetTime(int64) error { f.record("seek"); return nil }
func (f *fakeSource) SetVolume(v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = v
	return nil
}
func (f *fakeSource) SetMuted(m bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = m
	return nil
}

func (f *fakeSource) TrackArtwork(_ context.Context, track domain.Track) (*domain.Artwork, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artworkCalls++
	return &domain.Artwork{MIMEType: "image/png", Data: []byte(track.URI)}, nil
}

func (f *fakeSource) OnTracksUpdate(tracks []domain.Track) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, tracks)
}

func (f *fakeSource) OnPlaybackChanged(st domain.PlaybackState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playback = append(f.playback, st)
}

func (f *fakeSource) Loaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.Map(f.loaded, func(t domain.Track, _ int) string { return t.URI })
}

var (
	_ ports.SourceProvider   = (*fakeSource)(nil)
	_ ports.ArtworkProvider  = (*fakeSource)(nil)
	_ ports.TracksObserver   = (*fakeSource)(nil)
	_ ports.PlaybackObserver = (*fakeSource)(nil)
)

// fakeFactory builds fakeSource handles and remembers them.
type fakeFactory struct {
	uris    []string
	created atomic.Int32
	delay   time.Duration
	err     error
	panics  bool

	mu      sync.Mutex
	handles []*fakeSource
}

func (ff *fakeFactory) descriptor(id string) ports.Descriptor {
	return ports.Descriptor{
		ID:          id,
		Kind:        ports.KindSource,
		DisplayName: id,
		NewSource: func(_ context.Context, _ domain.ProviderData, cb ports.SourceCallbacks) (ports.SourceProvider, error) {
			ff.created.Add(1)
			if ff.delay > 0 {
				time.Sleep(ff.delay)
			}
			if ff.panics {
				panic("factory exploded")
			}
			metas := lo.Map(ff.uris, func(u string, _ int) domain.TrackMetadata {
				return domain.TrackMetadata{URI: u, Title: lo.ToPtr("title " + u)}
			})
			if err := cb.AddTracks(metas); err != nil {
				return nil, err
			}
			if ff.err != nil {
				return nil, ff.err
			}
			h := &fakeSource{id: id, cb: cb}
			ff.mu.Lock()
			ff.handles = append(ff.handles, h)
			ff.mu.Unlock()
			return h, nil
		},
	}
}

func (ff *fakeFactory) last() *fakeSource {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	if len(ff.handles) == 0 {
		return nil
	}
	return ff.handles[len(ff.handles)-1]
}

type testEnv struct {
	bus      *eventbus.SyncEventBus
	state    *StateService
	registry *ProviderRegistry
	playback *PlaybackService
	events   *eventRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus(log)
	env := &testEnv{bus: bus, events: newEventRecorder(bus)}
	env.state = NewStateService(log, bus, 0)
	env.registry = NewProviderRegistry(log, bus, env.state, RegistryConfig{})
	env.playback = NewPlaybackService(log, bus, env.state, env.registry, DefaultPlaybackConfig())
	env.registry.AttachPlayback(env.playback)
	t.Cleanup(func() {
		env.playback.Shutdown()
		env.registry.Shutdown()
		_ = bus.Close()
	})
	return env
}

// withSource registers and activates a fake source provider delivering uris.
func (env *testEnv) withSource(t *testing.T, id string, uris ...string) *fakeFactory {
	t.Helper()
	ff := &fakeFactory{uris: uris}
	require.NoError(t, env.registry.Register(ff.descriptor(id)))
	require.NoError(t, env.registry.Enable(context.Background(), id))
	return ff
}

func tid(provider, uri string) domain.TrackID {
	return domain.MustTrackID(provider, uri)
}

func tids(provider string, uris ...string) []domain.TrackID {
	return lo.Map(uris, func(u string, _ int) domain.TrackID { return tid(provider, u) })
}

func itemURIs(items []domain.PlaylistItem) []string {
	return lo.Map(items, func(it domain.PlaylistItem, _ int) string { return it.TrackID.URI() })
}
