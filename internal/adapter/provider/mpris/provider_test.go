package mpris

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/logger"
	"github.com/tejashwikalptaru/tunehub/internal/ports"
)

type fakeControls struct {
	mu    sync.Mutex
	calls []string
	seek  int64
	err   error
}

func (c *fakeControls) rec(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name)
	return c.err
}

func (c *fakeControls) TogglePlayback(context.Context) error { return c.rec("toggle") }
func (c *fakeControls) Pause(context.Context) error          { return c.rec("pause") }
func (c *fakeControls) Resume(context.Context) error         { return c.rec("resume") }
func (c *fakeControls) Stop(context.Context) error           { return c.rec("stop") }
func (c *fakeControls) Next(context.Context) error           { return c.rec("next") }
func (c *fakeControls) Previous(context.Context) error       { return c.rec("previous") }

func (c *fakeControls) Seek(_ context.Context, ms int64) error {
	c.seek = ms
	return c.rec("seek")
}

type fakeCallbacks struct {
	controls ports.PlaybackControls
}

func (f *fakeCallbacks) ProviderID() string                   { return ID }
func (f *fakeCallbacks) Data() domain.ProviderData            { return domain.ProviderData{} }
func (f *fakeCallbacks) UpdateData(domain.ProviderData) error { return nil }
func (f *fakeCallbacks) Controls() ports.PlaybackControls     { return f.controls }

type fakeSink struct {
	props map[string]any
	sets  int
}

func (s *fakeSink) SetMust(iface, property string, v any) {
	if s.props == nil {
		s.props = map[string]any{}
	}
	s.props[iface+"."+property] = v
	s.sets++
}

type fakeCloser struct{ closed int }

func (c *fakeCloser) Close() error {
	c.closed++
	return nil
}

func TestDescriptor(t *testing.T) {
	d := Descriptor(Options{})

	require.NoError(t, d.Validate())
	assert.Equal(t, ports.KindBase, d.Kind)
	assert.True(t, d.RequiresHostIntegration)
}

func TestNew_DialFailure(t *testing.T) {
	opts := Options{
		Dial:   func() (*dbus.Conn, error) { return nil, errors.New("no session bus") },
		Logger: logger.NewTestLogger(),
	}
	_, err := New(context.Background(), domain.ProviderData{}, &fakeCallbacks{}, opts)
	assert.ErrorContains(t, err, "no session bus")
}

func TestPlayer_RoutesToControls(t *testing.T) {
	controls := &fakeControls{}
	pl := &player{controls: func() ports.PlaybackControls { return controls }}

	assert.Nil(t, pl.PlayPause())
	assert.Nil(t, pl.Play())
	assert.Nil(t, pl.Pause())
	assert.Nil(t, pl.Next())
	assert.Nil(t, pl.Previous())
	assert.Nil(t, pl.Stop())
	assert.Nil(t, pl.SetPosition(trackPath("x"), 42_000_000))

	// Verify
	assert.Equal(t, []string{"toggle", "resume", "pause", "next", "previous", "stop", "seek"}, controls.calls)
	assert.Equal(t, int64(42_000), controls.seek)

	assert.NotNil(t, pl.Seek(1000))
	assert.NotNil(t, pl.OpenUri("file:///a.mp3"))
}

func TestPlayer_Errors(t *testing.T) {
	controls := &fakeControls{err: domain.ErrQueueEmpty}
	pl := &player{controls: func() ports.PlaybackControls { return controls }}

	dbusErr := pl.Next()
	require.NotNil(t, dbusErr)
	assert.Contains(t, dbusErr.Error(), domain.ErrQueueEmpty.Error())

	detached := &player{controls: func() ports.PlaybackControls { return nil }}
	assert.NotNil(t, detached.Play())
}

func TestProvider_OnPlaybackChanged(t *testing.T) {
	sink := &fakeSink{}
	p := newProvider(&fakeCallbacks{}, sink, &fakeCloser{}, logger.NewTestLogger())

	track := &domain.Track{
		ID:       domain.MustTrackID("local", "/music/a.mp3"),
		URI:      "/music/a.mp3",
		Title:    "Song",
		Artists:  []string{"Band"},
		Album:    "Record",
		Duration: 185_000,
	}
	state := domain.PlaybackState{
		Item:   domain.PlaylistItem{ItemID: "item-1", TrackID: track.ID},
		Track:  track,
		Status: domain.StatusPlaying,
		Volume: 50,
	}
	p.OnPlaybackChanged(state)

	// Verify
	assert.Equal(t, "Playing", sink.props[playerIface+".PlaybackStatus"])
	assert.Equal(t, 0.5, sink.props[playerIface+".Volume"])
	md := sink.props[playerIface+".Metadata"].(map[string]dbus.Variant)
	assert.Equal(t, dbus.ObjectPath("/org/tunehub/track/item_1"), md["mpris:trackid"].Value())
	assert.Equal(t, "Song", md["xesam:title"].Value())
	assert.Equal(t, []string{"Band"}, md["xesam:artist"].Value())
	assert.Equal(t, int64(185_000_000), md["mpris:length"].Value())

	// Unchanged state sets nothing
	sets := sink.sets
	p.OnPlaybackChanged(state)
	assert.Equal(t, sets, sink.sets)

	state.Status = domain.StatusPaused
	state.Muted = true
	p.OnPlaybackChanged(state)
	assert.Equal(t, "Paused", sink.props[playerIface+".PlaybackStatus"])
	assert.Equal(t, 0.0, sink.props[playerIface+".Volume"])
}

func TestProvider_StoppedClearsMetadata(t *testing.T) {
	sink := &fakeSink{}
	p := newProvider(&fakeCallbacks{}, sink, &fakeCloser{}, logger.NewTestLogger())

	track := &domain.Track{ID: domain.MustTrackID("local", "a"), URI: "a"}
	p.OnPlaybackChanged(domain.PlaybackState{Item: domain.PlaylistItem{ItemID: "i"}, Track: track, Status: domain.StatusPlaying, Volume: 100})
	p.OnPlaybackChanged(domain.PlaybackState{Status: domain.StatusStopped, Volume: 100})

	md := sink.props[playerIface+".Metadata"].(map[string]dbus.Variant)
	assert.Equal(t, noTrack, md["mpris:trackid"].Value())
	assert.Equal(t, "Stopped", sink.props[playerIface+".PlaybackStatus"])
}

func TestProvider_Dispose(t *testing.T) {
	sink := &fakeSink{}
	closer := &fakeCloser{}
	p := newProvider(&fakeCallbacks{}, sink, closer, logger.NewTestLogger())

	p.Dispose()
	p.Dispose()
	assert.Equal(t, 1, closer.closed)

	// Updates after disposal are dropped
	p.OnPlaybackChanged(domain.PlaybackState{Status: domain.StatusPlaying})
	assert.Zero(t, sink.sets)
}

func TestTrackPath(t *testing.T) {
	assert.Equal(t, dbus.ObjectPath("/org/tunehub/track/a1b2_c3d4"), trackPath("a1b2-c3d4"))
	assert.True(t, trackPath("weird id/with:chars").IsValid())
}
