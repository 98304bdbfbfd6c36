package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunehub/internal/adapter/provider/local"
	mockprovider "github.com/tejashwikalptaru/tunehub/internal/adapter/provider/mock"
	"github.com/tejashwikalptaru/tunehub/internal/adapter/provider/mpris"
	"github.com/tejashwikalptaru/tunehub/internal/adapter/repository/preferences"
	"github.com/tejashwikalptaru/tunehub/internal/config"
	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/logger"
	"github.com/tejashwikalptaru/tunehub/internal/testutil"
)

// testConfig returns a configuration that stays inside dir and never touches the
// speaker or the session bus.
func testConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	music := filepath.Join(dir, "music")
	require.NoError(t, os.MkdirAll(music, 0o755))

	cfg := config.Default()
	cfg.Library.Folders = []string{music}
	cfg.Library.Watch = false
	cfg.Library.CachePath = filepath.Join(dir, "metadata.db")
	cfg.Audio.Engine = config.EngineMock
	cfg.Session.Path = filepath.Join(dir, "session.json")
	cfg.Session.SaveDelay = time.Hour
	cfg.Providers.HostIntegration = false
	cfg.Providers.DemoTracks = 3
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, opts Options) *Application {
	t.Helper()
	opts.Logger = logger.NewTestLogger()
	a, err := New(cfg, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })
	return a
}

func writeSongs(t *testing.T, cfg *config.Config, names ...string) {
	t.Helper()
	for _, name := range names {
		testutil.WriteWAV(t, filepath.Join(cfg.Library.Folders[0], name), 8000, 200*time.Millisecond)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.Engine = "alsa"

	_, err := New(cfg, Options{Logger: logger.NewTestLogger()})

	assert.ErrorContains(t, err, "invalid configuration")
}

func TestNew_RegistersProviders(t *testing.T) {
	a := newTestApp(t, testConfig(t, t.TempDir()), Options{})

	ids := make([]string, 0, 3)
	for _, d := range a.Providers().Descriptors() {
		ids = append(ids, d.ID)
	}
	assert.ElementsMatch(t, []string{local.ID, mockprovider.ID, mpris.ID}, ids)
	assert.Empty(t, a.Providers().Active())
	assert.NotNil(t, a.Bus())
	assert.NotNil(t, a.State())
	assert.NotNil(t, a.Playback())
	assert.NotNil(t, a.Session())
	assert.Equal(t, config.EngineMock, a.Config().Audio.Engine)
}

func TestApplication_FirstStartScansLibrary(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	writeSongs(t, cfg, "one.wav", "two.wav")
	a := newTestApp(t, cfg, Options{})

	require.NoError(t, a.Start(context.Background()))

	// Verify the configured providers were enabled with the configured folders
	assert.Equal(t, []string{local.ID}, a.Providers().Active())
	data, err := a.Providers().Data(local.ID)
	require.NoError(t, err)
	assert.Equal(t, cfg.Library.Folders, data.Strings(local.KeyFolders))

	require.Eventually(t, func() bool {
		tracks := a.State().ProviderTracks(local.ID)
		return len(tracks) == 2 && tracks[0].MetadataLoaded && tracks[1].MetadataLoaded
	}, 5*time.Second, 10*time.Millisecond)
}

func TestApplication_RestoresSession(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	ctx := context.Background()

	first := newTestApp(t, cfg, Options{})
	require.NoError(t, first.Start(ctx))
	require.NoError(t, first.Providers().Enable(ctx, mockprovider.ID))
	require.NoError(t, first.Shutdown())
	_, err := os.Stat(cfg.Session.Path)
	require.NoError(t, err)

	second := newTestApp(t, cfg, Options{})
	require.NoError(t, second.Start(ctx))

	// Verify the enabled providers came back and the demo source delivered again
	assert.ElementsMatch(t, []string{local.ID, mockprovider.ID}, second.Providers().Active())
	assert.Len(t, second.State().ProviderTracks(mockprovider.ID), 3)
}

func TestApplication_PlaysDemoTracks(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.Providers.Enabled = []string{mockprovider.ID}
	ctx := context.Background()
	a := newTestApp(t, cfg, Options{})
	require.NoError(t, a.Start(ctx))

	tracks := a.State().ProviderTracks(mockprovider.ID)
	require.Len(t, tracks, 3)
	ids := make([]domain.TrackID, 0, len(tracks))
	for _, tr := range tracks {
		ids = append(ids, tr.ID)
	}

	require.NoError(t, a.Playback().PlayTracks(ctx, ids, 1))

	st := a.Playback().State()
	assert.Equal(t, domain.StatusPlaying, st.Status)
	cur, ok := a.State().Current()
	require.True(t, ok)
	assert.Equal(t, ids[1], cur.Item.TrackID)
}

func TestApplication_Scan(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.Providers.Enabled = nil
	writeSongs(t, cfg, "a.wav", "b.wav", "c.wav")
	a := newTestApp(t, cfg, Options{})
	require.NoError(t, a.Start(context.Background()))
	require.Empty(t, a.Providers().Active())

	res, err := a.Scan(context.Background())
	require.NoError(t, err)

	// Verify the scan activated the local provider and saw every file
	assert.Equal(t, 3, res.Found)
	assert.Len(t, a.State().ProviderTracks(local.ID), 3)
	lib, err := a.Library()
	require.NoError(t, err)
	assert.Equal(t, cfg.Library.Folders, lib.Folders())
}

func TestApplication_HostIntegrationDisabled(t *testing.T) {
	a := newTestApp(t, testConfig(t, t.TempDir()), Options{})

	err := a.Providers().Enable(context.Background(), mpris.ID)

	assert.ErrorIs(t, err, domain.ErrCapabilityUnsupported)
	assert.NotContains(t, a.Providers().Active(), mpris.ID)
}

func TestApplication_PreferencesStore(t *testing.T) {
	prefs := test.NewApp().Preferences()
	cfg := testConfig(t, t.TempDir())
	cfg.Providers.Enabled = []string{mockprovider.ID}
	a := newTestApp(t, cfg, Options{Preferences: prefs})

	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, a.Session().Save())

	snap, err := preferences.NewSnapshotRepository(prefs).Load()
	require.NoError(t, err)
	assert.Equal(t, []string{mockprovider.ID}, snap.EnabledProviders)
	_, err = os.Stat(cfg.Session.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestApplication_Run(t *testing.T) {
	a := newTestApp(t, testConfig(t, t.TempDir()), Options{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestApplication_Shutdown(t *testing.T) {
	defer testutil.VerifyNoLeaks(t, testutil.IgnoreBackgroundGoroutines()...)

	cfg := testConfig(t, t.TempDir())
	writeSongs(t, cfg, "song.wav")
	a, err := New(cfg, Options{Logger: logger.NewTestLogger()})
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	require.Eventually(t, func() bool {
		return len(a.State().ProviderTracks(local.ID)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, a.Shutdown())
	assert.NoError(t, a.Shutdown())
	assert.Empty(t, a.Providers().Active())
}
