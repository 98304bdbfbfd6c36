package beep

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	gobeep "github.com/gopxl/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/testutil"
)

const testRate = 8000

// fakeOutput collects streamers instead of sending them to a device.
type fakeOutput struct {
	mu        sync.Mutex
	rate      gobeep.SampleRate
	streamers []gobeep.Streamer
	closed    bool
}

func (o *fakeOutput) Init(sr gobeep.SampleRate, _ int) error {
	o.rate = sr
	return nil
}

func (o *fakeOutput) Play(s ...gobeep.Streamer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.streamers = append(o.streamers, s...)
}

func (o *fakeOutput) Lock()   { o.mu.Lock() }
func (o *fakeOutput) Unlock() { o.mu.Unlock() }

func (o *fakeOutput) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.streamers = nil
}

func (o *fakeOutput) Close() { o.closed = true }

// pull mixes up to n samples out of every streamer, dropping the drained ones.
func (o *fakeOutput) pull(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	buf := make([][2]float64, 512)
	var live []gobeep.Streamer
	for _, s := range o.streamers {
		done := false
		for read := 0; read < n; {
			size := min(len(buf), n-read)
			got, ok := s.Stream(buf[:size])
			read += got
			if !ok {
				done = true
				break
			}
		}
		if !done {
			live = append(live, s)
		}
	}
	o.streamers = live
}

func newTestEngine(t *testing.T) (*Engine, *fakeOutput) {
	t.Helper()
	out := &fakeOutput{}
	engine := NewEngineWithOutput(out)
	require.NoError(t, engine.Initialize(testRate))
	t.Cleanup(func() { _ = engine.Shutdown() })
	return engine, out
}

func writeTrack(t *testing.T, length time.Duration) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	testutil.WriteWAV(t, path, testRate, length)
	return path
}

func TestEngine_RequiresInitialize(t *testing.T) {
	engine := NewEngineWithOutput(&fakeOutput{})

	_, err := engine.Load("/music/a.wav")
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
	assert.ErrorIs(t, engine.Shutdown(), domain.ErrNotInitialized)
	assert.Error(t, engine.Initialize(0))
}

func TestEngine_Initialize_Twice(t *testing.T) {
	engine, out := newTestEngine(t)

	assert.Equal(t, gobeep.SampleRate(testRate), out.rate)
	assert.ErrorIs(t, engine.Initialize(testRate), domain.ErrAlreadyInitialized)
}

func TestEngine_Load_Errors(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Load("")
	assert.ErrorIs(t, err, domain.ErrInvalidFilePath)

	_, err = engine.Load("/music/a.ogg")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	_, err = engine.Load(filepath.Join(t.TempDir(), "missing.wav"))
	assert.ErrorIs(t, err, domain.ErrFileNotFound)

	garbage := filepath.Join(t.TempDir(), "garbage.wav")
	require.NoError(t, os.WriteFile(garbage, []byte("not a wav file"), 0o600))
	_, err = engine.Load(garbage)
	var engineErr *domain.AudioEngineError
	require.ErrorAs(t, err, &engineErr)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestEngine_PlayToEnd(t *testing.T) {
	engine, out := newTestEngine(t)
	handle, err := engine.Load(writeTrack(t, time.Second))
	require.NoError(t, err)

	d, err := engine.Duration(handle)
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)

	st, _ := engine.Status(handle)
	assert.Equal(t, domain.StatusStopped, st)

	require.NoError(t, engine.Play(handle))
	st, _ = engine.Status(handle)
	assert.Equal(t, domain.StatusPlaying, st)

	out.pull(testRate / 2)
	pos, err := engine.Position(handle)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, pos)

	// Verify the end of the stream stops the track
	out.pull(testRate)
	st, _ = engine.Status(handle)
	assert.Equal(t, domain.StatusStopped, st)

	// Playing again rewinds
	require.NoError(t, engine.Play(handle))
	pos, _ = engine.Position(handle)
	assert.Equal(t, time.Duration(0), pos)
}

func TestEngine_PauseResume(t *testing.T) {
	engine, out := newTestEngine(t)
	handle, err := engine.Load(writeTrack(t, time.Second))
	require.NoError(t, err)

	require.NoError(t, engine.Play(handle))
	out.pull(testRate / 4)
	require.NoError(t, engine.Pause(handle))

	st, _ := engine.Status(handle)
	assert.Equal(t, domain.StatusPaused, st)

	// Paused streams produce silence without advancing
	out.pull(testRate / 4)
	pos, _ := engine.Position(handle)
	assert.Equal(t, 250*time.Millisecond, pos)

	require.NoError(t, engine.Play(handle))
	st, _ = engine.Status(handle)
	assert.Equal(t, domain.StatusPlaying, st)
	assert.Len(t, out.streamers, 1)
}

func TestEngine_Seek(t *testing.T) {
	engine, _ := newTestEngine(t)
	handle, err := engine.Load(writeTrack(t, time.Second))
	require.NoError(t, err)

	require.NoError(t, engine.Seek(handle, 750*time.Millisecond))
	pos, _ := engine.Position(handle)
	assert.Equal(t, 750*time.Millisecond, pos)

	assert.ErrorIs(t, engine.Seek(handle, 2*time.Second), domain.ErrInvalidPosition)
	assert.ErrorIs(t, engine.Seek(handle, -time.Millisecond), domain.ErrInvalidPosition)
}

func TestEngine_Volume(t *testing.T) {
	engine, _ := newTestEngine(t)
	handle, err := engine.Load(writeTrack(t, 100*time.Millisecond))
	require.NoError(t, err)

	v, _ := engine.GetVolume(handle)
	assert.Equal(t, 1.0, v)

	require.NoError(t, engine.SetVolume(handle, 0.5))
	v, _ = engine.GetVolume(handle)
	assert.Equal(t, 0.5, v)

	require.NoError(t, engine.SetVolume(handle, 0))
	assert.ErrorIs(t, engine.SetVolume(handle, 1.2), domain.ErrInvalidVolume)
}

func TestEngine_StopUnloads(t *testing.T) {
	engine, out := newTestEngine(t)
	handle, err := engine.Load(writeTrack(t, time.Second))
	require.NoError(t, err)
	require.NoError(t, engine.Play(handle))

	require.NoError(t, engine.Stop(handle))
	_, err = engine.Status(handle)
	assert.ErrorIs(t, err, domain.ErrInvalidTrackHandle)

	// The detached stream drains on the next mix
	out.pull(1)
	assert.Empty(t, out.streamers)
}

func TestEngine_Shutdown(t *testing.T) {
	out := &fakeOutput{}
	engine := NewEngineWithOutput(out)
	require.NoError(t, engine.Initialize(testRate))

	handle, err := engine.Load(writeTrack(t, time.Second))
	require.NoError(t, err)
	require.NoError(t, engine.Play(handle))

	require.NoError(t, engine.Shutdown())
	assert.True(t, out.closed)
	assert.Empty(t, out.streamers)
	assert.False(t, engine.IsInitialized())
}

func TestSupports(t *testing.T) {
	assert.True(t, Supports("/a/b.MP3"))
	assert.True(t, Supports("b.flac"))
	assert.True(t, Supports("b.wav"))
	assert.False(t, Supports("b.ogg"))
	assert.False(t, Supports("noext"))
}
