// Package beep provides an AudioEngine that decodes MP3, FLAC and WAV files with gopxl/beep
// and plays them through the system speaker.
package beep

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gobeep "github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/ports"
)

// resampleQuality is passed to beep.Resample when a file's rate differs from the output rate.
const resampleQuality = 4

// Engine plays decoded files through an Output.
//
// Thread-safety: This implementation is thread-safe. Streamer state is only touched while
// the output lock is held; the end-of-track callback only flips an atomic flag because the
// mixer calls it with the output lock held.
type Engine struct {
	out Output

	mu          sync.RWMutex
	initialized bool
	sampleRate  gobeep.SampleRate
	tracks      map[domain.TrackHandle]*track
	nextHandle  domain.TrackHandle
}

type track struct {
	path     string
	streamer gobeep.StreamSeekCloser
	format   gobeep.Format
	ctrl     *gobeep.Ctrl
	volume   *effects.Volume
	level    float64

	queued bool
	paused bool
	ended  atomic.Bool
}

// NewEngine creates an engine that plays through the system speaker.
func NewEngine() *Engine {
	return NewEngineWithOutput(SpeakerOutput{})
}

// NewEngineWithOutput creates an engine that plays through out.
func NewEngineWithOutput(out Output) *Engine {
	return &Engine{
		out:        out,
		tracks:     make(map[domain.TrackHandle]*track),
		nextHandle: 1,
	}
}

// Supports reports whether path has an extension the engine can decode.
func Supports(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".flac", ".wav":
		return true
	}
	return false
}

// Initialize opens the output at sampleRate with a 100ms buffer.
func (e *Engine) Initialize(sampleRate int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return domain.ErrAlreadyInitialized
	}
	if sampleRate <= 0 {
		return domain.NewValidationError("sampleRate", sampleRate, "must be positive")
	}

	sr := gobeep.SampleRate(sampleRate)
	if err := e.out.Init(sr, sr.N(time.Second/10)); err != nil {
		return domain.NewAudioEngineError("initialize", "", "failed to open audio output", err)
	}
	e.sampleRate = sr
	e.initialized = true
	return nil
}

// Shutdown stops every track and closes the output.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return domain.ErrNotInitialized
	}

	e.out.Clear()
	var errs []error
	for handle, t := range e.tracks {
		if err := t.streamer.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(e.tracks, handle)
	}
	e.out.Close()
	e.initialized = false
	return errors.Join(errs...)
}

// IsInitialized returns true if the engine is initialized.
func (e *Engine) IsInitialized() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.initialized
}

// Load opens and decodes filePath. Nothing plays until Play is called.
func (e *Engine) Load(filePath string) (domain.TrackHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return domain.InvalidTrackHandle, domain.ErrNotInitialized
	}
	if filePath == "" {
		return domain.InvalidTrackHandle, domain.ErrInvalidFilePath
	}
	if !Supports(filePath) {
		return domain.InvalidTrackHandle, domain.NewAudioEngineError("load", filePath, "unsupported extension", domain.ErrUnsupportedFormat)
	}

	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.InvalidTrackHandle, domain.NewAudioEngineError("load", filePath, "file does not exist", domain.ErrFileNotFound)
		}
		return domain.InvalidTrackHandle, domain.NewAudioEngineError("load", filePath, "failed to open file", err)
	}

	streamer, format, err := decode(f, filePath)
	if err != nil {
		_ = f.Close()
		return domain.InvalidTrackHandle, domain.NewAudioEngineError("load", filePath, "failed to decode", errors.Join(domain.ErrUnsupportedFormat, err))
	}

	ctrl := &gobeep.Ctrl{Streamer: streamer}
	var source gobeep.Streamer = ctrl
	if format.SampleRate != e.sampleRate {
		source = gobeep.Resample(resampleQuality, format.SampleRate, e.sampleRate, ctrl)
	}

	handle := e.nextHandle
	e.nextHandle++
	e.tracks[handle] = &track{
		path:     filePath,
		streamer: streamer,
		format:   format,
		ctrl:     ctrl,
		volume:   &effects.Volume{Streamer: source, Base: 2},
		level:    1.0,
	}
	return handle, nil
}

func decode(f *os.File, path string) (gobeep.StreamSeekCloser, gobeep.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3.Decode(f)
	case ".flac":
		return flac.Decode(f)
	default:
		return wav.Decode(f)
	}
}

func (e *Engine) track(handle domain.TrackHandle) (*track, error) {
	if !e.initialized {
		return nil, domain.ErrNotInitialized
	}
	t, ok := e.tracks[handle]
	if !ok {
		return nil, domain.ErrInvalidTrackHandle
	}
	return t, nil
}

// Unload stops a track and closes its file.
func (e *Engine) Unload(handle domain.TrackHandle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unload(handle)
}

func (e *Engine) unload(handle domain.TrackHandle) error {
	t, err := e.track(handle)
	if err != nil {
		return err
	}
	delete(e.tracks, handle)

	// A Ctrl without a streamer drains, so the mixer drops it
	e.out.Lock()
	t.ctrl.Streamer = nil
	e.out.Unlock()

	if err := t.streamer.Close(); err != nil {
		return domain.NewAudioEngineError("unload", t.path, "failed to close stream", err)
	}
	return nil
}

// Play starts or resumes a track. A track that reached its end restarts from the beginning.
func (e *Engine) Play(handle domain.TrackHandle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.track(handle)
	if err != nil {
		return err
	}

	if t.ended.Load() {
		e.out.Lock()
		err := t.streamer.Seek(0)
		e.out.Unlock()
		if err != nil {
			return domain.NewAudioEngineError("play", t.path, "failed to rewind", err)
		}
		t.ended.Store(false)
		t.queued = false
	}

	if !t.queued {
		t.queued = true
		t.paused = false
		e.out.Lock()
		t.ctrl.Paused = false
		e.out.Unlock()
		e.out.Play(gobeep.Seq(t.volume, gobeep.Callback(func() {
			t.ended.Store(true)
		})))
		return nil
	}

	t.paused = false
	e.out.Lock()
	t.ctrl.Paused = false
	e.out.Unlock()
	return nil
}

// Pause pauses a track; the position is kept.
func (e *Engine) Pause(handle domain.TrackHandle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.track(handle)
	if err != nil {
		return err
	}
	if !t.queued || t.ended.Load() {
		return nil
	}
	t.paused = true
	e.out.Lock()
	t.ctrl.Paused = true
	e.out.Unlock()
	return nil
}

// Stop stops a track and unloads it.
func (e *Engine) Stop(handle domain.TrackHandle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unload(handle)
}

// Status returns the playback status of a track.
func (e *Engine) Status(handle domain.TrackHandle) (domain.PlaybackStatus, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t, err := e.track(handle)
	if err != nil {
		return domain.StatusStopped, err
	}
	switch {
	case !t.queued || t.ended.Load():
		return domain.StatusStopped, nil
	case t.paused:
		return domain.StatusPaused, nil
	default:
		return domain.StatusPlaying, nil
	}
}

// Position returns how far into the track playback is.
func (e *Engine) Position(handle domain.TrackHandle) (time.Duration, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t, err := e.track(handle)
	if err != nil {
		return 0, err
	}
	e.out.Lock()
	defer e.out.Unlock()
	return t.format.SampleRate.D(t.streamer.Position()), nil
}

// Duration returns the track length.
func (e *Engine) Duration(handle domain.TrackHandle) (time.Duration, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t, err := e.track(handle)
	if err != nil {
		return 0, err
	}
	e.out.Lock()
	defer e.out.Unlock()
	return t.format.SampleRate.D(t.streamer.Len()), nil
}

// Seek moves a track to position.
func (e *Engine) Seek(handle domain.TrackHandle, position time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.track(handle)
	if err != nil {
		return err
	}

	e.out.Lock()
	defer e.out.Unlock()

	n := t.format.SampleRate.N(position)
	if position < 0 || n > t.streamer.Len() {
		return domain.ErrInvalidPosition
	}
	if err := t.streamer.Seek(n); err != nil {
		return domain.NewAudioEngineError("seek", t.path, "failed to seek", err)
	}
	return nil
}

// SetVolume sets the volume of a track (0.0 to 1.0).
// The linear level maps to a base-2 gain so 0.5 is one halving of amplitude.
func (e *Engine) SetVolume(handle domain.TrackHandle, volume float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.track(handle)
	if err != nil {
		return err
	}
	if volume < 0 || volume > 1 {
		return domain.ErrInvalidVolume
	}

	t.level = volume
	e.out.Lock()
	t.volume.Silent = volume == 0
	if volume > 0 {
		t.volume.Volume = math.Log2(volume)
	}
	e.out.Unlock()
	return nil
}

// GetVolume returns the volume of a track.
func (e *Engine) GetVolume(handle domain.TrackHandle) (float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t, err := e.track(handle)
	if err != nil {
		return 0, err
	}
	return t.level, nil
}

// Verify that Engine implements the AudioEngine interface
var _ ports.AudioEngine = (*Engine)(nil)
