// Package mock provides an in-memory AudioEngine for tests and the demo provider.
// Nothing is decoded or played; positions only move through SimulateProgress.
package mock

import (
	"errors"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/ports"
)

// DefaultDuration is the length given to files without a configured duration.
const DefaultDuration = 3 * time.Minute

var errNotPlaying = errors.New("track is not playing")

// Engine simulates audio playback in memory.
//
// Thread-safety: This implementation is thread-safe.
type Engine struct {
	mu sync.RWMutex

	initialized bool
	sampleRate  int

	tracks     map[domain.TrackHandle]*mockTrack
	nextHandle domain.TrackHandle
	durations  map[string]time.Duration
	history    []string

	// failure injection
	failInitialize bool
	failLoad       map[string]bool
	failPlay       bool
}

type mockTrack struct {
	path     string
	duration time.Duration
	position time.Duration
	volume   float64
	status   domain.PlaybackStatus
}

// NewEngine creates a new mock audio engine.
func NewEngine() *Engine {
	return &Engine{
		tracks:     make(map[domain.TrackHandle]*mockTrack),
		nextHandle: 1,
		durations:  make(map[string]time.Duration),
		failLoad:   make(map[string]bool),
	}
}

// SetDuration sets the length reported for path.
func (m *Engine) SetDuration(path string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[path] = d
}

// SetFailInitialize makes Initialize fail.
func (m *Engine) SetFailInitialize(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failInitialize = fail
}

// SetFailLoad makes Load fail for path.
func (m *Engine) SetFailLoad(path string, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failLoad[path] = fail
}

// SetFailPlay makes Play fail.
func (m *Engine) SetFailPlay(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPlay = fail
}

// Initialize marks the engine ready.
func (m *Engine) Initialize(sampleRate int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failInitialize {
		return domain.NewAudioEngineError("initialize", "", "mock initialization failed", nil)
	}
	if m.initialized {
		return domain.ErrAlreadyInitialized
	}
	m.initialized = true
	m.sampleRate = sampleRate
	return nil
}

// SampleRate returns the rate passed to Initialize.
func (m *Engine) SampleRate() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sampleRate
}

// Shutdown releases every loaded track.
func (m *Engine) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return domain.ErrNotInitialized
	}
	m.initialized = false
	clear(m.tracks)
	return nil
}

// IsInitialized returns true if the engine is initialized.
func (m *Engine) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// Load registers filePath and returns a handle to it.
func (m *Engine) Load(filePath string) (domain.TrackHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return domain.InvalidTrackHandle, domain.ErrNotInitialized
	}
	if filePath == "" {
		return domain.InvalidTrackHandle, domain.ErrInvalidFilePath
	}
	if m.failLoad[filePath] {
		return domain.InvalidTrackHandle, domain.NewAudioEngineError("load", filePath, "mock load failed", domain.ErrUnsupportedFormat)
	}

	duration, ok := m.durations[filePath]
	if !ok {
		duration = DefaultDuration
	}
	handle := m.nextHandle
	m.nextHandle++
	m.tracks[handle] = &mockTrack{
		path:     filePath,
		duration: duration,
		volume:   1.0,
		status:   domain.StatusStopped,
	}
	m.history = append(m.history, filePath)
	return handle, nil
}

func (m *Engine) track(handle domain.TrackHandle) (*mockTrack, error) {
	if !m.initialized {
		return nil, domain.ErrNotInitialized
	}
	t, ok := m.tracks[handle]
	if !ok {
		return nil, domain.ErrInvalidTrackHandle
	}
	return t, nil
}

// Unload releases a loaded track.
func (m *Engine) Unload(handle domain.TrackHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.track(handle); err != nil {
		return err
	}
	delete(m.tracks, handle)
	return nil
}

// Play starts or resumes a track. A stopped track restarts from the beginning.
func (m *Engine) Play(handle domain.TrackHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.track(handle)
	if err != nil {
		return err
	}
	if m.failPlay {
		return domain.NewAudioEngineError("play", t.path, "mock play failed", nil)
	}
	if t.status == domain.StatusStopped {
		t.position = 0
	}
	t.status = domain.StatusPlaying
	return nil
}

// Pause pauses a playing track.
func (m *Engine) Pause(handle domain.TrackHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.track(handle)
	if err != nil {
		return err
	}
	if t.status == domain.StatusPlaying {
		t.status = domain.StatusPaused
	}
	return nil
}

// Stop stops a track and unloads it.
func (m *Engine) Stop(handle domain.TrackHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.track(handle); err != nil {
		return err
	}
	delete(m.tracks, handle)
	return nil
}

// Status returns the playback status of a track.
func (m *Engine) Status(handle domain.TrackHandle) (domain.PlaybackStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.track(handle)
	if err != nil {
		return domain.StatusStopped, err
	}
	return t.status, nil
}

// Position returns the playback position of a track.
func (m *Engine) Position(handle domain.TrackHandle) (time.Duration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.track(handle)
	if err != nil {
		return 0, err
	}
	return t.position, nil
}

// Duration returns the length of a track.
func (m *Engine) Duration(handle domain.TrackHandle) (time.Duration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.track(handle)
	if err != nil {
		return 0, err
	}
	return t.duration, nil
}

// Seek moves a track to position.
func (m *Engine) Seek(handle domain.TrackHandle, position time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.track(handle)
	if err != nil {
		return err
	}
	if position < 0 || position > t.duration {
		return domain.ErrInvalidPosition
	}
	t.position = position
	return nil
}

// SetVolume sets the volume of a track (0.0 to 1.0).
func (m *Engine) SetVolume(handle domain.TrackHandle, volume float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.track(handle)
	if err != nil {
		return err
	}
	if volume < 0 || volume > 1 {
		return domain.ErrInvalidVolume
	}
	t.volume = volume
	return nil
}

// GetVolume returns the volume of a track.
func (m *Engine) GetVolume(handle domain.TrackHandle) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.track(handle)
	if err != nil {
		return 0, err
	}
	return t.volume, nil
}

// SimulateProgress advances a playing track by delta. Reaching the end stops it.
func (m *Engine) SimulateProgress(handle domain.TrackHandle, delta time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.track(handle)
	if err != nil {
		return err
	}
	if t.status != domain.StatusPlaying {
		return errNotPlaying
	}
	t.position += delta
	if t.position >= t.duration {
		t.position = t.duration
		t.status = domain.StatusStopped
	}
	return nil
}

// Finish plays every playing track to its end.
func (m *Engine) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tracks {
		if t.status == domain.StatusPlaying {
			t.position = t.duration
			t.status = domain.StatusStopped
		}
	}
}

// LoadedTracks returns the number of loaded tracks.
func (m *Engine) LoadedTracks() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tracks)
}

// History returns every path passed to Load, in order.
func (m *Engine) History() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.history...)
}

// Verify that Engine implements the AudioEngine interface
var _ ports.AudioEngine = (*Engine)(nil)
