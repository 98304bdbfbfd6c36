// Package ports define interfaces for dependency inversion.
// These interfaces allow the core business logic to remain independent of external frameworks.
package ports

import (
	"time"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
)

// AudioEngine is the interface for audio playback engines used by source providers
// that decode audio locally. It allows testing providers with mocks.
//
// Implementations must be thread-safe as they may be called from multiple goroutines.
type AudioEngine interface {
	// Lifecycle methods

	// Initialize sets up the output device at the given sample rate in Hz.
	//
	// Returns domain.ErrAlreadyInitialized if called twice.
	Initialize(sampleRate int) error

	// Shutdown releases all audio engine resources.
	Shutdown() error

	// IsInitialized returns true if the engine has been successfully initialized.
	IsInitialized() bool

	// Track loading methods

	// Load decodes an audio file and returns a handle to it.
	// The file remains loaded until Stop or Unload is called with the handle.
	Load(filePath string) (domain.TrackHandle, error)

	// Unload releases resources for a previously loaded track.
	Unload(handle domain.TrackHandle) error

	// Playback control methods

	// Play starts or resumes playback of the specified track.
	Play(handle domain.TrackHandle) error

	// Pause pauses playback; the position is preserved.
	Pause(handle domain.TrackHandle) error

	// Stop stops playback of the specified track and unloads it.
	Stop(handle domain.TrackHandle) error

	// State query methods

	// Status returns the current playback status of the specified track.
	// A track that played to its end reports domain.StatusStopped.
	Status(handle domain.TrackHandle) (domain.PlaybackStatus, error)

	Position(handle domain.TrackHandle) (time.Duration, error)
	Duration(handle domain.TrackHandle) (time.Duration, error)

	// Seek sets the playback position; it must be within [0, Duration].
	Seek(handle domain.TrackHandle, position time.Duration) error

	// SetVolume sets the volume from 0.0 (silent) to 1.0 (full volume).
	SetVolume(handle domain.TrackHandle, volume float64) error
	GetVolume(handle domain.TrackHandle) (float64, error)
}

// MetadataExtractor reads tags, duration and artwork from audio files.
type MetadataExtractor interface {
	// Supports reports whether the file extension is a supported audio format.
	Supports(path string) bool

	// Extract returns the metadata found in path. URI is set to path and
	// MetadataLoaded to true. Unreadable tags fall back to the file name as title.
	Extract(path string) (domain.TrackMetadata, error)

	// Artwork returns the embedded picture, or domain.ErrNoArtwork.
	Artwork(path string) (*domain.Artwork, error)
}
