// Package ports define the provider plugin contract.
// Providers are independently authored adapters that supply tracks and playback
// (source providers) or integrate with the host system (base providers).
package ports

import (
	"context"
	"fmt"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
)

// ProviderKind selects which factory and capability set a descriptor exposes.
type ProviderKind int

const (
	// KindBase providers only receive configuration and transport controls.
	KindBase ProviderKind = iota

	// KindSource providers supply tracks and play them.
	KindSource
)

// String returns a human-readable representation of the provider kind.
func (k ProviderKind) String() string {
	switch k {
	case KindBase:
		return "base"
	case KindSource:
		return "source"
	default:
		return "unknown"
	}
}

// BaseProvider is the minimal live provider handle.
type BaseProvider interface {
	// Dispose releases every resource held by the provider.
	// The registry guarantees the callback scope is already closed when Dispose runs.
	Dispose()
}

// SourceProvider is a provider that owns tracks and plays them.
//
// Volume is in percent (0-100) and time is in milliseconds.
type SourceProvider interface {
	BaseProvider

	// LoadAndPlay starts playback of the given track from the beginning.
	LoadAndPlay(ctx context.Context, track domain.Track) error

	Pause() error
	Resume() error
	SetVolume(pct float64) error
	SetMuted(muted bool) error
	SetTime(ms int64) error
}

// ArtworkProvider is implemented by source providers that can serve artwork.
type ArtworkProvider interface {
	TrackArtwork(ctx context.Context, track domain.Track) (*domain.Artwork, error)
}

// TracksObserver is implemented by providers that want to hear about changes to their
// tracks made by someone else (user edits, undo, restore).
type TracksObserver interface {
	OnTracksUpdate(tracks []domain.Track)
}

// PlaybackObserver is implemented by providers that mirror playback state,
// typically media-session integrations.
type PlaybackObserver interface {
	OnPlaybackChanged(state domain.PlaybackState)
}

// UISlot is an opaque view contribution rendered by the external UI.
type UISlot interface {
	SlotName() string
}

// ConfigSlotProvider exposes a configuration view.
type ConfigSlotProvider interface {
	ConfigSlot() UISlot
}

// QuickStartSlotProvider exposes a view shown when the library is empty.
type QuickStartSlotProvider interface {
	QuickStartSlot() UISlot
}

// AttributionSlotProvider exposes an attribution view for the provider's content.
type AttributionSlotProvider interface {
	AttributionSlot() UISlot
}

// PlaybackControls lets base providers drive the host player (media keys, system widgets).
type PlaybackControls interface {
	TogglePlayback(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Seek(ctx context.Context, ms int64) error
}

// BaseCallbacks is the provider-scoped callback object handed to every provider.
// After the provider is disposed every mutating call returns domain.ErrProviderDisposed
// and has no effect.
type BaseCallbacks interface {
	ProviderID() string

	// Data returns the provider's last persisted configuration.
	Data() domain.ProviderData

	// UpdateData merges patch into the provider's configuration.
	UpdateData(patch domain.ProviderData) error

	// Controls returns the host transport controls.
	Controls() PlaybackControls
}

// SourceCallbacks extends BaseCallbacks with track and mixer access.
type SourceCallbacks interface {
	BaseCallbacks

	// Tracks returns the tracks currently stored for this provider.
	Tracks() []domain.Track

	// AddTracks inserts or merges tracks (by URI) into the track store.
	AddTracks(metas []domain.TrackMetadata) error

	// UpdateMetadata merges metadata for tracks (by URI).
	UpdateMetadata(metas []domain.TrackMetadata) error

	// RemoveTracks removes tracks by URI. With no URIs every track of the provider is removed.
	RemoveTracks(uris ...string) error

	// Volume returns the host volume in percent.
	Volume() float64
	Muted() bool

	// TrackEnded tells the host the track started by LoadAndPlay finished.
	TrackEnded() error
}

// BaseFactory creates a base provider.
type BaseFactory func(ctx context.Context, data domain.ProviderData, cb BaseCallbacks) (BaseProvider, error)

// SourceFactory creates a source provider.
type SourceFactory func(ctx context.Context, data domain.ProviderData, cb SourceCallbacks) (SourceProvider, error)

// Descriptor is the static registration record of a provider.
// Exactly the factory matching Kind must be set.
type Descriptor struct {
	ID          string
	Kind        ProviderKind
	DisplayName string

	// RequiresHostIntegration marks providers that need OS services (session bus, media keys).
	RequiresHostIntegration bool

	NewBase   BaseFactory
	NewSource SourceFactory
}

// Validate checks the descriptor's id and that its kind matches its factory.
func (d Descriptor) Validate() error {
	if err := domain.ValidateProviderID(d.ID); err != nil {
		return domain.NewProviderError(d.ID, "register", fmt.Errorf("%w: %w", domain.ErrInvalidDescriptor, err))
	}
	switch d.Kind {
	case KindBase:
		if d.NewBase == nil || d.NewSource != nil {
			return domain.NewProviderError(d.ID, "register", domain.ErrInvalidDescriptor)
		}
	case KindSource:
		if d.NewSource == nil || d.NewBase != nil {
			return domain.NewProviderError(d.ID, "register", domain.ErrInvalidDescriptor)
		}
	default:
		return domain.NewProviderError(d.ID, "register", domain.ErrInvalidDescriptor)
	}
	return nil
}
