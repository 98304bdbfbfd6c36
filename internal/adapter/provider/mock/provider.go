// Package mock provides a scriptable source provider for tests and the demo mode.
// Tracks are in memory; playback goes through an in-memory audio engine.
package mock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"

	audiomock "github.com/tejashwikalptaru/tunehub/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/ports"
)

// ID is the default provider id.
const ID = "mock"

// Factory creates mock providers and remembers every handle it made.
type Factory struct {
	// Tracks are pushed when a provider is created.
	Tracks []domain.TrackMetadata

	// CreateErr makes creation fail after the tracks were pushed.
	CreateErr error

	// LoadErr makes LoadAndPlay fail for the given URIs.
	LoadErr map[string]error

	mu      sync.Mutex
	handles []*Provider
}

// DemoTracks returns n generated tracks spread over a few albums.
func DemoTracks(n int) []domain.TrackMetadata {
	return lo.Times(n, func(i int) domain.TrackMetadata {
		album := fmt.Sprintf("Album %c", 'A'+rune(i%3))
		return domain.TrackMetadata{
			URI:            fmt.Sprintf("demo-%02d", i+1),
			Title:          lo.ToPtr(fmt.Sprintf("Track %d", i+1)),
			Artists:        []string{fmt.Sprintf("Artist %d", i%4+1)},
			Album:          &album,
			Year:           lo.ToPtr(1990 + i%10),
			TrackNumber:    lo.ToPtr(i/3 + 1),
			Duration:       lo.ToPtr(int64(180_000 + i*1000)),
			MetadataLoaded: lo.ToPtr(true),
		}
	})
}

// Descriptor returns a source descriptor with the given id.
func (f *Factory) Descriptor(id string) ports.Descriptor {
	return ports.Descriptor{
		ID:          id,
		Kind:        ports.KindSource,
		DisplayName: "Demo",
		NewSource: func(_ context.Context, _ domain.ProviderData, cb ports.SourceCallbacks) (ports.SourceProvider, error) {
			return f.create(cb)
		},
	}
}

func (f *Factory) create(cb ports.SourceCallbacks) (*Provider, error) {
	if len(f.Tracks) > 0 {
		if err := cb.AddTracks(f.Tracks); err != nil {
			return nil, err
		}
	}
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}

	engine := audiomock.NewEngine()
	if err := engine.Initialize(44100); err != nil {
		return nil, err
	}
	for _, m := range f.Tracks {
		if m.Duration != nil {
			engine.SetDuration(m.URI, time.Duration(*m.Duration)*time.Millisecond)
		}
	}

	p := &Provider{cb: cb, engine: engine, loadErr: f.LoadErr}
	f.mu.Lock()
	f.handles = append(f.handles, p)
	f.mu.Unlock()
	return p, nil
}

// Last returns the most recently created provider, or nil.
func (f *Factory) Last() *Provider {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.handles) == 0 {
		return nil
	}
	return f.handles[len(f.handles)-1]
}

// Created returns how many providers were created.
func (f *Factory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handles)
}

// Provider is a live mock provider.
type Provider struct {
	cb      ports.SourceCallbacks
	engine  *audiomock.Engine
	loadErr map[string]error

	mu       sync.Mutex
	handle   domain.TrackHandle
	current  domain.Track
	volume   float64
	muted    bool
	disposed bool
}


// LoadAndPlay starts track on the in-memory engine.
func (p *Provider) LoadAndPlay(_ context.Context, track domain.Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disposed {
		return domain.ErrProviderDisposed
	}
	if err, ok := p.loadErr[track.URI]; ok {
		return err
	}
	if p.handle != domain.InvalidTrackHandle {
		_ = p.engine.Stop(p.handle)
	}
	h, err := p.engine.Load(track.URI)
	if err != nil {
		return err
	}
	if err := p.engine.Play(h); err != nil {
		return err
	}
	p.handle = h
	p.current = track
	return nil
}

func (p *Provider) loaded() (domain.TrackHandle, error) {
	if p.disposed {
		return domain.InvalidTrackHandle, domain.ErrProviderDisposed
	}
	if p.handle == domain.InvalidTrackHandle {
		return domain.InvalidTrackHandle, domain.ErrNoTrackLoaded
	}
	return p.handle, nil
}

func (p *Provider) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, err := p.loaded()
	if err != nil {
		return err
	}
	return p.engine.Pause(h)
}

func (p *Provider) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, err := p.loaded()
	if err != nil {
		return err
	}
	return p.engine.Play(h)
}

func (p *Provider) SetVolume(pct float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = pct
	return nil
}

func (p *Provider) SetMuted(muted bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = muted
	return nil
}

func (p *Provider) SetTime(ms int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, err := p.loaded()
	if err != nil {
		return err
	}
	return p.engine.Seek(h, time.Duration(ms)*time.Millisecond)
}

// Dispose releases the engine.
func (p *Provider) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return
	}
	p.disposed = true
	p.handle = domain.InvalidTrackHandle
	_ = p.engine.Shutdown()
}

// Current returns the track passed to the last LoadAndPlay.
func (p *Provider) Current() domain.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Status returns the engine status of the loaded track.
func (p *Provider) Status() domain.PlaybackStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == domain.InvalidTrackHandle || p.disposed {
		return domain.StatusStopped
	}
	st, _ := p.engine.Status(p.handle)
	return st
}

// Position returns the playback position of the loaded track.
func (p *Provider) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == domain.InvalidTrackHandle || p.disposed {
		return 0
	}
	pos, _ := p.engine.Position(p.handle)
	return pos
}

// Mixer returns the last volume and mute state the host set.
func (p *Provider) Mixer() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume, p.muted
}

// Finish plays the loaded track to its end and tells the host.
func (p *Provider) Finish() error {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return domain.ErrProviderDisposed
	}
	if p.handle == domain.InvalidTrackHandle {
		p.mu.Unlock()
		return domain.ErrNoTrackLoaded
	}
	p.engine.Finish()
	p.mu.Unlock()
	return p.cb.TrackEnded()
}

// Push adds tracks on behalf of the provider, as if it discovered them.
func (p *Provider) Push(metas ...domain.TrackMetadata) error {
	if len(metas) == 0 {
		return errors.New("nothing to push")
	}
	return p.cb.AddTracks(metas)
}

// Drop removes tracks by URI, as if they vanished at the source.
func (p *Provider) Drop(uris ...string) error {
	return p.cb.RemoveTracks(uris...)
}

var _ ports.SourceProvider = (*Provider)(nil)
