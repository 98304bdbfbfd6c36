package service

import (
	"context"
	"sync"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/ports"
)

// providerScope gates the callbacks of one provider handle. Deliveries run one at a
// time in issue order; close waits for the one in flight and rejects the rest.
type providerScope struct {
	mu     sync.Mutex
	closed bool
}

func (s *providerScope) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// run executes fn if the scope is open and returns the events it produced. Events are
// published by the caller after the scope lock is released.
func (s *providerScope) run(fn func() ([]domain.Event, error)) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, domain.ErrProviderDisposed
	}
	return fn()
}

type baseCallbacks struct {
	reg   *ProviderRegistry
	id    string
	scope *providerScope
}

func (c *baseCallbacks) ProviderID() string {
	return c.id
}

func (c *baseCallbacks) Data() domain.ProviderData {
	data, err := c.reg.Data(c.id)
	if err != nil {
		return domain.ProviderData{}
	}
	return data
}

func (c *baseCallbacks) UpdateData(patch domain.ProviderData) error {
	_, err := c.scope.run(func() ([]domain.Event, error) { return nil, nil })
	if err != nil {
		return err
	}
	return c.reg.UpdateData(c.id, patch)
}

func (c *baseCallbacks) Controls() ports.PlaybackControls {
	if host := c.reg.playbackHost(); host != nil {
		return host
	}
	return detachedControls{}
}

type sourceCallbacks struct {
	baseCallbacks
}

func (c *sourceCallbacks) Tracks() []domain.Track {
	return c.reg.state.ProviderTracks(c.id)
}

func (c *sourceCallbacks) deliver(fn func() ([]domain.Event, error)) error {
	events, err := c.scope.run(fn)
	c.reg.state.publish(events)
	return err
}

func (c *sourceCallbacks) AddTracks(metas []domain.TrackMetadata) error {
	return c.deliver(func() ([]domain.Event, error) {
		return c.reg.state.upsertTracksEvents(c.id, metas)
	})
}

func (c *sourceCallbacks) UpdateMetadata(metas []domain.TrackMetadata) error {
	return c.deliver(func() ([]domain.Event, error) {
		return c.reg.state.mergeMetadataEvents(c.id, metas)
	})
}

func (c *sourceCallbacks) RemoveTracks(uris ...string) error {
	return c.deliver(func() ([]domain.Event, error) {
		return c.reg.state.removeProviderTracksEvents(c.id, uris), nil
	})
}

func (c *sourceCallbacks) Volume() float64 {
	if host := c.reg.playbackHost(); host != nil {
		return host.Volume()
	}
	return DefaultVolume
}

func (c *sourceCallbacks) Muted() bool {
	if host := c.reg.playbackHost(); host != nil {
		return host.Muted()
	}
	return false
}

func (c *sourceCallbacks) TrackEnded() error {
	return c.deliver(func() ([]domain.Event, error) {
		return []domain.Event{domain.NewTrackEndedEvent(c.id)}, nil
	})
}

// detachedControls is handed out before a playback host is attached.
type detachedControls struct{}

func (detachedControls) TogglePlayback(context.Context) error { return domain.ErrNotInitialized }
func (detachedControls) Pause(context.Context) error          { return domain.ErrNotInitialized }
func (detachedControls) Resume(context.Context) error         { return domain.ErrNotInitialized }
func (detachedControls) Stop(context.Context) error           { return domain.ErrNotInitialized }
func (detachedControls) Next(context.Context) error           { return domain.ErrNotInitialized }
func (detachedControls) Previous(context.Context) error       { return domain.ErrNotInitialized }
func (detachedControls) Seek(context.Context, int64) error    { return domain.ErrNotInitialized }

var (
	_ ports.SourceCallbacks  = (*sourceCallbacks)(nil)
	_ ports.PlaybackControls = detachedControls{}
)
