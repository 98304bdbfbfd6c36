package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/karlseguin/ccache/v3"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/ports"
)

// DefaultVolume is the initial volume in percent.
const DefaultVolume = 80.0

// SourceResolver returns the live handle of a source provider.
type SourceResolver interface {
	Source(id string) (ports.SourceProvider, error)
}

// PlaybackConfig configures the playback service.
type PlaybackConfig struct {
	// InitialVolume is in percent. Zero uses DefaultVolume.
	InitialVolume float64

	// ArtworkCacheSize is the number of artwork images kept in memory.
	ArtworkCacheSize int64
	ArtworkTTL       time.Duration
}

// DefaultPlaybackConfig returns the default playback configuration.
func DefaultPlaybackConfig() PlaybackConfig {
	return PlaybackConfig{
		InitialVolume:    DefaultVolume,
		ArtworkCacheSize: 100,
		ArtworkTTL:       10 * time.Minute,
	}
}

// PlaybackService routes transport commands for the current queue item to the source
// provider that owns its track. It tracks status, volume and mute, and advances the
// queue when a provider reports the end of a track.
//
// Transport operations are serialized by op. Field access uses mu, which is never held
// while a provider is called, so providers may read volume and mute from their
// callbacks at any time.
type PlaybackService struct {
	logger  *slog.Logger
	bus     ports.EventBus
	state   *StateService
	sources SourceResolver

	artwork    *ccache.Cache[*domain.Artwork]
	artworkTTL time.Duration

	op sync.Mutex

	mu       sync.RWMutex
	status   domain.PlaybackStatus
	current  Entry
	provider string
	volume   float64
	muted    bool

	// spawn orders auto-advance goroutines against Shutdown.
	spawn  sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	subs   []domain.SubscriptionID
	closed sync.Once
}

// NewPlaybackService creates a playback service and subscribes it to track-end and
// provider-deactivation events.
func NewPlaybackService(
	logger *slog.Logger,
	bus ports.EventBus,
	st *StateService,
	sources SourceResolver,
	cfg PlaybackConfig,
) *PlaybackService {
	if cfg.InitialVolume <= 0 || cfg.InitialVolume > 100 {
		cfg.InitialVolume = DefaultVolume
	}
	if cfg.ArtworkCacheSize <= 0 {
		cfg.ArtworkCacheSize = DefaultPlaybackConfig().ArtworkCacheSize
	}
	if cfg.ArtworkTTL <= 0 {
		cfg.ArtworkTTL = DefaultPlaybackConfig().ArtworkTTL
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &PlaybackService{
		logger:  logger.With(slog.String("service", "playback")),
		bus:     bus,
		state:   st,
		sources: sources,
		artwork: ccache.New(ccache.Configure[*domain.Artwork]().
			MaxSize(cfg.ArtworkCacheSize).
			GetsPerPromote(3).
			ItemsToPrune(1)),
		artworkTTL: cfg.ArtworkTTL,
		volume:     cfg.InitialVolume,
		ctx:        ctx,
		cancel:     cancel,
	}
	s.subs = []domain.SubscriptionID{
		bus.Subscribe(domain.EventTrackEnded, s.onTrackEnded),
		bus.Subscribe(domain.EventProviderDeactivated, s.onProviderDeactivated),
	}
	s.logger.Debug("playback service initialized", slog.Float64("volume", s.volume))
	return s
}

// State returns the current playback state.
func (s *PlaybackService) State() domain.PlaybackState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *PlaybackService) stateLocked() domain.PlaybackState {
	return domain.PlaybackState{
		Item:   s.current.Item,
		Track:  s.current.Track,
		Status: s.status,
		Volume: s.volume,
		Muted:  s.muted,
	}
}

// Volume returns the volume in percent.
func (s *PlaybackService) Volume() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volume
}

// Muted reports whether output is muted.
func (s *PlaybackService) Muted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.muted
}

// setStatus updates the status and publishes PlaybackChangedEvent plus the given event.
func (s *PlaybackService) setStatus(status domain.PlaybackStatus, extra domain.Event) {
	s.mu.Lock()
	s.status = status
	snapshot := s.stateLocked()
	s.mu.Unlock()

	if extra != nil {
		s.bus.Publish(extra)
	}
	s.bus.Publish(domain.NewPlaybackChangedEvent(snapshot))
}

func (s *PlaybackService) loaded() (Entry, string, domain.PlaybackStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.provider, s.status, s.current.Track != nil
}

// start hands entry to its provider and makes it the loaded item.
func (s *PlaybackService) start(ctx context.Context, entry Entry) error {
	track := *entry.Track
	src, err := s.sources.Source(track.ProviderID)
	if err != nil {
		s.fail(entry, err)
		return err
	}

	prev, prevProvider, prevStatus, hadPrev := s.loaded()
	if hadPrev && prevProvider != track.ProviderID && prevStatus == domain.StatusPlaying {
		if old, err := s.sources.Source(prevProvider); err == nil {
			if err := old.Pause(); err != nil {
				s.logger.Warn("failed to pause previous provider",
					slog.String("provider", prevProvider), slog.Any("error", err))
			}
		}
	}

	volume, muted := s.Volume(), s.Muted()
	if err := src.SetVolume(volume); err != nil {
		s.logger.Warn("provider rejected volume", slog.String("provider", track.ProviderID), slog.Any("error", err))
	}
	if err := src.SetMuted(muted); err != nil {
		s.logger.Warn("provider rejected mute", slog.String("provider", track.ProviderID), slog.Any("error", err))
	}

	s.logger.Debug("loading track",
		slog.String("provider", track.ProviderID),
		slog.String("uri", track.URI),
		slog.String("previous", string(prev.Item.ItemID)))

	if err := src.LoadAndPlay(ctx, track); err != nil {
		err = domain.NewProviderError(track.ProviderID, "load and play", err)
		s.fail(entry, err)
		return err
	}

	s.mu.Lock()
	s.current = entry
	s.provider = track.ProviderID
	s.mu.Unlock()

	s.setStatus(domain.StatusPlaying, domain.NewTrackStartedEvent(entry.Item, track))
	return nil
}

func (s *PlaybackService) fail(entry Entry, err error) {
	s.logger.Warn("playback failed", slog.String("item", string(entry.Item.ItemID)), slog.Any("error", err))
	s.mu.Lock()
	s.current = entry
	s.mu.Unlock()
	s.setStatus(domain.StatusStopped, domain.NewTrackErrorEvent(entry.Item, err))
}

// Play starts the current queue item, or the first one when nothing is current.
func (s *PlaybackService) Play(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	entry, ok := s.state.Current()
	if !ok {
		var err error
		if entry, err = s.state.SkipTo(0); err != nil {
			if errors.Is(err, domain.ErrInvalidIndex) {
				return domain.ErrQueueEmpty
			}
			return err
		}
	}
	if entry.Track == nil {
		return domain.ErrTrackNotFound
	}
	return s.start(ctx, entry)
}

// PlayIndex makes queue item n current and starts it. When its track is not loaded the
// queue is left unchanged and ErrTrackNotFound is returned.
func (s *PlaybackService) PlayIndex(ctx context.Context, n int) error {
	s.op.Lock()
	defer s.op.Unlock()

	entry, err := s.state.SkipTo(n)
	if err != nil {
		return err
	}
	return s.start(ctx, entry)
}

// PlayPlaylist loads a playlist into the queue and starts its item at index start.
func (s *PlaybackService) PlayPlaylist(ctx context.Context, id domain.NodeID, start int) error {
	s.op.Lock()
	defer s.op.Unlock()

	entry, err := s.state.PlayPlaylist(id, start)
	if err != nil {
		return err
	}
	return s.start(ctx, entry)
}

// PlayTracks replaces the queue with tracks and starts the one at index start.
func (s *PlaybackService) PlayTracks(ctx context.Context, ids []domain.TrackID, start int) error {
	s.op.Lock()
	defer s.op.Unlock()

	entry, err := s.state.PlayTracks(ids, start)
	if err != nil {
		return err
	}
	return s.start(ctx, entry)
}

// Next advances the queue and starts the new current item. At the end of the queue
// playback stops and ErrEndOfQueue is returned.
func (s *PlaybackService) Next(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	entry, err := s.state.Advance()
	if errors.Is(err, domain.ErrEndOfQueue) {
		s.stopLocked()
		return err
	}
	if err != nil {
		return err
	}
	return s.start(ctx, entry)
}

// Previous moves back in the queue and starts the new current item.
func (s *PlaybackService) Previous(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	entry, err := s.state.Retreat()
	if err != nil {
		return err
	}
	return s.start(ctx, entry)
}

func (s *PlaybackService) loadedSource() (ports.SourceProvider, Entry, domain.PlaybackStatus, error) {
	entry, provider, status, ok := s.loaded()
	if !ok {
		return nil, entry, status, domain.ErrNoTrackLoaded
	}
	src, err := s.sources.Source(provider)
	return src, entry, status, err
}

// Pause pauses the loaded track. Pausing when not playing is a no-op.
func (s *PlaybackService) Pause(context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	src, entry, status, err := s.loadedSource()
	if err != nil {
		return err
	}
	if status != domain.StatusPlaying {
		return nil
	}
	if err := src.Pause(); err != nil {
		return domain.NewProviderError(entry.Track.ProviderID, "pause", err)
	}
	s.setStatus(domain.StatusPaused, domain.NewTrackPausedEvent(entry.Item))
	return nil
}

// Resume continues a paused track, or restarts a stopped one.
func (s *PlaybackService) Resume(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()
	return s.resumeLocked(ctx)
}

func (s *PlaybackService) resumeLocked(ctx context.Context) error {
	src, entry, status, err := s.loadedSource()
	if errors.Is(err, domain.ErrNoTrackLoaded) {
		if cur, ok := s.state.Current(); ok && cur.Track != nil {
			return s.start(ctx, cur)
		}
		return err
	}
	if err != nil {
		return err
	}
	switch status {
	case domain.StatusPlaying:
		return nil
	case domain.StatusStopped:
		return s.start(ctx, entry)
	}
	if err := src.Resume(); err != nil {
		return domain.NewProviderError(entry.Track.ProviderID, "resume", err)
	}
	s.setStatus(domain.StatusPlaying, domain.NewTrackResumedEvent(entry.Item))
	return nil
}

// TogglePlayback pauses when playing and resumes otherwise.
func (s *PlaybackService) TogglePlayback(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	if _, _, status, _ := s.loaded(); status == domain.StatusPlaying {
		src, entry, _, err := s.loadedSource()
		if err != nil {
			return err
		}
		if err := src.Pause(); err != nil {
			return domain.NewProviderError(entry.Track.ProviderID, "pause", err)
		}
		s.setStatus(domain.StatusPaused, domain.NewTrackPausedEvent(entry.Item))
		return nil
	}
	return s.resumeLocked(ctx)
}

// Stop pauses the loaded track and rewinds it.
func (s *PlaybackService) Stop(context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	if _, _, _, ok := s.loaded(); !ok {
		return nil
	}
	s.stopLocked()
	return nil
}

func (s *PlaybackService) stopLocked() {
	src, entry, status, err := s.loadedSource()
	if err == nil && status != domain.StatusStopped {
		if err := src.Pause(); err != nil {
			s.logger.Warn("failed to pause on stop", slog.Any("error", err))
		}
		if err := src.SetTime(0); err != nil {
			s.logger.Warn("failed to rewind on stop", slog.Any("error", err))
		}
	}
	if status == domain.StatusStopped {
		return
	}
	s.setStatus(domain.StatusStopped, domain.NewTrackStoppedEvent(entry.Item))
}

// Seek moves the loaded track to ms milliseconds.
func (s *PlaybackService) Seek(_ context.Context, ms int64) error {
	if ms < 0 {
		return domain.ErrInvalidPosition
	}
	s.op.Lock()
	defer s.op.Unlock()

	src, entry, _, err := s.loadedSource()
	if err != nil {
		return err
	}
	if err := src.SetTime(ms); err != nil {
		return domain.NewProviderError(entry.Track.ProviderID, "seek", err)
	}
	s.bus.Publish(domain.NewTrackSeekedEvent(entry.Item, ms))
	return nil
}

// SetVolume sets the volume in percent (0-100) and forwards it to the active provider.
func (s *PlaybackService) SetVolume(volume float64) error {
	if volume < 0 || volume > 100 {
		return domain.ErrInvalidVolume
	}
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.Lock()
	s.volume = volume
	s.mu.Unlock()

	if src, _, _, err := s.loadedSource(); err == nil {
		if err := src.SetVolume(volume); err != nil {
			s.logger.Warn("provider rejected volume", slog.Any("error", err))
		}
	}
	s.publishMixer(domain.NewVolumeChangedEvent(volume))
	return nil
}

// SetMuted mutes or unmutes output.
func (s *PlaybackService) SetMuted(muted bool) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.Lock()
	changed := s.muted != muted
	s.muted = muted
	s.mu.Unlock()
	if !changed {
		return nil
	}

	if src, _, _, err := s.loadedSource(); err == nil {
		if err := src.SetMuted(muted); err != nil {
			s.logger.Warn("provider rejected mute", slog.Any("error", err))
		}
	}
	s.publishMixer(domain.NewMuteToggledEvent(muted))
	return nil
}

// ToggleMute flips the mute state.
func (s *PlaybackService) ToggleMute() error {
	return s.SetMuted(!s.Muted())
}

func (s *PlaybackService) publishMixer(event domain.Event) {
	s.bus.Publish(event)
	s.bus.Publish(domain.NewPlaybackChangedEvent(s.State()))
}

// Artwork returns the artwork of a track from its provider, cached by track id.
func (s *PlaybackService) Artwork(ctx context.Context, id domain.TrackID) (*domain.Artwork, error) {
	track, ok := s.state.Track(id)
	if !ok {
		return nil, domain.ErrTrackNotFound
	}
	item, err := s.artwork.Fetch(string(id), s.artworkTTL, func() (*domain.Artwork, error) {
		src, err := s.sources.Source(track.ProviderID)
		if err != nil {
			return nil, err
		}
		ap, ok := src.(ports.ArtworkProvider)
		if !ok {
			return nil, domain.ErrNoArtwork
		}
		art, err := ap.TrackArtwork(ctx, track)
		if err != nil {
			return nil, err
		}
		if art == nil {
			return nil, domain.ErrNoArtwork
		}
		return art, nil
	})
	if err != nil {
		return nil, err
	}
	return item.Value(), nil
}

func (s *PlaybackService) onTrackEnded(event domain.Event) {
	e, ok := event.(domain.TrackEndedEvent)
	if !ok {
		return
	}
	_, provider, status, loaded := s.loaded()
	if !loaded || provider != e.ProviderID || status != domain.StatusPlaying {
		return
	}
	s.spawn.Lock()
	defer s.spawn.Unlock()
	if s.ctx.Err() != nil {
		return
	}

	// Providers report the end from their own goroutines, possibly while holding locks.
	s.wg.Go(func() {
		if err := s.Next(s.ctx); err != nil && !errors.Is(err, domain.ErrEndOfQueue) {
			s.logger.Warn("auto-advance failed", slog.Any("error", err))
		}
	})
}

func (s *PlaybackService) onProviderDeactivated(event domain.Event) {
	e, ok := event.(domain.ProviderDeactivatedEvent)
	if !ok {
		return
	}
	entry, provider, status, loaded := s.loaded()
	if !loaded || provider != e.ProviderID || status == domain.StatusStopped {
		return
	}
	s.setStatus(domain.StatusStopped, domain.NewTrackStoppedEvent(entry.Item))
}

// Shutdown stops event handling, waits for pending auto-advances and releases the
// artwork cache. Calls after the first do nothing.
func (s *PlaybackService) Shutdown() {
	s.closed.Do(func() {
		for _, id := range s.subs {
			s.bus.Unsubscribe(id)
		}
		s.spawn.Lock()
		s.cancel()
		s.spawn.Unlock()
		s.wg.Wait()
		s.artwork.Stop()
		s.logger.Debug("playback service shut down")
	})
}

var (
	_ ports.PlaybackControls = (*PlaybackService)(nil)
	_ PlaybackHost           = (*PlaybackService)(nil)
)
